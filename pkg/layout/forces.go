package layout

import "math"

// Force updates node velocities (or, for centering, positions) for one
// step at the given alpha.
type Force func(alpha float64)

// jiggler returns a tiny random offset used to separate coincident nodes.
type jiggler func() float64

// linkForce pulls each linked pair toward the target distance. Strength is
// 1/min(degree) and the correction is split by degree so that hubs move
// less than leaves.
func linkForce(nodes []Node, links []Link, distance float64, jiggle jiggler) Force {
	count := make([]int, len(nodes))
	for _, l := range links {
		count[l.Source]++
		count[l.Target]++
	}

	strength := make([]float64, len(links))
	bias := make([]float64, len(links))
	for i, l := range links {
		cs, ct := count[l.Source], count[l.Target]
		strength[i] = 1 / float64(min(cs, ct))
		bias[i] = float64(cs) / float64(cs+ct)
	}

	return func(alpha float64) {
		for i, l := range links {
			s, t := &nodes[l.Source], &nodes[l.Target]
			x := t.X + t.VX - s.X - s.VX
			y := t.Y + t.VY - s.Y - s.VY
			if x == 0 {
				x = jiggle()
			}
			if y == 0 {
				y = jiggle()
			}
			d := math.Sqrt(x*x + y*y)
			d = (d - distance) / d * alpha * strength[i]
			x, y = x*d, y*d

			b := bias[i]
			t.VX -= x * b
			t.VY -= y * b
			s.VX += x * (1 - b)
			s.VY += y * (1 - b)
		}
	}
}

// chargeForce applies the many-body force with a Barnes-Hut approximation.
func chargeForce(nodes []Node, strength, theta, distanceMax float64, jiggle jiggler) Force {
	maxDist2 := math.Inf(1)
	if distanceMax > 0 {
		maxDist2 = distanceMax * distanceMax
	}
	b := &barnesHut{
		nodes:    nodes,
		strength: strength,
		theta2:   theta * theta,
		minDist2: 1,
		maxDist2: maxDist2,
		jiggle:   jiggle,
	}
	return func(alpha float64) {
		if len(nodes) < 2 {
			return
		}
		root := newQuadtree(nodes)
		for i := range nodes {
			b.apply(root, i, alpha)
		}
	}
}

type barnesHut struct {
	nodes    []Node
	strength float64
	theta2   float64
	minDist2 float64
	maxDist2 float64
	jiggle   jiggler
}

// apply accumulates the charge of everything in q onto node i.
func (b *barnesHut) apply(q *quad, i int, alpha float64) {
	if q == nil || q.count == 0 {
		return
	}
	n := &b.nodes[i]

	if !q.leaf {
		x, y := q.cx-n.X, q.cy-n.Y
		w := q.x1 - q.x0
		l := x*x + y*y
		if w*w/b.theta2 < l {
			if l < b.maxDist2 {
				b.push(n, x, y, l, q.weight()*b.strength*alpha)
			}
			return
		}
		for _, c := range q.children {
			b.apply(c, i, alpha)
		}
		return
	}

	for _, j := range q.points {
		if j == i {
			continue
		}
		x, y := b.nodes[j].X-n.X, b.nodes[j].Y-n.Y
		l := x*x + y*y
		if l >= b.maxDist2 {
			continue
		}
		b.push(n, x, y, l, b.strength*alpha)
	}
}

// push adds k·(x,y)/l to the node velocity, guarding coincident and very
// close pairs.
func (b *barnesHut) push(n *Node, x, y, l, k float64) {
	if x == 0 {
		x = b.jiggle()
		l += x * x
	}
	if y == 0 {
		y = b.jiggle()
		l += y * y
	}
	if l < b.minDist2 {
		l = math.Sqrt(b.minDist2 * l)
	}
	n.VX += x * k / l
	n.VY += y * k / l
}

// centerForce translates all nodes so their centroid sits on the origin.
func centerForce(nodes []Node, strength float64) Force {
	return func(float64) {
		if len(nodes) == 0 {
			return
		}
		var sx, sy float64
		for _, n := range nodes {
			sx += n.X
			sy += n.Y
		}
		sx = sx / float64(len(nodes)) * strength
		sy = sy / float64(len(nodes)) * strength
		for i := range nodes {
			nodes[i].X -= sx
			nodes[i].Y -= sy
		}
	}
}

type cellKey struct{ x, y int }

// collideForce pushes apart overlapping circles. Each node's collision
// radius is its drawn radius plus half the padding, so two nodes end up at
// least r_i + r_j + padding apart. Candidate pairs come from a uniform grid
// whose cell is the largest collision diameter.
func collideForce(nodes []Node, padding float64, jiggle jiggler) Force {
	radii := make([]float64, len(nodes))
	var maxR float64
	for i, n := range nodes {
		radii[i] = n.Radius + padding/2
		maxR = math.Max(maxR, radii[i])
	}
	cell := 2 * maxR

	return func(float64) {
		if len(nodes) < 2 || cell <= 0 {
			return
		}

		grid := make(map[cellKey][]int, len(nodes))
		keys := make([]cellKey, len(nodes))
		for i, n := range nodes {
			k := cellKey{int(math.Floor((n.X + n.VX) / cell)), int(math.Floor((n.Y + n.VY) / cell))}
			keys[i] = k
			grid[k] = append(grid[k], i)
		}

		for i := range nodes {
			n := &nodes[i]
			xi, yi := n.X+n.VX, n.Y+n.VY
			ri := radii[i]
			ri2 := ri * ri

			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					for _, j := range grid[cellKey{keys[i].x + dx, keys[i].y + dy}] {
						if j <= i {
							continue
						}
						m := &nodes[j]
						rj := radii[j]
						r := ri + rj
						x := xi - m.X - m.VX
						y := yi - m.Y - m.VY
						l := x*x + y*y
						if l >= r*r {
							continue
						}
						if x == 0 {
							x = jiggle()
							l += x * x
						}
						if y == 0 {
							y = jiggle()
							l += y * y
						}
						l = math.Sqrt(l)
						l = (r - l) / l
						x, y = x*l, y*l

						rj2 := rj * rj
						share := rj2 / (ri2 + rj2)
						n.VX += x * share
						n.VY += y * share
						m.VX -= x * (1 - share)
						m.VY -= y * (1 - share)
					}
				}
			}
		}
	}
}
