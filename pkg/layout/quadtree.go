package layout

import "math"

// maxQuadDepth bounds subdivision so nearly coincident nodes share a leaf.
const maxQuadDepth = 32

// quad is a square region of a point-region quadtree over node positions.
// Internal cells carry the centroid and count of everything beneath them.
type quad struct {
	x0, y0, x1, y1 float64
	leaf           bool
	points         []int // node indices, leaves only
	children       [4]*quad
	count          int
	cx, cy         float64
}

func (q *quad) weight() float64 { return float64(q.count) }

// newQuadtree indexes the current node positions.
func newQuadtree(nodes []Node) *quad {
	x0, y0 := math.Inf(1), math.Inf(1)
	x1, y1 := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		x0, y0 = math.Min(x0, n.X), math.Min(y0, n.Y)
		x1, y1 = math.Max(x1, n.X), math.Max(y1, n.Y)
	}
	size := math.Max(math.Max(x1-x0, y1-y0), 1)
	root := &quad{x0: x0, y0: y0, x1: x0 + size, y1: y0 + size, leaf: true}

	for i := range nodes {
		root.insert(nodes, i, 0)
	}
	root.accumulate(nodes)
	return root
}

func (q *quad) insert(nodes []Node, i, depth int) {
	if q.leaf {
		if len(q.points) == 0 || depth >= maxQuadDepth || samePosition(nodes[q.points[0]], nodes[i]) {
			q.points = append(q.points, i)
			return
		}
		existing := q.points
		q.points = nil
		q.leaf = false
		for _, j := range existing {
			q.child(nodes[j]).insert(nodes, j, depth+1)
		}
	}
	q.child(nodes[i]).insert(nodes, i, depth+1)
}

// child returns (creating if needed) the quadrant containing n.
func (q *quad) child(n Node) *quad {
	xm, ym := (q.x0+q.x1)/2, (q.y0+q.y1)/2
	idx := 0
	if n.X >= xm {
		idx |= 1
	}
	if n.Y >= ym {
		idx |= 2
	}
	if q.children[idx] == nil {
		c := &quad{x0: q.x0, y0: q.y0, x1: xm, y1: ym, leaf: true}
		if idx&1 != 0 {
			c.x0, c.x1 = xm, q.x1
		}
		if idx&2 != 0 {
			c.y0, c.y1 = ym, q.y1
		}
		q.children[idx] = c
	}
	return q.children[idx]
}

// accumulate computes counts and centroids bottom-up.
func (q *quad) accumulate(nodes []Node) {
	var sx, sy float64
	if q.leaf {
		for _, j := range q.points {
			sx += nodes[j].X
			sy += nodes[j].Y
		}
		q.count = len(q.points)
	} else {
		q.count = 0
		for _, c := range q.children {
			if c == nil {
				continue
			}
			c.accumulate(nodes)
			q.count += c.count
			sx += c.cx * float64(c.count)
			sy += c.cy * float64(c.count)
		}
	}
	if q.count > 0 {
		q.cx, q.cy = sx/float64(q.count), sy/float64(q.count)
	}
}

func samePosition(a, b Node) bool { return a.X == b.X && a.Y == b.Y }
