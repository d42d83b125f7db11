package layout

import "math"

// NodeFrame is a node as drawn for one tick.
type NodeFrame struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Pinned bool    `json:"pinned,omitempty"`
}

// LinkFrame is a link segment whose endpoints touch the node circles.
type LinkFrame struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
}

// Frame is the renderer's view of the simulation after one step.
type Frame struct {
	Nodes  []NodeFrame `json:"nodes"`
	Links  []LinkFrame `json:"links"`
	Alpha  float64     `json:"alpha"`
	Tick   int         `json:"tick"`
	Stable bool        `json:"stable"`
}

// Bounds returns the bounding box of all node circles. It is the zero box
// for an empty frame.
func (f Frame) Bounds() (minX, minY, maxX, maxY float64) {
	for i, n := range f.Nodes {
		if i == 0 {
			minX, minY, maxX, maxY = n.X-n.Radius, n.Y-n.Radius, n.X+n.Radius, n.Y+n.Radius
			continue
		}
		minX = math.Min(minX, n.X-n.Radius)
		minY = math.Min(minY, n.Y-n.Radius)
		maxX = math.Max(maxX, n.X+n.Radius)
		maxY = math.Max(maxY, n.Y+n.Radius)
	}
	return minX, minY, maxX, maxY
}

// segment projects a link onto the boundaries of its endpoint circles along
// the line between their centers.
func segment(s, t *Node) (x1, y1, x2, y2 float64) {
	angle := math.Atan2(t.Y-s.Y, t.X-s.X)
	cos, sin := math.Cos(angle), math.Sin(angle)
	return s.X + s.Radius*cos, s.Y + s.Radius*sin,
		t.X - t.Radius*cos, t.Y - t.Radius*sin
}
