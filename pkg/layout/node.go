package layout

import "github.com/matzehuels/flowscope/pkg/flow"

// Point is a position in world coordinates.
type Point struct {
	X, Y float64
}

// Node is the engine's working copy of a flow node.
type Node struct {
	flow.Node

	Index  int
	X, Y   float64
	VX, VY float64
	Pin    *Point // fixed position; forces do not move a pinned node
	Origin Point  // position after burn-in, the reset target
	Radius float64
}

// Pinned reports whether the node is held at a fixed position.
func (n Node) Pinned() bool { return n.Pin != nil }

// Link connects two arena indices.
type Link struct {
	flow.Link

	Index  int
	Source int
	Target int
}

// State is the simulation clock.
type State struct {
	Alpha       float64
	AlphaTarget float64
	Ticks       int // steps emitted after burn-in
	Running     bool
}
