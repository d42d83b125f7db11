// Package nodelink renders laid-out traffic graphs as static node-link
// diagrams.
//
// # Usage
//
// Convert a model and a settled frame to DOT, then render:
//
//	dot := nodelink.ToDOT(model, frame, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot)
//
// Positions come from the force layout, not from Graphviz. Each node is
// emitted with a pinned pos attribute and the neato engine is used only to
// draw circles and straight edges at those coordinates.
//
// Nodes are filled by transport: TCP blue, UDP orange and mixed purple.
// Pinned nodes get a heavier outline.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process rendering.
package nodelink
