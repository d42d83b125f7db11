// Package layout runs the force-directed simulation that positions traffic
// graph nodes.
//
// # Overview
//
// [Build] copies a [flow.Model] into an engine-owned arena of [Node] and
// [Link] values addressed by index. The model is never written to; a new
// build always starts from fresh copies, so pins, velocities and original
// positions from a previous engine are discarded.
//
// The engine integrates an ordered list of forces each step:
//
//   - link: springs pulling linked pairs toward a separation of 100 units
//   - charge: pairwise repulsion (strength -50) approximated with a
//     Barnes-Hut quadtree
//   - center: shifts the node centroid onto the origin
//   - collide: keeps centers at least r_i + r_j + 5 apart
//   - cluster (port mode only): pulls every endpoint toward an anchor
//     shared by all endpoints of the same host
//
// Node radii come from a square-root scale over traffic volume, mapping the
// smallest volume to 5 and the largest to 20.
//
// # Alpha
//
// Alpha is the simulation temperature. Each step moves it toward the alpha
// target by a fixed decay so that it falls from 1 to 0.001 in 300 steps.
// Forces are scaled by alpha; once it drops below the minimum the engine
// stops running until something reheats it.
//
// # Burn-in
//
// Build advances the simulation 300 steps synchronously, records every
// node's position as its origin (the target of single-node and bulk
// resets), then reheats to alpha 1. From then on each [Engine.Tick] is one
// step and returns a [Frame] for the renderer:
//
//	e := layout.Build(models.Port)
//	for {
//	    frame, ok := e.Tick()
//	    if !ok {
//	        break
//	    }
//	    draw(frame)
//	}
//
// [Engine.Stop] is idempotent; after it no tick produces a frame.
//
// # Stability
//
// [Stability] derives a boolean from alpha: stable once alpha falls below
// 0.05, unstable again as soon as it rises to 0.05 or above. Hosts use it
// to gate actions that must not race a moving layout.
//
// # Concurrency
//
// An Engine is not safe for concurrent use. It is driven from a single
// render loop; pointer handlers run on the same loop.
package layout
