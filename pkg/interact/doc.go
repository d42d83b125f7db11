// Package interact turns pointer input into commands against a layout
// engine.
//
// A [Controller] implements the node gestures:
//
//   - drag start pins the node where it is and warms the simulation to an
//     alpha target of 0.3 so neighbors react
//   - drag move moves the pin to the pointer
//   - drag end drops the alpha target back to 0; the node stays pinned
//   - double click pins the node at its burn-in origin and reheats to 1
//   - reset all, allowed only while the layout is stable, returns every
//     node to its origin, clears all pins and reheats to 1
//
// Double click pins while reset all unpins. The two are intentionally not
// unified.
//
// The controller also owns the canvas [Transform]. [Controller.PanZoom]
// applies drag and wheel gestures that land on empty canvas and ignores
// gestures on nodes or labels as well as double clicks.
package interact
