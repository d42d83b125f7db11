package interact

import "math"

// Scale limits for the canvas transform.
const (
	MinScale = 0.1
	MaxScale = 10
)

// Transform maps world coordinates to screen coordinates:
// screen = world*K + (X, Y).
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity is the transform with no translation and unit scale.
var Identity = Transform{K: 1}

// Apply maps a world point to the screen.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// Invert maps a screen point back to world coordinates.
func (t Transform) Invert(x, y float64) (float64, float64) {
	return (x - t.X) / t.K, (y - t.Y) / t.K
}

// Translate shifts the transform by a screen-space offset.
func (t Transform) Translate(dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t
}

// ScaleAt rescales by factor, clamped to [MinScale, MaxScale], keeping the
// screen point (px, py) fixed.
func (t Transform) ScaleAt(factor, px, py float64) Transform {
	k := clampScale(t.K * factor)
	wx, wy := t.Invert(px, py)
	return Transform{X: px - wx*k, Y: py - wy*k, K: k}
}

func clampScale(k float64) float64 {
	if math.IsNaN(k) {
		return 1
	}
	return math.Min(math.Max(k, MinScale), MaxScale)
}
