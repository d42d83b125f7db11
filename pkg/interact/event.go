package interact

import "math"

// Kind classifies a pointer gesture.
type Kind int

const (
	Drag Kind = iota
	Wheel
	DoubleClick
)

// Target is what the pointer was over when the gesture began.
type Target int

const (
	Canvas Target = iota
	NodeTarget
	LabelTarget
)

// Event is a pan/zoom gesture in screen coordinates. DX and DY carry the
// drag delta; Delta carries the wheel delta in pixels, positive when
// scrolling down.
type Event struct {
	Kind   Kind
	Target Target
	X, Y   float64
	DX, DY float64
	Delta  float64
}

// wheelFactor matches the usual browser zoom curve: 2^(-delta/500).
func wheelFactor(delta float64) float64 {
	return math.Pow(2, -delta*0.002)
}
