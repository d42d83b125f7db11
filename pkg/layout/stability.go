package layout

// Transition describes how an observation changed the stable signal.
type Transition int

const (
	Unchanged Transition = iota
	BecameStable
	BecameUnstable
)

// Stability derives a stable/unstable signal from alpha. The layout is
// stable from the first observation below the threshold until an
// observation at or above it.
type Stability struct {
	threshold float64
	stable    bool
}

// NewStability creates a detector that starts unstable.
func NewStability(threshold float64) Stability {
	return Stability{threshold: threshold}
}

// Observe feeds the current alpha and reports the resulting transition.
func (s *Stability) Observe(alpha float64) Transition {
	switch {
	case !s.stable && alpha < s.threshold:
		s.stable = true
		return BecameStable
	case s.stable && alpha >= s.threshold:
		s.stable = false
		return BecameUnstable
	}
	return Unchanged
}

// Stable reports the current signal.
func (s *Stability) Stable() bool { return s.stable }
