package layout

import (
	"math"

	"github.com/matzehuels/flowscope/pkg/flow"
)

// sizeScale maps traffic volume to a radius with a square-root scale.
type sizeScale struct {
	lo, hi float64 // sqrt of the volume domain
	r0, r1 float64
}

func newSizeScale(nodes []flow.Node, r0, r1 float64) sizeScale {
	s := sizeScale{r0: r0, r1: r1}
	for i, n := range nodes {
		v := math.Sqrt(float64(max(n.Volume, 0)))
		if i == 0 || v < s.lo {
			s.lo = v
		}
		if i == 0 || v > s.hi {
			s.hi = v
		}
	}
	return s
}

func (s sizeScale) radius(volume int64) float64 {
	if s.hi <= s.lo {
		return s.r0
	}
	t := (math.Sqrt(float64(max(volume, 0))) - s.lo) / (s.hi - s.lo)
	t = math.Min(math.Max(t, 0), 1)
	return s.r0 + t*(s.r1-s.r0)
}
