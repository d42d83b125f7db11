package layout

import "math"

// Params holds the simulation constants.
type Params struct {
	LinkDistance    float64 // target separation of linked nodes
	Charge          float64 // many-body strength; negative repels
	Theta           float64 // Barnes-Hut accuracy; 0 computes every pair
	DistanceMax     float64 // charge cut-off distance; 0 means unbounded
	CollidePadding  float64 // extra gap between two circles
	MinRadius       float64
	MaxRadius       float64
	CenterStrength  float64
	ClusterRadius   float64 // radius of the anchor circle in port mode
	ClusterStrength float64
	BurnIn          int // synchronous steps run by Build
	AlphaMin        float64
	AlphaDecay      float64
	VelocityDecay   float64
	StableThreshold float64
	Seed            uint64 // seeds the jiggle applied to coincident nodes
}

// DefaultParams returns the standard simulation constants.
func DefaultParams() Params {
	return Params{
		LinkDistance:    100,
		Charge:          -50,
		Theta:           0.9,
		CollidePadding:  5,
		MinRadius:       5,
		MaxRadius:       20,
		CenterStrength:  1,
		ClusterRadius:   300,
		ClusterStrength: 0.5,
		BurnIn:          300,
		AlphaMin:        0.001,
		AlphaDecay:      AlphaDecayFor(0.001, 300),
		VelocityDecay:   0.4,
		StableThreshold: 0.05,
		Seed:            42,
	}
}

// Option configures an engine built by [Build].
type Option func(*Params)

// WithParams replaces all simulation constants.
func WithParams(p Params) Option { return func(dst *Params) { *dst = p } }

// WithLinkDistance sets the target link length.
func WithLinkDistance(d float64) Option { return func(p *Params) { p.LinkDistance = d } }

// WithCharge sets the many-body strength.
func WithCharge(s float64) Option { return func(p *Params) { p.Charge = s } }

// WithBurnIn sets the number of synchronous steps run at build time.
func WithBurnIn(steps int) Option { return func(p *Params) { p.BurnIn = max(steps, 0) } }

// WithCluster sets the anchor circle radius and pull strength used in port mode.
func WithCluster(radius, strength float64) Option {
	return func(p *Params) { p.ClusterRadius, p.ClusterStrength = radius, strength }
}

// WithStableThreshold sets the alpha below which the layout counts as stable.
func WithStableThreshold(a float64) Option { return func(p *Params) { p.StableThreshold = a } }

// WithSeed sets the seed of the jiggle generator.
func WithSeed(seed uint64) Option { return func(p *Params) { p.Seed = seed } }

// AlphaDecayFor returns the per-step decay that takes alpha from 1 to
// alphaMin in the given number of steps.
func AlphaDecayFor(alphaMin float64, steps int) float64 {
	if steps <= 0 {
		steps = 300
	}
	return 1 - math.Pow(alphaMin, 1/float64(steps))
}
