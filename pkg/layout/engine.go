package layout

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/observability"
)

// Phyllotaxis seeding for initial positions.
var (
	initialRadius = 10.0
	initialAngle  = math.Pi * (3 - math.Sqrt(5))
)

// Engine owns a working copy of a graph and integrates forces over it.
type Engine struct {
	id     string
	mode   flow.Mode
	params Params

	nodes  []Node
	links  []Link
	index  map[string]int
	forces []Force

	state     State
	stability Stability
	rng       *rand.Rand
	stopped   bool
}

// Build copies m into a new engine, runs the burn-in and reheats the
// simulation. The cluster force is added when m is a port-mode model.
func Build(m flow.Model, opts ...Option) *Engine {
	p := DefaultParams()
	for _, opt := range opts {
		opt(&p)
	}

	e := &Engine{
		id:        uuid.NewString(),
		mode:      m.Mode,
		params:    p,
		index:     make(map[string]int, len(m.Nodes)),
		stability: NewStability(p.StableThreshold),
		rng:       rand.New(rand.NewPCG(p.Seed, p.Seed)),
		state:     State{Alpha: 1},
	}

	scale := newSizeScale(m.Nodes, p.MinRadius, p.MaxRadius)
	e.nodes = make([]Node, len(m.Nodes))
	for i, fn := range m.Nodes {
		if fn.Port != nil {
			port := *fn.Port
			fn.Port = &port
		}
		r := initialRadius * math.Sqrt(0.5+float64(i))
		a := float64(i) * initialAngle
		e.nodes[i] = Node{
			Node:   fn,
			Index:  i,
			X:      r * math.Cos(a),
			Y:      r * math.Sin(a),
			Radius: scale.radius(fn.Volume),
		}
		e.index[fn.ID] = i
	}

	e.links = make([]Link, 0, len(m.Links))
	for _, fl := range m.Links {
		s, okS := e.index[fl.Source]
		t, okT := e.index[fl.Target]
		if !okS || !okT {
			continue
		}
		fl.SrcPort, fl.DstPort = copyPort(fl.SrcPort), copyPort(fl.DstPort)
		e.links = append(e.links, Link{Link: fl, Index: len(e.links), Source: s, Target: t})
	}

	e.forces = e.buildForces()

	start := time.Now()
	for range p.BurnIn {
		e.step()
	}
	for i := range e.nodes {
		e.nodes[i].Origin = Point{X: e.nodes[i].X, Y: e.nodes[i].Y}
	}
	observability.Layout().OnBurnIn(e.id, string(e.mode), len(e.nodes), len(e.links), p.BurnIn, time.Since(start))

	if len(e.nodes) > 0 {
		e.state.Alpha = 1
		e.state.Running = true
	}
	e.stability.Observe(e.state.Alpha)
	return e
}

// buildForces selects the ordered force list for this build.
func (e *Engine) buildForces() []Force {
	p := e.params
	forces := []Force{
		linkForce(e.nodes, e.links, p.LinkDistance, e.jiggle),
		chargeForce(e.nodes, p.Charge, p.Theta, p.DistanceMax, e.jiggle),
		centerForce(e.nodes, p.CenterStrength),
		collideForce(e.nodes, p.CollidePadding, e.jiggle),
	}
	if e.mode == flow.ModePort {
		fns := make([]flow.Node, len(e.nodes))
		for i, n := range e.nodes {
			fns[i] = n.Node
		}
		forces = append(forces, clusterForce(e.nodes, ClusterAnchors(fns, p.ClusterRadius), p.ClusterStrength))
	}
	return forces
}

func (e *Engine) jiggle() float64 { return (e.rng.Float64() - 0.5) * 1e-6 }

// step advances alpha, applies every force and integrates positions.
func (e *Engine) step() {
	s := &e.state
	s.Alpha += (s.AlphaTarget - s.Alpha) * e.params.AlphaDecay

	for _, f := range e.forces {
		f(s.Alpha)
	}

	keep := 1 - e.params.VelocityDecay
	for i := range e.nodes {
		n := &e.nodes[i]
		if n.Pin != nil {
			n.X, n.Y = n.Pin.X, n.Pin.Y
			n.VX, n.VY = 0, 0
			continue
		}
		n.VX *= keep
		n.VY *= keep
		n.X += n.VX
		n.Y += n.VY
	}
}

// Tick advances the simulation one step and returns the new frame. It
// reports false, without stepping, once the engine has settled or been
// stopped.
func (e *Engine) Tick() (Frame, bool) {
	if e.stopped || !e.state.Running {
		return Frame{}, false
	}

	e.step()
	e.state.Ticks++
	e.stability.Observe(e.state.Alpha)
	if e.state.Alpha < e.params.AlphaMin {
		e.state.Running = false
		observability.Layout().OnSettled(e.id, e.state.Ticks)
	}
	return e.Frame(), true
}

// RunUntilSettled ticks until the engine stops running, the context is
// done, or maxTicks steps have run (0 means no limit).
func (e *Engine) RunUntilSettled(ctx context.Context, maxTicks int) (Frame, error) {
	for i := 0; maxTicks <= 0 || i < maxTicks; i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return e.Frame(), err
			}
		}
		if _, ok := e.Tick(); !ok {
			break
		}
	}
	return e.Frame(), nil
}

// Stop halts the engine permanently. It is safe to call more than once.
func (e *Engine) Stop() {
	if e.stopped {
		return
	}
	e.stopped = true
	e.state.Running = false
	observability.Layout().OnStop(e.id)
}

// Stopped reports whether Stop has been called.
func (e *Engine) Stopped() bool { return e.stopped }

// Resume makes a settled engine tick again without changing alpha.
func (e *Engine) Resume() error {
	if e.stopped {
		return errors.New(errors.ErrCodeEngineStopped, "engine %s is stopped", e.id)
	}
	if len(e.nodes) > 0 {
		e.state.Running = true
	}
	return nil
}

// SetAlpha sets the current alpha, clamped to [0, 1].
func (e *Engine) SetAlpha(alpha float64) {
	e.state.Alpha = clamp01(alpha)
	e.stability.Observe(e.state.Alpha)
}

// SetAlphaTarget sets the value alpha decays toward, clamped to [0, 1].
func (e *Engine) SetAlphaTarget(target float64) {
	e.state.AlphaTarget = clamp01(target)
}

// Pin fixes node id at p.
func (e *Engine) Pin(id string, p Point) error {
	n, err := e.node(id)
	if err != nil {
		return err
	}
	n.Pin = &Point{X: p.X, Y: p.Y}
	return nil
}

// Unpin releases node id.
func (e *Engine) Unpin(id string) error {
	n, err := e.node(id)
	if err != nil {
		return err
	}
	n.Pin = nil
	return nil
}

// ResetPositions moves every node back to its origin, zeroes velocities
// and clears all pins.
func (e *Engine) ResetPositions() {
	for i := range e.nodes {
		n := &e.nodes[i]
		n.X, n.Y = n.Origin.X, n.Origin.Y
		n.VX, n.VY = 0, 0
		n.Pin = nil
	}
}

func (e *Engine) node(id string) (*Node, error) {
	i, ok := e.index[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownNode, "node %q not in layout", id)
	}
	return &e.nodes[i], nil
}

// Node returns a copy of the node with the given id.
func (e *Engine) Node(id string) (Node, bool) {
	i, ok := e.index[id]
	if !ok {
		return Node{}, false
	}
	n := e.nodes[i]
	if n.Pin != nil {
		pin := *n.Pin
		n.Pin = &pin
	}
	return n, true
}

// Find returns the id of the node whose circle contains (x, y), preferring
// the closest center.
func (e *Engine) Find(x, y float64) (string, bool) {
	best, bestD := -1, math.Inf(1)
	for i, n := range e.nodes {
		dx, dy := n.X-x, n.Y-y
		d := dx*dx + dy*dy
		if d <= n.Radius*n.Radius && d < bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return "", false
	}
	return e.nodes[best].ID, true
}

// Frame snapshots the current positions.
func (e *Engine) Frame() Frame {
	f := Frame{
		Nodes:  make([]NodeFrame, len(e.nodes)),
		Links:  make([]LinkFrame, len(e.links)),
		Alpha:  e.state.Alpha,
		Tick:   e.state.Ticks,
		Stable: e.stability.Stable(),
	}
	for i, n := range e.nodes {
		f.Nodes[i] = NodeFrame{ID: n.ID, X: n.X, Y: n.Y, Radius: n.Radius, Pinned: n.Pin != nil}
	}
	for i, l := range e.links {
		s, t := &e.nodes[l.Source], &e.nodes[l.Target]
		x1, y1, x2, y2 := segment(s, t)
		f.Links[i] = LinkFrame{
			ID:     l.ID(),
			Source: s.ID,
			Target: t.ID,
			X1:     x1, Y1: y1, X2: x2, Y2: y2,
		}
	}
	return f
}

// ID returns the unique id of this build.
func (e *Engine) ID() string { return e.id }

// Mode returns the grouping mode of the model the engine was built from.
func (e *Engine) Mode() flow.Mode { return e.mode }

// State returns the simulation clock.
func (e *Engine) State() State { return e.state }

// Stable reports whether alpha is below the stability threshold.
func (e *Engine) Stable() bool { return e.stability.Stable() }

// Len returns the number of nodes.
func (e *Engine) Len() int { return len(e.nodes) }

func clamp01(v float64) float64 { return math.Min(math.Max(v, 0), 1) }

func copyPort(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
