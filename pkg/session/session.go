// Package session owns the state of one interactive traffic view.
//
// A [Session] holds both aggregated models, the selected mode, the running
// layout engine and the interaction controller bound to it. Whenever the
// packet list or the mode changes it stops the current engine before
// building the next one.
//
// # Stale ticks
//
// Render hosts schedule tick callbacks asynchronously. Every build bumps a
// generation counter and [Session.TickFunc] captures the generation it was
// created under, so a callback scheduled against a replaced or closed
// engine does nothing:
//
//	tick := s.TickFunc()
//	s.SetMode(flow.ModePort) // old engine stopped, generation bumped
//	_, ok := tick()          // ok == false; the old engine is not touched
package session

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/interact"
	"github.com/matzehuels/flowscope/pkg/layout"
	"github.com/matzehuels/flowscope/pkg/packet"
)

// TickFunc advances the engine of the build it was created for. It reports
// false once that build has been superseded, closed or has settled.
type TickFunc func() (layout.Frame, bool)

// Session is a single-view owner of models, mode and engine. It is not
// safe for concurrent use.
type Session struct {
	logger     *log.Logger
	layoutOpts []layout.Option
	zoom       interact.ZoomResetter

	models flow.Models
	mode   flow.Mode
	engine *layout.Engine
	ctrl   *interact.Controller
	gen    uint64
	closed bool
}

// Option configures a [Session].
type Option func(*Session)

// WithLogger sets the logger used for rebuild messages.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLayoutOptions passes simulation options to every build.
func WithLayoutOptions(opts ...layout.Option) Option {
	return func(s *Session) { s.layoutOpts = append(s.layoutOpts, opts...) }
}

// WithZoomResetter hands zoom reset animations to the render host.
func WithZoomResetter(r interact.ZoomResetter) Option {
	return func(s *Session) { s.zoom = r }
}

// New builds a session over already aggregated models and starts the
// engine for mode.
func New(models flow.Models, mode flow.Mode, opts ...Option) *Session {
	s := &Session{
		logger: log.Default(),
		models: models,
		mode:   mode,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mode == "" {
		s.mode = flow.ModeHost
	}
	s.rebuild("open")
	return s
}

// FromRecords aggregates records into both models and opens a session.
func FromRecords(records []packet.Record, mode flow.Mode, opts ...Option) *Session {
	return New(flow.BuildModels(records), mode, opts...)
}

// SetPackets re-aggregates both models from records and rebuilds.
func (s *Session) SetPackets(records []packet.Record) error {
	return s.SetModels(flow.BuildModels(records))
}

// SetModels replaces both models, for example with a cached pair, and
// rebuilds.
func (s *Session) SetModels(models flow.Models) error {
	if s.closed {
		return errClosed()
	}
	s.models = models
	s.rebuild("packets changed")
	return nil
}

// SetMode switches between host and port grouping. Pins, velocities and
// origins of the previous build are discarded.
func (s *Session) SetMode(mode flow.Mode) error {
	if s.closed {
		return errClosed()
	}
	if mode != flow.ModeHost && mode != flow.ModePort {
		return errors.New(errors.ErrCodeInvalidMode, "unknown mode %q", mode)
	}
	if mode == s.mode {
		return nil
	}
	s.mode = mode
	s.rebuild("mode switch")
	return nil
}

// ToggleMode switches to the other mode.
func (s *Session) ToggleMode() error { return s.SetMode(s.mode.Other()) }

func (s *Session) rebuild(reason string) {
	if s.engine != nil {
		s.engine.Stop()
	}
	s.gen++

	m := s.models.For(s.mode)
	s.engine = layout.Build(m, s.layoutOpts...)
	if s.ctrl == nil {
		var opts []interact.Option
		if s.zoom != nil {
			opts = append(opts, interact.WithZoomResetter(s.zoom))
		}
		s.ctrl = interact.New(s.engine, opts...)
	} else {
		s.ctrl.Bind(s.engine)
	}

	s.logger.Debug("layout rebuilt",
		"reason", reason,
		"mode", s.mode,
		"generation", s.gen,
		"nodes", len(m.Nodes),
		"links", len(m.Links),
		"engine", s.engine.ID())
}

// TickFunc returns a callback bound to the current build.
func (s *Session) TickFunc() TickFunc {
	gen, e := s.gen, s.engine
	return func() (layout.Frame, bool) {
		if s.closed || gen != s.gen {
			return layout.Frame{}, false
		}
		return e.Tick()
	}
}

// Tick advances the current engine one step.
func (s *Session) Tick() (layout.Frame, bool) { return s.TickFunc()() }

// Close stops the engine. Later ticks are no-ops and rebuilds fail.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.engine.Stop()
}

// Generation returns the build counter.
func (s *Session) Generation() uint64 { return s.gen }

// Mode returns the selected mode.
func (s *Session) Mode() flow.Mode { return s.mode }

// Models returns both aggregated models.
func (s *Session) Models() flow.Models { return s.models }

// Model returns the model of the selected mode.
func (s *Session) Model() flow.Model { return s.models.For(s.mode) }

// Engine returns the current engine.
func (s *Session) Engine() *layout.Engine { return s.engine }

// Controller returns the interaction controller bound to the current engine.
func (s *Session) Controller() *interact.Controller { return s.ctrl }

// Stable reports whether the current layout is stable.
func (s *Session) Stable() bool { return s.engine.Stable() }

// Frame returns the current positions without stepping.
func (s *Session) Frame() layout.Frame { return s.engine.Frame() }

func errClosed() error {
	return errors.New(errors.ErrCodeEngineStopped, "session closed")
}
