package interact

import (
	"time"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/layout"
)

// Alpha values applied by gestures.
const (
	DragAlphaTarget = 0.3
	ReheatAlpha     = 1.0
)

// ZoomResetDuration is the length of the animated return to [Identity]
// after a reset.
const ZoomResetDuration = 750 * time.Millisecond

// ZoomResetter animates the canvas back to the identity transform. Render
// hosts implement it; without one the controller snaps the transform.
type ZoomResetter interface {
	ResetZoom(d time.Duration)
}

// Controller applies pointer gestures to a layout engine.
type Controller struct {
	engine   *layout.Engine
	zoom     ZoomResetter
	view     Transform
	dragging string
}

// Option configures a [Controller].
type Option func(*Controller)

// WithZoomResetter delegates the zoom reset animation to r.
func WithZoomResetter(r ZoomResetter) Option {
	return func(c *Controller) { c.zoom = r }
}

// New returns a controller bound to e.
func New(e *layout.Engine, opts ...Option) *Controller {
	c := &Controller{engine: e, view: Identity}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind points the controller at a freshly built engine. Any drag in
// progress is forgotten; the canvas transform is kept.
func (c *Controller) Bind(e *layout.Engine) {
	c.engine = e
	c.dragging = ""
}

// Engine returns the bound engine.
func (c *Controller) Engine() *layout.Engine { return c.engine }

// Dragging returns the id of the node being dragged, if any.
func (c *Controller) Dragging() (string, bool) { return c.dragging, c.dragging != "" }

// DragStart pins id at its current position and warms the simulation.
func (c *Controller) DragStart(id string) error {
	e, err := c.live()
	if err != nil {
		return err
	}
	n, ok := e.Node(id)
	if !ok {
		return unknown(id)
	}
	if err := e.Pin(id, layout.Point{X: n.X, Y: n.Y}); err != nil {
		return err
	}
	c.dragging = id
	e.SetAlphaTarget(DragAlphaTarget)
	return e.Resume()
}

// DragMove moves the pin of id to the world point (x, y).
func (c *Controller) DragMove(id string, x, y float64) error {
	e, err := c.live()
	if err != nil {
		return err
	}
	return e.Pin(id, layout.Point{X: x, Y: y})
}

// DragEnd lets the simulation cool. The node keeps its pin.
func (c *Controller) DragEnd(id string) error {
	e, err := c.live()
	if err != nil {
		return err
	}
	if _, ok := e.Node(id); !ok {
		return unknown(id)
	}
	if c.dragging == id {
		c.dragging = ""
	}
	e.SetAlphaTarget(0)
	return nil
}

// DoubleClick pins id at its burn-in origin and reheats so the rest of the
// graph settles around it.
func (c *Controller) DoubleClick(id string) error {
	e, err := c.live()
	if err != nil {
		return err
	}
	n, ok := e.Node(id)
	if !ok {
		return unknown(id)
	}
	if err := e.Pin(id, n.Origin); err != nil {
		return err
	}
	e.SetAlpha(ReheatAlpha)
	return e.Resume()
}

// ResetAll returns every node to its origin unpinned, reheats and resets
// the canvas transform. It is rejected with UNSTABLE while the layout is
// still moving.
func (c *Controller) ResetAll() error {
	e, err := c.live()
	if err != nil {
		return err
	}
	if !e.Stable() {
		return errors.New(errors.ErrCodeUnstable, "reset rejected while layout is moving (alpha %.3f)", e.State().Alpha)
	}

	e.ResetPositions()
	c.dragging = ""
	e.SetAlpha(ReheatAlpha)
	if err := e.Resume(); err != nil {
		return err
	}

	c.view = Identity
	if c.zoom != nil {
		c.zoom.ResetZoom(ZoomResetDuration)
	}
	return nil
}

// PanZoom applies a canvas gesture and reports whether it was consumed.
// Gestures on nodes or labels and double clicks are ignored.
func (c *Controller) PanZoom(ev Event) (Transform, bool) {
	if ev.Target != Canvas {
		return c.view, false
	}
	switch ev.Kind {
	case Drag:
		c.view = c.view.Translate(ev.DX, ev.DY)
	case Wheel:
		c.view = c.view.ScaleAt(wheelFactor(ev.Delta), ev.X, ev.Y)
	default:
		return c.view, false
	}
	return c.view, true
}

// SetTransform replaces the canvas transform, clamping its scale.
func (c *Controller) SetTransform(t Transform) {
	t.K = clampScale(t.K)
	c.view = t
}

// Transform returns the current canvas transform.
func (c *Controller) Transform() Transform { return c.view }

// ScreenToWorld converts a pointer position to simulation coordinates.
func (c *Controller) ScreenToWorld(x, y float64) (float64, float64) {
	return c.view.Invert(x, y)
}

// NodeAt returns the node under the screen point (x, y).
func (c *Controller) NodeAt(x, y float64) (string, bool) {
	if c.engine == nil {
		return "", false
	}
	return c.engine.Find(c.view.Invert(x, y))
}

func (c *Controller) live() (*layout.Engine, error) {
	if c.engine == nil || c.engine.Stopped() {
		return nil, errors.New(errors.ErrCodeEngineStopped, "no running layout")
	}
	return c.engine, nil
}

func unknown(id string) error {
	return errors.New(errors.ErrCodeUnknownNode, "node %q not in layout", id)
}
