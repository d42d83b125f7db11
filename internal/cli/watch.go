package cli

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/interact"
	"github.com/matzehuels/flowscope/pkg/layout"
	"github.com/matzehuels/flowscope/pkg/render/nodelink"
	"github.com/matzehuels/flowscope/pkg/session"
)

const (
	frameInterval = 16 * time.Millisecond

	// Screen pixels per terminal cell. Cells are about twice as tall as wide.
	cellW = 8.0
	cellH = 16.0

	sidebarWidth  = 34
	chromeHeight  = 4 // title, status and help lines plus spacing
	moveStep      = 24.0
	panStep       = 48.0
	zoomStep      = 120.0
	doubleClickIn = 400 * time.Millisecond
)

var (
	watchLinkStyle     = lipgloss.NewStyle().Foreground(colorDim)
	watchSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	watchPanelStyle    = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
	watchStableStyle = lipgloss.NewStyle().Foreground(colorGreen)
	watchMovingStyle = lipgloss.NewStyle().Foreground(colorYellow)
)

// watchCommand creates the watch command, a live terminal view of the
// simulation with node dragging, pan and zoom.
func (c *CLI) watchCommand() *cobra.Command {
	var flags flowFlags

	cmd := &cobra.Command{
		Use:   "watch <capture>",
		Short: "Watch the force layout settle and interact with it in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(args[0], flags)
			if err != nil {
				return err
			}

			runner, err := c.newRunner(cmd.Context(), flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			records, _, err := c.load(opts)
			if err != nil {
				return err
			}
			models, err := runner.Models(cmd.Context(), records, opts)
			if err != nil {
				return err
			}

			// The alternate screen owns the terminal; session logs would
			// tear it.
			quiet := log.NewWithOptions(io.Discard, log.Options{})
			m := newWatchModel(models, opts.Mode, args[0],
				session.WithLogger(quiet),
				session.WithLayoutOptions(c.Config.Layout.Options()...))
			defer m.sess.Close()

			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

// =============================================================================
// viewport - animated zoom reset
// =============================================================================

// viewport is the transform actually drawn. It follows the controller's
// transform except while a zoom reset is animating toward the identity.
type viewport struct {
	ctrl  *interact.Controller
	shown interact.Transform

	from      interact.Transform
	start     time.Time
	dur       time.Duration
	animating bool
	now       func() time.Time
}

func newViewport() *viewport {
	return &viewport{shown: interact.Identity, now: time.Now}
}

// ResetZoom starts an eased transition from the drawn transform to the
// identity.
func (v *viewport) ResetZoom(d time.Duration) {
	v.from = v.shown
	v.start = v.now()
	v.dur = d
	v.animating = true
}

// advance updates the drawn transform for the current time.
func (v *viewport) advance() {
	if !v.animating {
		v.shown = v.ctrl.Transform()
		return
	}
	t := 1.0
	if v.dur > 0 {
		t = math.Min(1, float64(v.now().Sub(v.start))/float64(v.dur))
	}
	target := v.ctrl.Transform()
	e := easeCubicInOut(t)
	v.shown = interact.Transform{
		X: v.from.X + (target.X-v.from.X)*e,
		Y: v.from.Y + (target.Y-v.from.Y)*e,
		K: v.from.K + (target.K-v.from.K)*e,
	}
	if t >= 1 {
		v.animating = false
	}
}

// interrupt ends a running animation at the controller's transform.
func (v *viewport) interrupt() {
	v.animating = false
	v.shown = v.ctrl.Transform()
}

func easeCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// =============================================================================
// watchModel - bubbletea model
// =============================================================================

type tickMsg time.Time

type watchModel struct {
	sess   *session.Session
	tick   session.TickFunc
	view   *viewport
	source string

	frame  layout.Frame
	order  []string // node ids, largest volume first
	cursor int

	width, height int
	status        string

	// mouse state
	pressed   string // node under the pointer at press time
	panning   bool
	lastX     int
	lastY     int
	lastClick string
	clickedAt time.Time
}

func newWatchModel(models flow.Models, mode flow.Mode, source string, opts ...session.Option) *watchModel {
	vp := newViewport()
	opts = append(opts, session.WithZoomResetter(vp))
	sess := session.New(models, mode, opts...)
	vp.ctrl = sess.Controller()

	m := &watchModel{
		sess:   sess,
		view:   vp,
		source: source,
		width:  100,
		height: 30,
	}
	m.rebind()
	return m
}

// rebind picks up a freshly built engine after a mode switch.
func (m *watchModel) rebind() {
	m.tick = m.sess.TickFunc()
	m.frame = m.sess.Frame()
	m.cursor = 0
	m.pressed = ""
	m.panning = false

	model := m.sess.Model()
	nodes := append([]flow.Node(nil), model.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Volume != nodes[j].Volume {
			return nodes[i].Volume > nodes[j].Volume
		}
		return nodes[i].ID < nodes[j].ID
	})
	m.order = m.order[:0]
	for _, n := range nodes {
		m.order = append(m.order, n.ID)
	}
}

func (m *watchModel) selected() (string, bool) {
	if len(m.order) == 0 {
		return "", false
	}
	return m.order[m.cursor], true
}

func tickEvery() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *watchModel) Init() tea.Cmd {
	return tickEvery()
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.step()
		return m, tickEvery()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		return m, m.key(msg.String())
	case tea.MouseMsg:
		m.mouse(tea.MouseEvent(msg))
	}
	return m, nil
}

// step advances the simulation one tick and refreshes the drawn frame.
func (m *watchModel) step() {
	if f, ok := m.tick(); ok {
		m.frame = f
	} else {
		m.frame = m.sess.Frame()
	}
	m.view.advance()
}

func (m *watchModel) key(k string) tea.Cmd {
	ctrl := m.sess.Controller()
	grabbed, grabbing := ctrl.Dragging()
	m.status = ""

	switch k {
	case "q", "ctrl+c", "esc":
		m.sess.Close()
		return tea.Quit

	case "up", "k", "down", "j", "left", "h", "right", "l":
		dx, dy := direction(k)
		if grabbing {
			m.moveGrabbed(grabbed, dx*moveStep, dy*moveStep)
			return nil
		}
		if dy != 0 {
			m.moveCursor(int(dy))
			return nil
		}
		m.pan(-dx*panStep, 0)

	case "tab":
		m.moveCursor(1)
	case "shift+tab":
		m.moveCursor(-1)

	case " ", "enter":
		if grabbing {
			m.report(ctrl.DragEnd(grabbed))
			return nil
		}
		if id, ok := m.selected(); ok {
			m.report(ctrl.DragStart(id))
		}

	case "o":
		if id, ok := m.selected(); ok {
			m.report(ctrl.DoubleClick(id))
		}

	case "r":
		m.view.interrupt()
		m.report(ctrl.ResetAll())

	case "m":
		if err := m.sess.ToggleMode(); err != nil {
			m.report(err)
			return nil
		}
		m.rebind()

	case "w":
		m.pan(0, panStep)
	case "s":
		m.pan(0, -panStep)
	case "a":
		m.pan(panStep, 0)
	case "d":
		m.pan(-panStep, 0)

	case "+", "=":
		m.zoom(0, 0, -zoomStep)
	case "-", "_":
		m.zoom(0, 0, zoomStep)
	}
	return nil
}

func direction(k string) (dx, dy float64) {
	switch k {
	case "up", "k":
		return 0, -1
	case "down", "j":
		return 0, 1
	case "left", "h":
		return -1, 0
	default:
		return 1, 0
	}
}

func (m *watchModel) moveCursor(delta int) {
	if len(m.order) == 0 {
		return
	}
	m.cursor = (m.cursor + delta + len(m.order)) % len(m.order)
}

func (m *watchModel) moveGrabbed(id string, dx, dy float64) {
	n, ok := m.sess.Engine().Node(id)
	if !ok {
		return
	}
	x, y := n.X, n.Y
	if n.Pin != nil {
		x, y = n.Pin.X, n.Pin.Y
	}
	k := m.sess.Controller().Transform().K
	m.report(m.sess.Controller().DragMove(id, x+dx/k, y+dy/k))
}

func (m *watchModel) pan(dx, dy float64) {
	m.view.interrupt()
	m.sess.Controller().PanZoom(interact.Event{Kind: interact.Drag, Target: interact.Canvas, DX: dx, DY: dy})
	m.view.advance()
}

func (m *watchModel) zoom(x, y, delta float64) {
	m.view.interrupt()
	m.sess.Controller().PanZoom(interact.Event{Kind: interact.Wheel, Target: interact.Canvas, X: x, Y: y, Delta: delta})
	m.view.advance()
}

// mouse maps terminal mouse events onto pointer gestures.
func (m *watchModel) mouse(ev tea.MouseEvent) {
	ctrl := m.sess.Controller()
	sx, sy, inCanvas := m.cellToScreen(ev.X, ev.Y)

	switch {
	case ev.Button == tea.MouseButtonWheelUp && inCanvas:
		m.zoom(sx, sy, -zoomStep)
	case ev.Button == tea.MouseButtonWheelDown && inCanvas:
		m.zoom(sx, sy, zoomStep)

	case ev.Action == tea.MouseActionPress && ev.Button == tea.MouseButtonLeft && inCanvas:
		id, onNode := ctrl.NodeAt(sx, sy)
		if !onNode {
			m.panning = true
			m.lastX, m.lastY = ev.X, ev.Y
			return
		}
		if id == m.lastClick && time.Since(m.clickedAt) < doubleClickIn {
			m.lastClick = ""
			m.report(ctrl.DoubleClick(id))
			return
		}
		m.lastClick, m.clickedAt = id, time.Now()
		m.selectID(id)
		m.pressed = id
		m.report(ctrl.DragStart(id))

	case ev.Action == tea.MouseActionMotion:
		if m.pressed != "" {
			wx, wy := ctrl.ScreenToWorld(sx, sy)
			m.report(ctrl.DragMove(m.pressed, wx, wy))
		} else if m.panning {
			m.pan(float64(ev.X-m.lastX)*cellW, float64(ev.Y-m.lastY)*cellH)
			m.lastX, m.lastY = ev.X, ev.Y
		}

	case ev.Action == tea.MouseActionRelease:
		if m.pressed != "" {
			m.report(ctrl.DragEnd(m.pressed))
		}
		m.pressed = ""
		m.panning = false
	}
}

func (m *watchModel) selectID(id string) {
	for i, o := range m.order {
		if o == id {
			m.cursor = i
			return
		}
	}
}

func (m *watchModel) report(err error) {
	if err == nil {
		return
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeUnstable:
		m.status = "reset is available once the layout is stable"
	default:
		m.status = errors.UserMessage(err)
	}
}

// =============================================================================
// Geometry
// =============================================================================

func (m *watchModel) canvasSize() (cols, rows int) {
	cols = max(m.width-sidebarWidth-1, 10)
	rows = max(m.height-chromeHeight, 5)
	return cols, rows
}

// cellToScreen converts a terminal cell to screen pixels centred on the
// canvas. The first canvas row is terminal row 1.
func (m *watchModel) cellToScreen(col, row int) (x, y float64, ok bool) {
	cols, rows := m.canvasSize()
	row--
	ok = col >= 0 && col < cols && row >= 0 && row < rows
	x = (float64(col) - float64(cols)/2) * cellW
	y = (float64(row) - float64(rows)/2) * cellH
	return x, y, ok
}

func (m *watchModel) worldToCell(wx, wy float64) (col, row int) {
	cols, rows := m.canvasSize()
	sx, sy := m.view.shown.Apply(wx, wy)
	return int(math.Round(sx/cellW + float64(cols)/2)), int(math.Round(sy/cellH + float64(rows)/2))
}

// =============================================================================
// View
// =============================================================================

type cell struct {
	r     rune
	style *lipgloss.Style
}

func (m *watchModel) View() string {
	var b strings.Builder

	st := m.sess.Engine().State()
	stable := watchMovingStyle.Render("moving")
	if m.sess.Stable() {
		stable = watchStableStyle.Render("stable")
	}
	b.WriteString(StyleTitle.Render(appName) + " " + StyleDim.Render(m.source) + "  " +
		StyleHighlight.Render(string(m.sess.Mode())) + StyleDim.Render(fmt.Sprintf("  tick %d  alpha %.3f  ", m.frame.Tick, st.Alpha)) +
		stable + "\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.canvas(), " ", m.sidebar()))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(StyleWarning.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ select  space grab/drop  arrows move  o pin at origin  r reset  m mode  wasd pan  +/- zoom  q quit"))
	return b.String()
}

func (m *watchModel) canvas() string {
	cols, rows := m.canvasSize()
	grid := make([][]cell, rows)
	for i := range grid {
		grid[i] = make([]cell, cols)
		for j := range grid[i] {
			grid[i][j] = cell{r: ' '}
		}
	}
	put := func(col, row int, r rune, style *lipgloss.Style) {
		if row >= 0 && row < rows && col >= 0 && col < cols {
			grid[row][col] = cell{r: r, style: style}
		}
	}

	for _, l := range m.frame.Links {
		c1, r1 := m.worldToCell(l.X1, l.Y1)
		c2, r2 := m.worldToCell(l.X2, l.Y2)
		steps := max(abs(c2-c1), abs(r2-r1))
		for s := 0; s <= steps; s++ {
			t := 0.0
			if steps > 0 {
				t = float64(s) / float64(steps)
			}
			col := c1 + int(math.Round(float64(c2-c1)*t))
			row := r1 + int(math.Round(float64(r2-r1)*t))
			put(col, row, '·', &watchLinkStyle)
		}
	}

	model := m.sess.Model()
	sel, _ := m.selected()
	for _, n := range m.frame.Nodes {
		fn, _ := model.Node(n.ID)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(nodelink.FillColor(fn.L4)))
		col, row := m.worldToCell(n.X, n.Y)

		rc := n.Radius * m.view.shown.K / cellW
		if rc >= 1.5 {
			rr := n.Radius * m.view.shown.K / cellH
			for dr := -int(rr); dr <= int(rr); dr++ {
				for dc := -int(rc); dc <= int(rc); dc++ {
					fx, fy := float64(dc)/rc, float64(dr)/math.Max(rr, 0.5)
					if fx*fx+fy*fy <= 1 {
						put(col+dc, row+dr, '•', &style)
					}
				}
			}
		}

		glyph := '●'
		if n.Pinned {
			glyph = '◆'
		}
		if n.ID == sel {
			glyph = '◉'
			style = watchSelectedStyle
		}
		put(col, row, glyph, &style)
	}

	lines := make([]string, rows)
	for i, row := range grid {
		var lb strings.Builder
		for _, c := range row {
			if c.style == nil {
				lb.WriteRune(c.r)
				continue
			}
			lb.WriteString(c.style.Render(string(c.r)))
		}
		lines[i] = lb.String()
	}
	return strings.Join(lines, "\n")
}

func (m *watchModel) sidebar() string {
	_, rows := m.canvasSize()
	var b strings.Builder

	model := m.sess.Model()
	b.WriteString(StyleTitle.Render(fmt.Sprintf("%d nodes · %d links", len(model.Nodes), len(model.Links))))
	b.WriteString("\n\n")

	id, ok := m.selected()
	if !ok {
		b.WriteString(StyleDim.Render("no flows in capture"))
		return watchPanelStyle.Width(sidebarWidth - 2).Height(rows - 2).Render(b.String())
	}

	n, _ := model.Node(id)
	en, _ := m.sess.Engine().Node(id)
	kv := func(k, v string) {
		b.WriteString(StyleDim.Render(fmt.Sprintf("%-8s", k)) + StyleValue.Render(v) + "\n")
	}
	kv("node", id)
	kv("ip", n.IP)
	if n.Port != nil {
		kv("port", fmt.Sprint(*n.Port))
	}
	kv("volume", humanBytes(n.Volume))
	kv("l4", n.L4)
	kv("l7", n.L7)
	kv("pos", fmt.Sprintf("%.0f, %.0f", en.X, en.Y))
	state := "free"
	if grabbed, ok := m.sess.Controller().Dragging(); ok && grabbed == id {
		state = "grabbed"
	} else if en.Pin != nil {
		state = "pinned"
	}
	kv("state", state)

	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("[%d/%d]", m.cursor+1, len(m.order))))
	return watchPanelStyle.Width(sidebarWidth - 2).Height(rows - 2).Render(b.String())
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
