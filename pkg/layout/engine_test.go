package layout

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/packet"
)

func portOf(p int) *int { return &p }

func hostModel() flow.Model {
	return flow.Model{
		Mode: flow.ModeHost,
		Nodes: []flow.Node{
			{ID: "A", IP: "A", Volume: 100, L4: "TCP", L7: "HTTP"},
			{ID: "B", IP: "B", Volume: 400, L4: "TCP", L7: "HTTP"},
			{ID: "C", IP: "C", Volume: 900, L4: "UDP", L7: "DNS"},
			{ID: "D", IP: "D", Volume: 50, L4: "UDP", L7: "DNS"},
		},
		Links: []flow.Link{
			{Source: "A", Target: "B"},
			{Source: "B", Target: "C"},
			{Source: "C", Target: "A"},
			{Source: "D", Target: "C"},
		},
	}
}

func portModel() flow.Model {
	records := []packet.Record{
		{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Ports: &packet.Ports{Src: 40000, Dst: 443}, FrameLen: 60, L4: packet.TCP, L7: "TLS"},
		{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Ports: &packet.Ports{Src: 40001, Dst: 80}, FrameLen: 600, L4: packet.TCP, L7: "HTTP"},
		{SrcIP: "10.0.0.3", DstIP: "10.0.0.2", Ports: &packet.Ports{Src: 5353, Dst: 53}, FrameLen: 90, L4: packet.UDP, L7: "DNS"},
	}
	return flow.Aggregate(records, flow.ModePort)
}

func assertFinite(t *testing.T, f Frame) {
	t.Helper()
	for _, n := range f.Nodes {
		if math.IsNaN(n.X) || math.IsNaN(n.Y) || math.IsInf(n.X, 0) || math.IsInf(n.Y, 0) {
			t.Fatalf("node %s at (%v, %v), want finite", n.ID, n.X, n.Y)
		}
	}
	for _, l := range f.Links {
		for _, v := range []float64{l.X1, l.Y1, l.X2, l.Y2} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("link %s has non-finite endpoint", l.ID)
			}
		}
	}
}

func TestBuildDoesNotMutateModel(t *testing.T) {
	m := portModel()
	before := portModel()

	e := Build(m)
	if err := e.Pin(m.Nodes[0].ID, Point{X: 5, Y: 5}); err != nil {
		t.Fatalf("Pin() error = %v", err)
	}
	if _, err := e.RunUntilSettled(context.Background(), 50); err != nil {
		t.Fatalf("RunUntilSettled() error = %v", err)
	}

	if diff := cmp.Diff(before, m); diff != "" {
		t.Errorf("model mutated by layout (-want +got):\n%s", diff)
	}
	n, _ := e.Node(m.Nodes[0].ID)
	if n.Port == m.Nodes[0].Port {
		t.Error("engine node shares port storage with model")
	}
}

func TestBuildState(t *testing.T) {
	e := Build(hostModel())

	s := e.State()
	if s.Alpha != 1 {
		t.Errorf("Alpha = %v, want 1 after burn-in", s.Alpha)
	}
	if !s.Running {
		t.Error("Running = false, want true")
	}
	if s.Ticks != 0 {
		t.Errorf("Ticks = %d, want 0", s.Ticks)
	}
	if e.Stable() {
		t.Error("Stable() = true right after build")
	}
	if e.Mode() != flow.ModeHost {
		t.Errorf("Mode() = %q, want host", e.Mode())
	}
	if e.ID() == "" || e.ID() == Build(hostModel()).ID() {
		t.Errorf("ID() = %q, want unique per build", e.ID())
	}
	if e.Len() != 4 {
		t.Errorf("Len() = %d, want 4", e.Len())
	}
}

func TestBuildSkipsDanglingLinks(t *testing.T) {
	m := hostModel()
	m.Links = append(m.Links, flow.Link{Source: "A", Target: "Z"})

	f := Build(m).Frame()
	if len(f.Links) != 4 {
		t.Errorf("len(Links) = %d, want 4", len(f.Links))
	}
}

func TestBuildDeterministic(t *testing.T) {
	a := Build(portModel()).Frame()
	b := Build(portModel()).Frame()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("layouts differ for identical input (-a +b):\n%s", diff)
	}
}

func TestOriginFixedAfterBurnIn(t *testing.T) {
	e := Build(hostModel())
	origins := map[string]Point{}
	for _, n := range e.Frame().Nodes {
		node, _ := e.Node(n.ID)
		origins[n.ID] = node.Origin
		if node.Origin.X != n.X || node.Origin.Y != n.Y {
			t.Errorf("%s origin %v, want burn-in position (%v, %v)", n.ID, node.Origin, n.X, n.Y)
		}
	}

	if err := e.Pin("A", Point{X: 200, Y: -200}); err != nil {
		t.Fatal(err)
	}
	for range 40 {
		e.Tick()
	}
	e.ResetPositions()
	for range 10 {
		e.Tick()
	}

	for id, want := range origins {
		n, _ := e.Node(id)
		if n.Origin != want {
			t.Errorf("%s.Origin = %v, want %v", id, n.Origin, want)
		}
	}
}

func TestTickSettles(t *testing.T) {
	e := Build(hostModel())

	var sawStable bool
	ticks := 0
	for {
		f, ok := e.Tick()
		if !ok {
			break
		}
		ticks++
		assertFinite(t, f)
		if f.Tick != ticks {
			t.Fatalf("Frame.Tick = %d, want %d", f.Tick, ticks)
		}
		if f.Stable && !sawStable {
			sawStable = true
			if f.Alpha >= 0.05 {
				t.Errorf("became stable at alpha %v", f.Alpha)
			}
		}
		if ticks > 1000 {
			t.Fatal("simulation did not settle")
		}
	}

	if !sawStable {
		t.Error("never became stable")
	}
	if e.State().Alpha >= 0.001 {
		t.Errorf("Alpha = %v, want < 0.001 after settling", e.State().Alpha)
	}
	if _, ok := e.Tick(); ok {
		t.Error("Tick() after settling = true, want false")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	e := Build(hostModel())
	e.Stop()
	e.Stop()

	if !e.Stopped() {
		t.Error("Stopped() = false")
	}
	if _, ok := e.Tick(); ok {
		t.Error("Tick() after Stop = true, want false")
	}
	if err := e.Resume(); !errors.Is(err, errors.ErrCodeEngineStopped) {
		t.Errorf("Resume() error = %v, want ENGINE_STOPPED", err)
	}
}

func TestEmptyModel(t *testing.T) {
	e := Build(flow.Model{Mode: flow.ModePort})

	if !e.Stable() {
		t.Errorf("Stable() = false, want true for empty model (alpha %v)", e.State().Alpha)
	}
	if _, ok := e.Tick(); ok {
		t.Error("Tick() = true, want false for empty model")
	}
	f := e.Frame()
	if len(f.Nodes) != 0 || len(f.Links) != 0 {
		t.Errorf("Frame() = %+v, want empty", f)
	}
}

func TestSingleNode(t *testing.T) {
	m := flow.Model{Mode: flow.ModePort, Nodes: []flow.Node{{ID: "h:1", IP: "h", Port: portOf(1), Volume: 10}}}
	e := Build(m)
	f, _ := e.RunUntilSettled(context.Background(), 0)
	assertFinite(t, f)
	if f.Nodes[0].Radius != 5 {
		t.Errorf("Radius = %v, want 5", f.Nodes[0].Radius)
	}
}

func TestCoincidentNodes(t *testing.T) {
	m := flow.Model{Mode: flow.ModeHost}
	for _, id := range []string{"a", "b", "c"} {
		m.Nodes = append(m.Nodes, flow.Node{ID: id, IP: id, Volume: 1})
	}
	e := Build(m, WithBurnIn(0))
	for i := range e.nodes {
		e.nodes[i].X, e.nodes[i].Y = 0, 0
	}
	f, _ := e.RunUntilSettled(context.Background(), 20)
	assertFinite(t, f)
}

func TestCollisionSeparation(t *testing.T) {
	e := Build(hostModel())
	f, err := e.RunUntilSettled(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range f.Nodes {
		for _, b := range f.Nodes[i+1:] {
			d := math.Hypot(a.X-b.X, a.Y-b.Y)
			want := a.Radius + b.Radius + 5
			if d < want*0.95 {
				t.Errorf("%s-%s distance %.2f, want >= %.2f", a.ID, b.ID, d, want)
			}
		}
	}
}

func TestPortModeClusters(t *testing.T) {
	e := Build(portModel())
	f, _ := e.RunUntilSettled(context.Background(), 0)

	pos := map[string]NodeFrame{}
	for _, n := range f.Nodes {
		pos[n.ID] = n
	}
	sameHost := math.Hypot(pos["10.0.0.1:40000"].X-pos["10.0.0.1:40001"].X, pos["10.0.0.1:40000"].Y-pos["10.0.0.1:40001"].Y)
	otherHost := math.Hypot(pos["10.0.0.1:40000"].X-pos["10.0.0.3:5353"].X, pos["10.0.0.1:40000"].Y-pos["10.0.0.3:5353"].Y)
	if sameHost >= otherHost {
		t.Errorf("same-host distance %.1f >= cross-host distance %.1f", sameHost, otherHost)
	}
}

func TestPinUnknownNode(t *testing.T) {
	e := Build(hostModel())
	if err := e.Pin("nope", Point{}); !errors.Is(err, errors.ErrCodeUnknownNode) {
		t.Errorf("Pin() error = %v, want UNKNOWN_NODE", err)
	}
	if err := e.Unpin("nope"); !errors.Is(err, errors.ErrCodeUnknownNode) {
		t.Errorf("Unpin() error = %v, want UNKNOWN_NODE", err)
	}
}

func TestPinHoldsNode(t *testing.T) {
	e := Build(hostModel())
	if err := e.Pin("B", Point{X: 10, Y: 10}); err != nil {
		t.Fatal(err)
	}
	for range 5 {
		e.Tick()
	}
	n, _ := e.Node("B")
	if n.X != 10 || n.Y != 10 {
		t.Errorf("pinned node at (%v, %v), want (10, 10)", n.X, n.Y)
	}
	if !n.Pinned() {
		t.Error("Pinned() = false")
	}

	if err := e.Unpin("B"); err != nil {
		t.Fatal(err)
	}
	n, _ = e.Node("B")
	if n.Pinned() {
		t.Error("Pinned() = true after Unpin")
	}
}

func TestSetAlphaObservesStability(t *testing.T) {
	e := Build(hostModel())
	e.RunUntilSettled(context.Background(), 0)
	if !e.Stable() {
		t.Fatal("not stable after settling")
	}

	e.SetAlpha(1)
	if e.Stable() {
		t.Error("Stable() = true after reheat")
	}
	e.SetAlpha(2)
	if e.State().Alpha != 1 {
		t.Errorf("Alpha = %v, want clamped to 1", e.State().Alpha)
	}
	if err := e.Resume(); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Tick(); !ok {
		t.Error("Tick() after Resume = false")
	}
}

func TestFind(t *testing.T) {
	e := Build(hostModel())
	n, _ := e.Node("C")

	if id, ok := e.Find(n.X+1, n.Y-1); !ok || id != "C" {
		t.Errorf("Find() = %q, %v, want C", id, ok)
	}
	if _, ok := e.Find(1e6, 1e6); ok {
		t.Error("Find() far away = true, want false")
	}
}

func TestRunUntilSettledCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(hostModel()).RunUntilSettled(ctx, 0); err == nil {
		t.Error("RunUntilSettled() error = nil, want context error")
	}
}

func TestLinkEndpointsTouchCircles(t *testing.T) {
	e := Build(hostModel())
	f := e.Frame()
	pos := map[string]NodeFrame{}
	for _, n := range f.Nodes {
		pos[n.ID] = n
	}
	for _, l := range f.Links {
		s, tg := pos[l.Source], pos[l.Target]
		if d := math.Hypot(l.X1-s.X, l.Y1-s.Y); math.Abs(d-s.Radius) > 1e-9 {
			t.Errorf("%s source end %.3f from center, want %.3f", l.ID, d, s.Radius)
		}
		if d := math.Hypot(l.X2-tg.X, l.Y2-tg.Y); math.Abs(d-tg.Radius) > 1e-9 {
			t.Errorf("%s target end %.3f from center, want %.3f", l.ID, d, tg.Radius)
		}
	}
}
