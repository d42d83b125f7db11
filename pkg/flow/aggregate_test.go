package flow

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/packet"
)

func rec(src, dst string, sp, dp uint16, size int, l4 packet.L4, l7 string) packet.Record {
	return packet.Record{
		SrcIP:    src,
		DstIP:    dst,
		Ports:    &packet.Ports{Src: sp, Dst: dp},
		FrameLen: size,
		L4:       l4,
		L7:       l7,
	}
}

func TestAggregateMixedTransport(t *testing.T) {
	records := []packet.Record{
		rec("A", "B", 1000, 80, 100, packet.TCP, "HTTP"),
		rec("A", "B", 1001, 53, 50, packet.UDP, "DNS"),
	}

	m := Aggregate(records, ModeHost)

	if len(m.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(m.Nodes))
	}
	for _, id := range []string{"A", "B"} {
		n, ok := m.Node(id)
		if !ok {
			t.Fatalf("node %s missing", id)
		}
		if n.Volume != 150 {
			t.Errorf("%s.Volume = %d, want 150", id, n.Volume)
		}
		if n.L4 != MixedL4 {
			t.Errorf("%s.L4 = %q, want %q", id, n.L4, MixedL4)
		}
		if n.L7 != MixedL7 {
			t.Errorf("%s.L7 = %q, want %q", id, n.L7, MixedL7)
		}
		if n.Port != nil {
			t.Errorf("%s.Port = %v, want nil in host mode", id, *n.Port)
		}
	}

	if len(m.Links) != 1 {
		t.Fatalf("len(Links) = %d, want 1", len(m.Links))
	}
	l := m.Links[0]
	if l.Source != "A" || l.Target != "B" {
		t.Errorf("link = %s, want A->B", l.ID())
	}
	if l.L4 != "TCP" || l.L7 != "HTTP" {
		t.Errorf("link protos = %s/%s, want first packet's TCP/HTTP", l.L4, l.L7)
	}
}

func TestAggregatePortMode(t *testing.T) {
	records := []packet.Record{
		rec("10.0.0.1", "10.0.0.2", 40000, 443, 60, packet.TCP, "TLS"),
		rec("10.0.0.2", "10.0.0.1", 443, 40000, 1500, packet.TCP, "TLS"),
		rec("10.0.0.1", "10.0.0.2", 40000, 443, 40, packet.TCP, "TLS"),
		rec("fe80::1", "fe80::2", 5353, 5353, 90, packet.UDP, "MDNS"),
	}

	m := Aggregate(records, ModePort)

	wantIDs := []string{"10.0.0.1:40000", "10.0.0.2:443", "[fe80::1]:5353", "[fe80::2]:5353"}
	var gotIDs []string
	for _, n := range m.Nodes {
		gotIDs = append(gotIDs, n.ID)
	}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Errorf("node ids mismatch (-want +got):\n%s", diff)
	}

	client, _ := m.Node("10.0.0.1:40000")
	if client.Volume != 1600 {
		t.Errorf("client volume = %d, want 1600", client.Volume)
	}
	if client.Port == nil || *client.Port != 40000 {
		t.Errorf("client port = %v, want 40000", client.Port)
	}
	if client.IP != "10.0.0.1" {
		t.Errorf("client IP = %q, want 10.0.0.1", client.IP)
	}
	if client.L4 != "TCP" || client.L7 != "TLS" {
		t.Errorf("client protos = %s/%s, want unmixed TCP/TLS", client.L4, client.L7)
	}

	if len(m.Links) != 3 {
		t.Errorf("len(Links) = %d, want 3 (two directions + mdns)", len(m.Links))
	}
}

func TestAggregateSkipsMalformed(t *testing.T) {
	records := []packet.Record{
		{SrcIP: "A", DstIP: "B", FrameLen: 10, L4: packet.TCP}, // no ports
		{SrcIP: "", DstIP: "B", FrameLen: 10, L4: packet.TCP},
		{SrcIP: "A", DstIP: "B", FrameLen: -1, L4: packet.TCP},
		rec("A", "B", 1, 2, 10, packet.TCP, "X"),
	}

	host := Aggregate(records, ModeHost)
	if host.Skipped != 2 {
		t.Errorf("host Skipped = %d, want 2", host.Skipped)
	}
	if a, _ := host.Node("A"); a.Volume != 20 {
		t.Errorf("host A.Volume = %d, want 20", a.Volume)
	}

	port := Aggregate(records, ModePort)
	if port.Skipped != 3 {
		t.Errorf("port Skipped = %d, want 3", port.Skipped)
	}
	if len(port.Nodes) != 2 {
		t.Errorf("port len(Nodes) = %d, want 2", len(port.Nodes))
	}
}

func TestAggregateEmpty(t *testing.T) {
	for _, mode := range []Mode{ModeHost, ModePort} {
		m := Aggregate(nil, mode)
		if len(m.Nodes) != 0 || len(m.Links) != 0 {
			t.Errorf("Aggregate(nil, %s) = %d nodes, %d links, want empty", mode, len(m.Nodes), len(m.Links))
		}
		if m.Mode != mode {
			t.Errorf("Mode = %v, want %v", m.Mode, mode)
		}
	}
}

// randomRecords generates a reproducible packet list over a small address
// space so that ids, pairs and protocols collide often.
func randomRecords(seed uint64, n int) []packet.Record {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
	l4s := []packet.L4{packet.TCP, packet.UDP}
	l7s := []string{"HTTP", "DNS", "TLS"}

	out := make([]packet.Record, n)
	for i := range out {
		out[i] = rec(
			ips[r.IntN(len(ips))], ips[r.IntN(len(ips))],
			uint16(1000+r.IntN(3)), uint16(80+r.IntN(2)),
			r.IntN(1500), l4s[r.IntN(2)], l7s[r.IntN(3)],
		)
	}
	return out
}

func TestAggregateDeterministic(t *testing.T) {
	records := randomRecords(7, 500)
	for _, mode := range []Mode{ModeHost, ModePort} {
		a := Aggregate(records, mode)
		b := Aggregate(records, mode)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("%s: repeated aggregation differs (-first +second):\n%s", mode, diff)
		}
	}
}

func TestAggregateProperties(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		records := randomRecords(seed, 300)
		for _, mode := range []Mode{ModeHost, ModePort} {
			m := Aggregate(records, mode)

			volume := map[string]int64{}
			l4s := map[string]map[string]bool{}
			l7s := map[string]map[string]bool{}
			pairs := map[[2]string]bool{}
			for _, r := range records {
				src, dst := r.SrcIP, r.DstIP
				if mode == ModePort {
					src = EndpointID(r.SrcIP, int(r.Ports.Src))
					dst = EndpointID(r.DstIP, int(r.Ports.Dst))
				}
				pairs[[2]string{src, dst}] = true
				for _, id := range []string{src, dst} {
					volume[id] += int64(r.FrameLen)
					if l4s[id] == nil {
						l4s[id], l7s[id] = map[string]bool{}, map[string]bool{}
					}
					l4s[id][string(r.L4)] = true
					l7s[id][r.L7] = true
				}
			}

			for _, n := range m.Nodes {
				if n.Volume != volume[n.ID] {
					t.Errorf("seed %d %s: %s.Volume = %d, want %d", seed, mode, n.ID, n.Volume, volume[n.ID])
				}
				if mixed := len(l4s[n.ID]) >= 2; mixed != (n.L4 == MixedL4) {
					t.Errorf("seed %d %s: %s.L4 = %q with %d distinct values", seed, mode, n.ID, n.L4, len(l4s[n.ID]))
				}
				if mixed := len(l7s[n.ID]) >= 2; mixed != (n.L7 == MixedL7) {
					t.Errorf("seed %d %s: %s.L7 = %q with %d distinct values", seed, mode, n.ID, n.L7, len(l7s[n.ID]))
				}
			}
			if len(m.Nodes) != len(volume) {
				t.Errorf("seed %d %s: len(Nodes) = %d, want %d", seed, mode, len(m.Nodes), len(volume))
			}

			seen := map[string]bool{}
			for _, l := range m.Links {
				if seen[l.ID()] {
					t.Errorf("seed %d %s: duplicate link %s", seed, mode, l.ID())
				}
				seen[l.ID()] = true
			}
			if len(m.Links) != len(pairs) {
				t.Errorf("seed %d %s: len(Links) = %d, want %d", seed, mode, len(m.Links), len(pairs))
			}
		}
	}
}

func TestAggregateDoesNotShareStorage(t *testing.T) {
	m := Aggregate([]packet.Record{rec("A", "B", 1, 2, 10, packet.TCP, "X")}, ModePort)
	*m.Links[0].SrcPort = 9999
	if n, _ := m.Node("A:1"); *n.Port != 1 {
		t.Errorf("node port changed through link: %d", *n.Port)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"host", ModeHost, false},
		{"port", ModePort, false},
		{"", ModeHost, false},
		{"vlan", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errors.ErrCodeInvalidMode) {
				t.Errorf("ParseMode(%q) error code = %v", tt.in, errors.GetCode(err))
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestModeOther(t *testing.T) {
	if ModeHost.Other() != ModePort || ModePort.Other() != ModeHost {
		t.Error("Other() should toggle between host and port")
	}
}

func TestBuildModels(t *testing.T) {
	records := randomRecords(3, 50)
	models := BuildModels(records)
	if models.For(ModeHost).Mode != ModeHost || models.For(ModePort).Mode != ModePort {
		t.Error("For() returned the wrong model")
	}
	if models.Host.TotalVolume() != models.Port.TotalVolume() {
		t.Errorf("total volume differs: host %d, port %d", models.Host.TotalVolume(), models.Port.TotalVolume())
	}
}
