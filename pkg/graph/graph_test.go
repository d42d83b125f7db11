package graph

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/layout"
	"github.com/matzehuels/flowscope/pkg/packet"
)

func sampleModels() flow.Models {
	return flow.BuildModels([]packet.Record{
		{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Ports: &packet.Ports{Src: 40000, Dst: 80}, FrameLen: 100, L4: packet.TCP, L7: "HTTP"},
		{SrcIP: "10.0.0.2", DstIP: "10.0.0.1", Ports: &packet.Ports{Src: 80, Dst: 40000}, FrameLen: 1400, L4: packet.TCP, L7: "HTTP"},
		{SrcIP: "10.0.0.1", DstIP: "10.0.0.3", Ports: &packet.Ports{Src: 5353, Dst: 53}, FrameLen: 70, L4: packet.UDP, L7: "DNS"},
	})
}

func TestMarshalGraph(t *testing.T) {
	tests := []struct {
		name      string
		model     flow.Model
		wantNodes int
		wantEdges int
		check     func(t *testing.T, g Graph)
	}{
		{
			name:  "Empty",
			model: flow.Model{Mode: flow.ModeHost},
		},
		{
			name:      "Host",
			model:     sampleModels().Host,
			wantNodes: 3,
			wantEdges: 3,
			check: func(t *testing.T, g Graph) {
				if g.Mode != "host" {
					t.Errorf("mode = %q, want host", g.Mode)
				}
				if g.Nodes[0].Port != nil {
					t.Errorf("host node has port %d", *g.Nodes[0].Port)
				}
				if g.Nodes[0].L4 != flow.MixedL4 {
					t.Errorf("l4 = %q, want %q", g.Nodes[0].L4, flow.MixedL4)
				}
			},
		},
		{
			name:      "Port",
			model:     sampleModels().Port,
			wantNodes: 4,
			wantEdges: 3,
			check: func(t *testing.T, g Graph) {
				if g.Nodes[1].Port == nil || *g.Nodes[1].Port != 80 {
					t.Errorf("port = %v, want 80", g.Nodes[1].Port)
				}
				if g.Edges[0].SrcPort == nil || *g.Edges[0].SrcPort != 40000 {
					t.Errorf("src_port = %v, want 40000", g.Edges[0].SrcPort)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalGraph(tt.model)
			if err != nil {
				t.Fatalf("MarshalGraph: %v", err)
			}

			var result Graph
			if err := json.Unmarshal(data, &result); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			if got := len(result.Nodes); got != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", got, tt.wantNodes)
			}
			if got := len(result.Edges); got != tt.wantEdges {
				t.Errorf("edges = %d, want %d", got, tt.wantEdges)
			}
			if tt.check != nil {
				tt.check(t, result)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, m := range []flow.Model{sampleModels().Host, sampleModels().Port} {
		t.Run(string(m.Mode), func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteGraph(m, &buf); err != nil {
				t.Fatal(err)
			}
			got, err := ReadGraph(&buf)
			if err != nil {
				t.Fatalf("ReadGraph: %v", err)
			}
			if diff := cmp.Diff(m, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadGraph(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode errors.Code
	}{
		{
			name: "Valid",
			input: `{"mode": "port",
				"nodes": [{"id": "a:1", "ip": "a", "port": 1, "volume": 5}, {"id": "b:2", "ip": "b", "port": 2, "volume": 5}],
				"edges": [{"from": "a:1", "to": "b:2"}]}`,
		},
		{"DefaultMode", `{"nodes": [], "edges": []}`, ""},
		{"Malformed", `{"nodes": [`, errors.ErrCodeInvalidInput},
		{"BadMode", `{"mode": "ring", "nodes": []}`, errors.ErrCodeInvalidMode},
		{"DuplicateNode", `{"nodes": [{"id": "a"}, {"id": "a"}]}`, errors.ErrCodeInvalidInput},
		{"EmptyID", `{"nodes": [{"id": ""}]}`, errors.ErrCodeInvalidInput},
		{"NegativeVolume", `{"nodes": [{"id": "a", "volume": -1}]}`, errors.ErrCodeInvalidInput},
		{"DanglingEdge", `{"nodes": [{"id": "a"}], "edges": [{"from": "a", "to": "b"}]}`, errors.ErrCodeInvalidInput},
		{"DuplicateEdge", `{"nodes": [{"id": "a"}, {"id": "b"}], "edges": [{"from": "a", "to": "b"}, {"from": "a", "to": "b"}]}`, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGraph(strings.NewReader(tt.input))
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("ReadGraph: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("ReadGraph error = %v, want %s", err, tt.wantCode)
			}
		})
	}
}

func TestGraphFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.json")
	m := sampleModels().Host
	if err := WriteGraphFile(m, path); err != nil {
		t.Fatal(err)
	}
	got, err := ReadGraphFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Nodes) != len(m.Nodes) {
		t.Errorf("nodes = %d, want %d", len(got.Nodes), len(m.Nodes))
	}

	_, err = ReadGraphFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestModelsRoundTrip(t *testing.T) {
	want := sampleModels()
	var buf bytes.Buffer
	if err := WriteModels(want, &buf); err != nil {
		t.Fatal(err)
	}
	var g Models
	if err := json.Unmarshal(buf.Bytes(), &g); err != nil {
		t.Fatal(err)
	}
	got, err := ToModels(g)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("models mismatch (-want +got):\n%s", diff)
	}
}

func TestLayout(t *testing.T) {
	e := layout.Build(sampleModels().Port)
	l := FromFrame(flow.ModePort, e.Frame())

	if l.Width <= 0 || l.Height <= 0 {
		t.Errorf("size = %vx%v, want positive", l.Width, l.Height)
	}

	path := filepath.Join(t.TempDir(), "layout.json")
	if err := WriteLayoutFile(l, path); err != nil {
		t.Fatal(err)
	}
	got, err := ReadLayoutFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(l, got); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(e.Frame(), got.Frame()); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyLayout(t *testing.T) {
	l := FromFrame(flow.ModeHost, layout.Frame{})
	data, err := MarshalLayout(l)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"nodes": []`)) {
		t.Errorf("empty layout encodes nodes as %s", data)
	}
}

func TestUnmarshalLayoutInvalid(t *testing.T) {
	tests := map[string]string{
		"bad json": `{`,
		"bad mode": `{"mode": "ring"}`,
		"dangling": `{"mode": "host", "nodes": [{"id": "a"}], "links": [{"id": "a->b", "source": "a", "target": "b"}]}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := UnmarshalLayout([]byte(input)); err == nil {
				t.Error("UnmarshalLayout() error = nil")
			}
		})
	}

	if _, err := ReadLayoutFile(filepath.Join(os.TempDir(), "flowscope-no-such-layout.json")); err == nil {
		t.Error("ReadLayoutFile() error = nil for missing file")
	}
}
