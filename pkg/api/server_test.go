package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/graph"
	"github.com/matzehuels/flowscope/pkg/packet"
	"github.com/matzehuels/flowscope/pkg/pipeline"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	records := []packet.Record{
		{Timestamp: t0, SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Ports: &packet.Ports{Src: 40000, Dst: 80}, L4: packet.TCP, L7: "HTTP", FrameLen: 120},
		{Timestamp: t0, SrcIP: "10.0.0.2", DstIP: "10.0.0.3", Ports: &packet.Ports{Src: 40001, Dst: 53}, L4: packet.UDP, L7: "DNS", FrameLen: 80},
	}
	logger := log.NewWithOptions(io.Discard, log.Options{})
	runner := pipeline.NewRunner(nil, nil, logger)
	s := NewServer(":0", records, runner, WithLogger(logger))

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	ts := testServer(t)
	resp, body := get(t, ts, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got healthResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "ok" || got.Records != 2 {
		t.Errorf("health = %+v", got)
	}
}

func TestGraph(t *testing.T) {
	ts := testServer(t)

	tests := []struct {
		mode      string
		wantNodes int
	}{
		{"host", 3},
		{"port", 4},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			resp, body := get(t, ts, "/api/v1/graph/"+tt.mode)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, body %s", resp.StatusCode, body)
			}
			var g graph.Graph
			if err := json.Unmarshal(body, &g); err != nil {
				t.Fatal(err)
			}
			if g.Mode != tt.mode || len(g.Nodes) != tt.wantNodes || len(g.Edges) != 2 {
				t.Errorf("graph = mode %s, %d nodes, %d edges", g.Mode, len(g.Nodes), len(g.Edges))
			}
		})
	}
}

func TestLayout(t *testing.T) {
	ts := testServer(t)
	resp, body := get(t, ts, "/api/v1/layout/port")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	l, err := graph.UnmarshalLayout(body)
	if err != nil {
		t.Fatalf("UnmarshalLayout() error: %v", err)
	}
	if !l.Stable || len(l.Nodes) != 4 {
		t.Errorf("layout = stable %v, %d nodes", l.Stable, len(l.Nodes))
	}
}

func TestRenderJSON(t *testing.T) {
	ts := testServer(t)
	resp, body := get(t, ts, "/api/v1/render/host.json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if _, err := graph.UnmarshalLayout(body); err != nil {
		t.Errorf("body is not a layout: %v", err)
	}
}

func TestErrors(t *testing.T) {
	ts := testServer(t)

	tests := []struct {
		path   string
		status int
		code   errors.Code
	}{
		{"/api/v1/graph/mesh", http.StatusBadRequest, errors.ErrCodeInvalidMode},
		{"/api/v1/layout/mesh", http.StatusBadRequest, errors.ErrCodeInvalidMode},
		{"/api/v1/render/host.pdf", http.StatusBadRequest, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts, tt.path)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var got errorResponse
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("decode %s: %v", body, err)
			}
			if got.Code != tt.code {
				t.Errorf("code = %s, want %s", got.Code, tt.code)
			}
			if strings.HasPrefix(got.Message, string(tt.code)) {
				t.Errorf("message %q repeats the code", got.Message)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidInput, http.StatusBadRequest},
		{errors.ErrCodeFileNotFound, http.StatusNotFound},
		{errors.ErrCodeUnstable, http.StatusConflict},
		{errors.ErrCodeUnsupported, http.StatusNotImplemented},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("statusFor(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
