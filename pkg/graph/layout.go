package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/layout"
)

// =============================================================================
// Layout - Positioned Graph
// =============================================================================

// Layout is the serialization format for a layout snapshot: node circles
// and link segments in world coordinates plus the simulation clock at the
// time of capture.
type Layout struct {
	Mode   string  `json:"mode" bson:"mode"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
	MinX   float64 `json:"min_x" bson:"min_x"`
	MinY   float64 `json:"min_y" bson:"min_y"`
	Alpha  float64 `json:"alpha" bson:"alpha"`
	Ticks  int     `json:"ticks" bson:"ticks"`
	Stable bool    `json:"stable" bson:"stable"`

	Nodes []layout.NodeFrame `json:"nodes" bson:"nodes"`
	Links []layout.LinkFrame `json:"links" bson:"links"`
}

// FromFrame captures a frame together with the mode it was laid out in.
func FromFrame(mode flow.Mode, f layout.Frame) Layout {
	minX, minY, maxX, maxY := f.Bounds()
	l := Layout{
		Mode:   string(mode),
		Width:  maxX - minX,
		Height: maxY - minY,
		MinX:   minX,
		MinY:   minY,
		Alpha:  f.Alpha,
		Ticks:  f.Tick,
		Stable: f.Stable,
		Nodes:  f.Nodes,
		Links:  f.Links,
	}
	if l.Nodes == nil {
		l.Nodes = []layout.NodeFrame{}
	}
	if l.Links == nil {
		l.Links = []layout.LinkFrame{}
	}
	return l
}

// Frame returns the layout as a renderer frame.
func (l Layout) Frame() layout.Frame {
	return layout.Frame{Nodes: l.Nodes, Links: l.Links, Alpha: l.Alpha, Tick: l.Ticks, Stable: l.Stable}
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// WriteLayout writes a Layout as JSON to an io.Writer.
func WriteLayout(l Layout, w io.Writer) error {
	return encode(l, w)
}

// UnmarshalLayout deserializes JSON bytes into a Layout.
// Validates the mode and that every link refers to a node.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if _, err := flow.ParseMode(l.Mode); err != nil {
		return Layout{}, err
	}

	ids := make(map[string]struct{}, len(l.Nodes))
	for _, n := range l.Nodes {
		ids[n.ID] = struct{}{}
	}
	for _, ln := range l.Links {
		_, okS := ids[ln.Source]
		_, okT := ids[ln.Target]
		if !okS || !okT {
			return Layout{}, errors.New(errors.ErrCodeInvalidInput, "link %s references a missing node", ln.ID)
		}
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
