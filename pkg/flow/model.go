package flow

import (
	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/packet"
)

// Mode selects the node grouping key.
type Mode string

// Grouping modes.
const (
	ModeHost Mode = "host"
	ModePort Mode = "port"
)

// Sentinel protocol labels for nodes that carried more than one protocol.
const (
	MixedL4 = "TCP/UDP"
	MixedL7 = "Multiple"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeHost, ModePort:
		return Mode(s), nil
	case "":
		return ModeHost, nil
	}
	return "", errors.New(errors.ErrCodeInvalidMode, "unknown mode %q (want host or port)", s)
}

// Other returns the opposite grouping mode.
func (m Mode) Other() Mode {
	if m == ModePort {
		return ModeHost
	}
	return ModePort
}

// Node is an aggregated traffic endpoint.
type Node struct {
	ID     string `json:"id"`
	IP     string `json:"ip"`
	Port   *int   `json:"port,omitempty"` // set in port mode only
	Volume int64  `json:"volume"`         // bytes over every packet touching the node
	L4     string `json:"l4"`
	L7     string `json:"l7"`
}

// Link is a directed connection between two nodes. The descriptive fields
// come from the first packet seen on the pair.
type Link struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	SrcIP   string `json:"src_ip"`
	DstIP   string `json:"dst_ip"`
	SrcPort *int   `json:"src_port,omitempty"`
	DstPort *int   `json:"dst_port,omitempty"`
	L4      string `json:"l4"`
	L7      string `json:"l7,omitempty"`
}

// ID returns the stable identifier of the link.
func (l Link) ID() string { return l.Source + "->" + l.Target }

// Model is an immutable graph snapshot for one grouping mode.
// Nodes and Links keep the order in which they were first seen.
type Model struct {
	Mode    Mode   `json:"mode"`
	Nodes   []Node `json:"nodes"`
	Links   []Link `json:"links"`
	Skipped int    `json:"skipped,omitempty"`
}

// Node returns the node with the given id.
func (m Model) Node(id string) (Node, bool) {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// TotalVolume sums the volume of all nodes.
func (m Model) TotalVolume() int64 {
	var total int64
	for _, n := range m.Nodes {
		total += n.Volume
	}
	return total
}

// Models holds the host-level and port-level graphs built from the same
// packet list.
type Models struct {
	Host Model `json:"host"`
	Port Model `json:"port"`
}

// For returns the model for the given mode.
func (m Models) For(mode Mode) Model {
	if mode == ModePort {
		return m.Port
	}
	return m.Host
}

// BuildModels aggregates records in both modes.
func BuildModels(records []packet.Record) Models {
	return Models{
		Host: Aggregate(records, ModeHost),
		Port: Aggregate(records, ModePort),
	}
}
