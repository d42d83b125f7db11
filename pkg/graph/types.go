package graph

import (
	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/flow"
)

// =============================================================================
// Graph - Traffic Graph Serialization
// =============================================================================

// Graph is the canonical serialization format for an aggregated traffic
// graph. Used for JSON exports, API responses and the model cache.
//
// Nodes and edges keep the aggregation order, so encoding the same packet
// list twice yields identical bytes.
type Graph struct {
	Mode    string `json:"mode" bson:"mode"`
	Nodes   []Node `json:"nodes" bson:"nodes"`
	Edges   []Edge `json:"edges" bson:"edges"`
	Skipped int    `json:"skipped,omitempty" bson:"skipped,omitempty"`
}

// Node is a host or endpoint with its accumulated traffic.
type Node struct {
	ID     string `json:"id" bson:"id"`
	IP     string `json:"ip" bson:"ip"`
	Port   *int   `json:"port,omitempty" bson:"port,omitempty"`
	Volume int64  `json:"volume" bson:"volume"`
	L4     string `json:"l4" bson:"l4"`
	L7     string `json:"l7" bson:"l7"`
}

// Edge is a directed conversation between two nodes. Descriptive fields
// come from the first packet seen on the pair.
type Edge struct {
	From    string `json:"from" bson:"from"`
	To      string `json:"to" bson:"to"`
	SrcIP   string `json:"src_ip" bson:"src_ip"`
	DstIP   string `json:"dst_ip" bson:"dst_ip"`
	SrcPort *int   `json:"src_port,omitempty" bson:"src_port,omitempty"`
	DstPort *int   `json:"dst_port,omitempty" bson:"dst_port,omitempty"`
	L4      string `json:"l4" bson:"l4"`
	L7      string `json:"l7" bson:"l7"`
}

// Models bundles the host and port graphs built from one packet list.
// This is the unit stored in the model cache.
type Models struct {
	Host Graph `json:"host" bson:"host"`
	Port Graph `json:"port" bson:"port"`
}

// =============================================================================
// Model ↔ Graph Conversion
// =============================================================================

// FromModel converts an aggregated model to its serialization format.
func FromModel(m flow.Model) Graph {
	g := Graph{
		Mode:    string(m.Mode),
		Nodes:   make([]Node, len(m.Nodes)),
		Edges:   make([]Edge, len(m.Links)),
		Skipped: m.Skipped,
	}
	for i, n := range m.Nodes {
		g.Nodes[i] = Node{ID: n.ID, IP: n.IP, Port: n.Port, Volume: n.Volume, L4: n.L4, L7: n.L7}
	}
	for i, l := range m.Links {
		g.Edges[i] = Edge{
			From: l.Source, To: l.Target,
			SrcIP: l.SrcIP, DstIP: l.DstIP,
			SrcPort: l.SrcPort, DstPort: l.DstPort,
			L4: l.L4, L7: l.L7,
		}
	}
	return g
}

// ToModel converts a serialized graph back to a model. It rejects unknown
// modes, duplicate node ids, negative volumes, duplicate edges and edges
// whose endpoints are missing.
func ToModel(g Graph) (flow.Model, error) {
	mode, err := flow.ParseMode(g.Mode)
	if err != nil {
		return flow.Model{}, err
	}

	m := flow.Model{
		Mode:    mode,
		Nodes:   make([]flow.Node, 0, len(g.Nodes)),
		Links:   make([]flow.Link, 0, len(g.Edges)),
		Skipped: g.Skipped,
	}
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return flow.Model{}, errors.New(errors.ErrCodeInvalidInput, "node with empty id")
		}
		if _, dup := ids[n.ID]; dup {
			return flow.Model{}, errors.New(errors.ErrCodeInvalidInput, "duplicate node %q", n.ID)
		}
		if n.Volume < 0 {
			return flow.Model{}, errors.New(errors.ErrCodeInvalidInput, "node %q has negative volume", n.ID)
		}
		ids[n.ID] = struct{}{}
		m.Nodes = append(m.Nodes, flow.Node{ID: n.ID, IP: n.IP, Port: n.Port, Volume: n.Volume, L4: n.L4, L7: n.L7})
	}

	pairs := make(map[string]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		l := flow.Link{
			Source: e.From, Target: e.To,
			SrcIP: e.SrcIP, DstIP: e.DstIP,
			SrcPort: e.SrcPort, DstPort: e.DstPort,
			L4: e.L4, L7: e.L7,
		}
		for _, end := range []string{e.From, e.To} {
			if _, ok := ids[end]; !ok {
				return flow.Model{}, errors.New(errors.ErrCodeInvalidInput, "edge %s references unknown node %q", l.ID(), end)
			}
		}
		if _, dup := pairs[l.ID()]; dup {
			return flow.Model{}, errors.New(errors.ErrCodeInvalidInput, "duplicate edge %s", l.ID())
		}
		pairs[l.ID()] = struct{}{}
		m.Links = append(m.Links, l)
	}
	return m, nil
}

// FromModels converts both models.
func FromModels(m flow.Models) Models {
	return Models{Host: FromModel(m.Host), Port: FromModel(m.Port)}
}

// ToModels converts both graphs back to models.
func ToModels(g Models) (flow.Models, error) {
	host, err := ToModel(g.Host)
	if err != nil {
		return flow.Models{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "host graph")
	}
	port, err := ToModel(g.Port)
	if err != nil {
		return flow.Models{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "port graph")
	}
	return flow.Models{Host: host, Port: port}, nil
}
