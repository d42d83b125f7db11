// Package graph provides serialization types for traffic graphs and layouts.
//
// This package defines the wire format used for JSON exports, API responses
// and the model cache. BSON tags mirror the JSON names so the same types are
// stored directly by the MongoDB cache backend.
//
// # Core Types
//
//   - [Graph]: node-link format for one aggregated [flow.Model]
//   - [Models]: the host and port graphs of one packet list
//   - [Layout]: positioned nodes and boundary-projected link segments
//
// # Graph Serialization
//
//	{
//	  "mode": "host",
//	  "nodes": [{"id": "10.0.0.1", "ip": "10.0.0.1", "volume": 150, "l4": "TCP", "l7": "HTTP"}],
//	  "edges": [{"from": "10.0.0.1", "to": "10.0.0.2", ...}]
//	}
//
// Common operations:
//
//	m, _ := graph.ReadGraphFile("hosts.json")   // File → Model
//	graph.WriteGraphFile(m, "output.json")      // Model → File
//	data, _ := graph.MarshalGraph(m)            // Model → []byte
//	parsed, _ := graph.UnmarshalGraph(data)     // []byte → Graph
//
// [ToModel] validates what it reads: unknown modes, duplicate ids, negative
// volumes and dangling or duplicate edges are rejected with INVALID_INPUT.
//
// # Layout Serialization
//
//	l := graph.FromFrame(flow.ModePort, frame)
//	graph.WriteLayoutFile(l, "layout.json")
package graph
