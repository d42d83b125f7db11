package graph_test

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/graph"
	"github.com/matzehuels/flowscope/pkg/packet"
)

func ExampleWriteGraph() {
	m := flow.Aggregate([]packet.Record{
		{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", FrameLen: 60, L4: packet.TCP, L7: "TLS"},
	}, flow.ModeHost)

	var buf bytes.Buffer
	if err := graph.WriteGraph(m, &buf); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Print(buf.String())
	// Output:
	// {
	//   "mode": "host",
	//   "nodes": [
	//     {
	//       "id": "10.0.0.1",
	//       "ip": "10.0.0.1",
	//       "volume": 60,
	//       "l4": "TCP",
	//       "l7": "TLS"
	//     },
	//     {
	//       "id": "10.0.0.2",
	//       "ip": "10.0.0.2",
	//       "volume": 60,
	//       "l4": "TCP",
	//       "l7": "TLS"
	//     }
	//   ],
	//   "edges": [
	//     {
	//       "from": "10.0.0.1",
	//       "to": "10.0.0.2",
	//       "src_ip": "10.0.0.1",
	//       "dst_ip": "10.0.0.2",
	//       "l4": "TCP",
	//       "l7": "TLS"
	//     }
	//   ]
	// }
}

func ExampleToModel() {
	g := graph.Graph{
		Mode:  "host",
		Nodes: []graph.Node{{ID: "a", IP: "a"}},
		Edges: []graph.Edge{{From: "a", To: "b"}},
	}
	_, err := graph.ToModel(g)
	fmt.Println(err)
	// Output:
	// INVALID_INPUT: edge a->b references unknown node "b"
}
