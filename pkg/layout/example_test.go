package layout_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/layout"
	"github.com/matzehuels/flowscope/pkg/packet"
)

func ExampleBuild() {
	records := []packet.Record{
		{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", FrameLen: 100, L4: packet.TCP, L7: "HTTP"},
		{SrcIP: "10.0.0.2", DstIP: "10.0.0.3", FrameLen: 400, L4: packet.UDP, L7: "DNS"},
	}
	e := layout.Build(flow.Aggregate(records, flow.ModeHost))
	fmt.Println("stable after build:", e.Stable())

	frame, _ := e.RunUntilSettled(context.Background(), 0)
	fmt.Println("nodes:", len(frame.Nodes), "links:", len(frame.Links))
	fmt.Println("stable after settling:", frame.Stable)
	// Output:
	// stable after build: false
	// nodes: 3 links: 2
	// stable after settling: true
}

func ExampleStability() {
	s := layout.NewStability(0.05)
	for _, alpha := range []float64{1, 0.04, 0.3} {
		s.Observe(alpha)
		fmt.Println(alpha, s.Stable())
	}
	// Output:
	// 1 false
	// 0.04 true
	// 0.3 false
}
