// Package pkg provides the libraries behind flowscope, a packet capture
// flow visualizer.
//
// # Overview
//
// A capture is decoded into packet records, aggregated into a flow graph
// grouped by host or by host and port, and laid out by a force-directed
// simulation that can be driven headless or interactively:
//
//	pcap/pcapng
//	     ↓
//	[packet] decode records (gopacket)
//	     ↓
//	[flow] aggregate host and port models
//	     ↓
//	[layout] force simulation + stability detection
//	     ↓                      ↘
//	[render/nodelink]          [session] + [interact]
//	SVG/PNG/JSON               live ticks, drag, pan/zoom
//
// [pipeline] runs the headless path with caching through [cache]; [api]
// serves it over HTTP. [graph] holds the JSON forms of models and layouts,
// [config] loads settings and [observability] exposes hooks for metrics.
//
// # Quick Start
//
//	capture, _ := packet.ReadFile("trace.pcapng")
//	m := flow.Aggregate(capture.Records, flow.ModePort)
//
//	e := layout.Build(m)
//	defer e.Stop()
//	frame, _ := e.RunUntilSettled(ctx, 5000)
//
//	svg, _ := nodelink.RenderSVG(ctx, nodelink.ToDOT(m, frame, nodelink.Options{}))
package pkg
