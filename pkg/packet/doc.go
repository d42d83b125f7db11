// Package packet defines the decoded packet records that feed flow
// aggregation, and the capture readers that produce them.
//
// A [Record] is the minimal per-packet view the graph needs: endpoints,
// optional transport ports, frame length, the transport protocol and an
// application-layer label. Records are values and are never mutated after
// decoding.
//
// # Reading Captures
//
// [ReadFile] and [Read] accept classic pcap and pcapng streams and decode
// them with gopacket:
//
//	capture, err := packet.ReadFile("trace.pcapng")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(len(capture.Records), "records,", capture.Skipped, "skipped")
//
// Packets without an IP layer, or whose transport is neither TCP nor UDP,
// are skipped and counted rather than returned.
//
// # Time Ranges
//
// [Filter] returns the subset of records inside an inclusive time window,
// which is how a timeline selection narrows the graph:
//
//	subset, err := packet.Filter(capture.Records, from, to)
package packet
