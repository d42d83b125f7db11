package packet

import (
	"time"

	"github.com/matzehuels/flowscope/pkg/errors"
)

// L4 is a transport-layer protocol label.
type L4 string

// Transport protocols understood by the graph.
const (
	TCP L4 = "TCP"
	UDP L4 = "UDP"
)

// UnknownL7 labels packets whose application protocol could not be named.
const UnknownL7 = "Unknown"

// Ports holds the transport ports of a TCP or UDP packet.
type Ports struct {
	Src uint16 `json:"src"`
	Dst uint16 `json:"dst"`
}

// Record is a single decoded packet.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	SrcIP     string    `json:"src_ip"`
	DstIP     string    `json:"dst_ip"`
	Ports     *Ports    `json:"ports,omitempty"` // nil when the transport header is missing
	FrameLen  int       `json:"frame_len"`
	L4        L4        `json:"l4"`
	L7        string    `json:"l7,omitempty"`
}

// Capture is the result of reading a capture stream.
type Capture struct {
	Records []Record
	Skipped int // packets without an IP layer or a TCP/UDP transport
}

// Filter returns the records whose timestamp lies in [from, to].
// A zero bound leaves that side of the window open. The input slice is not
// modified; the result is always a fresh slice.
func Filter(records []Record, from, to time.Time) ([]Record, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, errors.New(errors.ErrCodeInvalidRange, "range end %s is before start %s",
			to.Format(time.RFC3339), from.Format(time.RFC3339))
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !from.IsZero() && r.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && r.Timestamp.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Span returns the earliest and latest timestamps in records.
// Both are zero for an empty slice.
func Span(records []Record) (first, last time.Time) {
	for i, r := range records {
		if i == 0 || r.Timestamp.Before(first) {
			first = r.Timestamp
		}
		if i == 0 || r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return first, last
}
