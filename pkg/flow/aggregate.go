package flow

import (
	"net"
	"strconv"

	"github.com/matzehuels/flowscope/pkg/packet"
)

type linkKey struct{ src, dst string }

// aggregator accumulates one model. Nodes live in a slice with an id index
// so output order is first-seen order.
type aggregator struct {
	mode  Mode
	nodes []Node
	index map[string]int
	links []Link
	seen  map[linkKey]struct{}
}

// Aggregate builds the graph model for mode from records.
// See the package documentation for the malformed-record policy.
func Aggregate(records []packet.Record, mode Mode) Model {
	a := &aggregator{
		mode:  mode,
		index: make(map[string]int),
		seen:  make(map[linkKey]struct{}),
	}

	skipped := 0
	for _, r := range records {
		if !a.add(r) {
			skipped++
		}
	}

	return Model{
		Mode:    mode,
		Nodes:   a.nodes,
		Links:   a.links,
		Skipped: skipped,
	}
}

func (a *aggregator) add(r packet.Record) bool {
	if r.SrcIP == "" || r.DstIP == "" || r.FrameLen < 0 {
		return false
	}

	var srcPort, dstPort *int
	srcID, dstID := r.SrcIP, r.DstIP
	if a.mode == ModePort {
		if r.Ports == nil {
			return false
		}
		srcPort, dstPort = intPtr(int(r.Ports.Src)), intPtr(int(r.Ports.Dst))
		srcID = EndpointID(r.SrcIP, *srcPort)
		dstID = EndpointID(r.DstIP, *dstPort)
	}

	l4, l7 := string(r.L4), r.L7
	a.touch(srcID, r.SrcIP, srcPort, int64(r.FrameLen), l4, l7)
	a.touch(dstID, r.DstIP, dstPort, int64(r.FrameLen), l4, l7)

	key := linkKey{srcID, dstID}
	if _, ok := a.seen[key]; !ok {
		a.seen[key] = struct{}{}
		a.links = append(a.links, Link{
			Source:  srcID,
			Target:  dstID,
			SrcIP:   r.SrcIP,
			DstIP:   r.DstIP,
			SrcPort: copyInt(srcPort),
			DstPort: copyInt(dstPort),
			L4:      l4,
			L7:      l7,
		})
	}
	return true
}

func (a *aggregator) touch(id, ip string, port *int, size int64, l4, l7 string) {
	i, ok := a.index[id]
	if !ok {
		a.index[id] = len(a.nodes)
		a.nodes = append(a.nodes, Node{
			ID:     id,
			IP:     ip,
			Port:   copyInt(port),
			Volume: size,
			L4:     l4,
			L7:     l7,
		})
		return
	}

	n := &a.nodes[i]
	n.Volume += size
	if n.L4 != l4 {
		n.L4 = MixedL4
	}
	if n.L7 != l7 {
		n.L7 = MixedL7
	}
}

func intPtr(v int) *int { return &v }

// copyInt keeps nodes and links from sharing port storage.
func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	return intPtr(*p)
}

// EndpointID formats the port-mode node id. IPv6 addresses are bracketed
// so the id stays unambiguous.
func EndpointID(ip string, port int) string {
	return net.JoinHostPort(ip, strconv.Itoa(port))
}
