package packet

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/matzehuels/flowscope/pkg/errors"
)

// pcapngMagic is the section header block type that opens every pcapng file.
var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// ReadFile decodes every packet in a pcap or pcapng file.
func ReadFile(path string) (Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Capture{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "open capture %s", path)
		}
		return Capture{}, fmt.Errorf("open capture %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes every packet in a pcap or pcapng stream.
func Read(r io.Reader) (Capture, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return Capture{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read capture header")
	}

	var (
		src      gopacket.PacketDataSource
		linkType layers.LinkType
	)
	if bytes.Equal(magic, pcapngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return Capture{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "open pcapng stream")
		}
		src, linkType = ng, ng.LinkType()
	} else {
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			return Capture{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "open pcap stream")
		}
		src, linkType = pr, pr.LinkType()
	}

	var capture Capture
	ps := gopacket.NewPacketSource(src, linkType)
	ps.DecodeOptions = gopacket.DecodeOptions{Lazy: true}
	for {
		p, err := ps.NextPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return capture, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read packet %d", len(capture.Records)+capture.Skipped+1)
		}
		rec, ok := Decode(p)
		if !ok {
			capture.Skipped++
			continue
		}
		capture.Records = append(capture.Records, rec)
	}
	return capture, nil
}

// Decode extracts a Record from a decoded packet. It reports false for
// packets without an IPv4/IPv6 layer or without a TCP/UDP transport.
func Decode(p gopacket.Packet) (Record, bool) {
	var rec Record

	switch ip := p.NetworkLayer().(type) {
	case *layers.IPv4:
		rec.SrcIP, rec.DstIP = ip.SrcIP.String(), ip.DstIP.String()
	case *layers.IPv6:
		rec.SrcIP, rec.DstIP = ip.SrcIP.String(), ip.DstIP.String()
	default:
		return Record{}, false
	}

	var srcName, dstName string
	switch t := p.TransportLayer().(type) {
	case *layers.TCP:
		rec.L4 = TCP
		rec.Ports = &Ports{Src: uint16(t.SrcPort), Dst: uint16(t.DstPort)}
		srcName, dstName = t.SrcPort.String(), t.DstPort.String()
	case *layers.UDP:
		rec.L4 = UDP
		rec.Ports = &Ports{Src: uint16(t.SrcPort), Dst: uint16(t.DstPort)}
		srcName, dstName = t.SrcPort.String(), t.DstPort.String()
	default:
		return Record{}, false
	}

	if md := p.Metadata(); md != nil {
		rec.Timestamp = md.Timestamp
		rec.FrameLen = md.Length
	}
	if rec.FrameLen == 0 {
		rec.FrameLen = len(p.Data())
	}

	rec.L7 = appLabel(p, rec.Ports, srcName, dstName)
	return rec, true
}

// appLabel names the application protocol. A decoded application layer
// wins; otherwise the well-known name of the lower port (usually the
// service side) is used, then the higher port.
func appLabel(p gopacket.Packet, ports *Ports, srcName, dstName string) string {
	if app := p.ApplicationLayer(); app != nil && app.LayerType() != gopacket.LayerTypePayload {
		return app.LayerType().String()
	}
	first, second := dstName, srcName
	if ports.Src < ports.Dst {
		first, second = srcName, dstName
	}
	if name := serviceName(first); name != "" {
		return name
	}
	if name := serviceName(second); name != "" {
		return name
	}
	return UnknownL7
}

// serviceName extracts the IANA service from gopacket's "80(http)" port
// formatting.
func serviceName(port string) string {
	open := strings.IndexByte(port, '(')
	if open < 0 || !strings.HasSuffix(port, ")") {
		return ""
	}
	return strings.ToUpper(port[open+1 : len(port)-1])
}
