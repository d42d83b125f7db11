package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/layout"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds traffic volume and protocol labels under each node id.
	Detailed bool
}

// Transport colors. Nodes that saw both transports get mixedColor.
const (
	tcpColor   = "#4e79a7"
	udpColor   = "#f28e2b"
	mixedColor = "#b07aa1"
	otherColor = "#bab0ac"
)

// ToDOT converts a laid-out model to Graphviz DOT. Every node is pinned at
// its frame position (y flipped, since Graphviz grows upward) and drawn as
// a fixed-size circle with the frame radius, so neato only routes edges.
// Nodes in the frame that are missing from the model are drawn without
// protocol styling.
func ToDOT(m flow.Model, f layout.Frame, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  splines=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fixedsize=true, fontsize=8, fontcolor=\"#333333\"];\n")
	buf.WriteString("  edge [color=\"#999999\", arrowsize=0.4, penwidth=0.8];\n")
	buf.WriteString("\n")

	for _, n := range f.Nodes {
		fn, _ := m.Node(n.ID)
		attrs := []string{
			fmt.Sprintf("pos=\"%s,%s!\"", num(n.X), num(-n.Y)),
			fmt.Sprintf("width=%s", num(2*n.Radius/72)),
			fmt.Sprintf("fillcolor=%q", FillColor(fn.L4)),
			fmt.Sprintf("xlabel=%q", fmtLabel(n.ID, fn, opts.Detailed)),
			"label=\"\"",
		}
		if n.Pinned {
			attrs = append(attrs, "penwidth=2", "color=\"#333333\"")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, l := range f.Links {
		fmt.Fprintf(&buf, "  %q -> %q;\n", l.Source, l.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(id string, n flow.Node, detailed bool) string {
	if !detailed || n.ID == "" {
		return id
	}
	return fmt.Sprintf("%s\n%s bytes\n%s/%s", id, strconv.FormatInt(n.Volume, 10), n.L4, n.L7)
}

// FillColor returns the node color for a transport protocol label.
func FillColor(l4 string) string {
	switch l4 {
	case "TCP":
		return tcpColor
	case "UDP":
		return udpColor
	case flow.MixedL4:
		return mixedColor
	default:
		return otherColor
	}
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// RenderSVG renders a DOT graph to SVG using Graphviz's neato engine.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz's neato engine.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
