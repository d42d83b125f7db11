package layout

import (
	"math"

	"github.com/matzehuels/flowscope/pkg/flow"
)

// ClusterAnchors assigns each distinct host IP a point evenly spaced on a
// circle of the given radius around the origin, in first-seen order.
// A single host is anchored at the origin.
func ClusterAnchors(nodes []flow.Node, radius float64) map[string]Point {
	var hosts []string
	anchors := make(map[string]Point)
	for _, n := range nodes {
		if _, ok := anchors[n.IP]; ok {
			continue
		}
		anchors[n.IP] = Point{}
		hosts = append(hosts, n.IP)
	}
	if len(hosts) < 2 {
		return anchors
	}

	step := 2 * math.Pi / float64(len(hosts))
	for i, ip := range hosts {
		angle := float64(i) * step
		anchors[ip] = Point{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)}
	}
	return anchors
}

// clusterForce pulls every node toward its host anchor on both axes.
func clusterForce(nodes []Node, anchors map[string]Point, strength float64) Force {
	targets := make([]Point, len(nodes))
	for i, n := range nodes {
		targets[i] = anchors[n.IP]
	}
	return func(alpha float64) {
		k := strength * alpha
		for i := range nodes {
			n := &nodes[i]
			n.VX += (targets[i].X - n.X) * k
			n.VY += (targets[i].Y - n.Y) * k
		}
	}
}
