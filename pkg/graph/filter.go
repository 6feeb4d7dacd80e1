package graph

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// FilterNodes returns a copy of the network containing only nodes the
// keep predicate accepts. Edges are pruned so both endpoints of every
// surviving edge exist in the surviving node set.
func (n *Network) FilterNodes(keep func(Node) bool) *Network {
	out := &Network{}
	alive := mapset.NewThreadUnsafeSet[string]()

	for _, node := range n.Nodes {
		if keep(node) {
			out.Nodes = append(out.Nodes, node)
			alive.Add(node.ID)
		}
	}

	for _, edge := range n.Edges {
		if alive.Contains(edge.SourceID) && alive.Contains(edge.TargetID) {
			out.Edges = append(out.Edges, edge)
		}
	}

	return out
}

// WithoutEdges returns a copy of the network with the node set intact and
// no edges at all.
func (n *Network) WithoutEdges() *Network {
	return &Network{Nodes: n.Nodes}
}
