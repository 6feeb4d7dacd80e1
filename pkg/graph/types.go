package graph

import "math"

// NodeKind determines a node's visual role and filter eligibility.
type NodeKind string

const (
	KindDomain  NodeKind = "domain"
	KindIP      NodeKind = "ip"
	KindAddress NodeKind = "address"
)

// Relation tags carried by edges.
const (
	RelationHosts     = "hosts"
	RelationLookalike = "lookalike_domain"
	RelationSameIP    = "same_ip_domain"
)

// Node is one vertex of the relationship graph. Identity is content-derived
// from (kind, natural key): the same domain string always maps to the same
// node across rebuilds, which keeps layout continuity after a filter change.
type Node struct {
	ID           string         `json:"id"`
	Kind         NodeKind       `json:"kind"`
	Key          string         `json:"key"`
	DisplayLabel string         `json:"label"`
	NodeType     string         `json:"node_type"`
	Weight       int            `json:"weight"`
	Color        string         `json:"color"`
	Shape        string         `json:"shape"`
	Properties   map[string]any `json:"properties,omitempty"`
}

// Radius maps weight to a rendered radius: monotonic, never below a visible
// minimum, never unbounded.
func (n Node) Radius() float64 {
	r := 10 + 6*math.Sqrt(float64(n.Weight))
	return math.Min(r, 42)
}

// Edge links two nodes with a relation tag. At most one edge exists per
// (unordered endpoint pair, relation tag); duplicate records collapse into
// one edge, never into parallel edges.
type Edge struct {
	SourceID string `json:"source"`
	TargetID string `json:"target"`
	Relation string `json:"relation"`
	Color    string `json:"color"`
}

// Network is one Graph Builder output consumed by the layout engine and the
// interaction surface.
type Network struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeByID returns the node with the given ID, if present.
func (n *Network) NodeByID(id string) (Node, bool) {
	for _, node := range n.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return Node{}, false
}
