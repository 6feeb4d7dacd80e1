package graph

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Alterya/Globe/pkg/intel"
)

var (
	builderNodeCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graph_nodes_total",
			Help: "Number of nodes in the last built graph",
		},
		[]string{"kind"},
	)

	builderEdgeCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graph_edges_total",
			Help: "Number of edges in the last built graph",
		},
		[]string{"relation"},
	)
)

// Build constructs a deduplicated node/edge graph from flat relationship
// records. It is pure and deterministic: the same record set yields the same
// node and edge identities, weights and styles regardless of record order.
// Node properties keep the first-seen record's values. Malformed rows are
// dropped silently; the worst case is empty sets. It never fails.
func Build(records []intel.Record) *Network {
	b := builder{
		nodes: make(map[string]*Node),
		edges: make(map[string]Edge),
	}

	for _, r := range records {
		if !r.Valid() {
			continue
		}
		b.processRecord(r)
	}

	return b.network()
}

type builder struct {
	nodes map[string]*Node
	edges map[string]Edge
}

func (b *builder) processRecord(r intel.Record) {
	domain := intel.NormalizeDomain(r.SourceDomain)
	domainID := b.ensureDomainNode(domain, "source_domain", r)

	if r.Aggregation != nil {
		node := b.nodes[domainID]
		node.Properties["aggregated_count"] = r.Aggregation.Count
		node.Properties["aggregation_type"] = r.Aggregation.Type
	}

	chain := r.ChainTag()
	for _, address := range intel.SplitAddressList(r.CryptoAddress) {
		addressID := b.ensureAddressNode(address, chain, r)
		b.ensureEdge(domainID, addressID, chain)
	}

	if r.HasResolvedIP() {
		ipID := b.ensureIPNode(r.IPOrUnknown())
		b.ensureEdge(domainID, ipID, RelationHosts)
	}

	for _, related := range intel.SplitDomainList(r.LookalikeDomain) {
		if related == domain {
			continue
		}
		relatedID := b.ensureDomainNode(related, "lookalike_domain", r)
		b.ensureEdge(domainID, relatedID, RelationLookalike)
	}

	for _, related := range intel.SplitDomainList(r.SameIPDomain) {
		if related == domain {
			continue
		}
		relatedID := b.ensureDomainNode(related, "same_ip_domain", r)
		b.ensureEdge(domainID, relatedID, RelationSameIP)
	}
}

func nodeID(kind NodeKind, key string) string {
	return string(kind) + ":" + key
}

// domainTypePriority ranks the roles a domain can be seen in. A domain
// referenced both as a source and as a lookalike is styled as a source, no
// matter which record was processed first.
var domainTypePriority = map[string]int{
	"source_domain":    3,
	"lookalike_domain": 2,
	"same_ip_domain":   1,
}

func (b *builder) ensureDomainNode(domain, nodeType string, r intel.Record) string {
	id := nodeID(KindDomain, domain)
	node, exists := b.nodes[id]
	if !exists {
		style := styleFor(nodeType)
		node = &Node{
			ID:           id,
			Kind:         KindDomain,
			Key:          domain,
			DisplayLabel: domainLabel(domain),
			NodeType:     nodeType,
			Color:        style.color,
			Shape:        style.shape,
			Properties: map[string]any{
				"url":              "https://" + domain,
				"ip_address":       r.IPOrUnknown(),
				"screenshot":       r.Screenshot,
				"discovery_method": r.DiscoveryMethod,
				"intel_summary":    r.IntelSummary,
			},
		}
		b.nodes[id] = node
	} else if domainTypePriority[nodeType] > domainTypePriority[node.NodeType] {
		style := styleFor(nodeType)
		node.NodeType = nodeType
		node.Color = style.color
		node.Shape = style.shape
	}
	node.Weight++
	return id
}

func (b *builder) ensureAddressNode(address, chain string, r intel.Record) string {
	id := nodeID(KindAddress, address)
	node, exists := b.nodes[id]
	if !exists {
		nodeType := addressNodeType(chain)
		style := styleFor(nodeType)
		node = &Node{
			ID:           id,
			Kind:         KindAddress,
			Key:          address,
			DisplayLabel: addressLabel(address),
			NodeType:     nodeType,
			Color:        style.color,
			Shape:        style.shape,
			Properties: map[string]any{
				"chain":            chain,
				"full_address":     address,
				"discovery_method": r.DiscoveryMethod,
			},
		}
		b.nodes[id] = node
	}
	node.Weight++
	return id
}

func (b *builder) ensureIPNode(ip string) string {
	id := nodeID(KindIP, ip)
	node, exists := b.nodes[id]
	if !exists {
		style := styleFor("ip")
		node = &Node{
			ID:           id,
			Kind:         KindIP,
			Key:          ip,
			DisplayLabel: ip,
			NodeType:     "ip",
			Color:        style.color,
			Shape:        style.shape,
		}
		b.nodes[id] = node
	}
	node.Weight++
	return id
}

// ensureEdge records one edge per (unordered endpoint pair, relation tag),
// keeping the first-seen orientation.
func (b *builder) ensureEdge(sourceID, targetID, relation string) {
	lo, hi := sourceID, targetID
	if lo > hi {
		lo, hi = hi, lo
	}
	key := lo + "|" + hi + "|" + relation

	if _, exists := b.edges[key]; exists {
		return
	}
	b.edges[key] = Edge{
		SourceID: sourceID,
		TargetID: targetID,
		Relation: relation,
		Color:    edgeColor(relation),
	}
}

// network freezes the builder maps into deterministically ordered slices.
// The ordering is an implementation artifact, not part of the contract.
func (b *builder) network() *Network {
	nodes := make([]Node, 0, len(b.nodes))
	for _, node := range b.nodes {
		nodes = append(nodes, *node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	edges := make([]Edge, 0, len(b.edges))
	for _, edge := range b.edges {
		edges = append(edges, edge)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID < edges[j].SourceID
		}
		if edges[i].TargetID != edges[j].TargetID {
			return edges[i].TargetID < edges[j].TargetID
		}
		return edges[i].Relation < edges[j].Relation
	})

	kinds := make(map[NodeKind]int)
	for _, node := range nodes {
		kinds[node.Kind]++
	}
	for kind, count := range kinds {
		builderNodeCount.WithLabelValues(string(kind)).Set(float64(count))
	}
	relations := make(map[string]int)
	for _, edge := range edges {
		relations[edge.Relation]++
	}
	for relation, count := range relations {
		builderEdgeCount.WithLabelValues(relation).Set(float64(count))
	}

	return &Network{Nodes: nodes, Edges: edges}
}
