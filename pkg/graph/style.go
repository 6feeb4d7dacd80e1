package graph

import "github.com/Alterya/Globe/pkg/intel"

// nodeStyle is the visual configuration applied per node type.
type nodeStyle struct {
	color string
	shape string
}

var nodeStyles = map[string]nodeStyle{
	"source_domain":    {color: "#e74c3c", shape: "circle"},
	"lookalike_domain": {color: "#3498db", shape: "circle"},
	"same_ip_domain":   {color: "#1abc9c", shape: "circle"},
	"ip":               {color: "#95a5a6", shape: "circle"},
	"btc_address":      {color: "#f39c12", shape: "square"},
	"eth_address":      {color: "#9b59b6", shape: "circle"},
	"tron_address":     {color: "#e74c3c", shape: "triangle"},
}

var defaultStyle = nodeStyle{color: "#666666", shape: "circle"}

var edgeColors = map[string]string{
	RelationLookalike: "#3498db",
	RelationSameIP:    "#f39c12",
	RelationHosts:     "#7f8c8d",
}

// crypto edges are colored red regardless of chain
const cryptoEdgeColor = "#e74c3c"

func styleFor(nodeType string) nodeStyle {
	if s, ok := nodeStyles[nodeType]; ok {
		return s
	}
	return defaultStyle
}

func edgeColor(relation string) string {
	if c, ok := edgeColors[relation]; ok {
		return c
	}
	return cryptoEdgeColor
}

// addressNodeType classifies a chain tag into a styled node type, e.g.
// "btc" -> "btc_address".
func addressNodeType(chain string) string {
	switch chain {
	case intel.ChainBTC, intel.ChainETH, intel.ChainTron:
		return chain + "_address"
	}
	return "crypto_address"
}

// domainLabel trims long domains for display.
func domainLabel(domain string) string {
	if len(domain) > 25 {
		return domain[:22] + "..."
	}
	return domain
}

// addressLabel shortens a crypto address to its head and tail.
func addressLabel(address string) string {
	if len(address) > 12 {
		return address[:6] + "..." + address[len(address)-6:]
	}
	return address
}
