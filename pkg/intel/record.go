package intel

import "strings"

// UnknownIP is the sentinel value carried by records whose source domain
// never resolved. Aggregation by IP groups such records under this marker.
const UnknownIP = "Unknown IP"

// Chain tags recognized with dedicated styling. Any other non-empty tag is
// still accepted and rendered with the default style.
const (
	ChainBTC  = "btc"
	ChainETH  = "eth"
	ChainTron = "tron"
)

// AggregationInfo annotates a representative record emitted by the
// aggregation pass. It is present only when aggregation ran.
type AggregationInfo struct {
	Count int    `json:"count"`
	Key   string `json:"key"`
	Type  string `json:"type"`
}

// Record is one flat relationship row linking a source domain to a crypto
// address, and optionally to resolved-IP and related-domain intelligence.
type Record struct {
	SourceDomain    string `json:"source_domain"`
	LookalikeDomain string `json:"lookalike_domain,omitempty"`
	SameIPDomain    string `json:"same_ip_domain,omitempty"`
	CryptoAddress   string `json:"crypto_address"`
	Chain           string `json:"chain"`
	DiscoveryMethod string `json:"discovery_method,omitempty"`
	SourceDomainIP  string `json:"source_domain_ip,omitempty"`
	Screenshot      string `json:"screenshot,omitempty"`
	IntelSummary    string `json:"intel_summary,omitempty"`

	Aggregation *AggregationInfo `json:"aggregation,omitempty"`
}

// Valid reports whether the record carries both required fields and is
// eligible for graph construction. Invalid records are still counted by
// Statistics.
func (r Record) Valid() bool {
	return NormalizeDomain(r.SourceDomain) != "" && strings.TrimSpace(r.CryptoAddress) != ""
}

// ChainTag returns the lower-cased chain tag, defaulting to btc when the
// column was left empty, matching the ingestion default.
func (r Record) ChainTag() string {
	tag := strings.ToLower(strings.TrimSpace(r.Chain))
	if tag == "" {
		return ChainBTC
	}
	return tag
}

// HasResolvedIP reports whether the source domain resolved to a concrete
// address rather than the unresolved sentinel.
func (r Record) HasResolvedIP() bool {
	ip := strings.TrimSpace(r.SourceDomainIP)
	return ip != "" && !strings.EqualFold(ip, UnknownIP)
}

// HasIntel reports whether an intelligence summary is attached.
func (r Record) HasIntel() bool {
	return strings.TrimSpace(r.IntelSummary) != ""
}

// IPOrUnknown returns the resolved IP or the sentinel marker.
func (r Record) IPOrUnknown() string {
	if r.HasResolvedIP() {
		return strings.TrimSpace(r.SourceDomainIP)
	}
	return UnknownIP
}

// SearchText joins the fields the free-text predicate matches against. The
// chain goes in via ChainTag so records relying on the btc default still
// match a "btc" search.
func (r Record) SearchText() string {
	return strings.ToLower(strings.Join([]string{
		r.SourceDomain, r.CryptoAddress, r.SourceDomainIP, r.ChainTag(),
	}, " "))
}

// NormalizeDomain lowercases a domain and strips scheme, www prefix and
// trailing slashes so the same domain string always yields the same node key.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimRight(d, "/")
}

// SplitDomainList parses a comma-separated domain column into normalized,
// non-empty entries.
func SplitDomainList(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(list, ",") {
		if d := NormalizeDomain(part); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// SplitAddressList parses a comma-separated crypto address column into
// trimmed, non-empty entries. Addresses are case-sensitive on some chains,
// so no normalization beyond trimming is applied.
func SplitAddressList(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(list, ",") {
		if a := strings.TrimSpace(part); a != "" {
			out = append(out, a)
		}
	}
	return out
}
