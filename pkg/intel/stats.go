package intel

// Stats carries the aggregate counts consumed by the dashboard. These are
// computed independently of graph construction: invalid rows excluded from
// the graph still count here.
type Stats struct {
	TotalRecords   int            `json:"total_records"`
	ValidRecords   int            `json:"valid_records"`
	DroppedRecords int            `json:"dropped_records"`
	Domains        int            `json:"domains"`
	Addresses      int            `json:"addresses"`
	ResolvedIPs    int            `json:"resolved_ips"`
	WithIntel      int            `json:"with_intel"`
	ByChain        map[string]int `json:"by_chain"`
	ByDiscovery    map[string]int `json:"by_discovery"`
}

// Statistics counts the record set for the dashboard collaborator.
func Statistics(records []Record) Stats {
	stats := Stats{
		ByChain:     make(map[string]int),
		ByDiscovery: make(map[string]int),
	}

	domains := make(map[string]struct{})
	addresses := make(map[string]struct{})

	for _, r := range records {
		stats.TotalRecords++
		if !r.Valid() {
			stats.DroppedRecords++
			continue
		}
		stats.ValidRecords++

		domains[NormalizeDomain(r.SourceDomain)] = struct{}{}
		for _, a := range SplitAddressList(r.CryptoAddress) {
			addresses[a] = struct{}{}
		}
		stats.ByChain[r.ChainTag()]++
		if r.DiscoveryMethod != "" {
			stats.ByDiscovery[r.DiscoveryMethod]++
		}
		if r.HasResolvedIP() {
			stats.ResolvedIPs++
		}
		if r.HasIntel() {
			stats.WithIntel++
		}
	}

	stats.Domains = len(domains)
	stats.Addresses = len(addresses)
	return stats
}
