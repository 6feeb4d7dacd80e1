package query

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Alterya/Globe/pkg/intel"
)

var applyRecords = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "query_apply_records",
		Help: "Record counts before and after the last filter pass",
	},
	[]string{"stage"},
)

// Apply filters and aggregates the record set according to the spec. Steps
// compose by intersection in a fixed order: per-record predicates, then
// connectivity classification, then aggregation. The connectivity class is
// computed from the record set passed in, not from the already-filtered
// subset: a domain's class reflects its global prevalence. HideEdges is not
// applied here; it is a flag consumed by the rendering stage.
func Apply(records []intel.Record, spec *FilterSpec) []intel.Record {
	applyRecords.WithLabelValues("input").Set(float64(len(records)))

	if spec == nil {
		return records
	}

	filtered := make([]intel.Record, 0, len(records))
	for _, r := range records {
		if matchesPredicates(r, spec) {
			filtered = append(filtered, r)
		}
	}

	if spec.Connectivity != "" {
		counts := domainCounts(records)
		filtered = filterConnectivity(filtered, counts, spec.Connectivity)
	}

	if spec.AggregateBy != "" {
		filtered = aggregate(filtered, spec.AggregateBy)
	}

	applyRecords.WithLabelValues("output").Set(float64(len(filtered)))
	return filtered
}

func matchesPredicates(r intel.Record, spec *FilterSpec) bool {
	chain := r.ChainTag()

	if spec.IncludeChains.Cardinality() > 0 {
		matched := false
		for _, include := range spec.IncludeChains.ToSlice() {
			if strings.Contains(chain, strings.ToLower(include)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, exclude := range spec.ExcludeChains.ToSlice() {
		if strings.Contains(chain, strings.ToLower(exclude)) {
			return false
		}
	}

	if spec.DiscoveryMethods.Cardinality() > 0 &&
		!spec.DiscoveryMethods.Contains(r.DiscoveryMethod) {
		return false
	}

	if spec.IntelAvailable != nil && r.HasIntel() != *spec.IntelAvailable {
		return false
	}

	if spec.IPResolved != nil && r.HasResolvedIP() != *spec.IPResolved {
		return false
	}

	if spec.Search != "" && !strings.Contains(r.SearchText(), strings.ToLower(spec.Search)) {
		return false
	}

	return true
}

// domainCounts tallies source-domain occurrences across the unfiltered set.
func domainCounts(records []intel.Record) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		if !r.Valid() {
			continue
		}
		counts[intel.NormalizeDomain(r.SourceDomain)]++
	}
	return counts
}

func filterConnectivity(records []intel.Record, counts map[string]int, class string) []intel.Record {
	out := make([]intel.Record, 0, len(records))
	for _, r := range records {
		count := counts[intel.NormalizeDomain(r.SourceDomain)]
		switch class {
		case ConnectivityHigh:
			if count > 1 {
				out = append(out, r)
			}
		case ConnectivityLow:
			if count == 1 {
				out = append(out, r)
			}
		default:
			out = append(out, r)
		}
	}
	return out
}

// aggregate groups records by the chosen key and emits the first member of
// each group annotated with the group size. Output keeps first-appearance
// order, so the result is deterministic for a given input order.
func aggregate(records []intel.Record, key string) []intel.Record {
	groups := make(map[string]int)
	var order []string
	representatives := make(map[string]intel.Record)

	for _, r := range records {
		groupKey := aggregationKey(r, key)
		if _, seen := groups[groupKey]; !seen {
			order = append(order, groupKey)
			representatives[groupKey] = r
		}
		groups[groupKey]++
	}

	out := make([]intel.Record, 0, len(order))
	for _, groupKey := range order {
		rep := representatives[groupKey]
		rep.Aggregation = &intel.AggregationInfo{
			Count: groups[groupKey],
			Key:   groupKey,
			Type:  key,
		}
		out = append(out, rep)
	}
	return out
}

func aggregationKey(r intel.Record, key string) string {
	switch key {
	case AggregateByDomain:
		return intel.NormalizeDomain(r.SourceDomain)
	case AggregateByIP:
		return r.IPOrUnknown()
	case AggregateByChain:
		return r.ChainTag()
	}
	return ""
}
