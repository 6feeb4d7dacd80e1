package query

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
)

// Connectivity classes. High keeps source domains occurring more than once
// in the unfiltered record set, low keeps those occurring exactly once.
const (
	ConnectivityHigh = "high"
	ConnectivityLow  = "low"
)

// Aggregation keys.
const (
	AggregateByDomain = "domain"
	AggregateByIP     = "ip"
	AggregateByChain  = "chain"
)

// FilterSpec is the structured, composable description of which records to
// keep, exclude or aggregate. All fields are optional and combine by
// intersection. Include and exclude chain sets are applied as independent
// predicates, never merged: they express different intents.
type FilterSpec struct {
	IncludeChains    mapset.Set[string] `json:"include_chains"`
	ExcludeChains    mapset.Set[string] `json:"exclude_chains"`
	DiscoveryMethods mapset.Set[string] `json:"discovery_methods"`
	IntelAvailable   *bool              `json:"intel_available,omitempty"`
	IPResolved       *bool              `json:"ip_resolved,omitempty"`
	Connectivity     string             `json:"connectivity,omitempty"`
	Search           string             `json:"search,omitempty"`
	AggregateBy      string             `json:"aggregate_by,omitempty"`
	HideEdges        bool               `json:"hide_edges"`
}

// NewFilterSpec returns a spec with empty sets that matches every record.
func NewFilterSpec() *FilterSpec {
	return &FilterSpec{
		IncludeChains:    mapset.NewSet[string](),
		ExcludeChains:    mapset.NewSet[string](),
		DiscoveryMethods: mapset.NewSet[string](),
	}
}

// IsNeutral reports whether the spec filters nothing.
func (s *FilterSpec) IsNeutral() bool {
	return s.IncludeChains.Cardinality() == 0 &&
		s.ExcludeChains.Cardinality() == 0 &&
		s.DiscoveryMethods.Cardinality() == 0 &&
		s.IntelAvailable == nil &&
		s.IPResolved == nil &&
		s.Connectivity == "" &&
		s.Search == "" &&
		s.AggregateBy == "" &&
		!s.HideEdges
}

// Analysis is the output of one interpretation cycle. It is created per
// query and fully replaced, never merged, by the next one.
type Analysis struct {
	ID          string      `json:"id"`
	Query       string      `json:"query"`
	Spec        *FilterSpec `json:"spec"`
	Insights    []string    `json:"insights"`
	Explanation string      `json:"explanation"`
	Confidence  float64     `json:"confidence"`
	Source      string      `json:"source"`
}

// NeutralAnalysis is the empty result used when the query text is cleared.
func NeutralAnalysis() *Analysis {
	return &Analysis{
		ID:          uuid.New().String(),
		Spec:        NewFilterSpec(),
		Insights:    []string{},
		Explanation: "Showing all data",
		Confidence:  1,
		Source:      "none",
	}
}
