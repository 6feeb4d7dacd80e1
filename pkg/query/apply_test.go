package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alterya/Globe/pkg/intel"
)

func TestApplyNilSpecPassesThrough(t *testing.T) {
	records := []intel.Record{{SourceDomain: "a.com", CryptoAddress: "bc1q1"}}
	assert.Equal(t, records, Apply(records, nil))
}

func TestApplyNeutralSpecKeepsEverything(t *testing.T) {
	records := []intel.Record{
		{SourceDomain: "a.com", CryptoAddress: "bc1q1", Chain: "btc"},
		{SourceDomain: "b.com", CryptoAddress: "0x1", Chain: "eth"},
	}
	assert.Len(t, Apply(records, NewFilterSpec()), 2)
}

func TestApplyChainFilters(t *testing.T) {
	records := []intel.Record{
		{SourceDomain: "a.com", CryptoAddress: "bc1q1", Chain: "btc"},
		{SourceDomain: "b.com", CryptoAddress: "0x1", Chain: "eth"},
		{SourceDomain: "c.com", CryptoAddress: "Tx1", Chain: "tron"},
	}

	include := NewFilterSpec()
	include.IncludeChains.Add("btc")
	include.IncludeChains.Add("eth")
	assert.Len(t, Apply(records, include), 2)

	exclude := NewFilterSpec()
	exclude.ExcludeChains.Add("btc")
	out := Apply(records, exclude)
	require.Len(t, out, 2)
	for _, r := range out {
		assert.NotEqual(t, "btc", r.ChainTag())
	}
}

func TestApplyIncludeAndExcludeAreIndependent(t *testing.T) {
	records := []intel.Record{
		{SourceDomain: "a.com", CryptoAddress: "bc1q1", Chain: "btc"},
		{SourceDomain: "b.com", CryptoAddress: "0x1", Chain: "eth"},
	}

	// A spec naming a chain on both sides keeps nothing of that chain:
	// the exclusion is a predicate of its own, not a set subtraction.
	spec := NewFilterSpec()
	spec.IncludeChains.Add("btc")
	spec.ExcludeChains.Add("btc")
	assert.Empty(t, Apply(records, spec))
}

func TestApplyPredicates(t *testing.T) {
	records := []intel.Record{
		{SourceDomain: "a.com", CryptoAddress: "bc1q1", SourceDomainIP: "1.1.1.1", IntelSummary: "cluster"},
		{SourceDomain: "b.com", CryptoAddress: "bc1q2", DiscoveryMethod: "manual"},
	}

	yes := true
	withIntel := NewFilterSpec()
	withIntel.IntelAvailable = &yes
	out := Apply(records, withIntel)
	require.Len(t, out, 1)
	assert.Equal(t, "a.com", out[0].SourceDomain)

	resolved := NewFilterSpec()
	resolved.IPResolved = &yes
	out = Apply(records, resolved)
	require.Len(t, out, 1)
	assert.Equal(t, "a.com", out[0].SourceDomain)

	discovery := NewFilterSpec()
	discovery.DiscoveryMethods.Add("manual")
	out = Apply(records, discovery)
	require.Len(t, out, 1)
	assert.Equal(t, "b.com", out[0].SourceDomain)

	search := NewFilterSpec()
	search.Search = "bc1q2"
	out = Apply(records, search)
	require.Len(t, out, 1)
	assert.Equal(t, "b.com", out[0].SourceDomain)
}

func connectivityFixture() []intel.Record {
	return []intel.Record{
		{SourceDomain: "a.com", CryptoAddress: "bc1q1", Chain: "btc"},
		{SourceDomain: "a.com", CryptoAddress: "bc1q2", Chain: "btc"},
		{SourceDomain: "a.com", CryptoAddress: "bc1q3", Chain: "eth"},
		{SourceDomain: "b.com", CryptoAddress: "0x1", Chain: "eth"},
	}
}

func TestApplyConnectivity(t *testing.T) {
	high := NewFilterSpec()
	high.Connectivity = ConnectivityHigh
	out := Apply(connectivityFixture(), high)
	require.Len(t, out, 3)
	for _, r := range out {
		assert.Equal(t, "a.com", r.SourceDomain)
	}

	low := NewFilterSpec()
	low.Connectivity = ConnectivityLow
	out = Apply(connectivityFixture(), low)
	require.Len(t, out, 1)
	assert.Equal(t, "b.com", out[0].SourceDomain)
}

func TestApplyConnectivityCountsFromUnfilteredSet(t *testing.T) {
	// a.com occurs three times overall, so even after the chain filter
	// leaves just one a.com record, the domain still classifies as highly
	// connected.
	spec := NewFilterSpec()
	spec.IncludeChains.Add("eth")
	spec.Connectivity = ConnectivityHigh

	out := Apply(connectivityFixture(), spec)
	require.Len(t, out, 1)
	assert.Equal(t, "a.com", out[0].SourceDomain)
	assert.Equal(t, "eth", out[0].ChainTag())
}

func TestApplyAggregationPreservesCounts(t *testing.T) {
	var records []intel.Record
	for i := 0; i < 5; i++ {
		records = append(records, intel.Record{SourceDomain: "a.com", CryptoAddress: "bc1q1", Chain: "btc"})
	}
	for i := 0; i < 3; i++ {
		records = append(records, intel.Record{SourceDomain: "b.com", CryptoAddress: "0x1", Chain: "eth"})
	}
	for i := 0; i < 2; i++ {
		records = append(records, intel.Record{SourceDomain: "c.com", CryptoAddress: "Tx1", Chain: "tron"})
	}

	spec := NewFilterSpec()
	spec.AggregateBy = AggregateByDomain
	out := Apply(records, spec)

	require.Len(t, out, 3)

	total := 0
	for _, r := range out {
		require.NotNil(t, r.Aggregation)
		assert.Equal(t, AggregateByDomain, r.Aggregation.Type)
		total += r.Aggregation.Count
	}
	assert.Equal(t, 10, total)

	// First-appearance order is preserved.
	assert.Equal(t, "a.com", out[0].Aggregation.Key)
	assert.Equal(t, 5, out[0].Aggregation.Count)
	assert.Equal(t, "b.com", out[1].Aggregation.Key)
	assert.Equal(t, "c.com", out[2].Aggregation.Key)
}

func TestApplyAggregationByIPUnknownGroup(t *testing.T) {
	records := []intel.Record{
		{SourceDomain: "a.com", CryptoAddress: "bc1q1", SourceDomainIP: "1.1.1.1"},
		{SourceDomain: "b.com", CryptoAddress: "bc1q2"},
		{SourceDomain: "c.com", CryptoAddress: "bc1q3"},
	}

	spec := NewFilterSpec()
	spec.AggregateBy = AggregateByIP
	out := Apply(records, spec)

	require.Len(t, out, 2)
	byKey := make(map[string]int)
	for _, r := range out {
		require.NotNil(t, r.Aggregation)
		byKey[r.Aggregation.Key] = r.Aggregation.Count
	}
	assert.Equal(t, 1, byKey["1.1.1.1"])
	assert.Equal(t, 2, byKey[intel.UnknownIP])
}

func TestApplyAggregationByChain(t *testing.T) {
	records := []intel.Record{
		{SourceDomain: "a.com", CryptoAddress: "bc1q1", Chain: "btc"},
		{SourceDomain: "b.com", CryptoAddress: "bc1q2"},
		{SourceDomain: "c.com", CryptoAddress: "0x1", Chain: "eth"},
	}

	spec := NewFilterSpec()
	spec.AggregateBy = AggregateByChain
	out := Apply(records, spec)

	// The empty chain defaults to btc and joins that group.
	require.Len(t, out, 2)
	assert.Equal(t, "btc", out[0].Aggregation.Key)
	assert.Equal(t, 2, out[0].Aggregation.Count)
}

func TestApplyComposesLikeCombinedSpec(t *testing.T) {
	records := []intel.Record{
		{SourceDomain: "a.com", CryptoAddress: "bc1q1", Chain: "btc", IntelSummary: "cluster"},
		{SourceDomain: "b.com", CryptoAddress: "bc1q2", Chain: "btc"},
		{SourceDomain: "c.com", CryptoAddress: "0x1", Chain: "eth", IntelSummary: "mixer"},
	}

	chainOnly := NewFilterSpec()
	chainOnly.IncludeChains.Add("btc")

	yes := true
	intelOnly := NewFilterSpec()
	intelOnly.IntelAvailable = &yes

	combined := NewFilterSpec()
	combined.IncludeChains.Add("btc")
	combined.IntelAvailable = &yes

	// Specs touching disjoint fields compose: applying them in sequence
	// equals applying their conjunction.
	assert.Equal(t,
		Apply(records, combined),
		Apply(Apply(records, chainOnly), intelOnly))
}

func TestApplyRemoveBitcoinScenario(t *testing.T) {
	var records []intel.Record
	for i := 0; i < 5; i++ {
		records = append(records,
			intel.Record{SourceDomain: "btc-site.com", CryptoAddress: "bc1q", Chain: "btc"},
			intel.Record{SourceDomain: "eth-site.com", CryptoAddress: "0x", Chain: "eth"})
	}

	analysis, err := NewKeywordStrategy().Interpret(context.Background(), "remove bitcoin", Summarize(records))
	require.NoError(t, err)
	assert.Contains(t, analysis.Explanation, "Filtered out Bitcoin")

	out := Apply(records, analysis.Spec)
	require.Len(t, out, 5)
	for _, r := range out {
		assert.NotEqual(t, "btc", r.ChainTag())
	}
}

func TestApplyFullComposition(t *testing.T) {
	records := connectivityFixture()

	spec := NewFilterSpec()
	spec.IncludeChains.Add("btc")
	spec.Connectivity = ConnectivityHigh
	spec.AggregateBy = AggregateByDomain

	out := Apply(records, spec)
	require.Len(t, out, 1)
	assert.Equal(t, "a.com", out[0].SourceDomain)
	require.NotNil(t, out[0].Aggregation)
	assert.Equal(t, 2, out[0].Aggregation.Count)
}
