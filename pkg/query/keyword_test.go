package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interpretKeywords(t *testing.T, text string) *Analysis {
	t.Helper()
	analysis, err := NewKeywordStrategy().Interpret(context.Background(), text, DataSummary{
		RecordCount:      10,
		Chains:           []string{"btc", "eth", "tron"},
		DiscoveryMethods: []string{"manual", "urlscan"},
	})
	require.NoError(t, err)
	require.NotNil(t, analysis)
	return analysis
}

func TestKeywordFilterBitcoin(t *testing.T) {
	analysis := interpretKeywords(t, "filter bitcoin")
	assert.True(t, analysis.Spec.IncludeChains.Contains("btc"))
	assert.Zero(t, analysis.Spec.ExcludeChains.Cardinality())
	assert.Contains(t, analysis.Explanation, "Showing Bitcoin")
}

func TestKeywordRemoveBitcoin(t *testing.T) {
	analysis := interpretKeywords(t, "remove bitcoin")
	assert.True(t, analysis.Spec.ExcludeChains.Contains("btc"))
	assert.Zero(t, analysis.Spec.IncludeChains.Cardinality())
	assert.Contains(t, analysis.Explanation, "Filtered out Bitcoin")
	assert.Equal(t, "rules", analysis.Source)
}

func TestKeywordAggregateByDomain(t *testing.T) {
	analysis := interpretKeywords(t, "aggregate by domain")
	assert.Equal(t, AggregateByDomain, analysis.Spec.AggregateBy)
	assert.Contains(t, analysis.Explanation, "Aggregating by domain")
}

func TestKeywordHideAllEdges(t *testing.T) {
	analysis := interpretKeywords(t, "hide all edges")
	assert.True(t, analysis.Spec.HideEdges)
	assert.Contains(t, analysis.Explanation, "Hiding edges")
}

func TestKeywordIsolated(t *testing.T) {
	for _, q := range []string{"isolated", "show isolated domains"} {
		analysis := interpretKeywords(t, q)
		assert.Equal(t, ConnectivityLow, analysis.Spec.Connectivity, "query %q", q)
		assert.Contains(t, analysis.Explanation, "isolated")
	}
}

func TestKeywordCompoundQuery(t *testing.T) {
	analysis := interpretKeywords(t, "remove bitcoin and hide the edges")

	assert.True(t, analysis.Spec.ExcludeChains.Contains("btc"))
	assert.True(t, analysis.Spec.HideEdges)
	assert.Contains(t, analysis.Explanation, "Filtered out Bitcoin")
	assert.Contains(t, analysis.Explanation, "Hiding edges")

	// Two matched clauses raise confidence above a single match.
	single := interpretKeywords(t, "remove bitcoin")
	assert.Greater(t, analysis.Confidence, single.Confidence)
}

func TestKeywordMultipleChains(t *testing.T) {
	analysis := interpretKeywords(t, "show bitcoin and ethereum")
	assert.True(t, analysis.Spec.IncludeChains.Contains("btc"))
	assert.True(t, analysis.Spec.IncludeChains.Contains("eth"))
	assert.False(t, analysis.Spec.IncludeChains.Contains("tron"))
}

func TestKeywordIntelAndIP(t *testing.T) {
	withIntel := interpretKeywords(t, "show records with intel")
	require.NotNil(t, withIntel.Spec.IntelAvailable)
	assert.True(t, *withIntel.Spec.IntelAvailable)

	withoutIntel := interpretKeywords(t, "records without intel")
	require.NotNil(t, withoutIntel.Spec.IntelAvailable)
	assert.False(t, *withoutIntel.Spec.IntelAvailable)

	unresolved := interpretKeywords(t, "show unresolved domains")
	require.NotNil(t, unresolved.Spec.IPResolved)
	assert.False(t, *unresolved.Spec.IPResolved)
}

func TestKeywordDiscoveryMethod(t *testing.T) {
	analysis := interpretKeywords(t, "show records discovered by urlscan")
	assert.True(t, analysis.Spec.DiscoveryMethods.Contains("urlscan"))
}

func TestKeywordSearchFallback(t *testing.T) {
	analysis := interpretKeywords(t, "mysterious-site.biz")

	assert.Equal(t, "mysterious-site.biz", analysis.Spec.Search)
	assert.Contains(t, analysis.Explanation, "Searching for")
	assert.NotEmpty(t, analysis.Insights)
	assert.Less(t, analysis.Confidence, 0.5)
}

func TestKeywordConfidenceCapped(t *testing.T) {
	analysis := interpretKeywords(t, "remove bitcoin, hide edges, aggregate by domain, show isolated records with intel")
	assert.LessOrEqual(t, analysis.Confidence, 0.95)
}
