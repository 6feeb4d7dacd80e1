package query

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alterya/Globe/pkg/intel"
)

func TestParseModelResponse(t *testing.T) {
	content := `{
		"include_chains": ["BTC"],
		"exclude_chains": [],
		"discovery_methods": ["manual"],
		"intel_available": true,
		"connectivity": "high",
		"aggregate_by": "domain",
		"search": "",
		"hide_edges": false,
		"insights": ["Bitcoin activity dominates the dataset"],
		"explanation": "Showing highly connected Bitcoin domains",
		"confidence": 0.9
	}`

	analysis, err := parseModelResponse(content)
	require.NoError(t, err)

	assert.True(t, analysis.Spec.IncludeChains.Contains("btc"))
	assert.True(t, analysis.Spec.DiscoveryMethods.Contains("manual"))
	require.NotNil(t, analysis.Spec.IntelAvailable)
	assert.True(t, *analysis.Spec.IntelAvailable)
	assert.Nil(t, analysis.Spec.IPResolved)
	assert.Equal(t, ConnectivityHigh, analysis.Spec.Connectivity)
	assert.Equal(t, AggregateByDomain, analysis.Spec.AggregateBy)
	assert.Equal(t, "Showing highly connected Bitcoin domains", analysis.Explanation)
	assert.Equal(t, 0.9, analysis.Confidence)
	assert.Equal(t, "model", analysis.Source)
}

func TestParseModelResponseCodeFences(t *testing.T) {
	content := "```json\n{\"explanation\": \"ok\", \"confidence\": 0.5}\n```"
	analysis, err := parseModelResponse(content)
	require.NoError(t, err)
	assert.Equal(t, "ok", analysis.Explanation)
	assert.True(t, analysis.Spec.IsNeutral())
}

func TestParseModelResponseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "sure, here is the filter you asked for"},
		{name: "json array", content: `["explanation"]`},
		{name: "missing explanation", content: `{"confidence": 0.5}`},
		{name: "missing confidence", content: `{"explanation": "ok"}`},
		{name: "confidence out of range", content: `{"explanation": "ok", "confidence": 1.5}`},
		{name: "string confidence", content: `{"explanation": "ok", "confidence": "high"}`},
		{name: "bad connectivity", content: `{"explanation": "ok", "confidence": 0.5, "connectivity": "medium"}`},
		{name: "bad aggregate key", content: `{"explanation": "ok", "confidence": 0.5, "aggregate_by": "planet"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseModelResponse(tt.content)
			assert.Error(t, err)
		})
	}
}

// stubStrategy lets the chain be exercised without network access.
type stubStrategy struct {
	name     string
	analysis *Analysis
	err      error
	calls    int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Interpret(ctx context.Context, text string, summary DataSummary) (*Analysis, error) {
	s.calls++
	return s.analysis, s.err
}

func TestInterpreterFallsThroughOnError(t *testing.T) {
	want := NeutralAnalysis()
	want.Explanation = "from fallback"

	failing := &stubStrategy{name: "failing", err: errors.New("model unavailable")}
	working := &stubStrategy{name: "working", analysis: want}

	interp := NewInterpreter(failing, working)
	got := interp.Interpret(context.Background(), "show bitcoin", nil)

	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, working.calls)
	assert.Equal(t, "from fallback", got.Explanation)
}

func TestInterpreterDurationSeriesPerOutcome(t *testing.T) {
	before := testutil.CollectAndCount(interpretDuration)

	interp := NewInterpreter(&stubStrategy{name: "flaky-duration-stub", err: errors.New("down")})
	interp.Interpret(context.Background(), "show bitcoin", nil)

	// A failing strategy contributes one error series, without an extra
	// zero-valued ok observation for the same call.
	assert.Equal(t, before+1, testutil.CollectAndCount(interpretDuration))
}

func TestInterpreterFirstSuccessWins(t *testing.T) {
	first := &stubStrategy{name: "first", analysis: NeutralAnalysis()}
	second := &stubStrategy{name: "second", analysis: NeutralAnalysis()}

	interp := NewInterpreter(first, second)
	interp.Interpret(context.Background(), "show bitcoin", nil)

	assert.Equal(t, 1, first.calls)
	assert.Zero(t, second.calls)
}

func TestInterpreterEmptyQueryIsNeutral(t *testing.T) {
	strategy := &stubStrategy{name: "never", analysis: NeutralAnalysis()}
	interp := NewInterpreter(strategy)

	got := interp.Interpret(context.Background(), "   ", nil)
	assert.Zero(t, strategy.calls)
	assert.Equal(t, "Showing all data", got.Explanation)
	assert.True(t, got.Spec.IsNeutral())
}

func TestInterpreterAllStrategiesFailing(t *testing.T) {
	interp := NewInterpreter(
		&stubStrategy{name: "a", err: errors.New("down")},
		&stubStrategy{name: "b", err: errors.New("also down")},
	)

	got := interp.Interpret(context.Background(), "show bitcoin", nil)
	require.NotNil(t, got)
	assert.True(t, got.Spec.IsNeutral())
}

func TestRemoteStrategyWithoutCredential(t *testing.T) {
	s := &RemoteStrategy{}
	_, err := s.Interpret(context.Background(), "show bitcoin", DataSummary{})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	records := []intel.Record{
		{SourceDomain: "b.com", CryptoAddress: "0x1", Chain: "eth", DiscoveryMethod: "scan"},
		{SourceDomain: "a.com", CryptoAddress: "bc1q1", Chain: "btc", DiscoveryMethod: "manual"},
		{SourceDomain: "", CryptoAddress: "dropped"},
	}

	summary := Summarize(records)
	assert.Equal(t, 3, summary.RecordCount)
	assert.Equal(t, []string{"btc", "eth"}, summary.Chains)
	assert.Equal(t, []string{"a.com", "b.com"}, summary.Domains)
	assert.Equal(t, []string{"manual", "scan"}, summary.DiscoveryMethods)
}

func TestTruncateToTokens(t *testing.T) {
	long := ""
	for i := 0; i < 2000; i++ {
		long += "domain "
	}
	truncated := truncateToTokens(long, 50)
	assert.Less(t, len(truncated), len(long))

	short := "short prompt"
	assert.Equal(t, short, truncateToTokens(short, 50))
}
