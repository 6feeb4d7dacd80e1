package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alterya/Globe/pkg/graph"
	"github.com/Alterya/Globe/pkg/intel"
	"github.com/Alterya/Globe/pkg/layout"
	"github.com/Alterya/Globe/pkg/query"
)

func testRecords() []intel.Record {
	return []intel.Record{
		{SourceDomain: "a.com", CryptoAddress: "bc1qshared", Chain: "btc", SourceDomainIP: "1.2.3.4"},
		{SourceDomain: "b.com", CryptoAddress: "bc1qshared", Chain: "btc"},
		{SourceDomain: "c.com", CryptoAddress: "0xether", Chain: "eth"},
	}
}

func testSession() *Session {
	return NewSession(testRecords(), query.NewInterpreter(query.NewKeywordStrategy()))
}

func TestNewSessionShowsEverything(t *testing.T) {
	s := testSession()

	analysis := s.Analysis()
	assert.Equal(t, "Showing all data", analysis.Explanation)

	network := s.Graph(nil, "")
	assert.Len(t, network.Nodes, 6)
	assert.NotEmpty(t, network.Edges)
}

func TestQueryReplacesNetwork(t *testing.T) {
	s := testSession()
	s.debounce = time.Millisecond

	result, err := s.Query(context.Background(), "show only ethereum")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Records)
	assert.False(t, result.Empty)
	assert.True(t, result.Analysis.Spec.IncludeChains.Contains("eth"))

	network := s.Graph(nil, "")
	for _, node := range network.Nodes {
		assert.NotContains(t, node.ID, "bc1qshared")
	}
}

func TestQueryEmptyTextResetsToNeutral(t *testing.T) {
	s := testSession()
	s.debounce = time.Millisecond

	_, err := s.Query(context.Background(), "show only ethereum")
	require.NoError(t, err)

	result, err := s.Query(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Showing all data", result.Analysis.Explanation)
	assert.Equal(t, 3, result.Records)
}

func TestQueryNoMatchesIsEmptyNotError(t *testing.T) {
	s := testSession()
	s.debounce = time.Millisecond

	result, err := s.Query(context.Background(), "remove bitcoin and remove ethereum and remove tron")
	require.NoError(t, err)
	assert.True(t, result.Empty)
	assert.Zero(t, result.Nodes)
}

func TestQueryLatestWins(t *testing.T) {
	s := testSession()
	s.debounce = 100 * time.Millisecond

	type outcome struct {
		result *QueryResult
		err    error
	}
	first := make(chan outcome, 1)

	go func() {
		r, err := s.Query(context.Background(), "show bitcoin")
		first <- outcome{r, err}
	}()

	// The second submission lands inside the first one's debounce window.
	time.Sleep(20 * time.Millisecond)
	result, err := s.Query(context.Background(), "show ethereum")
	require.NoError(t, err)
	assert.True(t, result.Analysis.Spec.IncludeChains.Contains("eth"))

	got := <-first
	assert.Nil(t, got.result)
	assert.ErrorIs(t, got.err, ErrSuperseded)

	// The committed state is the later query's.
	assert.True(t, s.Analysis().Spec.IncludeChains.Contains("eth"))
}

func TestQueryHideEdges(t *testing.T) {
	s := testSession()
	s.debounce = time.Millisecond

	result, err := s.Query(context.Background(), "hide all edges")
	require.NoError(t, err)
	assert.NotZero(t, result.Nodes)
	assert.Zero(t, result.Edges)
}

func TestGraphNarrowing(t *testing.T) {
	s := testSession()

	domains := s.Graph([]graph.NodeKind{graph.KindDomain}, "")
	for _, node := range domains.Nodes {
		assert.Equal(t, graph.KindDomain, node.Kind)
	}
	for _, edge := range domains.Edges {
		_, okA := domains.NodeByID(edge.SourceID)
		_, okB := domains.NodeByID(edge.TargetID)
		assert.True(t, okA && okB)
	}

	search := s.Graph(nil, "a.com")
	require.NotEmpty(t, search.Nodes)
	for _, node := range search.Nodes {
		assert.Contains(t, node.Key, "a.com")
	}
}

func TestDragLifecycle(t *testing.T) {
	s := testSession()

	id := s.Positions()[0].ID
	assert.True(t, s.DragStart(id, 10, 20))
	assert.True(t, s.DragMove(id, 30, 40))
	assert.True(t, s.DragEnd(id))
	assert.False(t, s.DragEnd(id))

	assert.False(t, s.DragStart("domain:missing.com", 0, 0))
}

func TestStepProgressesLayout(t *testing.T) {
	s := testSession()

	phase := s.Step(1)
	assert.Contains(t, []layout.Phase{layout.PhaseWarmSettle, layout.PhaseIdle}, phase)
	assert.Len(t, s.Positions(), 6)
}
