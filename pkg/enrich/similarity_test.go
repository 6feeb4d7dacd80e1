package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarityBounds(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("example.com", "EXAMPLE.COM"))
	assert.Equal(t, 0.0, Similarity("", "abc"))

	score := Similarity("example.com", "examp1e.com")
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}

func TestAnalyzeCandidatesOrdering(t *testing.T) {
	candidates := AnalyzeCandidates("example.com", []string{
		"totally-unrelated.org",
		"examp1e.com",
		"example.net",
	})
	require.Len(t, candidates, 3)

	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Score, candidates[i].Score)
	}
	assert.NotEqual(t, "totally-unrelated.org", candidates[0].Domain)
}

func TestSimilarityFlags(t *testing.T) {
	flags := flagsFor("example.com", "examp1e.com")
	assert.True(t, flags.SameLength)
	assert.True(t, flags.SameTLD)
	assert.True(t, flags.CharacterSubstitution)
	assert.True(t, flags.PossibleHomograph)

	flags = flagsFor("example.com", "example.com.evil.net")
	assert.False(t, flags.SameLength)
	assert.True(t, flags.ContainsOriginal)
	assert.False(t, flags.SameTLD)

	flags = flagsFor("example.com", "shop.io")
	assert.False(t, flags.ContainsOriginal)
	assert.False(t, flags.CharacterSubstitution)
}

func TestNewDomains(t *testing.T) {
	fresh := NewDomains(
		[]string{"New-One.com", "known.com", "new-two.com", "", "new-one.com"},
		[]string{"KNOWN.com"},
	)
	assert.Equal(t, []string{"new-one.com", "new-two.com"}, fresh)
}
