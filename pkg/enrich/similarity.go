package enrich

import (
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// homographPairs lists character sequences that render near-identically
// and show up in impersonation registrations.
var homographPairs = [][2]string{
	{"0", "o"},
	{"1", "l"},
	{"1", "i"},
	{"rn", "m"},
	{"vv", "w"},
	{"cl", "d"},
	{"nn", "m"},
}

// SimilarityFlags marks the concrete resemblance signals between a
// candidate and the domain it may be imitating.
type SimilarityFlags struct {
	SameLength            bool `json:"same_length"`
	ContainsOriginal      bool `json:"contains_original"`
	SameTLD               bool `json:"same_tld"`
	CharacterSubstitution bool `json:"character_substitution"`
	PossibleHomograph     bool `json:"homograph_attack"`
}

// Candidate is one scored lookalike candidate for an original domain.
type Candidate struct {
	Original string          `json:"original_domain"`
	Domain   string          `json:"candidate_domain"`
	Score    float64         `json:"similarity_score"`
	Flags    SimilarityFlags `json:"flags"`
}

// Similarity returns a character-overlap score in [0, 1]. It is a coarse
// first pass; the flags carry the actually useful signals.
func Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1
	}

	charsA := mapset.NewThreadUnsafeSet[rune]()
	for _, r := range a {
		charsA.Add(r)
	}
	charsB := mapset.NewThreadUnsafeSet[rune]()
	for _, r := range b {
		charsB.Add(r)
	}

	union := charsA.Union(charsB).Cardinality()
	if union == 0 {
		return 0
	}
	return float64(charsA.Intersect(charsB).Cardinality()) / float64(union)
}

// AnalyzeCandidates scores every candidate against the original domain and
// returns them ordered by descending similarity.
func AnalyzeCandidates(original string, candidates []string) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, Candidate{
			Original: original,
			Domain:   candidate,
			Score:    Similarity(original, candidate),
			Flags:    flagsFor(original, candidate),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func flagsFor(original, candidate string) SimilarityFlags {
	orig := strings.ToLower(original)
	cand := strings.ToLower(candidate)

	return SimilarityFlags{
		SameLength:            len(orig) == len(cand),
		ContainsOriginal:      strings.Contains(cand, orig) || strings.Contains(orig, cand),
		SameTLD:               sameTLD(orig, cand),
		CharacterSubstitution: hasSubstitution(orig, cand),
		PossibleHomograph:     hasHomograph(orig, cand),
	}
}

func sameTLD(a, b string) bool {
	if !strings.Contains(a, ".") || !strings.Contains(b, ".") {
		return false
	}
	partsA := strings.Split(a, ".")
	partsB := strings.Split(b, ".")
	return partsA[len(partsA)-1] == partsB[len(partsB)-1]
}

// hasSubstitution reports whether two equal-length domains differ in just
// one or two positions, the signature of a typosquat.
func hasSubstitution(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	diff := 0
	for i := range a {
		if a[i] != b[i] {
			diff++
		}
	}
	return diff >= 1 && diff <= 2
}

func hasHomograph(a, b string) bool {
	for _, pair := range homographPairs {
		if (strings.Contains(a, pair[0]) && strings.Contains(b, pair[1])) ||
			(strings.Contains(a, pair[1]) && strings.Contains(b, pair[0])) {
			return true
		}
	}
	return false
}

// NewDomains returns the candidates not already present in the known set,
// lowercased and sorted. It is how enrichment results are folded back into
// a record set without duplicating what was already there.
func NewDomains(candidates, known []string) []string {
	knownSet := mapset.NewThreadUnsafeSet[string]()
	for _, d := range known {
		knownSet.Add(strings.ToLower(d))
	}

	fresh := mapset.NewThreadUnsafeSet[string]()
	for _, d := range candidates {
		lower := strings.ToLower(d)
		if lower != "" && !knownSet.Contains(lower) {
			fresh.Add(lower)
		}
	}

	out := fresh.ToSlice()
	sort.Strings(out)
	return out
}
