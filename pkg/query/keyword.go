package query

import (
	"context"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/jdkato/prose/v2"
	"github.com/sirupsen/logrus"
)

// chainNames maps chain tags to their query keywords and display names.
var chainNames = []struct {
	tag      string
	display  string
	keywords []string
}{
	{tag: "btc", display: "Bitcoin", keywords: []string{"bitcoin", "btc"}},
	{tag: "eth", display: "Ethereum", keywords: []string{"ethereum", "eth"}},
	{tag: "tron", display: "Tron", keywords: []string{"tron", "trx"}},
}

// exclusionVerbs signal that a mentioned chain should be excluded rather
// than included.
var exclusionVerbs = []string{"remove", "exclude", "without", "except", "drop", "hide", "filter out"}

// queryText is the pre-tokenized view of one lower-cased query shared by
// all rules.
type queryText struct {
	raw    string
	tokens mapset.Set[string]
}

func (q *queryText) has(token string) bool  { return q.tokens.Contains(token) }
func (q *queryText) contains(s string) bool { return strings.Contains(q.raw, s) }
func (q *queryText) anyToken(ts ...string) bool {
	for _, t := range ts {
		if q.tokens.Contains(t) {
			return true
		}
	}
	return false
}

// keywordRule is one entry of the deterministic cascade. Rules fire
// independently: a compound query accumulates every matching effect, and the
// explanation grows clause by clause.
type keywordRule struct {
	tag   string
	apply func(q *queryText, summary DataSummary, spec *FilterSpec) (insight, clause string, matched bool)
}

// KeywordStrategy is the deterministic fallback interpreter: a fixed
// priority-ordered rule cascade with zero external dependencies.
type KeywordStrategy struct {
	rules  []keywordRule
	logger *logrus.Logger
}

// NewKeywordStrategy builds the strategy with the standard rule set.
func NewKeywordStrategy() *KeywordStrategy {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &KeywordStrategy{rules: standardRules(), logger: logger}
}

func (s *KeywordStrategy) Name() string { return "rules" }

// Interpret evaluates every rule in priority order. It cannot fail: an
// unrecognized query degrades to a free-text search.
func (s *KeywordStrategy) Interpret(ctx context.Context, text string, summary DataSummary) (*Analysis, error) {
	q := tokenize(text)
	spec := NewFilterSpec()

	var insights []string
	var clauses []string

	for _, rule := range s.rules {
		insight, clause, matched := rule.apply(q, summary, spec)
		if !matched {
			continue
		}
		if insight != "" {
			insights = append(insights, insight)
		}
		if clause != "" {
			clauses = append(clauses, clause)
		}
	}

	explanation := strings.Join(clauses, "; ")
	confidence := 0.5 + 0.15*float64(len(clauses))
	if confidence > 0.95 {
		confidence = 0.95
	}

	if len(clauses) == 0 {
		// Nothing recognized: fall back to a substring search over the data.
		spec.Search = strings.ToLower(strings.TrimSpace(text))
		explanation = fmt.Sprintf("Searching for %q", spec.Search)
		insights = append(insights, fmt.Sprintf("No filter keywords recognized, matching records against %q", spec.Search))
		confidence = 0.2
	}

	if insights == nil {
		insights = []string{}
	}

	s.logger.WithFields(logrus.Fields{
		"query":   text,
		"matched": len(clauses),
	}).Debug("Keyword interpretation completed")

	return &Analysis{
		ID:          uuid.New().String(),
		Query:       text,
		Spec:        spec,
		Insights:    insights,
		Explanation: explanation,
		Confidence:  confidence,
		Source:      s.Name(),
	}, nil
}

// tokenize lowers the query and splits it into a token set. Tokenization
// goes through prose so punctuation attached to words does not defeat
// keyword matching; on failure it degrades to whitespace splitting.
func tokenize(text string) *queryText {
	raw := strings.ToLower(strings.TrimSpace(text))
	tokens := mapset.NewSet[string]()

	doc, err := prose.NewDocument(raw, prose.WithExtraction(false), prose.WithTagging(false))
	if err == nil {
		for _, tok := range doc.Tokens() {
			tokens.Add(strings.ToLower(tok.Text))
		}
	} else {
		for _, tok := range strings.Fields(raw) {
			tokens.Add(strings.Trim(tok, ".,!?\"'"))
		}
	}

	return &queryText{raw: raw, tokens: tokens}
}

func hasExclusionVerb(q *queryText) bool {
	for _, verb := range exclusionVerbs {
		if strings.Contains(verb, " ") {
			if q.contains(verb) {
				return true
			}
		} else if q.has(verb) {
			return true
		}
	}
	return false
}

// standardRules returns the cascade in its fixed priority order:
// chain exclusion, chain inclusion, edge hiding, aggregation, connectivity,
// ip resolution, intel availability, discovery methods.
func standardRules() []keywordRule {
	return []keywordRule{
		{tag: "chain-exclude", apply: applyChainExclude},
		{tag: "chain-include", apply: applyChainInclude},
		{tag: "hide-edges", apply: applyHideEdges},
		{tag: "aggregate", apply: applyAggregate},
		{tag: "connectivity", apply: applyConnectivity},
		{tag: "ip-resolved", apply: applyIPResolved},
		{tag: "intel", apply: applyIntel},
		{tag: "discovery", apply: applyDiscovery},
	}
}

func mentionedChains(q *queryText) (tags []string, displays []string) {
	for _, chain := range chainNames {
		for _, kw := range chain.keywords {
			if q.has(kw) {
				tags = append(tags, chain.tag)
				displays = append(displays, chain.display)
				break
			}
		}
	}
	return tags, displays
}

func applyChainExclude(q *queryText, _ DataSummary, spec *FilterSpec) (string, string, bool) {
	if !hasExclusionVerb(q) {
		return "", "", false
	}
	tags, displays := mentionedChains(q)
	if len(tags) == 0 {
		return "", "", false
	}
	for _, tag := range tags {
		spec.ExcludeChains.Add(tag)
	}
	names := strings.Join(displays, ", ")
	return fmt.Sprintf("Excluded %s records from the graph", names),
		fmt.Sprintf("Filtered out %s", names), true
}

func applyChainInclude(q *queryText, _ DataSummary, spec *FilterSpec) (string, string, bool) {
	if hasExclusionVerb(q) {
		// The mention already fed the exclusion rule.
		return "", "", false
	}
	tags, displays := mentionedChains(q)
	if len(tags) == 0 {
		return "", "", false
	}
	for _, tag := range tags {
		spec.IncludeChains.Add(tag)
	}
	names := strings.Join(displays, ", ")
	return fmt.Sprintf("Showing only %s records", names),
		fmt.Sprintf("Showing %s", names), true
}

func applyHideEdges(q *queryText, _ DataSummary, spec *FilterSpec) (string, string, bool) {
	if !q.anyToken("edge", "edges", "connections", "links") {
		return "", "", false
	}
	if !q.anyToken("hide", "without", "no", "remove", "off") {
		return "", "", false
	}
	spec.HideEdges = true
	return "Edges hidden, nodes remain visible", "Hiding edges", true
}

func applyAggregate(q *queryText, _ DataSummary, spec *FilterSpec) (string, string, bool) {
	if !q.anyToken("aggregate", "aggregated", "group", "grouped", "collapse", "cluster") {
		return "", "", false
	}

	key := ""
	switch {
	case q.anyToken("domain", "domains", "website", "websites"):
		key = AggregateByDomain
	case q.anyToken("ip", "ips", "address") && !q.anyToken("crypto"):
		key = AggregateByIP
	case q.anyToken("chain", "chains", "currency", "blockchain"):
		key = AggregateByChain
	}
	if key == "" {
		return "", "", false
	}

	spec.AggregateBy = key
	return fmt.Sprintf("Collapsing the graph to one node per %s", key),
		fmt.Sprintf("Aggregating by %s", key), true
}

func applyConnectivity(q *queryText, _ DataSummary, spec *FilterSpec) (string, string, bool) {
	switch {
	case q.anyToken("isolated", "single", "lone", "standalone"):
		spec.Connectivity = ConnectivityLow
		return "Keeping domains that appear exactly once in the dataset",
			"Showing isolated domains", true
	case q.anyToken("connected", "hub", "hubs", "popular") || q.contains("highly connected"):
		spec.Connectivity = ConnectivityHigh
		return "Keeping domains that appear multiple times in the dataset",
			"Showing highly connected domains", true
	}
	return "", "", false
}

func applyIPResolved(q *queryText, _ DataSummary, spec *FilterSpec) (string, string, bool) {
	switch {
	case q.contains("unresolved") || q.contains("without ip") || q.contains("no ip"):
		value := false
		spec.IPResolved = &value
		return "Keeping records without a resolved IP", "Showing unresolved IPs", true
	case q.contains("resolved") || q.contains("with ip"):
		value := true
		spec.IPResolved = &value
		return "Keeping records with a resolved IP", "Showing resolved IPs", true
	}
	return "", "", false
}

func applyIntel(q *queryText, _ DataSummary, spec *FilterSpec) (string, string, bool) {
	if !q.anyToken("intel", "intelligence") {
		return "", "", false
	}
	value := !(q.contains("without intel") || q.contains("no intel") || q.contains("no intelligence"))
	spec.IntelAvailable = &value
	if value {
		return "Keeping records with an intelligence summary", "Showing records with intel", true
	}
	return "Keeping records without an intelligence summary", "Showing records without intel", true
}

// applyDiscovery whitelists discovery methods that actually occur in the
// current record set and are named in the query.
func applyDiscovery(q *queryText, summary DataSummary, spec *FilterSpec) (string, string, bool) {
	var matched []string
	for _, method := range summary.DiscoveryMethods {
		if q.contains(strings.ToLower(method)) {
			spec.DiscoveryMethods.Add(method)
			matched = append(matched, method)
		}
	}
	if len(matched) == 0 {
		return "", "", false
	}
	names := strings.Join(matched, ", ")
	return fmt.Sprintf("Limited to discovery methods: %s", names),
		fmt.Sprintf("Discovery method %s", names), true
}
