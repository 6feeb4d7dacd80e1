package query

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/Alterya/Globe/pkg/intel"
)

var interpretDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "query_interpret_duration_seconds",
		Help: "Time spent interpreting natural-language queries",
	},
	[]string{"strategy", "status"},
)

// DataSummary is the bounded view of the current record set handed to a
// strategy: enough context to ground an interpretation, small enough to fit
// in a model prompt.
type DataSummary struct {
	RecordCount      int
	Chains           []string
	Domains          []string
	DiscoveryMethods []string
}

// Summarize derives a DataSummary from the current record set. Slices are
// sorted so the summary is stable for a given set.
func Summarize(records []intel.Record) DataSummary {
	chains := make(map[string]struct{})
	domains := make(map[string]struct{})
	methods := make(map[string]struct{})

	for _, r := range records {
		if !r.Valid() {
			continue
		}
		chains[r.ChainTag()] = struct{}{}
		domains[intel.NormalizeDomain(r.SourceDomain)] = struct{}{}
		if m := strings.TrimSpace(r.DiscoveryMethod); m != "" {
			methods[m] = struct{}{}
		}
	}

	return DataSummary{
		RecordCount:      len(records),
		Chains:           sortedKeys(chains),
		Domains:          sortedKeys(domains),
		DiscoveryMethods: sortedKeys(methods),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Strategy turns a query plus a data summary into an Analysis. A strategy
// that cannot serve a query returns an error; the interpreter falls through
// to the next one.
type Strategy interface {
	Name() string
	Interpret(ctx context.Context, queryText string, summary DataSummary) (*Analysis, error)
}

// Interpreter chains strategies in order. The last strategy is expected to
// be infallible, so Interpret itself never fails: a remote-inference outage
// degrades to the deterministic rules without surfacing an error.
type Interpreter struct {
	strategies []Strategy
	logger     *logrus.Logger
}

// NewInterpreter builds an interpreter over the given strategies, tried in
// order.
func NewInterpreter(strategies ...Strategy) *Interpreter {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Interpreter{strategies: strategies, logger: logger}
}

// Default returns the standard chain: remote inference when configured,
// deterministic keyword rules always.
func Default() *Interpreter {
	return NewInterpreter(NewRemoteStrategy(), NewKeywordStrategy())
}

// Interpret resolves the query against the current record set. An empty
// query yields the neutral analysis without consulting any strategy.
func (i *Interpreter) Interpret(ctx context.Context, queryText string, records []intel.Record) *Analysis {
	if strings.TrimSpace(queryText) == "" {
		return NeutralAnalysis()
	}

	summary := Summarize(records)

	for _, strategy := range i.strategies {
		start := time.Now()
		analysis, err := strategy.Interpret(ctx, queryText, summary)
		status := "ok"
		if err != nil {
			status = "error"
		}
		interpretDuration.WithLabelValues(strategy.Name(), status).Observe(time.Since(start).Seconds())

		if err != nil {
			i.logger.WithError(err).WithField("strategy", strategy.Name()).
				Warn("Interpretation strategy failed, falling through")
			continue
		}
		return analysis
	}

	// All strategies failed. Treat the query as answered by nothing rather
	// than propagating an error to the caller.
	i.logger.WithField("query", queryText).Warn("No strategy produced an analysis")
	return NeutralAnalysis()
}
