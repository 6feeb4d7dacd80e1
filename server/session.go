package server

import (
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/Alterya/Globe/pkg/graph"
	"github.com/Alterya/Globe/pkg/intel"
	"github.com/Alterya/Globe/pkg/layout"
	"github.com/Alterya/Globe/pkg/query"
)

// ErrSuperseded is returned when a newer query arrived while this one was
// waiting or interpreting; its result must be discarded, not rendered.
var ErrSuperseded = errors.New("query superseded by a newer one")

// defaultDebounce batches keystroke-speed submissions into one
// interpretation.
const defaultDebounce = 250 * time.Millisecond

var (
	sessionQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_queries_total",
			Help: "Query submissions by outcome",
		},
		[]string{"outcome"},
	)

	sessionNetworkSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "session_network_size",
			Help: "Size of the currently rendered network",
		},
		[]string{"element"},
	)
)

// QueryResult is what one committed query submission produces.
type QueryResult struct {
	Analysis *query.Analysis `json:"analysis"`
	Records  int             `json:"records"`
	Nodes    int             `json:"nodes"`
	Edges    int             `json:"edges"`
	Empty    bool            `json:"empty"`
}

// Session owns the full pipeline state for one viewer: the record set, the
// active interpretation, the filtered network, and the layout engine.
// Submissions race; a generation counter makes the latest one win.
type Session struct {
	mu sync.Mutex

	records      []intel.Record
	interpreter  *query.Interpreter
	layoutParams layout.Params
	debounce     time.Duration
	generation   atomic.Uint64

	analysis *query.Analysis
	filtered []intel.Record
	network  *graph.Network
	engine   *layout.Engine

	logger *logrus.Logger
}

// NewSession builds a session showing the whole record set under the
// neutral interpretation.
func NewSession(records []intel.Record, interpreter *query.Interpreter) *Session {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	s := &Session{
		records:      records,
		interpreter:  interpreter,
		layoutParams: layout.DefaultParams(),
		debounce:     defaultDebounce,
		logger:       logger,
	}
	s.commit(query.NeutralAnalysis(), records)
	return s
}

// Query interprets the text and, if this submission is still the latest,
// replaces the rendered network. Submissions arriving during the debounce
// window or during interpretation supersede this one, which then returns
// ErrSuperseded.
func (s *Session) Query(ctx context.Context, text string) (*QueryResult, error) {
	gen := s.generation.Add(1)

	select {
	case <-time.After(s.debounce):
	case <-ctx.Done():
		sessionQueries.WithLabelValues("canceled").Inc()
		return nil, ctx.Err()
	}
	if s.generation.Load() != gen {
		sessionQueries.WithLabelValues("superseded").Inc()
		return nil, ErrSuperseded
	}

	analysis := s.interpreter.Interpret(ctx, text, s.records)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() != gen {
		sessionQueries.WithLabelValues("superseded").Inc()
		return nil, ErrSuperseded
	}

	filtered := query.Apply(s.records, analysis.Spec)
	result := s.commit(analysis, filtered)

	s.logger.WithFields(logrus.Fields{
		"query":   text,
		"source":  analysis.Source,
		"records": result.Records,
		"nodes":   result.Nodes,
		"edges":   result.Edges,
	}).Info("query committed")
	sessionQueries.WithLabelValues("committed").Inc()
	return result, nil
}

// commit rebuilds the network and layout for a filtered record set.
// Callers hold s.mu (or own the session exclusively, as NewSession does).
func (s *Session) commit(analysis *query.Analysis, filtered []intel.Record) *QueryResult {
	network := graph.Build(filtered)
	if analysis.Spec != nil && analysis.Spec.HideEdges {
		network = network.WithoutEdges()
	}

	engine := layout.NewEngine(network, s.layoutParams)
	if s.engine != nil {
		engine.SeedFrom(s.engine.PositionMap())
	}
	engine.Prewarm()

	s.analysis = analysis
	s.filtered = filtered
	s.network = network
	s.engine = engine

	sessionNetworkSize.WithLabelValues("nodes").Set(float64(len(network.Nodes)))
	sessionNetworkSize.WithLabelValues("edges").Set(float64(len(network.Edges)))

	return &QueryResult{
		Analysis: analysis,
		Records:  len(filtered),
		Nodes:    len(network.Nodes),
		Edges:    len(network.Edges),
		Empty:    len(network.Nodes) == 0,
	}
}

// Graph returns the rendered network, optionally narrowed to a set of node
// kinds and a label/key substring. Both narrowing passes run on the
// already-filtered network and prune dangling edges.
func (s *Session) Graph(kinds []graph.NodeKind, search string) *graph.Network {
	s.mu.Lock()
	defer s.mu.Unlock()

	network := s.network
	if len(kinds) > 0 {
		want := make(map[graph.NodeKind]bool, len(kinds))
		for _, k := range kinds {
			want[k] = true
		}
		network = network.FilterNodes(func(n graph.Node) bool { return want[n.Kind] })
	}

	if search != "" {
		needle := strings.ToLower(search)
		network = network.FilterNodes(func(n graph.Node) bool {
			return strings.Contains(strings.ToLower(n.Key), needle) ||
				strings.Contains(strings.ToLower(n.DisplayLabel), needle)
		})
	}

	return network
}

// Analysis returns the currently active interpretation.
func (s *Session) Analysis() *query.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

// Stats summarizes the full record set, independent of the active filter.
func (s *Session) Stats() intel.Stats {
	return intel.Statistics(s.records)
}

// Step advances the layout one frame and reports the phase.
func (s *Session) Step(dt float64) layout.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Step(dt)
}

// Positions snapshots the current node positions.
func (s *Session) Positions() []layout.NodePosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Positions()
}

// DragStart pins a node under the pointer.
func (s *Session) DragStart(id string, x, y float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Pin(id, x, y)
}

// DragMove updates a pinned node's position.
func (s *Session) DragMove(id string, x, y float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Drag(id, x, y)
}

// DragEnd releases a pinned node back to the simulation.
func (s *Session) DragEnd(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Release(id)
}
