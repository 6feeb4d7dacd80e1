package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Alterya/Globe/pkg/graph"
	"github.com/Alterya/Globe/pkg/layout"
)

// frameInterval paces the SSE position stream at roughly 30 fps.
const frameInterval = 33 * time.Millisecond

// Server exposes one session over HTTP: the page itself, the query and
// drag endpoints, and the position stream.
type Server struct {
	session *Session
	logger  *logrus.Logger
}

// New wraps a session in an HTTP server.
func New(session *Session) *Server {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	return &Server{session: session, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/api/graph", s.handleGraph)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/positions", s.handlePositions)
	mux.HandleFunc("/api/drag/start", s.handleDrag(s.session.DragStart))
	mux.HandleFunc("/api/drag/move", s.handleDrag(s.session.DragMove))
	mux.HandleFunc("/api/drag/end", s.handleDragEnd)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ListenAndServe runs the server until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.WithField("addr", addr).Info("starting interaction server")
	return errors.Wrap(http.ListenAndServe(addr, s.Handler()), "interaction server")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("failed to encode response")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, nil); err != nil {
		s.logger.WithError(err).Error("failed to render page")
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := s.session.Query(r.Context(), req.Query)
	if errors.Is(err, ErrSuperseded) {
		s.writeJSON(w, http.StatusOK, map[string]bool{"superseded": true})
		return
	}
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	var kinds []graph.NodeKind
	if raw := r.URL.Query().Get("kinds"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			switch kind := graph.NodeKind(strings.TrimSpace(k)); kind {
			case graph.KindDomain, graph.KindIP, graph.KindAddress:
				kinds = append(kinds, kind)
			}
		}
	}

	network := s.session.Graph(kinds, r.URL.Query().Get("search"))
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"analysis": s.session.Analysis(),
		"network":  network,
		"empty":    len(network.Nodes) == 0,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Stats())
}

// handlePositions streams layout frames as server-sent events. The stream
// pauses while the simulation is idle and resumes on the next perturbation.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	var lastPhase layout.Phase
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			phase := s.session.Step(1)
			if phase == layout.PhaseIdle && lastPhase == layout.PhaseIdle {
				continue
			}
			lastPhase = phase

			frame, err := json.Marshal(map[string]interface{}{
				"phase":     phase,
				"positions": s.session.Positions(),
			})
			if err != nil {
				s.logger.WithError(err).Warn("failed to encode frame")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
	}
}

type dragRequest struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func (s *Server) handleDrag(apply func(id string, x, y float64) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req dragRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid drag request"})
			return
		}

		if !apply(req.ID, req.X, req.Y) {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown node"})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid drag request"})
		return
	}

	if !s.session.DragEnd(req.ID) {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "node is not pinned"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
