// Package mockscanner is a local stand-in for the reputation proxy. It serves
// the submit, analysis and hash routes with canned verdicts so the CLI and API
// can be exercised without the real service.
package mockscanner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/raysh454/threatcheck/internal/logging"
	"github.com/raysh454/threatcheck/internal/model"
)

type analysis struct {
	ID          string             `json:"id"`
	URL         string             `json:"url"`
	SubmittedAt time.Time          `json:"submitted_at"`
	ReadyAt     time.Time          `json:"ready_at"`
	Status      int                `json:"status,omitempty"`
	Counters    model.ScanCounters `json:"counters"`
	Polls       int                `json:"polls"`

	seq uint64
}

// MockScanner holds submitted analyses in memory.
type MockScanner struct {
	cfg    Config
	logger logging.Logger
	router chi.Router
	now    func() time.Time

	mu       sync.RWMutex
	analyses map[string]*analysis
	seq      uint64
}

// New creates a mock scanner. Missing RoutePrefix falls back to the default.
func New(cfg Config, logger logging.Logger) *MockScanner {
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.RoutePrefix == "" {
		cfg.RoutePrefix = DefaultConfig().RoutePrefix
	}
	s := &MockScanner{
		cfg:      cfg,
		logger:   logger.With(logging.Field{Key: "component", Value: "mockscanner"}),
		router:   chi.NewRouter(),
		now:      time.Now,
		analyses: make(map[string]*analysis),
	}
	s.routes()
	return s
}

func (s *MockScanner) routes() {
	r := s.router
	prefix := "/" + strings.Trim(s.cfg.RoutePrefix, "/")

	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Post(prefix+"/url", s.handleSubmitURL)
		r.Get(prefix+"/analysis/{id}", s.handleGetAnalysis)
		r.Get(prefix+"/hash/{hash}", s.handleGetHash)
	})

	// Control endpoints for demos and tests.
	r.Get("/mock/analyses", s.handleListAnalyses)
	r.Post("/mock/reset", s.handleReset)
}

// ServeHTTP implements http.Handler.
func (s *MockScanner) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("http_request",
		logging.Field{Key: "method", Value: r.Method},
		logging.Field{Key: "path", Value: r.URL.Path})
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *MockScanner) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ListenAndServe runs until ctx is done, then shuts down gracefully.
func (s *MockScanner) ListenAndServe(ctx context.Context) error {
	srv := s.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock scanner listening", logging.Field{Key: "addr", Value: srv.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *MockScanner) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" && r.Header.Get("X-API-Key") != s.cfg.APIKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *MockScanner) handleSubmitURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(body.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	now := s.now()
	a := &analysis{
		ID:          "u-" + uuid.NewString(),
		URL:         body.URL,
		SubmittedAt: now,
		ReadyAt:     now.Add(s.cfg.CompletionDelay),
		Counters:    s.cfg.DefaultURLCounters,
	}
	if fx, ok := s.matchURL(body.URL); ok {
		a.Counters = fx.Counters
		a.Status = fx.Status
	}

	s.mu.Lock()
	s.seq++
	a.seq = s.seq
	s.analyses[a.ID] = a
	s.mu.Unlock()

	s.logger.Info("url submitted", logging.Field{Key: "url", Value: body.URL}, logging.Field{Key: "analysis_id", Value: a.ID})
	writeJSON(w, http.StatusOK, map[string]string{"analysisId": a.ID})
}

func (s *MockScanner) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	a, ok := s.analyses[id]
	if ok {
		a.Polls++
	}
	var snapshot analysis
	if ok {
		snapshot = *a
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if s.now().Before(snapshot.ReadyAt) {
		if s.cfg.PendingStatus != 0 && s.cfg.PendingStatus != http.StatusOK {
			writeError(w, s.cfg.PendingStatus, "analysis queued")
			return
		}
		writeJSON(w, http.StatusOK, model.ScanCounters{})
		return
	}
	if snapshot.Status != 0 {
		writeError(w, snapshot.Status, "scan failed")
		return
	}
	writeJSON(w, http.StatusOK, snapshot.Counters)
}

func (s *MockScanner) handleGetHash(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	fx, ok := s.matchHash(hash)
	if !ok {
		writeError(w, http.StatusNotFound, "hash not found")
		return
	}
	if fx.Status != 0 {
		writeError(w, fx.Status, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, fx.Counters)
}

func (s *MockScanner) handleListAnalyses(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := make([]analysis, 0, len(s.analyses))
	for _, a := range s.analyses {
		out = append(out, *a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	writeJSON(w, http.StatusOK, out)
}

func (s *MockScanner) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.analyses = make(map[string]*analysis)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
