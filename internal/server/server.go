package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/raysh454/threatcheck/internal/app"
	"github.com/raysh454/threatcheck/internal/hashing"
	"github.com/raysh454/threatcheck/internal/logging"
	"github.com/raysh454/threatcheck/internal/model"
	_ "github.com/raysh454/threatcheck/internal/server/docs" // swagger spec
)

const maxBatchSize = 100

// Server is the HTTP + WebSocket API surface for ThreatCheck.
type Server struct {
	cfg      Config
	app      *app.Application
	ownsApp  bool
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewServer creates a Server. When cfg.App is nil an Application is built
// from cfg.AppConfig and shut down by Close.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		if cfg.App != nil {
			cfg.AppConfig = cfg.App.Config
		} else {
			cfg.AppConfig = app.DefaultConfig()
		}
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = cfg.AppConfig.Server.ListenAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = cfg.AppConfig.Server.MaxUploadBytes
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = app.DefaultConfig().Server.MaxUploadBytes
	}
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = cfg.AppConfig.Server.AllowedOrigins
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	application := cfg.App
	owns := false
	if application == nil {
		var err error
		application, err = app.NewApplication(cfg.AppConfig, app.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("creating application: %w", err)
		}
		owns = true
	}

	s := &Server{
		cfg:     cfg,
		app:     application,
		ownsApp: owns,
		router:  chi.NewRouter(),
		logger:  logger,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	s.routes()
	return s, nil
}

// App returns the underlying application for advanced use (tests, etc.).
func (s *Server) App() *app.Application {
	return s.app
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/verify", s.optionsHandler("POST"))
	r.Options("/verify/file", s.optionsHandler("POST"))
	r.Options("/verify/batch", s.optionsHandler("POST"))
	r.Options("/jobs", s.optionsHandler("GET, POST"))
	r.Options("/jobs/{jobID}", s.optionsHandler("GET, DELETE"))
	r.Options("/ws/verify", s.optionsHandler("GET"))

	// Synchronous verification
	r.Post("/verify", s.handleVerify)
	r.Post("/verify/file", s.handleVerifyFile)
	r.Post("/verify/batch", s.handleVerifyBatch)

	// Jobs over REST
	r.Post("/jobs", s.handleStartJob)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{jobID}", s.handleGetJob)
	r.Delete("/jobs/{jobID}", s.handleCancelJob)

	// WebSocket for job progress
	r.Get("/ws/verify", s.handleVerifyWS)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.app.Metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

// checkOrigin accepts requests without an Origin header, same-host origins
// and the configured allow list.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		allowed = strings.TrimRight(strings.TrimSpace(allowed), "/")
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	s.logger.Warn("websocket origin rejected", logging.Field{Key: "origin", Value: origin})
	return false
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	// Only JSON bodies are logged; uploads can be large and binary.
	if r.Body != nil && r.Method == http.MethodPost && isJSON(r.Header.Get("Content-Type")) {
		if bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, 64<<10)); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), r.Body))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

// Close shuts down the application when the server created it.
func (s *Server) Close() {
	if s.ownsApp && s.app != nil {
		if err := s.app.Shutdown(context.Background()); err != nil {
			s.logger.Warn("shutting down application", logging.Field{Key: "error", Value: err.Error()})
		}
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      0, // allow streaming
	}
}

// ListenAndServe runs until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := s.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", logging.Field{Key: "addr", Value: srv.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
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

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- HTTP handlers ---

// handleVerify godoc
// @Summary Verify a URL or hash
// @Description Invalid or unverifiable targets yield an unsafe result, never an HTTP error.
// @Tags verify
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "target"
// @Success 200 {object} model.CheckResult
// @Failure 400 {object} ErrorResponse
// @Router /verify [post]
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding verify body", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res := s.app.Verifier.Verify(r.Context(), body.checkRequest())
	writeJSON(w, http.StatusOK, res)
}

// handleVerifyFile godoc
// @Summary Verify an uploaded file by its SHA-256
// @Tags verify
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "file to check"
// @Success 200 {object} FileVerifyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /verify/file [post]
func (s *Server) handleVerifyFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart/form-data")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		if err != nil {
			s.uploadError(w, err)
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		counter := &countingReader{r: part}
		sum, err := hashing.SHA256Reader(counter)
		_ = part.Close()
		if err != nil {
			s.uploadError(w, err)
			return
		}

		res := s.app.Verifier.Verify(r.Context(), model.CheckRequest{Hash: sum, FileName: part.FileName()})
		s.logger.Info("verified upload",
			logging.Field{Key: "file", Value: part.FileName()},
			logging.Field{Key: "sha256", Value: sum},
			logging.Field{Key: "size", Value: counter.n})
		writeJSON(w, http.StatusOK, FileVerifyResponse{
			CheckResult: res,
			SHA256:      sum,
			FileName:    part.FileName(),
			Size:        counter.n,
		})
		return
	}
}

func (s *Server) uploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		return
	}
	s.logger.Warn("reading upload", logging.Field{Key: "error", Value: err.Error()})
	writeError(w, http.StatusBadRequest, "invalid upload")
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// handleVerifyBatch godoc
// @Summary Verify several targets in parallel
// @Tags verify
// @Accept json
// @Produce json
// @Param request body BatchVerifyRequest true "targets"
// @Success 200 {object} BatchVerifyResponse
// @Failure 400 {object} ErrorResponse
// @Router /verify/batch [post]
func (s *Server) handleVerifyBatch(w http.ResponseWriter, r *http.Request) {
	var body BatchVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(body.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "requests is required")
		return
	}
	if len(body.Requests) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d requests per batch", maxBatchSize))
		return
	}

	reqs := make([]model.CheckRequest, len(body.Requests))
	for i, req := range body.Requests {
		reqs[i] = req.checkRequest()
	}
	results := s.app.Verifier.VerifyBatch(r.Context(), reqs, body.Concurrency)
	s.logger.Info("verified batch", logging.Field{Key: "count", Value: len(results)})
	writeJSON(w, http.StatusOK, BatchVerifyResponse{Results: results})
}

// Jobs (REST)

// handleStartJob godoc
// @Summary Start an asynchronous verification
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "target"
// @Success 202 {object} app.Job
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /jobs [post]
func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var body VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	job, err := s.app.Orch.StartVerifyJob(context.Background(), body.checkRequest())
	if err != nil {
		s.logger.Warn("starting verify job", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.logger.Info("started verify job", logging.Field{Key: "job_id", Value: job.ID})
	writeJSON(w, http.StatusAccepted, job)
}

// @Summary Get a job
// @Tags jobs
// @Produce json
// @Param jobID path string true "job id"
// @Success 200 {object} app.Job
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{jobID} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.app.Orch.GetJob(jobID)
	if errors.Is(err, app.ErrJobNotFound) {
		s.logger.Warn("getting job: not found", logging.Field{Key: "job_id", Value: jobID})
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// @Summary Cancel a job
// @Tags jobs
// @Param jobID path string true "job id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{jobID} [delete]
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, err := s.app.Orch.GetJob(jobID); errors.Is(err, app.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.app.Orch.CancelJob(jobID)
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	w.WriteHeader(http.StatusNoContent)
}

// @Summary List jobs
// @Tags jobs
// @Produce json
// @Success 200 {array} app.Job
// @Router /jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.app.Orch.ListJobs()
	s.logger.Info("listed jobs", logging.Field{Key: "count", Value: len(jobs)})
	writeJSON(w, http.StatusOK, jobs)
}

// WebSockets

func (s *Server) handleVerifyWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := model.CheckRequest{URL: q.Get("url"), Hash: q.Get("hash")}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	job, err := s.app.Orch.StartVerifyJob(r.Context(), req)
	if err != nil {
		s.logger.Warn("starting verify job", logging.Field{Key: "error", Value: err.Error()})
		_ = conn.WriteJSON(ErrorResponse{Error: err.Error()})
		return
	}

	s.logger.Info("started verify job", logging.Field{Key: "job_id", Value: job.ID})
	_ = conn.WriteJSON(job)

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			s.app.Orch.CancelJob(job.ID)
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
		time.Now().Add(time.Second))
}

// @Summary Liveness probe
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
