// Package server exposes the audit engine over HTTP: start a job, poll it,
// stream its progress over a websocket, and browse the stored scan history.
// It is a thin caller of the engine; results are only read and serialized.
package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tagscope/tagscope/internal/app"
	"github.com/tagscope/tagscope/internal/audit"
	"github.com/tagscope/tagscope/internal/capture"
	"github.com/tagscope/tagscope/internal/catalog"
	"github.com/tagscope/tagscope/internal/logging"
	"github.com/tagscope/tagscope/internal/model"
	"github.com/tagscope/tagscope/internal/report"
	"github.com/tagscope/tagscope/internal/store"

	_ "modernc.org/sqlite" // SQLite driver
)

// Server is the HTTP + WebSocket API surface for the script auditor.
type Server struct {
	cfg          Config
	orchestrator *app.Orchestrator
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       logging.Logger
	historyDB    *sql.DB
}

// NewServer creates a new Server. Unless cfg injects an orchestrator, it
// opens the history database and builds the catalog, capture backend and
// auditor itself.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		cfg.AppConfig = app.DefaultConfig()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}

	if cfg.Orchestrator != nil {
		s.orchestrator = cfg.Orchestrator
	} else {
		orch, db, err := buildOrchestrator(cfg.AppConfig, logger)
		if err != nil {
			return nil, err
		}
		s.orchestrator = orch
		s.historyDB = db
	}

	s.routes()
	return s, nil
}

func buildOrchestrator(cfg *app.Config, logger logging.Logger) (*app.Orchestrator, *sql.DB, error) {
	if err := os.MkdirAll(cfg.StorageRoot, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating storage root %s: %w", cfg.StorageRoot, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(cfg.StorageRoot, "history.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening history database: %w", err)
	}

	history, err := store.New(db, logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating history store: %w", err)
	}

	cat, err := catalog.Default()
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("loading vendor catalog: %w", err)
	}

	capturer, err := capture.New(cfg.CaptureCfg, cat, logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating capture backend: %w", err)
	}

	auditor := audit.New(cat, capturer, logger)
	return app.NewOrchestrator(cfg, auditor, history, logger), db, nil
}

// Orchestrator returns the underlying orchestrator for advanced use (tests, etc.).
func (s *Server) Orchestrator() *app.Orchestrator {
	return s.orchestrator
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/audits", s.optionsHandler("GET, POST"))
	r.Options("/audits/{jobID}", s.optionsHandler("GET, DELETE"))
	r.Options("/scans", s.optionsHandler("GET"))
	r.Options("/scans/compare", s.optionsHandler("GET"))
	r.Options("/scans/{scanID}", s.optionsHandler("GET"))

	// Audit jobs
	r.Post("/audits", s.handleStartAudit)
	r.Get("/audits", s.handleListAudits)
	r.Get("/audits/{jobID}", s.handleGetAudit)
	r.Delete("/audits/{jobID}", s.handleCancelAudit)

	// Scan history
	r.Get("/scans", s.handleListScans)
	r.Get("/scans/compare", s.handleCompareScans)
	r.Get("/scans/{scanID}", s.handleGetScan)

	// WebSocket for live audit progress
	r.Get("/ws/audits", s.handleAuditWS)

	r.Get("/healthz", s.handleHealthz)
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

	if r.Body != nil && r.Method == http.MethodPost {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close shuts down the orchestrator and underlying resources.
func (s *Server) Close() {
	if s.orchestrator != nil {
		s.orchestrator.Close()
	}
	if s.historyDB != nil {
		s.historyDB.Close()
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
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

// scanOptions maps a request payload onto scan options, clamping the timeout
// the same way for every entry point.
func (s *Server) scanOptions(req StartAuditRequest) model.Options {
	opts := s.cfg.AppConfig.ScanOpts
	if req.TimeoutSeconds > 0 {
		opts.TimeoutSeconds = req.TimeoutSeconds
	}
	if opts.TimeoutSeconds < 5 {
		opts.TimeoutSeconds = 5
	}
	if opts.TimeoutSeconds > 120 {
		opts.TimeoutSeconds = 120
	}
	if req.GracePeriodSeconds > 0 {
		opts.GracePeriodSeconds = req.GracePeriodSeconds
	}
	return opts
}

// --- HTTP handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartAudit(w http.ResponseWriter, r *http.Request) {
	var body StartAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	// The job must outlive this request, so it does not inherit r.Context().
	job, err := s.orchestrator.StartAuditJob(context.Background(), body.URL, s.scanOptions(body))
	if err != nil {
		s.logger.Warn("starting audit job", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("started audit job",
		logging.Field{Key: "job_id", Value: job.ID},
		logging.Field{Key: "url", Value: body.URL})
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	jobs := s.orchestrator.ListJobs()
	s.logger.Info("listed audit jobs", logging.Field{Key: "count", Value: len(jobs)})
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelAudit(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	s.orchestrator.CancelJob(jobID)
	s.logger.Info("canceled audit job", logging.Field{Key: "job_id", Value: jobID})
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	history := s.orchestrator.History()
	if history == nil {
		writeError(w, http.StatusNotImplemented, "scan history is not enabled")
		return
	}

	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	scans, err := history.List(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing scans", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	history := s.orchestrator.History()
	if history == nil {
		writeError(w, http.StatusNotImplemented, "scan history is not enabled")
		return
	}

	scanID := chi.URLParam(r, "scanID")
	res, err := history.Get(r.Context(), scanID)
	if errors.Is(err, store.ErrScanNotFound) {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		s.logger.Warn("getting scan", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompareScans(w http.ResponseWriter, r *http.Request) {
	history := s.orchestrator.History()
	if history == nil {
		writeError(w, http.StatusNotImplemented, "scan history is not enabled")
		return
	}

	beforeID := r.URL.Query().Get("before")
	afterID := r.URL.Query().Get("after")
	if beforeID == "" || afterID == "" {
		writeError(w, http.StatusBadRequest, "before and after query parameters are required")
		return
	}

	before, err := history.Get(r.Context(), beforeID)
	if err != nil {
		writeError(w, scanLookupStatus(err), "before: "+err.Error())
		return
	}
	after, err := history.Get(r.Context(), afterID)
	if err != nil {
		writeError(w, scanLookupStatus(err), "after: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, CompareResponse{
		BeforeID: beforeID,
		AfterID:  afterID,
		Diff:     report.Compare(before, after),
	})
}

func scanLookupStatus(err error) int {
	if errors.Is(err, store.ErrScanNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// --- WebSocket ---

// handleAuditWS starts an audit for ?url=... and streams its job events until
// the job finishes or the client goes away.
func (s *Server) handleAuditWS(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}

	req := StartAuditRequest{URL: target}
	if ts := r.URL.Query().Get("timeout"); ts != "" {
		if v, err := strconv.Atoi(ts); err == nil {
			req.TimeoutSeconds = v
		}
	}
	if gs := r.URL.Query().Get("grace"); gs != "" {
		if v, err := strconv.Atoi(gs); err == nil {
			req.GracePeriodSeconds = v
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	job, err := s.orchestrator.StartAuditJob(r.Context(), target, s.scanOptions(req))
	if err != nil {
		_ = conn.WriteJSON(ErrorResponse{Error: err.Error()})
		return
	}

	s.logger.Info("started audit job over websocket", logging.Field{Key: "job_id", Value: job.ID})
	_ = conn.WriteJSON(job)

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			s.orchestrator.CancelJob(job.ID)
			return
		}
	}
}
