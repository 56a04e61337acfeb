// Package trigger implements the HTTP surface used by an external cron to
// start a crawl run.
//
// Routes:
//
//	POST /scrape[?test=true]   → run the crawler, respond with the run record
//	GET  /runs[?limit=N]       → most recent run records
//	GET  /health               → liveness
//
// /scrape and /runs require "Authorization: Bearer <CRON_SECRET>".
package trigger

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"jobmate/internship-crawler/internal/model"
	"jobmate/internship-crawler/internal/runlog"
)

const (
	defaultRunsLimit = 10
	maxRunsLimit     = 100
)

// Runner starts one crawl run.
type Runner interface {
	Run(ctx context.Context, testMode bool) (model.RunRecord, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, testMode bool) (model.RunRecord, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, testMode bool) (model.RunRecord, error) {
	return f(ctx, testMode)
}

// History lists past runs, newest first.
type History interface {
	Recent(ctx context.Context, n int64) ([]model.RunRecord, error)
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	runner  Runner
	history History // nil when Redis is not configured
	secret  []byte
	version string
	logger  *zap.Logger

	// running refuses overlapping triggers within this process; the Redis
	// lock covers other replicas.
	running atomic.Bool
}

// NewHandler returns a configured Handler.
func NewHandler(runner Runner, history History, secret, version string, logger *zap.Logger) *Handler {
	return &Handler{
		runner:  runner,
		history: history,
		secret:  []byte(secret),
		version: version,
		logger:  logger.With(zap.String("component", "trigger")),
	}
}

// RegisterRoutes mounts all crawler routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/scrape", h.handleScrape)
	mux.HandleFunc("/runs", h.handleRuns)
	mux.HandleFunc("/health", h.handleHealth)
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) handleScrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorized(r) {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	testMode, err := parseBoolQuery(r, "test")
	if err != nil {
		jsonError(w, "test must be a boolean", http.StatusBadRequest)
		return
	}

	if !h.running.CompareAndSwap(false, true) {
		jsonError(w, "a crawl run is already in progress", http.StatusConflict)
		return
	}
	defer h.running.Store(false)

	// A cron client hanging up must not abort a half-finished run.
	rec, err := h.runner.Run(context.WithoutCancel(r.Context()), testMode)
	switch {
	case errors.Is(err, runlog.ErrRunInProgress):
		jsonError(w, "a crawl run is already in progress", http.StatusConflict)
		return
	case err != nil && rec.RunID == "":
		h.logger.Error("run failed to start", zap.Error(err))
		jsonError(w, "run failed", http.StatusInternalServerError)
		return
	case err != nil:
		h.logger.Warn("run ended early", zap.String("run_id", rec.RunID), zap.Error(err))
	}

	jsonOK(w, rec)
}

func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorized(r) {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.history == nil {
		jsonError(w, "run history requires REDIS_URL", http.StatusNotFound)
		return
	}

	limit := defaultRunsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > maxRunsLimit {
			jsonError(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = v
	}

	runs, err := h.history.Recent(r.Context(), int64(limit))
	if err != nil {
		h.logger.Error("list runs failed", zap.Error(err))
		jsonError(w, "run history unavailable", http.StatusInternalServerError)
		return
	}
	jsonOK(w, runs)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]any{
		"status":  "ok",
		"service": "internship-crawler",
		"version": h.version,
		"running": h.running.Load(),
	})
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func (h *Handler) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || len(h.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), h.secret) == 1
}

func parseBoolQuery(r *http.Request, key string) (bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
