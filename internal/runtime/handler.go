package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pitabwire/frame/workerpool"
	"gorm.io/gorm"

	"github.com/clinicdial/clinicdial/pkg/calllog"
)

const maxRequestBodySize = 1 << 20 // 1 MiB

// JobExecutor runs one dial job to completion. Satisfied by *Runner.
type JobExecutor interface {
	Run(ctx context.Context, job DialJob) error
}

// Handler provides REST endpoints for submitting dial jobs and
// inspecting finished calls.
type Handler struct {
	runner  JobExecutor
	records *calllog.Repository
	pool    workerpool.WorkerPool
}

// NewHandler creates a dial-job API handler.
func NewHandler(runner JobExecutor, records *calllog.Repository, pool workerpool.WorkerPool) *Handler {
	return &Handler{runner: runner, records: records, pool: pool}
}

// RegisterRoutes registers all dial-job API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/dial-jobs", h.SubmitJob)
	mux.HandleFunc("GET /api/v1/calls/{sessionID}", h.GetCall)
	mux.HandleFunc("GET /api/v1/calls", h.ListCalls)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// SubmitJob handles POST /api/v1/dial-jobs. The call runs in the
// background; the response acknowledges acceptance, not completion.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var job DialJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(job.PhoneNumber) == "" {
		writeError(w, http.StatusBadRequest, "phone_number is required")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	run := func() {
		if err := h.runner.Run(ctx, job); err != nil {
			slog.ErrorContext(ctx, "dial job failed",
				slog.String("phone_number", job.PhoneNumber),
				slog.String("error", err.Error()))
		}
	}
	if h.pool != nil {
		if err := h.pool.Submit(ctx, run); err != nil {
			go run()
		}
	} else {
		go run()
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":     "accepted",
		"session_id": job.PhoneNumber,
	})
}

// GetCall handles GET /api/v1/calls/{sessionID}
func (h *Handler) GetCall(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	rec, err := h.records.GetBySession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "call not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load call")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListCalls handles GET /api/v1/calls?outcome=completed&limit=50
func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	outcome := r.URL.Query().Get("outcome")
	if outcome == "" {
		writeError(w, http.StatusBadRequest, "outcome query parameter is required")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}

	recs, err := h.records.ListByOutcome(r.Context(), outcome, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list calls")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": recs})
}
