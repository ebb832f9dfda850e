package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/legadoives/transcritor/internal/pipeline"
)

var errBatchRunning = errors.New("batch is still running")

type batchRun struct {
	orch *pipeline.Orchestrator
	done chan struct{}
}

func (b *batchRun) running() bool {
	select {
	case <-b.done:
		return false
	default:
		return true
	}
}

// BatchHandler keeps in-memory batches keyed by ID. Batches do not
// survive a restart; callers that need the results durably rely on the
// archive.
type BatchHandler struct {
	newBatch OrchestratorFactory
	logger   *slog.Logger

	mu      sync.Mutex
	batches map[string]*batchRun
}

func NewBatchHandler(newBatch OrchestratorFactory, logger *slog.Logger) *BatchHandler {
	return &BatchHandler{
		newBatch: newBatch,
		logger:   logger,
		batches:  make(map[string]*batchRun),
	}
}

type createBatchRequest struct {
	URLs []string `json:"urls"`
}

// Create enqueues one job per URL and starts the batch in the
// background.
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URLs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"urls\": [\"...\"]}"})
		return
	}

	run := &batchRun{orch: h.newBatch(), done: make(chan struct{})}
	jobIDs := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		id, err := run.orch.Enqueue(pipeline.NewRemoteSource(u))
		if err != nil {
			writeError(w, err)
			return
		}
		jobIDs = append(jobIDs, id)
	}

	batchID := uuid.NewString()
	h.mu.Lock()
	h.batches[batchID] = run
	h.mu.Unlock()

	go func() {
		defer close(run.done)
		run.orch.Run(context.Background())
		h.logger.Info("batch finished", "batch", batchID,
			"summary", pipeline.Summary(run.orch.Counts()))
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"batchId": batchID,
		"jobIds":  jobIDs,
	})
}

// Status reports per-status counts and every job's snapshot.
func (h *BatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(chi.URLParam(r, "batchID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch not found"})
		return
	}

	views := run.orch.Snapshot()
	jobs := make([]map[string]any, len(views))
	for i, v := range views {
		jobs[i] = map[string]any{
			"id":       v.ID,
			"name":     v.Name,
			"status":   v.Status,
			"attempts": v.Attempts,
			"error":    v.LastError,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"running": run.running(),
		"counts":  run.orch.Counts(),
		"jobs":    jobs,
	})
}

// Retry re-runs the failed jobs of a finished batch.
func (h *BatchHandler) Retry(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	run, ok := h.lookup(batchID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch not found"})
		return
	}
	if run.running() {
		writeError(w, errBatchRunning)
		return
	}

	next := &batchRun{orch: run.orch, done: make(chan struct{})}
	h.mu.Lock()
	h.batches[batchID] = next
	h.mu.Unlock()

	go func() {
		defer close(next.done)
		next.orch.RetryFailed(context.Background())
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}

// DiscardJob removes one job from a batch, cleaning up its uploaded
// artifact in the background.
func (h *BatchHandler) DiscardJob(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(chi.URLParam(r, "batchID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch not found"})
		return
	}
	if run.running() {
		writeError(w, errBatchRunning)
		return
	}

	if err := run.orch.Discard(chi.URLParam(r, "jobID")); err != nil {
		if errors.Is(err, pipeline.ErrJobNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (h *BatchHandler) lookup(id string) (*batchRun, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	run, ok := h.batches[id]
	return run, ok
}
