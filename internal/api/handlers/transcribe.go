package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/legadoives/transcritor/internal/docconv"
	"github.com/legadoives/transcritor/internal/pipeline"
)

// OrchestratorFactory builds a fresh orchestrator per batch. Batches
// are sealed once running, so they cannot share one.
type OrchestratorFactory func() *pipeline.Orchestrator

type TranscribeHandler struct {
	newBatch OrchestratorFactory
	logger   *slog.Logger
}

func NewTranscribeHandler(newBatch OrchestratorFactory, logger *slog.Logger) *TranscribeHandler {
	return &TranscribeHandler{newBatch: newBatch, logger: logger}
}

type transcribeRequest struct {
	URL string `json:"url"`
}

type transcribeResponse struct {
	JobID       string `json:"jobId"`
	Transcript  string `json:"transcript"`
	RefinedText string `json:"refinedText"`
	SRT         string `json:"srt,omitempty"`
}

// Transcribe runs one URL through the whole pipeline synchronously.
// Long media takes minutes; callers wanting progress should create a
// batch instead.
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"url\": \"...\"}"})
		return
	}

	o := h.newBatch()
	id, err := o.Enqueue(pipeline.NewRemoteSource(req.URL))
	if err != nil {
		writeError(w, err)
		return
	}
	o.Run(r.Context())

	view, err := o.Job(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if view.Status != pipeline.StatusDone {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": view.LastError,
			"jobId": id,
		})
		return
	}

	job := o.Results()[0]
	writeJSON(w, http.StatusOK, transcribeResponse{
		JobID:       job.ID,
		Transcript:  job.Transcript,
		RefinedText: job.RefinedText,
		SRT:         docconv.GenerateSRT(job.Words, docconv.DefaultWordsPerCue),
	})
}
