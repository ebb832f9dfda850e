package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/legadoives/transcritor/internal/fault"
	"github.com/legadoives/transcritor/internal/pipeline"
)

type ResolveHandler struct {
	svc pipeline.Resolver
}

func NewResolveHandler(svc pipeline.Resolver) *ResolveHandler {
	return &ResolveHandler{svc: svc}
}

type resolveRequest struct {
	URL string `json:"url"`
}

// Resolve turns a page or video URL into a fetchable media locator
// without starting a transcription.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"url\": \"...\"}"})
		return
	}

	res, err := h.svc.ResolveURL(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeError maps the fault taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch fault.KindOf(err) {
	case fault.KindLocatorNotFound:
		status = http.StatusNotFound
	case fault.KindProviderExhausted, fault.KindUpstreamTransient:
		status = http.StatusBadGateway
	case fault.KindTimeout:
		status = http.StatusGatewayTimeout
	case fault.KindUpstreamRateLimited:
		status = http.StatusTooManyRequests
	case fault.KindUpstreamAuth, fault.KindUpstreamRejected:
		status = http.StatusBadGateway
	default:
		if errors.Is(err, errBatchRunning) {
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
