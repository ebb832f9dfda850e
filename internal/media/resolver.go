package media

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/legadoives/transcritor/internal/deadline"
	"github.com/legadoives/transcritor/internal/fault"
)

// Resolver walks an ordered candidate chain until one of them produces
// a usable stream list. The chain is injected so it can be exercised
// with fake endpoints.
type Resolver struct {
	candidates []Candidate
	timeout    time.Duration
	logger     *slog.Logger
}

func NewResolver(timeout time.Duration, candidates ...Candidate) *Resolver {
	return &Resolver{
		candidates: candidates,
		timeout:    timeout,
		logger:     slog.Default(),
	}
}

// Resolve tries each candidate in order under a deadline-bounded call.
// A candidate that errors, times out, or returns an empty descriptor
// list contributes a labeled diagnostic and the chain moves on. No
// candidate is contacted after the first success.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) (*Resolution, error) {
	if len(r.candidates) == 0 {
		return nil, fault.New(fault.KindProviderExhausted, "resolve", "no candidates configured")
	}

	var diags []string
	for _, c := range r.candidates {
		info, err := deadline.Run(ctx, r.timeout, "resolve "+c.Name(), func(ctx context.Context) (*StreamInfo, error) {
			return c.Streams(ctx, ref)
		})
		if err != nil {
			diags = append(diags, fmt.Sprintf("%s: %v", c.Name(), err))
			r.logger.Warn("candidate failed", "candidate", c.Name(), "media_id", ref.MediaID, "error", err)
			continue
		}
		if info == nil || len(info.Streams) == 0 {
			diags = append(diags, fmt.Sprintf("%s: empty descriptor list", c.Name()))
			r.logger.Warn("candidate returned no streams", "candidate", c.Name(), "media_id", ref.MediaID)
			continue
		}

		picked := pickStream(info.Streams, info.Duration)
		r.logger.Info("media resolved",
			"candidate", c.Name(),
			"media_id", ref.MediaID,
			"label", picked.Label,
			"bitrate", picked.Bitrate,
		)
		return &Resolution{
			MediaURL: picked.URL,
			Provider: c.Name(),
			Referer:  ref.Referer,
			Meta:     Metadata{Title: info.Title},
		}, nil
	}

	return nil, fault.New(fault.KindProviderExhausted, "resolve",
		"all %d candidates failed: %s", len(r.candidates), strings.Join(diags, "; "))
}
