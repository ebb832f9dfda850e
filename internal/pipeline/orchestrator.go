package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/legadoives/transcritor/internal/blob"
	"github.com/legadoives/transcritor/internal/deadline"
	"github.com/legadoives/transcritor/internal/media"
	"github.com/legadoives/transcritor/internal/retry"
	"github.com/legadoives/transcritor/internal/stt"
)

// ErrBatchSealed is returned by Enqueue once processing has started.
// Items arriving after that point belong in a new batch.
var ErrBatchSealed = errors.New("batch already started, enqueue rejected")

// ErrJobNotFound is returned by Discard for unknown job IDs.
var ErrJobNotFound = errors.New("job not found")

// Resolver turns a user-supplied URL into a fetchable media locator.
type Resolver interface {
	ResolveURL(ctx context.Context, rawURL string) (*media.Resolution, error)
}

// Refiner reformats a raw transcript. A nil Refiner is allowed; jobs
// then keep the raw transcript as their refined text.
type Refiner interface {
	Refine(ctx context.Context, transcript string, meta media.Metadata) (string, error)
}

// Config tunes the orchestrator. Zero values fall back to the
// defaults noted per field.
type Config struct {
	FanOut            int           // parallel small jobs, default 2
	LargeThreshold    int64         // bytes, default 200 MiB
	RetryPolicy       retry.Policy  // default 3 attempts, 5s delay
	UploadTimeout     time.Duration // default 10m
	TranscribeTimeout time.Duration // default 5m
	RefineTimeout     time.Duration // default 2m
}

func (c Config) withDefaults() Config {
	if c.FanOut < 1 {
		c.FanOut = 2
	}
	if c.LargeThreshold <= 0 {
		c.LargeThreshold = 200 << 20
	}
	if c.RetryPolicy.MaxAttempts == 0 {
		c.RetryPolicy = retry.Default
	}
	if c.UploadTimeout <= 0 {
		c.UploadTimeout = 10 * time.Minute
	}
	if c.TranscribeTimeout <= 0 {
		c.TranscribeTimeout = 5 * time.Minute
	}
	if c.RefineTimeout <= 0 {
		c.RefineTimeout = 2 * time.Minute
	}
	return c
}

// Orchestrator owns a batch of jobs and drives each through the
// pipeline. Small jobs run with bounded fan-out; large jobs run one at
// a time after all small jobs finish. One job failing never cancels
// its siblings.
type Orchestrator struct {
	cfg         Config
	resolver    Resolver
	store       blob.Store
	transcriber stt.Transcriber
	refiner     Refiner
	logger      *slog.Logger

	mu     sync.Mutex
	jobs   []*Job
	sealed bool
}

func NewOrchestrator(cfg Config, resolver Resolver, store blob.Store, transcriber stt.Transcriber, refiner Refiner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:         cfg.withDefaults(),
		resolver:    resolver,
		store:       store,
		transcriber: transcriber,
		refiner:     refiner,
		logger:      logger,
	}
}

// Enqueue adds a source to the batch and returns the new job's ID.
// Rejected once Run has been called.
func (o *Orchestrator) Enqueue(src Source) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sealed {
		return "", ErrBatchSealed
	}
	j := newJob(src)
	o.jobs = append(o.jobs, j)
	return j.ID, nil
}

// Run processes every pending job and blocks until all of them reach
// Done or Failed. The batch is sealed on entry.
func (o *Orchestrator) Run(ctx context.Context) {
	o.mu.Lock()
	o.sealed = true
	var pending []*Job
	for _, j := range o.jobs {
		if j.Status == StatusPending {
			pending = append(pending, j)
		}
	}
	o.mu.Unlock()

	o.process(ctx, pending)
}

// RetryFailed re-runs every failed job, re-entering each at the
// earliest stage whose prerequisite artifact is still available. A job
// holding a durable locator goes straight back to transcription.
func (o *Orchestrator) RetryFailed(ctx context.Context) {
	o.mu.Lock()
	var retryable []*Job
	for _, j := range o.jobs {
		if j.Status != StatusFailed {
			continue
		}
		switch {
		case j.DurableLocator != "":
			j.advance(StatusTranscribing)
		case j.Source.Kind == SourceLocal:
			j.advance(StatusUploading)
		default:
			j.Resolution = nil
			j.advance(StatusResolving)
		}
		retryable = append(retryable, j)
	}
	o.mu.Unlock()

	o.process(ctx, retryable)
}

// Discard removes a job from the batch. A held durable artifact is
// cleaned up in the background on a best-effort basis; cleanup failure
// never surfaces to the caller.
func (o *Orchestrator) Discard(id string) error {
	o.mu.Lock()
	var discarded *Job
	for i, j := range o.jobs {
		if j.ID == id {
			discarded = j
			o.jobs = append(o.jobs[:i], o.jobs[i+1:]...)
			break
		}
	}
	o.mu.Unlock()

	if discarded == nil {
		return ErrJobNotFound
	}
	if discarded.DurableLocator != "" {
		go o.deleteArtifact(discarded.DurableLocator)
	}
	return nil
}

// Snapshot returns read-only views of every job in enqueue order.
func (o *Orchestrator) Snapshot() []View {
	o.mu.Lock()
	defer o.mu.Unlock()
	views := make([]View, len(o.jobs))
	for i, j := range o.jobs {
		views[i] = j.view()
	}
	return views
}

// Counts returns the number of jobs per status.
func (o *Orchestrator) Counts() map[Status]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	counts := make(map[Status]int)
	for _, j := range o.jobs {
		counts[j.Status]++
	}
	return counts
}

// Job returns a view of a single job.
func (o *Orchestrator) Job(id string) (View, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, j := range o.jobs {
		if j.ID == id {
			return j.view(), nil
		}
	}
	return View{}, ErrJobNotFound
}

// Results returns the completed jobs with their transcripts.
func (o *Orchestrator) Results() []*Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	var done []*Job
	for _, j := range o.jobs {
		if j.Status == StatusDone {
			done = append(done, j)
		}
	}
	return done
}

// process partitions jobs by declared size, runs small ones with
// bounded fan-out, then large ones strictly one at a time. Concurrent
// large transfers would compete for memory and bandwidth and trip
// each other's deadlines.
func (o *Orchestrator) process(ctx context.Context, jobs []*Job) {
	var small, large []*Job
	for _, j := range jobs {
		if j.Source.Kind == SourceLocal && j.Source.Size >= o.cfg.LargeThreshold {
			large = append(large, j)
		} else {
			small = append(small, j)
		}
	}

	sem := make(chan struct{}, o.cfg.FanOut)
	var wg sync.WaitGroup
	for _, j := range small {
		wg.Add(1)
		go func(j *Job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			o.runJob(ctx, j)
		}(j)
	}
	wg.Wait()

	for _, j := range large {
		o.runJob(ctx, j)
	}
}

// mutate applies a state change to a job under the orchestrator lock
// so concurrent Snapshot calls see consistent fields. The job is still
// driven by exactly one goroutine at a time.
func (o *Orchestrator) mutate(fn func()) {
	o.mu.Lock()
	fn()
	o.mu.Unlock()
}

func (o *Orchestrator) runJob(ctx context.Context, j *Job) {
	log := o.logger.With("job", j.ID, "source", j.view().Name)

	for {
		switch j.Status {
		case StatusPending:
			o.mutate(func() { j.advance(StatusResolving) })

		case StatusResolving:
			if j.Source.Kind == SourceLocal {
				o.mutate(func() { j.advance(StatusUploading) })
				continue
			}
			res, err := o.resolver.ResolveURL(ctx, j.Source.URL)
			if err != nil {
				log.Error("resolution failed", "error", err)
				o.mutate(func() { j.fail(1, err) })
				return
			}
			log.Info("resolved", "provider", res.Provider)
			o.mutate(func() {
				j.Resolution = res
				j.Attempts = 1
				j.advance(StatusTranscribing)
			})

		case StatusUploading:
			if j.DurableLocator != "" {
				o.mutate(func() { j.advance(StatusTranscribing) })
				continue
			}
			locator, attempts, err := o.upload(ctx, j, log)
			if err != nil {
				log.Error("upload failed", "attempts", attempts, "error", err)
				o.mutate(func() { j.fail(attempts, err) })
				return
			}
			log.Info("uploaded", "locator", locator, "attempts", attempts)
			o.mutate(func() {
				j.DurableLocator = locator
				j.Attempts = attempts
				j.advance(StatusTranscribing)
			})

		case StatusTranscribing:
			result, attempts, err := o.transcribe(ctx, j)
			if err != nil {
				log.Error("transcription failed", "attempts", attempts, "error", err)
				o.mutate(func() { j.fail(attempts, err) })
				return
			}
			log.Info("transcribed", "chars", len(result.Transcript), "attempts", attempts)
			o.mutate(func() {
				j.Transcript = result.Transcript
				j.Words = result.Words
				j.Attempts = attempts
				j.advance(StatusRefining)
			})

		case StatusRefining:
			refined, attempts, err := o.refine(ctx, j)
			if err != nil {
				// Non-fatal: keep the raw transcript and finish.
				log.Warn("refinement unavailable, keeping raw transcript", "attempts", attempts, "error", err)
				refined = j.Transcript
			}
			o.mutate(func() {
				j.RefinedText = refined
				j.Attempts = attempts
				j.advance(StatusDone)
			})
			if j.DurableLocator != "" {
				o.deleteArtifact(j.DurableLocator)
				o.mutate(func() { j.DurableLocator = "" })
			}
			log.Info("job done")
			return

		case StatusDone, StatusFailed:
			return

		default:
			o.mutate(func() { j.fail(0, fmt.Errorf("unexpected status %q", j.Status)) })
			return
		}
	}
}

// upload streams the source into the durable store. A failed attempt
// cannot resume mid-stream, so every attempt reopens the source and
// restarts the progress counter.
func (o *Orchestrator) upload(ctx context.Context, j *Job, log *slog.Logger) (string, int, error) {
	return retry.Do(ctx, o.cfg.RetryPolicy, "upload", func(ctx context.Context, attempt int) (string, error) {
		return deadline.Run(ctx, o.cfg.UploadTimeout, "upload", func(ctx context.Context) (string, error) {
			r, err := j.Source.Open()
			if err != nil {
				return "", fmt.Errorf("open source: %w", err)
			}
			defer r.Close()

			var lastPct int64 = -1
			return o.store.Create(ctx, j.Source.Name, r, j.Source.Size, func(transferred, total int64) {
				if total <= 0 {
					return
				}
				if pct := transferred * 100 / total; pct/10 > lastPct/10 {
					lastPct = pct
					log.Debug("upload progress", "attempt", attempt, "pct", pct)
				}
			})
		})
	})
}

func (o *Orchestrator) transcribe(ctx context.Context, j *Job) (*stt.Result, int, error) {
	req := stt.Request{MediaURL: j.DurableLocator}
	if req.MediaURL == "" && j.Resolution != nil {
		req.MediaURL = j.Resolution.MediaURL
		req.Referer = j.Resolution.Referer
	}

	return retry.Do(ctx, o.cfg.RetryPolicy, "transcribe", func(ctx context.Context, _ int) (*stt.Result, error) {
		return deadline.Run(ctx, o.cfg.TranscribeTimeout, "transcribe", func(ctx context.Context) (*stt.Result, error) {
			return o.transcriber.Transcribe(ctx, req)
		})
	})
}

func (o *Orchestrator) refine(ctx context.Context, j *Job) (string, int, error) {
	if o.refiner == nil {
		return j.Transcript, 0, nil
	}

	meta := media.Metadata{Title: j.Source.Name}
	if j.Resolution != nil {
		meta = j.Resolution.Meta
	}

	return retry.Do(ctx, o.cfg.RetryPolicy, "refine", func(ctx context.Context, _ int) (string, error) {
		return deadline.Run(ctx, o.cfg.RefineTimeout, "refine", func(ctx context.Context) (string, error) {
			return o.refiner.Refine(ctx, j.Transcript, meta)
		})
	})
}

// deleteArtifact removes an uploaded object once the job no longer
// needs it. Failures are logged and swallowed: a completed job is
// never demoted over cleanup.
func (o *Orchestrator) deleteArtifact(locator string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := o.store.Delete(ctx, locator); err != nil {
		o.logger.Warn("artifact cleanup failed", "locator", locator, "error", err)
	}
}
