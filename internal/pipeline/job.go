// Package pipeline drives batches of media items through resolution,
// durable upload, transcription and refinement. Each job's mutable
// state is owned exclusively by the goroutine currently executing it;
// the orchestrator only reads snapshots under its own lock.
package pipeline

import (
	"io"

	"github.com/google/uuid"

	"github.com/legadoives/transcritor/internal/media"
	"github.com/legadoives/transcritor/internal/stt"
)

// Status is a job's position in the pipeline. Transitions move
// strictly forward; Failed is reachable from every working state and
// leaves the job eligible for an external retry.
type Status string

const (
	StatusPending      Status = "pending"
	StatusResolving    Status = "resolving"
	StatusUploading    Status = "uploading"
	StatusTranscribing Status = "transcribing"
	StatusRefining     Status = "refining"
	StatusDone         Status = "done"
	StatusFailed       Status = "failed"
)

// SourceKind distinguishes references that must be resolved against
// external providers from artifacts already on disk.
type SourceKind string

const (
	SourceRemote SourceKind = "remote"
	SourceLocal  SourceKind = "local"
)

// Source is where a job's media comes from. Remote sources carry a
// URL; local sources carry a name, a declared size, and an Open
// function so a failed upload can restart from a fresh stream.
type Source struct {
	Kind SourceKind
	URL  string
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Job is one item moving through the pipeline.
type Job struct {
	ID     string
	Source Source
	Status Status

	// Attempts counts the attempts made by the stage named by Status
	// (or the stage that failed, when Status is Failed). Reset on
	// every forward transition.
	Attempts int

	// StageAttempts records the attempt count of every stage already
	// left behind, so a finished job still shows how hard each stage
	// had to work.
	StageAttempts map[Status]int

	// DurableLocator points at the uploaded artifact. Never cleared on
	// failure, so a retry after a later-stage failure skips re-upload.
	DurableLocator string

	Resolution  *media.Resolution
	Transcript  string
	Words       []stt.Word
	RefinedText string
	LastError   string

	// failedAt remembers which stage failed so RetryFailed can re-enter
	// at the right place.
	failedAt Status
}

func newJob(src Source) *Job {
	return &Job{
		ID:     uuid.NewString(),
		Source: src,
		Status: StatusPending,
	}
}

// advance moves the job forward one stage, clearing the previous
// stage's error and attempt count.
func (j *Job) advance(next Status) {
	j.recordAttempts(j.Status, j.Attempts)
	j.Status = next
	j.Attempts = 0
	j.LastError = ""
}

// fail records a terminal stage failure. The durable locator survives.
func (j *Job) fail(attempts int, err error) {
	j.recordAttempts(j.Status, attempts)
	j.failedAt = j.Status
	j.Status = StatusFailed
	j.Attempts = attempts
	j.LastError = err.Error()
}

func (j *Job) recordAttempts(stage Status, attempts int) {
	if attempts == 0 || stage == StatusFailed {
		return
	}
	if j.StageAttempts == nil {
		j.StageAttempts = make(map[Status]int)
	}
	j.StageAttempts[stage] = attempts
}

// NewRemoteSource wraps a URL to be resolved against the provider
// fallback chain. Size is unknown, so the job runs in the small
// partition.
func NewRemoteSource(url string) Source {
	return Source{Kind: SourceRemote, URL: url}
}

// NewLocalSource wraps an on-disk artifact. open must return a fresh
// reader on every call.
func NewLocalSource(name string, size int64, open func() (io.ReadCloser, error)) Source {
	return Source{Kind: SourceLocal, Name: name, Size: size, Open: open}
}

// View is a read-only snapshot of a job for progress reporting.
type View struct {
	ID            string
	Name          string
	Status        Status
	Attempts      int
	StageAttempts map[Status]int
	LastError     string
}

func (j *Job) view() View {
	name := j.Source.Name
	if name == "" {
		name = j.Source.URL
	}
	stages := make(map[Status]int, len(j.StageAttempts))
	for s, n := range j.StageAttempts {
		stages[s] = n
	}
	return View{
		ID:            j.ID,
		Name:          name,
		Status:        j.Status,
		Attempts:      j.Attempts,
		StageAttempts: stages,
		LastError:     j.LastError,
	}
}
