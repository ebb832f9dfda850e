// Package fault defines the pipeline's error taxonomy. Every stage
// failure that crosses a package boundary is classified into one of
// these kinds so the retry executor and the orchestrator can decide
// what to do with it without string matching.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	// KindUnknown is the zero value for unclassified failures.
	KindUnknown Kind = iota
	// KindTimeout means a deadline-bounded call expired and the
	// underlying operation was cancelled.
	KindTimeout
	// KindProviderExhausted means every fallback candidate failed.
	KindProviderExhausted
	// KindLocatorNotFound means page scraping found no embedded media.
	KindLocatorNotFound
	// KindUpstreamAuth is an authentication/authorization rejection.
	// Never retried.
	KindUpstreamAuth
	// KindUpstreamRateLimited is a 429-style rejection. Retried.
	KindUpstreamRateLimited
	// KindUpstreamRejected is any other 4xx: the upstream understood the
	// request and refused it, so repeating it cannot help. Never retried.
	KindUpstreamRejected
	// KindUpstreamTransient is a 5xx-style upstream hiccup. Retried.
	KindUpstreamTransient
	// KindUploadIncomplete is a partial transfer. Triggers a fresh
	// upload attempt, never a resume.
	KindUploadIncomplete
	// KindRefinementUnavailable means the refinement service failed;
	// callers fall back to the raw transcript.
	KindRefinementUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindProviderExhausted:
		return "provider exhausted"
	case KindLocatorNotFound:
		return "locator not found"
	case KindUpstreamAuth:
		return "upstream auth error"
	case KindUpstreamRateLimited:
		return "upstream rate limited"
	case KindUpstreamRejected:
		return "upstream rejected request"
	case KindUpstreamTransient:
		return "upstream transient error"
	case KindUploadIncomplete:
		return "upload incomplete"
	case KindRefinementUnavailable:
		return "refinement unavailable"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline failure. Op names the operation that
// failed ("resolve vimeo", "transcribe deepgram"), in the style of the
// wrapped errors used across the codebase.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two faults by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New creates a classified error with a message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error. A nil cause yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classification from an error chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether a retry is worthwhile. Auth errors and
// malformed responses never recover on their own; rate limits,
// transient upstream errors, timeouts and partial uploads usually do.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUpstreamRateLimited, KindUpstreamTransient, KindTimeout, KindUploadIncomplete:
		return true
	default:
		return false
	}
}
