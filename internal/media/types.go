// Package media turns user-supplied references (platform URLs, scraped
// pages) into directly fetchable media locators, falling back across an
// ordered list of provider candidates when any single upstream is down,
// rate-limited or returning malformed data.
package media

import (
	"context"
	"time"
)

// Metadata is the best-effort descriptive information attached to a
// source: used for transcript headers, never required for the pipeline
// to make progress.
type Metadata struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Guest string `json:"guest"`
}

// Reference identifies the media a candidate should look up.
type Reference struct {
	// MediaID is the platform-specific identifier (video id).
	MediaID string
	// URL is the original user-supplied reference.
	URL string
	// Referer, when set, is presented to providers that use it to
	// authorize mirror playback.
	Referer string
}

// StreamDescriptor is one playable stream offered by a provider. Size,
// Bitrate and Duration are declared hints and may be zero when the
// provider does not report them.
type StreamDescriptor struct {
	URL      string
	MimeType string
	Label    string
	Bitrate  int   // bits per second
	Size     int64 // bytes
}

// StreamInfo is a candidate's validated response: the source's declared
// title and duration plus the streams it offers.
type StreamInfo struct {
	Title    string
	Duration time.Duration
	Streams  []StreamDescriptor
}

// Candidate is one entry in a fallback chain. Implementations are
// stateless and reused across resolutions; Streams must be
// side-effect-free.
type Candidate interface {
	Name() string
	Streams(ctx context.Context, ref Reference) (*StreamInfo, error)
}

// Resolution is the resolver's output: one fetchable locator plus the
// context needed to fetch it.
type Resolution struct {
	MediaURL string   `json:"mediaUrl"`
	Provider string   `json:"provider"`
	Referer  string   `json:"referer,omitempty"`
	Meta     Metadata `json:"metadata"`
}
