// Package stt is the speech-to-text boundary. Backends classify their
// failures so the retry executor can tell a bad API key (hopeless) from
// a rate limit (worth waiting out).
package stt

import "context"

// Word is one transcribed word with timing, consumed by the subtitle
// formatter.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Result is a completed transcription.
type Result struct {
	Transcript string  `json:"transcript"`
	Words      []Word  `json:"words,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
}

// Request points the transcriber at readable media bytes. Referer is
// forwarded when fetching locators that gate on the embedding page.
type Request struct {
	MediaURL string
	Referer  string
}

// Transcriber converts media behind a locator into text.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (*Result, error)
}
