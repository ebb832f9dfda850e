// Package docconv holds the deterministic format converters invoked
// around the pipeline: subtitle generation from word timings, text
// extraction from uploaded documents, and EPUB packaging of finished
// transcripts. Pure functions, no network, no retries.
package docconv

import (
	"fmt"
	"strings"

	"github.com/legadoives/transcritor/internal/stt"
)

// DefaultWordsPerCue keeps subtitles readable at interview speech
// pace.
const DefaultWordsPerCue = 8

// GenerateSRT renders word timings as SubRip subtitles, one cue per
// wordsPerCue words. A non-positive wordsPerCue falls back to the
// default. No words yields an empty string.
func GenerateSRT(words []stt.Word, wordsPerCue int) string {
	if len(words) == 0 {
		return ""
	}
	if wordsPerCue <= 0 {
		wordsPerCue = DefaultWordsPerCue
	}

	var b strings.Builder
	cue := 1
	for i := 0; i < len(words); i += wordsPerCue {
		end := i + wordsPerCue
		if end > len(words) {
			end = len(words)
		}
		chunk := words[i:end]

		texts := make([]string, len(chunk))
		for j, w := range chunk {
			texts[j] = w.Word
		}

		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			cue,
			srtTimestamp(chunk[0].Start),
			srtTimestamp(chunk[len(chunk)-1].End),
			strings.Join(texts, " "))
		cue++
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds * 1000)
	h := ms / 3_600_000
	m := ms % 3_600_000 / 60_000
	s := ms % 60_000 / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
