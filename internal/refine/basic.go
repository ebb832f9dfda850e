package refine

import (
	"regexp"
	"strings"

	"github.com/legadoives/transcritor/internal/media"
)

var (
	multiSpace    = regexp.MustCompile(`\s+`)
	sentenceBreak = regexp.MustCompile(`([.?])\s+`)
)

// BasicFormat produces a readable document without the LLM: the
// standard header plus one paragraph per sentence. Used when no
// refinement backend is configured at all.
func BasicFormat(rawTranscript string, meta media.Metadata) string {
	var b strings.Builder
	b.WriteString(headerRule)
	b.WriteByte('\n')
	b.WriteString(strings.ToUpper(cleanTitle(meta.Title)))
	b.WriteByte('\n')
	if meta.Date != "" {
		b.WriteString(meta.Date)
	} else {
		b.WriteString("Data não especificada")
	}
	b.WriteByte('\n')
	if meta.Guest != "" {
		b.WriteString("Convidado: " + meta.Guest + "\n")
	}
	b.WriteString(headerRule)
	b.WriteString("\n\n")

	body := multiSpace.ReplaceAllString(rawTranscript, " ")
	body = sentenceBreak.ReplaceAllString(body, "$1\n\n")
	b.WriteString(strings.TrimSpace(body))

	return b.String()
}
