// Package refine turns raw transcripts into formatted interview
// documents. The primary path uses an LLM; when that is unavailable
// callers keep the raw transcript, and BasicFormat offers a local
// formatting fallback for display.
package refine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/legadoives/transcritor/internal/fault"
	"github.com/legadoives/transcritor/internal/media"
)

// maxTranscriptChars bounds the prompt size. Longer transcripts are
// truncated with a visible marker rather than rejected.
const maxTranscriptChars = 100_000

const headerRule = "═══════════════════════════════════════════════════════════════════════════════"

var mediaExtPattern = regexp.MustCompile(`(?i)\.(mp4|mp3|wav|m4a|webm|ogg|mov|avi|mkv)$`)

// Refiner rewrites interview transcripts through the Anthropic
// messages API: speaker separation, punctuation and legal-terminology
// fixes, and a standard document header.
type Refiner struct {
	client anthropic.Client
	model  anthropic.Model
}

// Config holds the refinement backend settings.
type Config struct {
	APIKey string
	Model  string // default: claude-sonnet-4-20250514
}

func New(cfg Config) *Refiner {
	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Refiner{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}
}

// cleanTitle strips media file extensions and separator characters so a
// filename can serve as a document title.
func cleanTitle(title string) string {
	t := mediaExtPattern.ReplaceAllString(title, "")
	t = strings.NewReplacer("-", " ", "_", " ").Replace(t)
	t = strings.TrimSpace(t)
	if t == "" {
		return "Transcrição"
	}
	return t
}

// speakerLabel derives the main interviewee tag from the guest name.
func speakerLabel(guest string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(guest), " ")
	if first == "" {
		return "ENTREVISTADO"
	}
	return strings.ToUpper(first)
}

func systemPrompt(speaker string) string {
	return fmt.Sprintf(`Você é um revisor profissional especializado em transcrições de entrevistas e palestras em português brasileiro. Sua tarefa é transformar transcrições brutas em documentos bem formatados e legíveis.

REGRAS OBRIGATÓRIAS:
1. SEMPRE comece com o cabeçalho formatado (linhas de ═)
2. SEMPRE identifique e separe os falantes usando colchetes: [APRESENTADOR], [%s], etc.
3. Corrija erros de português, pontuação e termos técnicos/jurídicos
4. Remova hesitações excessivas ("é...", "né", "então...", "aí...", repetições)
5. Mantenha o conteúdo original - apenas corrija e formate
6. Divida falas longas em parágrafos para melhor legibilidade
7. Se houver múltiplos falantes, identifique cada um de forma consistente

FORMATO OBRIGATÓRIO - Sua resposta deve seguir EXATAMENTE este formato:

%s
TÍTULO DA TRANSCRIÇÃO
Data (se disponível)
Convidado: Nome (se disponível)
%s

[APRESENTADOR/ENTREVISTADOR]
Texto da primeira fala aqui.

[NOME DO ENTREVISTADO]
Resposta do entrevistado aqui.

Continuação da fala em novo parágrafo se necessário.

[APRESENTADOR/ENTREVISTADOR]
Próxima pergunta ou intervenção.

... e assim por diante até o final da transcrição.

IMPORTANTE: Responda APENAS com a transcrição formatada. Não adicione explicações, comentários ou notas antes ou depois.`, speaker, headerRule, headerRule)
}

func userPrompt(transcript string, meta media.Metadata) string {
	date := meta.Date
	if date == "" {
		date = "Não especificada"
	}
	guest := meta.Guest
	if guest == "" {
		guest = "Não especificado"
	}
	return fmt.Sprintf(`Formate esta transcrição seguindo o padrão especificado:

METADADOS:
- Título: %s
- Data: %s
- Convidado: %s

TRANSCRIÇÃO BRUTA:
%s`, cleanTitle(meta.Title), date, guest, transcript)
}

// Refine rewrites rawTranscript into a formatted document. Upstream
// HTTP failures keep their own classification so rate limits and 5xx
// get retried; everything else is KindRefinementUnavailable. Either
// way the orchestrator treats a final refinement failure as non-fatal
// and keeps the raw transcript.
func (r *Refiner) Refine(ctx context.Context, rawTranscript string, meta media.Metadata) (string, error) {
	transcript := rawTranscript
	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars] + "\n\n[... transcrição truncada por exceder limite ...]"
	}

	resp, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: 16000,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(speakerLabel(meta.Guest))},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(transcript, meta))),
		},
	})
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	refined := strings.TrimSpace(text.String())
	if refined == "" {
		return "", fault.New(fault.KindRefinementUnavailable, "refine transcript", "response contains no text")
	}
	return refined, nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if classified := fault.FromStatus("refine transcript", apiErr.StatusCode, ""); classified != nil {
			return classified
		}
	}
	return fault.Wrap(fault.KindRefinementUnavailable, "refine transcript", err)
}
