// Package translate turns long transcripts into a target language by
// chunking them through an external completion model.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// defaultChunkSize is the character budget per translation request.
const defaultChunkSize = 8000

// Model is the external translation capability: a deterministic single-turn
// completion.
type Model interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// preamblePhrases are known conversational fillers the model may emit despite
// being told not to. They are stripped from the head of each chunk result.
var preamblePhrases = []string{
	"Here is the translation:",
	"Here is the translated text:",
	"Here's the translation:",
	"Here's the translated text:",
	"Sure, here is the translation:",
	"The translation is:",
	"Translated text:",
}

type Service struct {
	model     Model
	chunkSize int
}

func NewService(model Model) *Service {
	return &Service{
		model:     model,
		chunkSize: defaultChunkSize,
	}
}

// Translate converts text to the target language. Chunks are translated
// sequentially; a failed chunk is logged and dropped from the assembly. Only
// when every chunk fails does Translate report absence (ok == false).
func (s *Service) Translate(ctx context.Context, text, targetLanguage string) (string, bool) {
	const op = "TranslateService.Translate"
	if targetLanguage == "" {
		targetLanguage = "English"
	}

	chunks := splitChunks(text, s.chunkSize)
	logger := logrus.WithFields(logrus.Fields{
		"operation": op,
		"target":    targetLanguage,
		"chunks":    len(chunks),
	})

	systemPrompt := fmt.Sprintf(
		"You are a translation engine. Translate the user's text into %s. "+
			"Return only the translated text, formatted into paragraphs. "+
			"Do not add any preamble, commentary, or quotation marks.",
		targetLanguage,
	)

	translated := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		result, err := s.model.Complete(ctx, systemPrompt, chunk)
		if err != nil {
			logger.WithError(err).WithField("chunk", i).Warn("Chunk translation failed, dropping chunk")
			continue
		}
		translated = append(translated, stripPreamble(result))
	}

	if len(translated) == 0 {
		logger.Error("All chunks failed, translation unavailable")
		return "", false
	}

	return join(translated), true
}

// TranslateTitle translates a title as a single chunk.
func (s *Service) TranslateTitle(ctx context.Context, title, targetLanguage string) (string, bool) {
	if targetLanguage == "" {
		targetLanguage = "English"
	}
	systemPrompt := fmt.Sprintf(
		"Translate the user's video title into %s. Return only the translated title.",
		targetLanguage,
	)
	result, err := s.model.Complete(ctx, systemPrompt, title)
	if err != nil {
		logrus.WithError(err).Warn("Title translation failed")
		return "", false
	}
	return strings.TrimSpace(stripPreamble(result)), true
}

// splitChunks bounds chunks by limit characters, breaking at sentence
// boundaries. A single sentence longer than the budget becomes its own chunk
// whole; it is never split further.
func splitChunks(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	sentences := strings.SplitAfter(text, ".")
	var chunks []string
	var current strings.Builder

	for _, sentence := range sentences {
		if sentence == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(sentence) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func stripPreamble(s string) string {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	for _, phrase := range preamblePhrases {
		if strings.HasPrefix(lower, strings.ToLower(phrase)) {
			return strings.TrimSpace(trimmed[len(phrase):])
		}
	}
	return trimmed
}

// join reassembles chunks with blank-line separation, reducing the separator
// when a chunk already carries its own line break so blank lines never double
// up.
func join(chunks []string) string {
	var out strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			if strings.HasSuffix(chunks[i-1], "\n") || strings.HasPrefix(chunk, "\n") {
				out.WriteString("\n")
			} else {
				out.WriteString("\n\n")
			}
		}
		out.WriteString(chunk)
	}
	return out.String()
}
