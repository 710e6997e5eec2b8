package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/seekerhq/seeker/internal/schema"
)

// SummarizeInput is the argument payload for the summarize tool.
type SummarizeInput struct {
	Text         string `json:"text" jsonschema_description:"The text to summarize"`
	MaxSentences int    `json:"max_sentences,omitempty" jsonschema_description:"Maximum number of sentences in the summary"`
}

const defaultSummarySentences = 3

// Summarize produces an extractive summary: the leading sentences carry
// most of the signal in search snippets and articles alike, so the
// summary keeps the first sentences and the closing one.
func (k *Kit) Summarize(_ context.Context, in SummarizeInput) schema.ToolResult {
	input := map[string]any{
		"text":          in.Text,
		"max_sentences": in.MaxSentences,
	}
	return run(toolSummarize, input, func() (map[string]any, error) {
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return nil, fmt.Errorf("text must not be empty")
		}

		max := in.MaxSentences
		if max <= 0 {
			max = defaultSummarySentences
		}

		sentences := splitSentences(text)
		summary := extract(sentences, max)

		return map[string]any{
			"summary":        summary,
			"sentence_count": len(sentences),
			"original_chars": len(text),
			"summary_chars":  len(summary),
		}, nil
	})
}

// splitSentences is a deliberately simple splitter. It breaks on
// terminal punctuation followed by whitespace and keeps the punctuation
// with the sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			atEnd := i == len(runes)-1
			if atEnd || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				s := strings.TrimSpace(b.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				b.Reset()
			}
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// extract keeps the first max-1 sentences plus the final one. Short
// inputs come back unchanged.
func extract(sentences []string, max int) string {
	if len(sentences) <= max {
		return strings.Join(sentences, " ")
	}
	picked := make([]string, 0, max)
	picked = append(picked, sentences[:max-1]...)
	picked = append(picked, sentences[len(sentences)-1])
	return strings.Join(picked, " ")
}
