package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/seekerhq/seeker/internal/schema"
)

// TranslateInput is the argument payload for the translate tool.
type TranslateInput struct {
	Text           string `json:"text" jsonschema_description:"The text to translate"`
	TargetLanguage string `json:"target_language" jsonschema_description:"The language to translate into, e.g. \"French\" or \"zh-TW\""`
}

// Translate renders text into the target language via the configured
// model. When the Kit was built without a model the tool reports the
// missing capability as a failed result instead of guessing.
func (k *Kit) Translate(ctx context.Context, in TranslateInput) schema.ToolResult {
	input := map[string]any{
		"text":            in.Text,
		"target_language": in.TargetLanguage,
	}
	return run(toolTranslate, input, func() (map[string]any, error) {
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return nil, fmt.Errorf("text must not be empty")
		}
		target := strings.TrimSpace(in.TargetLanguage)
		if target == "" {
			return nil, fmt.Errorf("target language must not be empty")
		}
		if k.g == nil || k.model == "" {
			return nil, fmt.Errorf("translation model not configured")
		}

		resp, err := genkit.Generate(ctx, k.g,
			ai.WithModelName(k.model),
			ai.WithSystem("You are a professional translator. Reply with the translation only, no commentary."),
			ai.WithPrompt("Translate the following text into %s:\n\n%s", target, text),
		)
		if err != nil {
			return nil, fmt.Errorf("translation failed: %w", err)
		}

		return map[string]any{
			"translated_text": strings.TrimSpace(resp.Text()),
			"target_language": target,
		}, nil
	})
}
