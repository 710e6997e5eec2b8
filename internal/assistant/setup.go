package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/openai/openai-go/option"

	"github.com/seekerhq/seeker/internal/config"
	"github.com/seekerhq/seeker/internal/log"
	"github.com/seekerhq/seeker/internal/search"
)

// provideGenkit initializes Genkit with the configured model provider.
// Supports gemini (default), openai and ollama.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama has no model auto-discovery.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		logger.Info("initialized genkit", "provider", cfg.Provider, "model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		plugin := &openai.OpenAI{}
		if cfg.OpenAIBaseURL != "" {
			plugin.Opts = append(plugin.Opts, option.WithBaseURL(cfg.OpenAIBaseURL))
		}
		g = genkit.Init(ctx, genkit.WithPlugins(plugin))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized genkit", "provider", cfg.Provider, "model", cfg.ModelName)

	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit", "provider", cfg.Provider, "model", cfg.ModelName)
	}

	return g, nil
}

// provideSearch builds the configured search backend wrapped with
// bounded retry.
func provideSearch(cfg *config.Config, logger log.Logger) (search.Provider, error) {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var p search.Provider
	switch cfg.SearchProvider {
	case config.SearchProviderDuckDuckGo:
		p = search.NewDuckDuckGoWithClient(client)
	case config.SearchProviderTavily:
		p = search.NewTavilyWithClient(cfg.TavilyAPIKey, cfg.SearchDepth, client)
	default:
		return nil, fmt.Errorf("unsupported search provider %q", cfg.SearchProvider)
	}

	logger.Debug("search provider ready", "provider", p.Name())
	return search.WithRetry(p, 3, 500*time.Millisecond), nil
}
