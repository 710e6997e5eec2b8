// Package agent implements the conversational search agent. It binds a
// system prompt, the tool kit and per-conversation history to a hosted
// model, with retry, rate limiting and a circuit breaker around every
// model call.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/seekerhq/seeker/internal/log"
	"github.com/seekerhq/seeker/internal/schema"
	"github.com/seekerhq/seeker/internal/search"
	"github.com/seekerhq/seeker/internal/session"
	"github.com/seekerhq/seeker/internal/tools"
)

const (
	// FallbackResponse is returned when the model produces neither
	// text nor tool requests.
	FallbackResponse = "I couldn't generate a response. Please try rephrasing your question."

	systemPrompt = "You are a helpful search assistant. Use the available tools to " +
		"find current, factual information before answering. Cite the sources you " +
		"used by title. Answer in %s."
)

// ErrNoModel is returned by Chat and Ask synthesis when the agent was
// built without a model backend.
var ErrNoModel = errors.New("no model configured")

// StreamCallback receives each partial model response chunk as it is
// generated. Returning an error aborts the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// generateFunc is the model call seam. Production agents close over
// genkit.Generate; tests substitute a fake. The stream callback is
// passed separately so the implementation decides how to attach it.
type generateFunc func(ctx context.Context, opts []ai.GenerateOption, cb ai.ModelStreamCallback) (*ai.ModelResponse, error)

// Config carries the agent dependencies.
type Config struct {
	Genkit   *genkit.Genkit
	Model    string
	Sessions *session.Store
	Kit      *tools.Kit
	Tools    []ai.ToolRef
	Logger   log.Logger

	MaxTurns int    // agentic loop limit, default 5
	Language string // response language, "" or "auto" detects from input

	RetryConfig          RetryConfig
	CircuitBreakerConfig CircuitBreakerConfig
	RateLimiter          *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Kit == nil {
		return errors.New("tool kit is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Agent is the conversational search agent. All configuration is
// captured at construction, so a single Agent is safe for concurrent
// use across conversations.
type Agent struct {
	languagePrompt string
	maxTurns       int
	model          string

	retryConfig    RetryConfig
	circuitBreaker *CircuitBreaker
	rateLimiter    *rate.Limiter

	g        *genkit.Genkit
	generate generateFunc
	sessions *session.Store
	kit      *tools.Kit
	toolRefs []ai.ToolRef
	logger   log.Logger
}

// New builds an Agent. A nil Genkit instance is allowed: search still
// works through the provider, and model-backed operations report
// ErrNoModel.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}

	languagePrompt := cfg.Language
	if languagePrompt == "" || languagePrompt == "auto" {
		languagePrompt = "the same language as the user's input"
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	cbConfig := cfg.CircuitBreakerConfig
	if cbConfig.FailureThreshold == 0 {
		cbConfig = DefaultCircuitBreakerConfig()
	}

	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	a := &Agent{
		languagePrompt: languagePrompt,
		maxTurns:       maxTurns,
		model:          cfg.Model,
		retryConfig:    retryConfig,
		circuitBreaker: NewCircuitBreaker(cbConfig),
		rateLimiter:    rl,
		g:              cfg.Genkit,
		sessions:       cfg.Sessions,
		kit:            cfg.Kit,
		toolRefs:       cfg.Tools,
		logger:         cfg.Logger,
	}

	if a.g != nil && a.model != "" {
		a.generate = func(ctx context.Context, opts []ai.GenerateOption, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
			if cb != nil {
				opts = append(opts, ai.WithStreaming(cb))
			}
			return genkit.Generate(ctx, a.g, opts...)
		}
	}

	a.logger.Info("agent initialized",
		"model", cfg.Model,
		"tools", len(a.toolRefs),
		"max_turns", a.maxTurns,
	)

	return a, nil
}

// Ask answers a single query with no conversation state. The search
// itself always runs; model synthesis of the main content degrades
// gracefully to the extractive summary when no model is available or
// the model call fails. When cfg.TargetLanguage names a language, the
// main content is translated into it, again degrading to the original
// text on failure.
func (a *Agent) Ask(ctx context.Context, query string, cfg schema.SearchConfig) (schema.SearchResults, error) {
	if err := cfg.Validate(); err != nil {
		return schema.SearchResults{}, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	tr := a.kit.SmartSearch(ctx, tools.SmartSearchInput{
		Query:      query,
		SearchType: string(cfg.Type),
		MaxResults: cfg.MaxResults,
	})
	if !tr.Success {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return schema.SearchResults{}, fmt.Errorf("search %q: %w", query, search.ErrTimeout)
		}
		return schema.SearchResults{}, fmt.Errorf("search %q: %w: %s", query, search.ErrProvider, tr.Error)
	}

	out := schema.SearchResults{
		MainContent: toString(tr.OutputData["main_content"]),
	}
	if results, ok := tr.OutputData["results"].([]schema.SearchResult); ok {
		out.Results = results
	}

	if cfg.IncludeSummary && len(out.Results) > 0 && a.generate != nil {
		if synthesis, err := a.synthesize(ctx, query, out.Results); err != nil {
			a.logger.Warn("synthesis failed, keeping extractive content", "error", err)
		} else if synthesis != "" {
			out.MainContent = synthesis
		}
	}

	lang := strings.TrimSpace(cfg.TargetLanguage)
	if lang != "" && !strings.EqualFold(lang, "auto") && out.MainContent != "" && a.generate != nil {
		if translated, err := a.translate(ctx, out.MainContent, lang); err != nil {
			a.logger.Warn("translation failed, keeping original content", "error", err)
		} else if translated != "" {
			out.MainContent = translated
		}
	}

	return out, nil
}

// synthesize asks the model to write the main content from the raw
// search results.
func (a *Agent) synthesize(ctx context.Context, query string, results []schema.SearchResult) (string, error) {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, r.Title, r.URL, r.Snippet)
	}

	resp, err := a.guardedGenerate(ctx, []ai.GenerateOption{
		ai.WithModelName(a.model),
		ai.WithSystem("You synthesize web search results into a concise, factual answer. Cite sources as [n]. Answer in %s.", a.languagePrompt),
		ai.WithPrompt("Question: %s\n\nSearch results:\n%s", query, b.String()),
	}, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// translate rewrites text into the requested language. Citation
// markers and proper nouns are kept intact.
func (a *Agent) translate(ctx context.Context, text, language string) (string, error) {
	resp, err := a.guardedGenerate(ctx, []ai.GenerateOption{
		ai.WithModelName(a.model),
		ai.WithSystem("You are a precise translator. Translate faithfully, keeping names, numbers and citation markers like [1] unchanged. Output only the translation."),
		ai.WithPrompt("Translate the following text into %s:\n\n%s", language, text),
	}, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// StartConversation allocates a new conversation with empty history.
func (a *Agent) StartConversation(userID string) uuid.UUID {
	return a.sessions.Start(userID)
}

// EndConversation removes a conversation. Ending an unknown id returns
// session.ErrNotFound.
func (a *Agent) EndConversation(id uuid.UUID) error {
	return a.sessions.End(id)
}

// Chat appends the user message to the conversation, runs the model
// with full history and the tool set, appends the reply and returns it.
// Unknown conversation ids fail with session.ErrNotFound.
func (a *Agent) Chat(ctx context.Context, id uuid.UUID, message string) (string, error) {
	return a.ChatStream(ctx, id, message, nil)
}

// ChatStream is Chat with incremental delivery. The callback observes
// each chunk; the accumulated text is appended to history exactly once,
// after the stream is exhausted. An aborted or failed stream leaves
// history unmodified.
func (a *Agent) ChatStream(ctx context.Context, id uuid.UUID, message string, callback StreamCallback) (string, error) {
	history, err := a.sessions.History(id)
	if err != nil {
		return "", fmt.Errorf("conversation %s: %w", id, err)
	}

	resp, err := a.generateResponse(ctx, message, history, callback)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" && len(resp.ToolRequests()) == 0 {
		a.logger.Warn("model returned empty response", "conversation_id", id)
		text = FallbackResponse
	}

	if err := a.sessions.AppendTurn(id, message, text); err != nil {
		// The conversation may have been ended while the model ran.
		a.logger.Error("failed to append turn", "conversation_id", id, "error", err)
	}

	return text, nil
}

func (a *Agent) generateResponse(ctx context.Context, input string, history []*ai.Message, callback StreamCallback) (*ai.ModelResponse, error) {
	if a.generate == nil {
		return nil, ErrNoModel
	}

	messages := deepCopyMessages(history)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(input)))

	opts := []ai.GenerateOption{
		ai.WithModelName(a.model),
		ai.WithSystem(systemPrompt, a.languagePrompt),
		ai.WithMessages(messages...),
		ai.WithMaxTurns(a.maxTurns),
	}
	if len(a.toolRefs) > 0 {
		opts = append(opts, ai.WithTools(a.toolRefs...))
	}

	return a.guardedGenerate(ctx, opts, ai.ModelStreamCallback(callback))
}

// guardedGenerate wraps the retrying model call with the circuit
// breaker.
func (a *Agent) guardedGenerate(ctx context.Context, opts []ai.GenerateOption, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	if a.generate == nil {
		return nil, ErrNoModel
	}

	if err := a.circuitBreaker.Allow(); err != nil {
		a.logger.Warn("rejecting model call", "state", a.circuitBreaker.State().String())
		return nil, fmt.Errorf("service unavailable: %w", err)
	}

	resp, err := a.generateWithRetry(ctx, opts, cb)
	if err != nil {
		a.circuitBreaker.Failure()
		return nil, err
	}

	a.circuitBreaker.Success()
	return resp, nil
}

// deepCopyMessages copies messages and their parts. Genkit renders
// message content in place, so shared history must not be handed to
// concurrent generate calls directly.
func deepCopyMessages(msgs []*ai.Message) []*ai.Message {
	if msgs == nil {
		return nil
	}
	copied := make([]*ai.Message, len(msgs))
	for i, msg := range msgs {
		parts := make([]*ai.Part, len(msg.Content))
		for j, part := range msg.Content {
			parts[j] = deepCopyPart(part)
		}
		copied[i] = &ai.Message{
			Role:     msg.Role,
			Content:  parts,
			Metadata: shallowCopyMap(msg.Metadata),
		}
	}
	return copied
}

// deepCopyPart copies a part. ToolRequest.Input and ToolResponse.Output
// stay shared: generation never mutates tool payloads, only the content
// slice.
func deepCopyPart(p *ai.Part) *ai.Part {
	if p == nil {
		return nil
	}
	cp := &ai.Part{
		Kind:        p.Kind,
		ContentType: p.ContentType,
		Text:        p.Text,
		Custom:      shallowCopyMap(p.Custom),
		Metadata:    shallowCopyMap(p.Metadata),
	}
	if p.ToolRequest != nil {
		cp.ToolRequest = &ai.ToolRequest{
			Input: p.ToolRequest.Input,
			Name:  p.ToolRequest.Name,
			Ref:   p.ToolRequest.Ref,
		}
	}
	if p.ToolResponse != nil {
		cp.ToolResponse = &ai.ToolResponse{
			Name:   p.ToolResponse.Name,
			Output: p.ToolResponse.Output,
			Ref:    p.ToolResponse.Ref,
		}
	}
	return cp
}

func shallowCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}
