// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.seeker/config.yaml)
//  3. Default values
//
// Sensitive data (API keys) is never logged; String and MarshalJSON
// mask it explicitly.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors, checkable with errors.Is().
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the model provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidSearchProvider indicates the search backend is not
	// supported.
	ErrInvalidSearchProvider = errors.New("invalid search provider")

	// ErrInvalidMaxResults indicates max_results is out of range.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidMaxTurns indicates max_turns is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidTimeout indicates a timeout value is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidWorkflowRetention indicates workflow_retention is out
	// of range.
	ErrInvalidWorkflowRetention = errors.New("invalid workflow retention")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")
)

// Model provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
	ProviderGoogleAI = "googleai"
)

// Search backend identifiers used in Config.SearchProvider.
const (
	SearchProviderTavily     = "tavily"
	SearchProviderDuckDuckGo = "duckduckgo"
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON; update it when
// adding new secrets.
type Config struct {
	// Model provider configuration
	Provider  string `mapstructure:"provider" json:"provider"`     // "gemini" (default), "openai", "ollama"
	ModelName string `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash", "gpt-4o", "llama3.3"
	Language  string `mapstructure:"language" json:"language"`
	MaxTurns  int    `mapstructure:"max_turns" json:"max_turns"`

	// OpenAI-compatible endpoint override (only used when provider is "openai")
	OpenAIBaseURL string `mapstructure:"openai_base_url" json:"openai_base_url"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Search configuration
	SearchProvider string `mapstructure:"search_provider" json:"search_provider"` // "tavily" (default), "duckduckgo"
	TavilyAPIKey   string `mapstructure:"tavily_api_key" json:"tavily_api_key"`   // SENSITIVE: masked in MarshalJSON
	SearchDepth    string `mapstructure:"search_depth" json:"search_depth"`       // "basic" or "advanced" (Tavily only)
	MaxResults     int    `mapstructure:"max_results" json:"max_results"`
	IncludeSummary bool   `mapstructure:"include_summary" json:"include_summary"`

	// Session configuration
	SessionIdleTimeout   time.Duration `mapstructure:"session_idle_timeout" json:"session_idle_timeout"`
	SessionSweepInterval time.Duration `mapstructure:"session_sweep_interval" json:"session_sweep_interval"`

	// How many terminal workflow runs stay queryable before the
	// oldest are collected
	WorkflowRetention int `mapstructure:"workflow_retention" json:"workflow_retention"`

	// Per-call timeout applied to provider requests
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`

	Debug bool `mapstructure:"debug" json:"debug"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".seeker")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("language", "auto")
	viper.SetDefault("max_turns", 5)

	viper.SetDefault("ollama_host", "http://localhost:11434")

	viper.SetDefault("search_provider", SearchProviderTavily)
	viper.SetDefault("search_depth", "basic")
	viper.SetDefault("max_results", 5)
	viper.SetDefault("include_summary", true)

	viper.SetDefault("session_idle_timeout", 2*time.Hour)
	viper.SetDefault("session_sweep_interval", 5*time.Minute)
	viper.SetDefault("workflow_retention", 64)
	viper.SetDefault("request_timeout", 30*time.Second)

	viper.SetDefault("debug", false)
}

// bindEnvVariables binds environment overrides explicitly.
//
// GEMINI_API_KEY and OPENAI_API_KEY are read directly by the Genkit
// plugins, not via Viper; Validate checks their presence based on the
// selected provider.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a failure here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("tavily_api_key", "TAVILY_API_KEY")
	mustBind("openai_base_url", "OPENAI_BASE_URL")

	mustBind("provider", "SEEKER_PROVIDER")
	mustBind("model_name", "SEEKER_MODEL_NAME")
	mustBind("search_provider", "SEEKER_SEARCH_PROVIDER")
	mustBind("ollama_host", "SEEKER_OLLAMA_HOST")
	mustBind("debug", "SEEKER_DEBUG")
}

// Validate validates configuration values.
// Returns sentinel errors checkable with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required", ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
		}
	default:
		return fmt.Errorf("%w: %q (supported: gemini, openai, ollama)", ErrInvalidProvider, c.Provider)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	switch c.SearchProvider {
	case SearchProviderTavily:
		if c.TavilyAPIKey == "" {
			return fmt.Errorf("%w: TAVILY_API_KEY environment variable is required for the tavily search provider",
				ErrMissingAPIKey)
		}
	case SearchProviderDuckDuckGo:
		// No key required.
	default:
		return fmt.Errorf("%w: %q (supported: tavily, duckduckgo)", ErrInvalidSearchProvider, c.SearchProvider)
	}

	if c.MaxResults < 1 || c.MaxResults > 20 {
		return fmt.Errorf("%w: must be between 1 and 20, got %d", ErrInvalidMaxResults, c.MaxResults)
	}

	if c.MaxTurns < 1 || c.MaxTurns > 25 {
		return fmt.Errorf("%w: must be between 1 and 25, got %d", ErrInvalidMaxTurns, c.MaxTurns)
	}

	if c.RequestTimeout < 0 || c.SessionIdleTimeout < 0 || c.SessionSweepInterval < 0 {
		return fmt.Errorf("%w: timeouts must be non-negative", ErrInvalidTimeout)
	}

	if c.WorkflowRetention < 1 {
		return fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidWorkflowRetention, c.WorkflowRetention)
	}

	return nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "openai/gpt-4o",
// "ollama/llama3.3". A ModelName already containing "/" is returned
// as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}

const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked so the output never contains a usable substring.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.TavilyAPIKey = maskSecret(a.TavilyAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
