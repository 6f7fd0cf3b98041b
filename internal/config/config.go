// Package config loads and validates the mnemo configuration file.
package config

import "time"

// Config is the root configuration for mnemo.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Models    ModelsConfig    `yaml:"models"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Memory    MemoryConfig    `yaml:"memory"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Session   SessionConfig   `yaml:"session"`
	WebSearch WebSearchConfig `yaml:"websearch"`
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ModelsConfig holds model provider configuration.
type ModelsConfig struct {
	Default   string                    `yaml:"default"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Driver    string         `yaml:"driver"` // "openai", "ollama", "anthropic", "gemini"
	Model     string         `yaml:"model"`
	BaseURL   string         `yaml:"base_url,omitempty"`
	Auth      AuthConfig     `yaml:"auth"`
	MaxTokens int            `yaml:"max_tokens,omitempty"`
	Timeout   Duration       `yaml:"timeout,omitempty"`
	Options   map[string]any `yaml:"options,omitempty"`
}

// AuthConfig configures API key resolution.
type AuthConfig struct {
	APIKey string `yaml:"api_key,omitempty"` // Direct API key or ${VAR} reference
	Token  string `yaml:"token,omitempty"`   // OAuth/Bearer token
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Driver  string     `yaml:"driver"` // "openai", "ollama"
	Model   string     `yaml:"model"`
	BaseURL string     `yaml:"base_url,omitempty"`
	Dims    int        `yaml:"dims,omitempty"`
	Auth    AuthConfig `yaml:"auth"`
}

// MemoryConfig configures the long-term memory store.
type MemoryConfig struct {
	Dir            string `yaml:"dir,omitempty"`      // vector store directory (default: $MNEMO_PATH/memory)
	NeighborLimit  int    `yaml:"neighbor_limit"`     // nearest facts per candidate during reconciliation
	RetrievalLimit int    `yaml:"retrieval_limit"`    // facts injected into a chat request
	AuditDB        string `yaml:"audit_db,omitempty"` // sqlite audit log path (default: $MNEMO_PATH/audit.db)
}

// ScannerConfig configures the background channel scanner.
type ScannerConfig struct {
	Interval       Duration `yaml:"interval"`         // scan cycle period
	Lookback       Duration `yaml:"lookback"`         // history window per scan
	SeenClearEvery Duration `yaml:"seen_clear_every"` // seen-turn set reset period
	Sources        []string `yaml:"sources"`          // monitored source IDs
	CommandPrefix  string   `yaml:"command_prefix"`   // turns with this prefix are bot commands
}

// SessionConfig configures conversation sessions and the request loop.
type SessionConfig struct {
	HistoryLimit    int      `yaml:"history_limit"`    // rolling window cap
	IdleTimeout     Duration `yaml:"idle_timeout"`     // inactivity before history reset
	FollowUpTimeout Duration `yaml:"followup_timeout"` // wait for a reply to a follow-up question
	RequestBudget   int      `yaml:"request_budget"`   // model round-trips per user request
}

// WebSearchConfig configures the assistant's web search tool.
type WebSearchConfig struct {
	Driver       string   `yaml:"driver"` // "duckduckgo" (default), "bing", "google"
	MaxResults   int      `yaml:"max_results,omitempty"`
	Timeout      Duration `yaml:"timeout,omitempty"`
	BingAPIKey   string   `yaml:"bing_api_key,omitempty"`
	GoogleAPIKey string   `yaml:"google_api_key,omitempty"`
	GoogleCX     string   `yaml:"google_cx,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling of strings like "5m".
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}
