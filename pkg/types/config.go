package types

import "time"

// Provider identifies the ranking service backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderReplay    Provider = "replay"
)

// RankingConfig holds settings for the ranking stage.
type RankingConfig struct {
	// Provider selects the ranking service: openai, anthropic, or replay.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier sent to the service (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Tier selects the pricing tier used for cost estimates ("mini" or
	// "standard"). Empty derives the tier from Model.
	Tier string `json:"tier,omitempty" yaml:"tier,omitempty" mapstructure:"tier"`

	// APIKey authenticates with the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (optional).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// ReplayFile is the recorded response envelope served by the replay provider.
	ReplayFile string `json:"replay_file,omitempty" yaml:"replay_file,omitempty" mapstructure:"replay_file"`

	// TopN is the default number of papers to return (default 5).
	TopN int `json:"top_n" yaml:"top_n" mapstructure:"top_n"`

	// Temperature is the sampling temperature (default 0).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens caps the response length (default 256).
	MaxTokens int64 `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout bounds a single service call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxAttempts is the number of calls made under rate limiting (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// BaseDelay is the first backoff wait; each later wait doubles (default 1s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`
}

// TierRate is the USD price per million tokens for one pricing tier.
type TierRate struct {
	Input  float64 `json:"input" yaml:"input" mapstructure:"input"`
	Output float64 `json:"output" yaml:"output" mapstructure:"output"`
}

// PricingConfig overrides the built-in tier rate table.
type PricingConfig struct {
	Tiers map[string]TierRate `json:"tiers" yaml:"tiers" mapstructure:"tiers"`
}

// OutputFormat selects the report format.
type OutputFormat string

const (
	OutputJSON     OutputFormat = "json"
	OutputMarkdown OutputFormat = "markdown"
	OutputYAML     OutputFormat = "yaml"
)

// OutputConfig holds settings for report generation.
type OutputConfig struct {
	// Dir is the directory reports are written to (default "output").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Format selects json, markdown, or yaml.
	Format OutputFormat `json:"format" yaml:"format" mapstructure:"format"`
}

// HistoryConfig holds settings for the run history database.
type HistoryConfig struct {
	// Path is the SQLite database file. Empty disables history.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// ServerConfig holds settings for the upload endpoint.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxUploadBytes caps the multipart body size.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`

	// RequestsPerMinute throttles uploads, each of which costs a ranking call.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`

	// AllowedOrigins lists CORS origins for the browser front end.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all settings for the pipeline.
type Config struct {
	Ranking RankingConfig `json:"ranking" yaml:"ranking" mapstructure:"ranking"`
	Pricing PricingConfig `json:"pricing" yaml:"pricing" mapstructure:"pricing"`
	Output  OutputConfig  `json:"output" yaml:"output" mapstructure:"output"`
	History HistoryConfig `json:"history" yaml:"history" mapstructure:"history"`
	Server  ServerConfig  `json:"server" yaml:"server" mapstructure:"server"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
}
