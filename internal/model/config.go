package model

import "time"

// Config holds the complete client configuration.
// Hierarchy: CLI flags > VERIHUB_* env vars > ~/.verihub/config.yaml > defaults.
type Config struct {
	Service      ServiceConfig      `yaml:"service" json:"service"`
	Cache        CacheConfig        `yaml:"cache" json:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" json:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" json:"concurrency"`
	Output       OutputConfig       `yaml:"output" json:"output"`
	LLM          LLMConfig          `yaml:"llm" json:"llm"`
}

// ServiceConfig configures the connection to the verification service.
type ServiceConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	Streaming   bool          `yaml:"streaming" json:"streaming"`         // Prefer the incremental streaming endpoint
	InsecureTLS bool          `yaml:"insecure_tls" json:"insecure_tls"`   // Skip certificate verification
	HTTPProxy   string        `yaml:"http_proxy" json:"http_proxy"`       // Overrides HTTP_PROXY
	HTTPSProxy  string        `yaml:"https_proxy" json:"https_proxy"`     // Overrides HTTPS_PROXY
	NoProxy     string        `yaml:"no_proxy" json:"no_proxy"`           // Comma-separated proxy bypass list
	MaxBodyMB   int64         `yaml:"max_body_mb" json:"max_body_mb"`     // Cap on non-streaming response bodies
}

// CacheConfig configures result caching for the non-streaming path.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Dir       string        `yaml:"dir" json:"dir"` // Defaults to ~/.verihub/cache
	MemoryTTL time.Duration `yaml:"memory_ttl" json:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" json:"disk_ttl"`
}

// RateLimitingConfig throttles batch submissions to the service.
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" json:"burst_size"`
}

// ConcurrencyConfig controls batch worker counts.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" json:"workers"`
}

// OutputConfig controls rendering behavior.
type OutputConfig struct {
	Verbose bool   `yaml:"verbose" json:"verbose"`
	Format  string `yaml:"format" json:"format"` // "text", "json", or "yaml"
}

// LLMConfig configures the optional local verdict explainer.
// The explanation is advisory only and never affects the recorded result.
type LLMConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Model     string `yaml:"model" json:"model"`
	APIKey    string `yaml:"-" json:"-"` // From OPENAI_API_KEY, never persisted
	BaseURL   string `yaml:"base_url" json:"base_url"`
	MaxTokens int    `yaml:"max_tokens" json:"max_tokens"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:   "http://localhost:8000",
			Timeout:   2 * time.Minute,
			UserAgent: "verihub-cli/0.1 (+https://github.com/verihub/verihub-cli)",
			Streaming: true,
			MaxBodyMB: 8,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Output: OutputConfig{
			Format: "text",
		},
		LLM: LLMConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 300,
		},
	}
}
