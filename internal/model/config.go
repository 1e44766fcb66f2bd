package model

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete bookgraph configuration
type Config struct {
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Source       SourceConfig       `yaml:"source" mapstructure:"source"`
	Analysis     AnalysisConfig     `yaml:"analysis" mapstructure:"analysis"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	BasePath        string        `yaml:"base_path" mapstructure:"base_path"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `yaml:"allow_origins" mapstructure:"allow_origins"`
}

// SourceConfig configures where book text comes from
type SourceConfig struct {
	ContentURL    string        `yaml:"content_url" mapstructure:"content_url"`   // {id} is replaced with the book id
	MetadataURL   string        `yaml:"metadata_url" mapstructure:"metadata_url"` // {id} is replaced with the book id
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// AnalysisConfig controls chunking
type AnalysisConfig struct {
	MaxChars  int `yaml:"max_chars" mapstructure:"max_chars"`
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size"`
}

// LLMConfig configures the chunk extraction model
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // groq, openai, anthropic, ollama
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// CacheConfig configures the response cache
type CacheConfig struct {
	Backend         string        `yaml:"backend" mapstructure:"backend"` // memory, disk, layered, redis, none
	Dir             string        `yaml:"dir" mapstructure:"dir"`
	BookTTL         time.Duration `yaml:"book_ttl" mapstructure:"book_ttl"`
	AnalysisTTL     time.Duration `yaml:"analysis_ttl" mapstructure:"analysis_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	RedisAddr       string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB         int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// RateLimitingConfig throttles outbound calls per host. Zero disables limiting.
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5001",
			BasePath:        "/api",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute, // analysis runs one model call per chunk
			ShutdownTimeout: 10 * time.Second,
			AllowOrigins:    []string{"*"},
		},
		Source: SourceConfig{
			ContentURL:   "https://www.gutenberg.org/files/{id}/{id}-0.txt",
			MetadataURL:  "https://www.gutenberg.org/ebooks/{id}",
			Timeout:      30 * time.Second,
			UserAgent:    "bookgraph/0.1 (+https://github.com/ppiankov/bookgraph)",
			MaxBodyBytes: 20_000_000,
		},
		Analysis: AnalysisConfig{
			MaxChars:  20000,
			ChunkSize: 2000,
		},
		LLM: LLMConfig{
			Provider:    "groq",
			Model:       "", // provider default
			Timeout:     60,
			MaxTokens:   2000,
			Temperature: 0.1,
		},
		Cache: CacheConfig{
			Backend:         "memory",
			Dir:             ".bookgraph-cache",
			BookTTL:         time.Hour,
			AnalysisTTL:     24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
			RedisAddr:       "localhost:6379",
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 0,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for values that cannot work
func (c *Config) Validate() error {
	if c.Analysis.ChunkSize <= 0 {
		return fmt.Errorf("analysis.chunk_size must be positive, got %d", c.Analysis.ChunkSize)
	}
	if !strings.Contains(c.Source.ContentURL, "{id}") {
		return fmt.Errorf("source.content_url must contain {id}: %q", c.Source.ContentURL)
	}
	switch c.Cache.Backend {
	case "memory", "disk", "layered", "redis", "none", "":
	default:
		return fmt.Errorf("unknown cache backend: %s (supported: memory, disk, layered, redis, none)", c.Cache.Backend)
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with /: %q", c.Server.BasePath)
	}
	return nil
}
