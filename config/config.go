// Package config loads researchmesh configuration from a YAML file and
// RESEARCHMESH_* environment variables using viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hupe1980/researchmesh/logging"
)

// EnvPrefix prefixes every environment override, e.g.
// RESEARCHMESH_RESEARCH_MAX_CONCURRENCY=5.
const EnvPrefix = "RESEARCHMESH"

// Supported providers and backends.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"

	SearchTavily = "tavily"
	SearchNone   = "none"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config is the root configuration.
type Config struct {
	Model     ModelConfig     `mapstructure:"model"`
	Research  ResearchConfig  `mapstructure:"research"`
	Search    SearchConfig    `mapstructure:"search"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Session   SessionConfig   `mapstructure:"session"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// ModelConfig selects the language model.
type ModelConfig struct {
	Provider    string  `mapstructure:"provider"`
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	// RateLimit caps model calls per second; 0 disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

// ResearchConfig tunes the supervisor and researchers.
type ResearchConfig struct {
	MaxIterations         int  `mapstructure:"max_iterations"`
	MaxConcurrency        int  `mapstructure:"max_concurrency"`
	IsolateFailures       bool `mapstructure:"isolate_failures"`
	MaxToolCallIterations int  `mapstructure:"max_tool_call_iterations"`
	MaxParallelTools      int  `mapstructure:"max_parallel_tools"`
}

// SearchConfig configures the web search tool.
type SearchConfig struct {
	Provider   string        `mapstructure:"provider"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	MaxResults int           `mapstructure:"max_results"`
	Topic      string        `mapstructure:"topic"`
	Days       int           `mapstructure:"days"`
	Summarize  bool          `mapstructure:"summarize"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DocumentsConfig configures the local document index. The retrieval tool is
// only offered when Paths is not empty.
type DocumentsConfig struct {
	Paths        []string `mapstructure:"paths"`
	ChunkSize    int      `mapstructure:"chunk_size"`
	ChunkOverlap int      `mapstructure:"chunk_overlap"`
	K            int      `mapstructure:"k"`
}

// SessionConfig selects the transcript store.
type SessionConfig struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the Redis session store.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default so that environment
// overrides apply even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model.provider", ProviderOpenAI)
	v.SetDefault("model.name", "")
	v.SetDefault("model.temperature", 0.0)
	v.SetDefault("model.max_tokens", 0)
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.rate_limit", 0.0)
	v.SetDefault("model.burst", 1)

	v.SetDefault("research.max_iterations", 6)
	v.SetDefault("research.max_concurrency", 3)
	v.SetDefault("research.isolate_failures", false)
	v.SetDefault("research.max_tool_call_iterations", 0)
	v.SetDefault("research.max_parallel_tools", 1)

	v.SetDefault("search.provider", SearchTavily)
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.base_url", "")
	v.SetDefault("search.max_results", 3)
	v.SetDefault("search.topic", "general")
	v.SetDefault("search.days", 365)
	v.SetDefault("search.summarize", true)
	v.SetDefault("search.timeout", 60*time.Second)

	v.SetDefault("documents.paths", []string{})
	v.SetDefault("documents.chunk_size", 1000)
	v.SetDefault("documents.chunk_overlap", 200)
	v.SetDefault("documents.k", 4)

	v.SetDefault("session.backend", SessionMemory)
	v.SetDefault("session.redis.addr", "localhost:6379")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("session.redis.prefix", "researchmesh:session:")
	v.SetDefault("session.redis.ttl", time.Duration(0))

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads path (optional) and applies environment overrides. A missing
// path yields defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider conventions as fallbacks.
	_ = v.BindEnv("search.api_key", EnvPrefix+"_SEARCH_API_KEY", "TAVILY_API_KEY")

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("model.provider: unknown provider %q", c.Model.Provider))
	}

	if c.Model.RateLimit < 0 {
		errs = append(errs, errors.New("model.rate_limit: must not be negative"))
	}

	if c.Research.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("research.max_iterations: must be positive, got %d", c.Research.MaxIterations))
	}

	if c.Research.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("research.max_concurrency: must be positive, got %d", c.Research.MaxConcurrency))
	}

	if c.Research.MaxToolCallIterations < 0 {
		errs = append(errs, errors.New("research.max_tool_call_iterations: must not be negative"))
	}

	switch c.Search.Provider {
	case SearchTavily, SearchNone:
	default:
		errs = append(errs, fmt.Errorf("search.provider: unknown provider %q", c.Search.Provider))
	}

	if c.Search.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("search.max_results: must be positive, got %d", c.Search.MaxResults))
	}

	switch c.Search.Topic {
	case "general", "news", "finance":
	default:
		errs = append(errs, fmt.Errorf("search.topic: unknown topic %q", c.Search.Topic))
	}

	if c.Documents.ChunkOverlap >= c.Documents.ChunkSize {
		errs = append(errs, errors.New("documents.chunk_overlap: must be smaller than chunk_size"))
	}

	switch c.Session.Backend {
	case SessionMemory, SessionRedis:
	default:
		errs = append(errs, fmt.Errorf("session.backend: unknown backend %q", c.Session.Backend))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// LoggerConfig converts the log section. Validate must have passed.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultLoggerConfig()
	cfg.Level, _ = logging.ParseLevel(c.Log.Level)
	cfg.Format = c.Log.Format

	return cfg
}
