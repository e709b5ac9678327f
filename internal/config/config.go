// Package config provides configuration management for the research assistant service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/helixir/research-assistant/internal/domain"
)

// Store backends.
const (
	StoreBackendNeo4j    = "neo4j"
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Embedding providers.
const (
	EmbeddingProviderHuggingFace = "huggingface"
	EmbeddingProviderOllama      = "ollama"
	EmbeddingProviderOpenAI      = "openai"
	EmbeddingProviderHash        = "hash"
)

// Generation providers.
const (
	LLMProviderHuggingFace = "huggingface"
	LLMProviderOllama      = "ollama"
	LLMProviderOpenAI      = "openai"
	LLMProviderAnthropic   = "anthropic"
)

// envPrefix is prepended to every environment variable read by Load.
const envPrefix = "RESEARCH"

// Config holds all configuration for the research assistant service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// ArXiv contains catalog fetcher settings.
	ArXiv ArXivConfig `mapstructure:"arxiv"`
	// Store contains paper store settings.
	Store StoreConfig `mapstructure:"store"`
	// Embedding contains text embedder settings.
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	// LLM contains text generation settings.
	LLM LLMConfig `mapstructure:"llm"`
	// Ranking contains retrieval settings.
	Ranking RankingConfig `mapstructure:"ranking"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8000).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing a response. Generation can be slow,
	// so zero disables it.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RequestTimeout bounds a whole request. Zero leaves requests unbounded.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables the Prometheus metrics server.
	Enabled bool `mapstructure:"enabled"`
	// Port is the metrics server port.
	Port int `mapstructure:"port"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// ArXivConfig holds catalog fetcher configuration.
type ArXivConfig struct {
	// BaseURL is the API base URL; the fetcher appends /query.
	BaseURL string `mapstructure:"base_url"`
	// MaxResults is the page size requested from the catalog (1-50).
	MaxResults int `mapstructure:"max_results"`
	// Timeout is the HTTP timeout for one catalog request.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// Burst is the rate limiter burst size.
	Burst int `mapstructure:"burst"`
	// MaxRetries is the number of retries on 429/5xx. Zero disables retries.
	MaxRetries int `mapstructure:"max_retries"`
	// UserAgent is sent with every catalog request.
	UserAgent string `mapstructure:"user_agent"`
}

// StoreConfig holds paper store configuration.
type StoreConfig struct {
	// Backend selects the store implementation (neo4j, postgres, memory).
	Backend string `mapstructure:"backend"`
	// Database is the Neo4j database name. Empty selects the server default.
	Database string `mapstructure:"database"`
	// URI is the connection URI (loaded from RESEARCH_STORE_URI or NEO4J_URI).
	URI string `mapstructure:"-"`
	// Username is the store user (loaded from RESEARCH_STORE_USERNAME or NEO4J_USERNAME).
	Username string `mapstructure:"-"`
	// Password is the store password (loaded from RESEARCH_STORE_PASSWORD or NEO4J_PASSWORD).
	Password string `mapstructure:"-"`
	// Timeout bounds each store operation.
	Timeout time.Duration `mapstructure:"timeout"`
}

// RequiresCredentials reports whether the backend needs a URI, username and password.
func (c *StoreConfig) RequiresCredentials() bool {
	return c.Backend == StoreBackendNeo4j || c.Backend == StoreBackendPostgres
}

// EmbeddingConfig holds text embedder configuration.
type EmbeddingConfig struct {
	// Provider selects the embedder (huggingface, ollama, openai, or the offline hash).
	Provider string `mapstructure:"provider"`
	// Model is the embedding model name. Empty selects the provider default.
	Model string `mapstructure:"model"`
	// BaseURL is the embedding API base URL. Empty selects the provider default.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is the provider API key or Hugging Face token (loaded from RESEARCH_EMBEDDING_API_KEY).
	APIKey string `mapstructure:"-"`
	// Dimensions is the vector length produced by the model.
	Dimensions int `mapstructure:"dimensions"`
	// MaxTokens bounds the input length; longer text is truncated.
	MaxTokens int `mapstructure:"max_tokens"`
	// Timeout is the HTTP timeout for one embedding call.
	Timeout time.Duration `mapstructure:"timeout"`
	// CacheSize is the number of cached embeddings. Zero disables the cache.
	CacheSize int `mapstructure:"cache_size"`
}

// LLMConfig holds text generation configuration.
type LLMConfig struct {
	// Provider selects the generation backend (huggingface, ollama, openai, anthropic).
	Provider string `mapstructure:"provider"`
	// Model is the generation model name. Empty selects the provider default.
	Model string `mapstructure:"model"`
	// BaseURL is the provider API base URL. Empty selects the provider default.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is the provider API key (loaded from RESEARCH_LLM_API_KEY).
	APIKey string `mapstructure:"-"`
	// MaxInputTokens bounds the prompt length.
	MaxInputTokens int `mapstructure:"max_input_tokens"`
	// NumBeams is the beam width requested from providers that support beam search.
	NumBeams int `mapstructure:"num_beams"`
	// Timeout is the HTTP timeout for one generation call. Zero leaves it unbounded.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the number of retries on transient failures.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// RankingConfig holds retrieval configuration.
type RankingConfig struct {
	// TopK is the default number of papers returned per query.
	TopK int `mapstructure:"top_k"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *Config) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Metrics.Port)
}

// Load loads configuration from a .env file, environment variables and config files.
func Load() (*Config, error) {
	// A missing .env file is fine; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/research-assistant")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets are never read from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// The NEO4J_* names are accepted as fallbacks for the store credentials.
func loadSecrets(cfg *Config) {
	cfg.Store.URI = firstEnv(envPrefix+"_STORE_URI", "NEO4J_URI")
	cfg.Store.Username = firstEnv(envPrefix+"_STORE_USERNAME", "NEO4J_USERNAME")
	cfg.Store.Password = firstEnv(envPrefix+"_STORE_PASSWORD", "NEO4J_PASSWORD")

	cfg.Embedding.APIKey = os.Getenv(envPrefix + "_EMBEDDING_API_KEY")
	cfg.LLM.APIKey = os.Getenv(envPrefix + "_LLM_API_KEY")
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.request_timeout", "0s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "research_assistant")

	// arXiv defaults. The arXiv API terms ask for one request every three seconds.
	v.SetDefault("arxiv.base_url", "http://export.arxiv.org/api")
	v.SetDefault("arxiv.max_results", 50)
	v.SetDefault("arxiv.timeout", "30s")
	v.SetDefault("arxiv.rate_limit", 1.0/3.0)
	v.SetDefault("arxiv.burst", 1)
	v.SetDefault("arxiv.max_retries", 0)
	v.SetDefault("arxiv.user_agent", "research-assistant/1.0")

	// Store defaults. Credentials have no defaults (see loadSecrets).
	v.SetDefault("store.backend", StoreBackendNeo4j)
	v.SetDefault("store.database", "")
	v.SetDefault("store.timeout", "30s")

	// Embedding defaults
	v.SetDefault("embedding.provider", EmbeddingProviderHuggingFace)
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.max_tokens", 256)
	v.SetDefault("embedding.timeout", "30s")
	v.SetDefault("embedding.cache_size", 0)

	// LLM defaults
	v.SetDefault("llm.provider", LLMProviderHuggingFace)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_input_tokens", 512)
	v.SetDefault("llm.num_beams", 5)
	v.SetDefault("llm.timeout", "0s")
	v.SetDefault("llm.max_retries", 0)
	v.SetDefault("llm.retry_delay", "2s")

	// Ranking defaults
	v.SetDefault("ranking.top_k", 10)
}

// Validate validates the configuration. Every failure is a *domain.ConfigError.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return domain.NewConfigError("server.http_port", fmt.Sprintf("invalid port %d", c.Server.HTTPPort))
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return domain.NewConfigError("metrics.port", fmt.Sprintf("invalid port %d", c.Metrics.Port))
	}
	if c.Metrics.Enabled && c.Metrics.Port == c.Server.HTTPPort {
		return domain.NewConfigError("metrics.port", "must differ from server.http_port")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return domain.NewConfigError("logging.level", fmt.Sprintf("invalid log level %q", c.Logging.Level))
	}

	if c.ArXiv.MaxResults < 1 || c.ArXiv.MaxResults > 50 {
		return domain.NewConfigError("arxiv.max_results", "must be between 1 and 50")
	}
	if c.ArXiv.BaseURL == "" {
		return domain.NewConfigError("arxiv.base_url", "must be set")
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	switch c.Embedding.Provider {
	case EmbeddingProviderHuggingFace, EmbeddingProviderOllama, EmbeddingProviderHash:
	case EmbeddingProviderOpenAI:
		if c.Embedding.APIKey == "" {
			return domain.NewConfigError("embedding.api_key",
				fmt.Sprintf("embedding provider %q requires %s_EMBEDDING_API_KEY to be set", c.Embedding.Provider, envPrefix))
		}
	default:
		return domain.NewConfigError("embedding.provider", fmt.Sprintf("unsupported provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions <= 0 {
		return domain.NewConfigError("embedding.dimensions", "must be positive")
	}
	if c.Embedding.MaxTokens <= 0 {
		return domain.NewConfigError("embedding.max_tokens", "must be positive")
	}
	if c.Embedding.CacheSize < 0 {
		return domain.NewConfigError("embedding.cache_size", "must not be negative")
	}

	switch c.LLM.Provider {
	case LLMProviderHuggingFace, LLMProviderOllama:
	case LLMProviderOpenAI, LLMProviderAnthropic:
		if c.LLM.APIKey == "" {
			return domain.NewConfigError("llm.api_key",
				fmt.Sprintf("LLM provider %q requires %s_LLM_API_KEY to be set", c.LLM.Provider, envPrefix))
		}
	default:
		return domain.NewConfigError("llm.provider", fmt.Sprintf("unsupported provider %q", c.LLM.Provider))
	}
	if c.LLM.MaxInputTokens <= 0 {
		return domain.NewConfigError("llm.max_input_tokens", "must be positive")
	}
	if c.LLM.NumBeams <= 0 {
		return domain.NewConfigError("llm.num_beams", "must be positive")
	}

	if c.Ranking.TopK < 1 {
		return domain.NewConfigError("ranking.top_k", "must be at least 1")
	}

	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case StoreBackendNeo4j, StoreBackendPostgres, StoreBackendMemory:
	default:
		return domain.NewConfigError("store.backend", fmt.Sprintf("unsupported backend %q", c.Store.Backend))
	}
	if !c.Store.RequiresCredentials() {
		return nil
	}
	if c.Store.URI == "" {
		return domain.NewConfigError("store.uri", envPrefix+"_STORE_URI (or NEO4J_URI) must be set")
	}
	if c.Store.Username == "" {
		return domain.NewConfigError("store.username", envPrefix+"_STORE_USERNAME (or NEO4J_USERNAME) must be set")
	}
	if c.Store.Password == "" {
		return domain.NewConfigError("store.password", envPrefix+"_STORE_PASSWORD (or NEO4J_PASSWORD) must be set")
	}
	return nil
}
