package config

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)
	setStoreCredentials(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Zero(t, cfg.Server.RequestTimeout)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "research_assistant", cfg.Metrics.Namespace)

	// arXiv defaults
	assert.Equal(t, "http://export.arxiv.org/api", cfg.ArXiv.BaseURL)
	assert.Equal(t, 50, cfg.ArXiv.MaxResults)
	assert.Equal(t, 30*time.Second, cfg.ArXiv.Timeout)
	assert.Zero(t, cfg.ArXiv.MaxRetries)

	// Store defaults
	assert.Equal(t, StoreBackendNeo4j, cfg.Store.Backend)
	assert.Equal(t, 30*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "bolt://localhost:7687", cfg.Store.URI)

	// Embedding defaults
	assert.Equal(t, EmbeddingProviderHuggingFace, cfg.Embedding.Provider)
	assert.Empty(t, cfg.Embedding.Model)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 256, cfg.Embedding.MaxTokens)
	assert.Zero(t, cfg.Embedding.CacheSize)

	// LLM defaults
	assert.Equal(t, LLMProviderHuggingFace, cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.Model)
	assert.Equal(t, 512, cfg.LLM.MaxInputTokens)
	assert.Equal(t, 5, cfg.LLM.NumBeams)
	assert.Zero(t, cfg.LLM.Timeout)

	// Ranking defaults
	assert.Equal(t, 10, cfg.Ranking.TopK)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)
	setStoreCredentials(t)

	t.Setenv("RESEARCH_SERVER_HTTP_PORT", "8888")
	t.Setenv("RESEARCH_LOGGING_LEVEL", "debug")
	t.Setenv("RESEARCH_STORE_BACKEND", "postgres")
	t.Setenv("RESEARCH_ARXIV_MAX_RESULTS", "25")
	t.Setenv("RESEARCH_RANKING_TOP_K", "3")
	t.Setenv("RESEARCH_LLM_PROVIDER", "anthropic")
	t.Setenv("RESEARCH_LLM_API_KEY", "sk-ant-override")
	t.Setenv("RESEARCH_EMBEDDING_CACHE_SIZE", "128")
	t.Setenv("RESEARCH_EMBEDDING_PROVIDER", "hash")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, StoreBackendPostgres, cfg.Store.Backend)
	assert.Equal(t, 25, cfg.ArXiv.MaxResults)
	assert.Equal(t, 3, cfg.Ranking.TopK)
	assert.Equal(t, LLMProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "sk-ant-override", cfg.LLM.APIKey)
	assert.Equal(t, 128, cfg.Embedding.CacheSize)
	assert.Equal(t, EmbeddingProviderHash, cfg.Embedding.Provider)
}

func TestLoad_Neo4jFallbackCredentials(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("NEO4J_URI", "neo4j://graph:7687")
	t.Setenv("NEO4J_USERNAME", "neo4j")
	t.Setenv("NEO4J_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "neo4j://graph:7687", cfg.Store.URI)
	assert.Equal(t, "neo4j", cfg.Store.Username)
	assert.Equal(t, "secret", cfg.Store.Password)
}

func TestLoad_PrefixedCredentialsWin(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("NEO4J_URI", "neo4j://fallback:7687")
	t.Setenv("RESEARCH_STORE_URI", "neo4j://primary:7687")
	t.Setenv("RESEARCH_STORE_USERNAME", "svc")
	t.Setenv("RESEARCH_STORE_PASSWORD", "pw")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "neo4j://primary:7687", cfg.Store.URI)
}

func TestLoad_MissingCredentialsFailFast(t *testing.T) {
	clearEnvVars(t)

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)

	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "store.uri", cfgErr.Key)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestLoad_MemoryBackendNeedsNoCredentials(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("RESEARCH_STORE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreBackendMemory, cfg.Store.Backend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedKey string
	}{
		{
			name:        "HTTP port zero",
			modifyFunc:  func(c *Config) { c.Server.HTTPPort = 0 },
			expectedKey: "server.http_port",
		},
		{
			name:        "HTTP port too high",
			modifyFunc:  func(c *Config) { c.Server.HTTPPort = 70000 },
			expectedKey: "server.http_port",
		},
		{
			name:        "metrics port collides with HTTP port",
			modifyFunc:  func(c *Config) { c.Metrics.Port = c.Server.HTTPPort },
			expectedKey: "metrics.port",
		},
		{
			name:        "invalid log level",
			modifyFunc:  func(c *Config) { c.Logging.Level = "verbose" },
			expectedKey: "logging.level",
		},
		{
			name:        "max results above catalog cap",
			modifyFunc:  func(c *Config) { c.ArXiv.MaxResults = 51 },
			expectedKey: "arxiv.max_results",
		},
		{
			name:        "unsupported store backend",
			modifyFunc:  func(c *Config) { c.Store.Backend = "redis" },
			expectedKey: "store.backend",
		},
		{
			name:        "missing store username",
			modifyFunc:  func(c *Config) { c.Store.Username = "" },
			expectedKey: "store.username",
		},
		{
			name:        "missing store password",
			modifyFunc:  func(c *Config) { c.Store.Password = "" },
			expectedKey: "store.password",
		},
		{
			name:        "unsupported embedding provider",
			modifyFunc:  func(c *Config) { c.Embedding.Provider = "sbert" },
			expectedKey: "embedding.provider",
		},
		{
			name:        "openai embedding without key",
			modifyFunc:  func(c *Config) { c.Embedding.Provider = EmbeddingProviderOpenAI },
			expectedKey: "embedding.api_key",
		},
		{
			name:        "negative cache size",
			modifyFunc:  func(c *Config) { c.Embedding.CacheSize = -1 },
			expectedKey: "embedding.cache_size",
		},
		{
			name:        "openai generation without key",
			modifyFunc:  func(c *Config) { c.LLM.Provider = LLMProviderOpenAI },
			expectedKey: "llm.api_key",
		},
		{
			name:        "unsupported llm provider",
			modifyFunc:  func(c *Config) { c.LLM.Provider = "gemini" },
			expectedKey: "llm.provider",
		},
		{
			name:        "zero beams",
			modifyFunc:  func(c *Config) { c.LLM.NumBeams = 0 },
			expectedKey: "llm.num_beams",
		},
		{
			name:        "top k zero",
			modifyFunc:  func(c *Config) { c.Ranking.TopK = 0 },
			expectedKey: "ranking.top_k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *domain.ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %T", err)
			assert.Equal(t, tt.expectedKey, cfgErr.Key)
		})
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Store.Backend = StoreBackendMemory
	cfg.Store.URI, cfg.Store.Username, cfg.Store.Password = "", "", ""
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 0
	assert.NoError(t, cfg.Validate())
}

func TestAddresses(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "127.0.0.1:8000", cfg.Server.HTTPAddress())
	assert.Equal(t, "127.0.0.1:9090", cfg.MetricsAddress())
}

// clearEnvVars unsets every variable Load reads; t.Setenv restores them afterwards.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		key, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(key, envPrefix+"_") || strings.HasPrefix(key, "NEO4J_") {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func setStoreCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("RESEARCH_STORE_URI", "bolt://localhost:7687")
	t.Setenv("RESEARCH_STORE_USERNAME", "neo4j")
	t.Setenv("RESEARCH_STORE_PASSWORD", "test-password")
}

// validConfig returns a valid configuration for testing.
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "127.0.0.1",
			HTTPPort: 8000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		ArXiv: ArXivConfig{
			BaseURL:    "http://export.arxiv.org/api",
			MaxResults: 50,
		},
		Store: StoreConfig{
			Backend:  StoreBackendNeo4j,
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Password: "test-password",
		},
		Embedding: EmbeddingConfig{
			Provider:   EmbeddingProviderHash,
			Dimensions: 384,
			MaxTokens:  256,
		},
		LLM: LLMConfig{
			Provider:       LLMProviderHuggingFace,
			MaxInputTokens: 512,
			NumBeams:       5,
		},
		Ranking: RankingConfig{TopK: 10},
	}
}
