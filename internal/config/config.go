package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the CyberRAG backend.
// Environment variables are parsed from the CYBERRAG_ prefix, e.g.
// CYBERRAG_HTTP_PORT, CYBERRAG_NVD_API_KEY.
type Config struct {
	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// NVD feed
	NVDBaseURL      string        `envconfig:"NVD_BASE_URL" default:"https://services.nvd.nist.gov/rest/json/cves/2.0"`
	NVDAPIKey       string        `envconfig:"NVD_API_KEY" default:""`
	NVDPageSize     int           `envconfig:"NVD_PAGE_SIZE" default:"2000"`
	NVDKeyedDelay   time.Duration `envconfig:"NVD_KEYED_DELAY" default:"600ms"`
	NVDUnkeyedDelay time.Duration `envconfig:"NVD_UNKEYED_DELAY" default:"6s"`

	// Local state
	CheckpointPath string `envconfig:"CHECKPOINT_PATH" default:""`
	HistoryDBPath  string `envconfig:"HISTORY_DB_PATH" default:""`

	// Vector index
	WeaviateURL string  `envconfig:"WEAVIATE_URL" default:"localhost:8081"`
	SearchAlpha float32 `envconfig:"SEARCH_ALPHA" default:"0.6"`

	// Embedding
	EmbedProvider string `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel    string `envconfig:"EMBED_MODEL" default:"mxbai-embed-large"`
	OllamaURL     string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`

	// Generation
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-3.5-turbo"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" default:""`

	// Retrieval
	TopK          int `envconfig:"TOP_K" default:"5"`
	SeedBatchSize int `envconfig:"SEED_BATCH_SIZE" default:"100"`

	// Health monitoring
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
}

// ResolveDefaults validates enumerated fields and derives local state paths
// when unset.
func (c *Config) ResolveDefaults() error {
	switch c.EmbedProvider {
	case "", "ollama":
		c.EmbedProvider = "ollama"
	default:
		return fmt.Errorf("unsupported EMBED_PROVIDER: %s", c.EmbedProvider)
	}

	if c.NVDPageSize <= 0 || c.NVDPageSize > 2000 {
		return fmt.Errorf("NVD_PAGE_SIZE must be in 1..2000, got %d", c.NVDPageSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.SearchAlpha < 0 || c.SearchAlpha > 1 {
		return fmt.Errorf("SEARCH_ALPHA must be in [0.0, 1.0], got %f", c.SearchAlpha)
	}

	if c.CheckpointPath == "" {
		c.CheckpointPath = filepath.Join(stateDir(), "last_update.txt")
	}
	if c.HistoryDBPath == "" {
		c.HistoryDBPath = filepath.Join(stateDir(), "history.db")
	}
	return nil
}

// New creates a new Config by parsing environment variables.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CYBERRAG", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Int("port", cfg.HTTPPort).
		Str("nvd_base_url", cfg.NVDBaseURL).
		Bool("nvd_api_key_present", cfg.NVDAPIKey != "").
		Str("weaviate_url", cfg.WeaviateURL).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Str("generation_model", cfg.OpenAIModel).
		Int("top_k", cfg.TopK).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config suitable for unit tests.
func NewForTesting() *Config {
	cfg := &Config{
		HTTPPort:        8080,
		NVDBaseURL:      "http://localhost:9999/rest/json/cves/2.0",
		NVDPageSize:     2000,
		NVDKeyedDelay:   time.Millisecond,
		NVDUnkeyedDelay: time.Millisecond,
		WeaviateURL:     "localhost:8082",
		SearchAlpha:     0.6,
		EmbedProvider:   "ollama",
		EmbedModel:      "mxbai-embed-large",
		OllamaURL:       "http://localhost:11434",
		OpenAIBaseURL:   "http://localhost:9998/v1",
		OpenAIModel:     "gpt-3.5-turbo",
		OpenAIAPIKey:    "test-key",
		TopK:            5,
		SeedBatchSize:   100,

		HealthIntervalSeconds:     30,
		HealthProbeTimeoutSeconds: 2,
	}
	_ = cfg.ResolveDefaults()
	return cfg
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func stateDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cyberrag")
	}
	return "."
}
