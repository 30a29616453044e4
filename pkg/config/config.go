package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tradingzbotem/sparks/pkg/feed"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Environment string `yaml:"environment" json:"environment" jsonschema:"default=dev,description=Deployment environment (dev or production)"`

	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Storage struct {
		Backend         string `yaml:"backend" json:"backend" jsonschema:"default=sqlite,description=Storage backend (sqlite or memory)"`
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:sparks.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"storage" json:"storage" jsonschema:"description=Storage configuration"`

	Collector CollectorConfig `yaml:"collector" json:"collector" jsonschema:"description=Feed collector configuration"`

	Enrich struct {
		BatchSize int `yaml:"batch_size" json:"batch_size" jsonschema:"default=20,minimum=1,description=Items enriched per run"`
	} `yaml:"enrich" json:"enrich" jsonschema:"description=Enrichment stage configuration"`

	Brief struct {
		MaxItems int           `yaml:"max_items" json:"max_items" jsonschema:"default=60,description=Maximum items fed into a single brief"`
		CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl" jsonschema:"default=2m,description=Latest-brief read cache TTL"`
	} `yaml:"brief" json:"brief" jsonschema:"description=Brief synthesis configuration"`

	LLM LLMConfig `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for enrichment and brief synthesis"`

	Jobs struct {
		Secret string `yaml:"secret" json:"secret" jsonschema:"description=Shared secret for scheduler-triggered jobs (required in production)"`
	} `yaml:"jobs" json:"jobs" jsonschema:"description=Job trigger authorization"`
}

// CollectorConfig holds feed collection settings
type CollectorConfig struct {
	FeedTimeout time.Duration `yaml:"feed_timeout" json:"feed_timeout" jsonschema:"default=8s,description=Per-feed fetch timeout"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=Sparks/1.0,description=User agent for feed requests"`
	Sources     []FeedSource  `yaml:"sources" json:"sources" jsonschema:"description=Upstream feed sources"`
}

// FeedSource is one upstream feed
type FeedSource struct {
	Name string `yaml:"name" json:"name" jsonschema:"required,description=Source name"`
	URL  string `yaml:"url" json:"url" jsonschema:"required,description=Feed URL"`
}

// LLMConfig holds LLM backend configuration. An empty APIKey is a valid
// state, synthesis and enrichment are skipped until one is configured.
type LLMConfig struct {
	Endpoint    string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey      string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model       string        `yaml:"model" json:"model" jsonschema:"default=gpt-4o-mini,description=Model name"`
	Temperature float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,description=Temperature for response generation"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=1000,description=Maximum tokens in response"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// setDefaults fills zero-valued fields
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}

	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "file:sparks.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Storage.MaxOpenConns == 0 {
		cfg.Storage.MaxOpenConns = 10
	}
	if cfg.Storage.MaxIdleConns == 0 {
		cfg.Storage.MaxIdleConns = 5
	}
	if cfg.Storage.ConnMaxLifetime == 0 {
		cfg.Storage.ConnMaxLifetime = 3600
	}

	if cfg.Collector.FeedTimeout == 0 {
		cfg.Collector.FeedTimeout = 8 * time.Second
	}
	if cfg.Collector.UserAgent == "" {
		cfg.Collector.UserAgent = "Sparks/1.0 (+https://github.com/tradingzbotem/sparks)"
	}

	if cfg.Enrich.BatchSize == 0 {
		cfg.Enrich.BatchSize = 20
	}

	if cfg.Brief.MaxItems == 0 {
		cfg.Brief.MaxItems = 60
	}
	if cfg.Brief.CacheTTL == 0 {
		cfg.Brief.CacheTTL = 2 * time.Minute
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1000
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Environment != "dev" && cfg.Environment != "production" {
		return fmt.Errorf("environment must be dev or production")
	}
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	if cfg.Storage.Backend != "sqlite" && cfg.Storage.Backend != "memory" {
		return fmt.Errorf("storage.backend must be sqlite or memory")
	}

	if cfg.Collector.FeedTimeout < time.Second {
		return fmt.Errorf("collector.feed_timeout must be at least 1 second")
	}
	for _, src := range cfg.Collector.Sources {
		if src.Name == "" || src.URL == "" {
			return fmt.Errorf("collector sources need both name and url")
		}
	}

	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}

	if cfg.Environment == "production" && cfg.Jobs.Secret == "" {
		return fmt.Errorf("jobs.secret is required in production")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetLLMConfig returns LLM configuration
func (c *Config) GetLLMConfig() LLMConfig {
	return c.LLM
}

// JobsSecret returns the shared secret for job triggers
func (c *Config) JobsSecret() string {
	return c.Jobs.Secret
}

// IsProduction reports whether the production environment is configured
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// BriefCacheTTL returns the latest-brief read cache TTL
func (c *Config) BriefCacheTTL() time.Duration {
	return c.Brief.CacheTTL
}

// FeedSources converts configured sources to collector sources
func (c *Config) FeedSources() []feed.Source {
	sources := make([]feed.Source, len(c.Collector.Sources))
	for i, s := range c.Collector.Sources {
		sources[i] = feed.Source{Name: s.Name, URL: s.URL}
	}
	return sources
}
