package config

import (
	"encoding/json"
	"fmt"
	"strings"

	schemaconfig "github.com/maktabah-search-api/pkg/schema/config"
)

// Search strategies
const (
	StrategyComposite = "composite"
	StrategyRows      = "rows"
)

// Config holds all application configuration
type Config struct {
	// Environment: local, dev or prod
	Env      string
	LogLevel string

	// API Settings
	APITitle   string
	APIVersion string
	APIPrefix  string
	Port       string

	// CORS
	CORSOrigins []string

	Corpus    schemaconfig.Config
	Search    SearchConfig
	Highlight HighlightConfig
	Stories   StoriesConfig
}

// Boosts weights the four analyzers of the verse text
type Boosts struct {
	Base   float64
	Stem   float64
	Joined float64
	Prefix float64
}

// SearchConfig holds query composition and pagination settings
type SearchConfig struct {
	Strategy        string
	DefaultPageSize int
	MaxPageSize     int // 0 means unlimited
	MaxBuckets      int
	Boosts          Boosts
}

// HighlightConfig holds inline highlight settings
type HighlightConfig struct {
	Enabled      bool
	PreTag       string
	PostTag      string
	FragmentSize int
	Fragments    int
}

// StoriesConfig holds story serving and curation settings
type StoriesConfig struct {
	Dir            string
	CatalogPath    string
	GapFillWorkers int
}

// Load reads the configuration from the environment and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Env:         getEnv("ENV", "local"),
		LogLevel:    getEnv("LOG_LEVEL", ""),
		APITitle:    getEnv("API_TITLE", "Maktabah Search API"),
		APIVersion:  getEnv("API_VERSION", "1.0.0"),
		APIPrefix:   getEnv("API_PREFIX", "/api"),
		Port:        getEnv("PORT", "8081"),
		CORSOrigins: parseCORSOrigins(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),

		Corpus: schemaconfig.FromEnv(),

		Search: SearchConfig{
			Strategy:        getEnv("SEARCH_STRATEGY", StrategyComposite),
			DefaultPageSize: schemaconfig.GetEnvInt("DEFAULT_PAGE_SIZE", 10),
			MaxPageSize:     schemaconfig.GetEnvInt("MAX_PAGE_SIZE", 100),
			MaxBuckets:      schemaconfig.GetEnvInt("MAX_BUCKETS", 10000),
			Boosts: Boosts{
				Base:   schemaconfig.GetEnvFloat("BOOST_BASE", 1.0),
				Stem:   schemaconfig.GetEnvFloat("BOOST_STEM", 1.2),
				Joined: schemaconfig.GetEnvFloat("BOOST_JOINED", 1.5),
				Prefix: schemaconfig.GetEnvFloat("BOOST_PREFIX", 0.8),
			},
		},

		Highlight: HighlightConfig{
			Enabled:      schemaconfig.GetEnvBool("HIGHLIGHT_ENABLED", true),
			PreTag:       getEnv("HIGHLIGHT_PRE_TAG", "<em>"),
			PostTag:      getEnv("HIGHLIGHT_POST_TAG", "</em>"),
			FragmentSize: schemaconfig.GetEnvInt("HIGHLIGHT_FRAGMENT_SIZE", 150),
			Fragments:    schemaconfig.GetEnvInt("HIGHLIGHT_FRAGMENTS", 3),
		},

		Stories: StoriesConfig{
			Dir:            getEnv("STORIES_DIR", "stories"),
			CatalogPath:    getEnv("STORY_CATALOG", "config/stories.yaml"),
			GapFillWorkers: schemaconfig.GetEnvInt("GAPFILL_WORKERS", 4),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// DefaultSearch returns the search settings used when no environment is configured
func DefaultSearch() SearchConfig {
	return SearchConfig{
		Strategy:        StrategyComposite,
		DefaultPageSize: 10,
		MaxPageSize:     100,
		MaxBuckets:      10000,
		Boosts:          Boosts{Base: 1.0, Stem: 1.2, Joined: 1.5, Prefix: 0.8},
	}
}

// DefaultHighlight returns the default highlight settings
func DefaultHighlight() HighlightConfig {
	return HighlightConfig{Enabled: true, PreTag: "<em>", PostTag: "</em>", FragmentSize: 150, Fragments: 3}
}

// Validate checks the configuration for correctness
func (c *Config) Validate() error {
	switch c.Env {
	case "local", "dev", "prod":
	default:
		return fmt.Errorf("ENV must be local, dev or prod, got %q", c.Env)
	}

	switch c.Corpus.Backend {
	case schemaconfig.BackendPostgres:
		if c.Corpus.PostgresURI == "" {
			return fmt.Errorf("POSTGRES_URI is required for the postgres backend")
		}
	case schemaconfig.BackendSQLite:
		if c.Corpus.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case schemaconfig.BackendMemory:
		if c.Corpus.FixturePath == "" {
			return fmt.Errorf("CORPUS_FIXTURE is required for the memory backend")
		}
	default:
		return fmt.Errorf("CORPUS_BACKEND must be postgres, sqlite or memory, got %q", c.Corpus.Backend)
	}
	if c.Corpus.Timeout <= 0 {
		return fmt.Errorf("CORPUS_TIMEOUT must be positive")
	}

	switch c.Search.Strategy {
	case StrategyComposite, StrategyRows:
	default:
		return fmt.Errorf("SEARCH_STRATEGY must be composite or rows, got %q", c.Search.Strategy)
	}
	if c.Search.DefaultPageSize < 1 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be positive")
	}
	// MAX_PAGE_SIZE=0 disables the cap
	if c.Search.MaxPageSize < 0 || (c.Search.MaxPageSize > 0 && c.Search.MaxPageSize < c.Search.DefaultPageSize) {
		return fmt.Errorf("MAX_PAGE_SIZE must be 0 or at least DEFAULT_PAGE_SIZE")
	}
	if c.Search.MaxBuckets < 1 {
		return fmt.Errorf("MAX_BUCKETS must be positive")
	}
	if c.Stories.GapFillWorkers < 1 {
		return fmt.Errorf("GAPFILL_WORKERS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	return schemaconfig.GetEnv(key, defaultValue)
}

func parseCORSOrigins(value string) []string {
	var origins []string
	if err := json.Unmarshal([]byte(value), &origins); err == nil {
		return origins
	}
	parts := strings.Split(value, ",")
	origins = make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
