// Package config loads Root Signal Scout's typed runtime configuration
// from environment variables, per the recognized-options table.
// Unknown-but-required variables fail fast; optional ones fall back to the
// documented defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rootsignal/scout/common/arangodb"
	"github.com/rootsignal/scout/common/llm"
	"github.com/rootsignal/scout/common/otel"
	"github.com/rootsignal/scout/core/db"
)

// ExpiryDays holds the per-kind TTL used by the Reaper. Tension never
// expires and is intentionally absent from this struct.
type ExpiryDays struct {
	Gathering int
	Aid       int
	Need      int
	Notice    int
}

// Config is the complete typed configuration for a single Scout run.
type Config struct {
	Env    string
	Region string

	DailyBudgetCents int64
	ConcurrencyFetch int

	DedupThetaSameSource  float64
	DedupThetaCrossSource float64
	EmbeddingDim          int

	RunMaxDuration time.Duration
	Expiry         ExpiryDays

	DebugDir string

	DB      db.Config
	Arango  arangodb.Config
	Redis   RedisConfig
	LLM     llm.Config
	Embed   llm.Config
	OTel    otel.Config
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from the environment. It never returns an
// error for missing optional values (defaults apply); callers that need a
// fail-fast config-error exit code should call Validate separately.
func Load() Config {
	return Config{
		Env:    getEnv("SCOUT_ENV", "development"),
		Region: getEnv("REGION", ""),

		DailyBudgetCents: int64(getEnvInt("DAILY_BUDGET_CENTS", 0)),
		ConcurrencyFetch: getEnvInt("CONCURRENCY_FETCH", 10),

		DedupThetaSameSource:  getEnvFloat("DEDUP_THETA_SAME_SOURCE", 0.85),
		DedupThetaCrossSource: getEnvFloat("DEDUP_THETA_CROSS_SOURCE", 0.92),
		EmbeddingDim:          getEnvInt("EMBEDDING_DIM", 1024),

		RunMaxDuration: time.Duration(getEnvInt("RUN_MAX_DURATION_SEC", 7200)) * time.Second,
		Expiry: ExpiryDays{
			Gathering: getEnvInt("EXPIRY_DAYS_GATHERING", 30),
			Aid:       getEnvInt("EXPIRY_DAYS_AID", 60),
			Need:      getEnvInt("EXPIRY_DAYS_NEED", 60),
			Notice:    getEnvInt("EXPIRY_DAYS_NOTICE", 90),
		},

		DebugDir: getEnv("DEBUG_DIR", ""),

		DB: db.Config{
			DSN:      buildDSN(),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		Arango: arangodb.Config{
			URL:      getEnv("ARANGO_URL", "http://localhost:8529"),
			Username: getEnv("ARANGO_USERNAME", "root"),
			Password: getEnv("ARANGO_PASSWORD", ""),
			Database: getEnv("ARANGO_DATABASE", "scout"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		LLM: agentLLMConfig(),
		Embed: llm.Config{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Model:   getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-large"),
		},
		OTel: otel.Config{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "rootsignal-scout"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}
}

// Validate reports a config error (exit code 4 per §6) if a required
// variable is missing or nonsensical.
func (c Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("REGION is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%s_API_KEY is required for AGENT_PROVIDER=%s", strings.ToUpper(c.LLM.Provider), c.LLM.Provider)
	}
	if c.DedupThetaSameSource <= 0 || c.DedupThetaSameSource > 1 {
		return fmt.Errorf("DEDUP_THETA_SAME_SOURCE must be in (0,1]")
	}
	if c.DedupThetaCrossSource <= 0 || c.DedupThetaCrossSource > 1 {
		return fmt.Errorf("DEDUP_THETA_CROSS_SOURCE must be in (0,1]")
	}
	if c.ConcurrencyFetch <= 0 {
		return fmt.Errorf("CONCURRENCY_FETCH must be positive")
	}
	return nil
}

// agentLLMConfig picks the agent tool-calling provider's credentials based
// on AGENT_PROVIDER, since Anthropic and OpenAI don't share an API key.
func agentLLMConfig() llm.Config {
	provider := getEnv("AGENT_PROVIDER", "openai")
	if provider == "anthropic" {
		return llm.Config{
			APIKey:   getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:  getEnv("ANTHROPIC_BASE_URL", ""),
			Model:    getEnv("ANTHROPIC_MODEL", ""),
			Provider: provider,
		}
	}
	return llm.Config{
		APIKey:   getEnv("OPENAI_API_KEY", ""),
		BaseURL:  getEnv("OPENAI_BASE_URL", ""),
		Model:    getEnv("OPENAI_MODEL", "gpt-5-codex"),
		Provider: provider,
	}
}

func buildDSN() string {
	host := getEnv("DATABASE_HOST", "localhost")
	port := getEnv("DATABASE_PORT", "5432")
	user := getEnv("DATABASE_USER", "postgres")
	password := getEnv("DATABASE_PASSWORD", "postgres")
	name := getEnv("DATABASE_NAME", "rootsignal")
	sslMode := getEnv("DATABASE_SSLMODE", "disable")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, name, sslMode,
	)
}

func (c Config) IsProduction() bool  { return c.Env == "production" }
func (c Config) IsDevelopment() bool { return c.Env == "development" }

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
