// Package config resolves runtime settings from defaults, an optional
// .env file, and ADAPTLY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/mod/semver"

	"github.com/abhisek/adaptly/internal/circuit"
	"github.com/abhisek/adaptly/internal/llm"
	"github.com/abhisek/adaptly/internal/session"
	"github.com/abhisek/adaptly/internal/store"
)

// Catalog backends.
const (
	CatalogStore = "store"
	CatalogMongo = "mongo"
)

// Config is the full runtime configuration.
type Config struct {
	DBDriver string
	DBPath   string // DSN or SQLite file; empty means store.DefaultDBPath

	PolicyName    string
	PolicyVersion string
	TargetStreak  int

	Catalog  string
	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL      string
	AMQPExchange string

	HTTPAddr    string
	ReviewSweep time.Duration

	Breaker circuit.Config
	LLM     llm.Config

	LogFormat string // "text" or "json"
	LogLevel  string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBDriver:      store.DriverSQLite,
		PolicyName:    "misconception",
		PolicyVersion: "v2.0.0",
		TargetStreak:  session.DefaultTargetStreak,
		Catalog:       CatalogStore,
		MongoDB:       "adaptly",
		AMQPExchange:  "adaptly.events",
		HTTPAddr:      ":8080",
		ReviewSweep:   15 * time.Minute,
		Breaker:       circuit.DefaultConfig(),
		LLM:           llm.DefaultConfig(),
		LogFormat:     "text",
		LogLevel:      "info",
	}
}

// Load reads .env (if present) and overlays the environment on Default.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv overlays variables looked up through getenv on Default.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	e := env{get: getenv}

	e.str("ADAPTLY_DB_DRIVER", &cfg.DBDriver)
	e.str("ADAPTLY_DB", &cfg.DBPath)
	e.str("ADAPTLY_POLICY_NAME", &cfg.PolicyName)
	e.str("ADAPTLY_POLICY_VERSION", &cfg.PolicyVersion)
	e.int("ADAPTLY_TARGET_STREAK", &cfg.TargetStreak)

	e.str("ADAPTLY_CATALOG", &cfg.Catalog)
	e.str("ADAPTLY_MONGO_URI", &cfg.MongoURI)
	e.str("ADAPTLY_MONGO_DB", &cfg.MongoDB)

	e.str("ADAPTLY_REDIS_ADDR", &cfg.RedisAddr)
	e.str("ADAPTLY_REDIS_PASSWORD", &cfg.RedisPassword)
	e.int("ADAPTLY_REDIS_DB", &cfg.RedisDB)

	e.str("ADAPTLY_AMQP_URL", &cfg.AMQPURL)
	e.str("ADAPTLY_AMQP_EXCHANGE", &cfg.AMQPExchange)

	e.str("ADAPTLY_HTTP_ADDR", &cfg.HTTPAddr)
	e.duration("ADAPTLY_REVIEW_SWEEP", &cfg.ReviewSweep)
	e.int("ADAPTLY_BREAKER_THRESHOLD", &cfg.Breaker.Threshold)
	e.duration("ADAPTLY_BREAKER_COOLDOWN", &cfg.Breaker.Cooldown)

	e.str("ADAPTLY_LLM_PROVIDER", &cfg.LLM.Provider)
	e.duration("ADAPTLY_LLM_TIMEOUT", &cfg.LLM.Timeout)
	e.str("ADAPTLY_ANTHROPIC_API_KEY", &cfg.LLM.Anthropic.APIKey)
	e.str("ADAPTLY_ANTHROPIC_MODEL", &cfg.LLM.Anthropic.Model)
	e.str("ADAPTLY_OPENAI_API_KEY", &cfg.LLM.OpenAI.APIKey)
	e.str("ADAPTLY_OPENAI_MODEL", &cfg.LLM.OpenAI.Model)
	e.str("ADAPTLY_OPENAI_BASE_URL", &cfg.LLM.OpenAI.BaseURL)
	e.str("ADAPTLY_GEMINI_API_KEY", &cfg.LLM.Gemini.APIKey)
	e.str("ADAPTLY_GEMINI_MODEL", &cfg.LLM.Gemini.Model)

	e.str("ADAPTLY_LOG_FORMAT", &cfg.LogFormat)
	e.str("ADAPTLY_LOG_LEVEL", &cfg.LogLevel)

	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}
	return cfg, nil
}

// Policy is the selection policy label stored with every response,
// e.g. "misconception@v2.0.0".
func (c Config) Policy() string {
	return c.PolicyName + "@" + c.PolicyVersion
}

// Validate checks values that cannot be checked while parsing.
func (c Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case store.DriverSQLite, store.DriverPostgres, store.DriverMySQL:
	default:
		errs = append(errs, fmt.Errorf("ADAPTLY_DB_DRIVER: unknown driver %q", c.DBDriver))
	}
	if c.DBDriver != store.DriverSQLite && c.DBPath == "" {
		errs = append(errs, fmt.Errorf("ADAPTLY_DB: a DSN is required for %s", c.DBDriver))
	}
	if strings.TrimSpace(c.PolicyName) == "" {
		errs = append(errs, errors.New("ADAPTLY_POLICY_NAME must not be empty"))
	}
	if !semver.IsValid(c.PolicyVersion) {
		errs = append(errs, fmt.Errorf("ADAPTLY_POLICY_VERSION: %q is not a semantic version", c.PolicyVersion))
	}
	if c.TargetStreak < 1 {
		errs = append(errs, fmt.Errorf("ADAPTLY_TARGET_STREAK must be positive, got %d", c.TargetStreak))
	}
	switch c.Catalog {
	case CatalogStore:
	case CatalogMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("ADAPTLY_MONGO_URI is required for the mongo catalog"))
		}
	default:
		errs = append(errs, fmt.Errorf("ADAPTLY_CATALOG: unknown catalog %q", c.Catalog))
	}
	if c.ReviewSweep <= 0 {
		errs = append(errs, errors.New("ADAPTLY_REVIEW_SWEEP must be positive"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("ADAPTLY_LOG_FORMAT: unknown format %q", c.LogFormat))
	}
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("llm: %w", err))
	}
	return errors.Join(errs...)
}

type env struct {
	get  func(string) string
	errs []error
}

func (e *env) lookup(key string) (string, bool) {
	v := strings.TrimSpace(e.get(key))
	return v, v != ""
}

func (e *env) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *env) int(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q is not an integer", key, v))
		return
	}
	*dst = n
}

func (e *env) duration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q is not a valid duration", key, v))
		return
	}
	*dst = d
}
