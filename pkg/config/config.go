// Package config loads the service configuration from an optional JSON file
// and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Spending store choices.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreOff      = "off"
)

// Config holds the application configuration. Every field is read from the
// environment variable named in its tag; a JSON config file may supply the
// same keys.
type Config struct {
	// Addr is the listen address of the HTTP server.
	// Environment variable: CAPITAL_ADDR
	Addr string `koanf:"CAPITAL_ADDR"`

	// User is the user segment every backend query is issued for.
	// Environment variable: CAPITAL_USER
	User string `koanf:"CAPITAL_USER"`

	// BackendURL is the base URL of the spending backend.
	// Environment variable: CAPITAL_BACKEND_URL
	BackendURL string `koanf:"CAPITAL_BACKEND_URL"`

	// TranslateMode is "intent" or "endpoint".
	// Environment variable: CAPITAL_TRANSLATE_MODE
	TranslateMode string `koanf:"CAPITAL_TRANSLATE_MODE"`

	// LLMProvider is the name of the provider plugin to use.
	// Environment variable: CAPITAL_LLM_PROVIDER
	LLMProvider string `koanf:"CAPITAL_LLM_PROVIDER"`

	// LLMConfig is the JSON configuration for the provider plugin. When
	// empty it is built from the provider's API key variable.
	// Environment variable: CAPITAL_LLM_CONFIG
	LLMConfig string `koanf:"CAPITAL_LLM_CONFIG"`

	GeminiAPIKey string `koanf:"GEMINI_API_KEY"`
	OpenAIAPIKey string `koanf:"OPENAI_API_KEY"`

	// HTTPTimeout bounds outbound requests, in seconds.
	// Environment variable: CAPITAL_HTTP_TIMEOUT
	HTTPTimeout int `koanf:"CAPITAL_HTTP_TIMEOUT"`

	// SpendingStore selects the bundled backend: memory, postgres or off.
	// Environment variable: CAPITAL_SPENDING_STORE
	SpendingStore string `koanf:"CAPITAL_SPENDING_STORE"`

	// SeedYear is the year of mock transactions generated for User.
	// Environment variable: CAPITAL_SEED_YEAR
	SeedYear int `koanf:"CAPITAL_SEED_YEAR"`

	// CORSOrigins lists allowed origins, comma separated. Empty allows all.
	// Environment variable: CAPITAL_CORS_ORIGINS
	CORSOrigins []string `koanf:"CAPITAL_CORS_ORIGINS"`

	// PostgreSQL configuration, used when SpendingStore is postgres.
	PostgresConfig `koanf:",squash"`
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string `koanf:"POSTGRES_HOST"`
	Port     int    `koanf:"POSTGRES_PORT"`
	Database string `koanf:"POSTGRES_DB"`
	User     string `koanf:"POSTGRES_USER"`
	Password string `koanf:"POSTGRES_PASSWORD"`
	SSLMode  string `koanf:"POSTGRES_SSLMODE"`
}

// Default returns the configuration used for unset keys.
func Default() Config {
	return Config{
		Addr:          ":8000",
		User:          "demo",
		BackendURL:    "http://127.0.0.1:8000",
		TranslateMode: "intent",
		LLMProvider:   "gemini",
		HTTPTimeout:   30,
		SpendingStore: StoreMemory,
		SeedYear:      2027,
		PostgresConfig: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "capital",
			User:     "capital",
			SSLMode:  "disable",
		},
	}
}

// LoadDotenv loads variables from .env files into the process environment
// without overriding variables already set. Missing files are ignored.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the config file at path (skipped when empty) and then the
// environment, which wins over the file.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file: %w", err)
		}
	}
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.SpendingStore = strings.ToLower(strings.TrimSpace(cfg.SpendingStore))
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CAPITAL_BACKEND_URL must be an http(s) URL, got %q", c.BackendURL)
	}
	if strings.TrimSpace(c.User) == "" {
		return fmt.Errorf("CAPITAL_USER is required")
	}
	switch c.SpendingStore {
	case StoreMemory, StorePostgres, StoreOff:
	default:
		return fmt.Errorf("CAPITAL_SPENDING_STORE must be memory, postgres or off, got %q", c.SpendingStore)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("CAPITAL_HTTP_TIMEOUT must not be negative")
	}
	if c.LLMConfig != "" && !json.Valid([]byte(c.LLMConfig)) {
		return fmt.Errorf("CAPITAL_LLM_CONFIG is not valid JSON")
	}
	return nil
}

// Timeout returns HTTPTimeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// ProviderConfig returns the provider plugin configuration. Without an
// explicit CAPITAL_LLM_CONFIG it carries the provider's API key.
func (c Config) ProviderConfig() (json.RawMessage, error) {
	if c.LLMConfig != "" {
		return json.RawMessage(c.LLMConfig), nil
	}

	var key, name string
	switch c.LLMProvider {
	case "gemini":
		key, name = c.GeminiAPIKey, "GEMINI_API_KEY"
	case "openai":
		key, name = c.OpenAIAPIKey, "OPENAI_API_KEY"
	default:
		return json.RawMessage("{}"), nil
	}
	if key == "" {
		return nil, fmt.Errorf("%s is required for provider %s", name, c.LLMProvider)
	}
	return json.Marshal(map[string]any{"apiKey": key})
}
