// Package config provides configuration loading and validation for the importer.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/profile-importer/internal/logging"
)

// NotionKeyPrefix is the prefix of Notion internal integration secrets.
const NotionKeyPrefix = "ntn_"

// LLM providers.
const (
	ProviderMoonshot = "moonshot"
	ProviderGemini   = "gemini"
)

var (
	// ErrNotionNotConfigured is returned when a save is attempted without Notion credentials.
	ErrNotionNotConfigured = errors.New("notion API key and database ID must be configured")
	// ErrLLMNotConfigured is returned when extraction is attempted without an LLM key.
	ErrLLMNotConfigured = errors.New("LLM API key must be configured")
)

// Config is the full importer configuration.
// Values come from the YAML file, overlaid by environment variables.
type Config struct {
	Notion   NotionConfig   `koanf:"notion"`
	LLM      LLMConfig      `koanf:"llm"`
	Fetch    FetchConfig    `koanf:"fetch"`
	Cache    CacheConfig    `koanf:"cache"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Log      logging.Config `koanf:"log"`
}

// NotionConfig holds the target database settings.
type NotionConfig struct {
	APIKey     string `koanf:"api_key" validate:"omitempty,startswith=ntn_"`
	DatabaseID string `koanf:"database_id"`
	BaseURL    string `koanf:"base_url" validate:"omitempty,url"`
	Version    string `koanf:"version"`
}

// LLMConfig selects the extraction model.
type LLMConfig struct {
	Provider    string        `koanf:"provider" validate:"omitempty,oneof=moonshot gemini"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url" validate:"omitempty,url"`
	Temperature float32       `koanf:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `koanf:"timeout"`
}

// FetchConfig controls how pages are captured.
type FetchConfig struct {
	UseBrowser     bool          `koanf:"use_browser"`
	Timeout        time.Duration `koanf:"timeout"`
	BrowserTimeout time.Duration `koanf:"browser_timeout"`
	UserAgent      string        `koanf:"user_agent"`
}

// CacheConfig configures the optional Redis extraction cache.
type CacheConfig struct {
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db" validate:"gte=0"`
	TTL           time.Duration `koanf:"ttl"`
}

// DatabaseConfig configures the import history store.
// URL selects Postgres; otherwise SQLitePath is used when set.
type DatabaseConfig struct {
	URL        string `koanf:"url"`
	SQLitePath string `koanf:"sqlite_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int           `koanf:"port" validate:"gte=0,lte=65535"`
	JWTSecret          string        `koanf:"jwt_secret"`
	JWTExpirationHours int           `koanf:"jwt_expiration_hours" validate:"gte=0"`
	AllowedOrigins     []string      `koanf:"allowed_origins"`
	RateLimit          int           `koanf:"rate_limit" validate:"gte=0"`
	RateWindow         time.Duration `koanf:"rate_window"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout"`
}

// Validate checks value formats. It does not require credentials, since
// extract-only and save-only runs need different subsets; see RequireLLM and
// RequireNotion.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("config error: %s", describe(verrs))
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.Database.URL != "" && !strings.HasPrefix(c.Database.URL, "postgres://") &&
		!strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("config error: 'database.url' must be a postgres:// URL")
	}

	return nil
}

// RequireNotion returns ErrNotionNotConfigured unless both Notion credentials are set.
func (c *Config) RequireNotion() error {
	if c.Notion.APIKey == "" || c.Notion.DatabaseID == "" {
		return ErrNotionNotConfigured
	}
	return nil
}

// RequireLLM returns ErrLLMNotConfigured unless an LLM key is set.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return ErrLLMNotConfigured
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
		switch fe.Tag() {
		case "startswith":
			msgs = append(msgs, fmt.Sprintf("'%s' must start with %s", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("'%s' must be one of [%s]", field, fe.Param()))
		case "url":
			msgs = append(msgs, fmt.Sprintf("'%s' must be a valid URL", field))
		default:
			msgs = append(msgs, fmt.Sprintf("'%s' failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
