package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Defaults.
const (
	DefaultNotionBaseURL   = "https://api.notion.com/v1"
	DefaultNotionVersion   = "2022-06-28"
	DefaultMoonshotBaseURL = "https://api.moonshot.cn/v1"
	DefaultMoonshotModel   = "moonshot-v1-8k"
	DefaultTemperature     = 0.3
	DefaultPort            = 8080
	DefaultCacheTTL        = 7 * 24 * time.Hour
)

// sections are the top-level keys environment variables may target.
var sections = map[string]bool{
	"notion": true, "llm": true, "fetch": true, "cache": true,
	"database": true, "server": true, "log": true,
}

// DefaultPath returns ~/.config/profile-importer/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "profile-importer", "config.yaml")
}

// Load reads configuration from a YAML file, then overrides it with
// environment variables.
//
// Precedence (highest first):
//  1. Environment variables (NOTION_API_KEY -> notion.api_key, LLM_PROVIDER -> llm.provider, ...)
//  2. Provider-specific key aliases (MOONSHOT_API_KEY, GEMINI_API_KEY, REDIS_ADDR, JWT_SECRET, SQLITE_PATH)
//  3. YAML file
//  4. Defaults
//
// An empty path uses DefaultPath and tolerates a missing file; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		content, err := readConfigFile(path)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
			// no config file; env only
		default:
			return nil, err
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyAliases(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps SECTION_FIELD_NAME to section.field_name and drops variables
// outside the known sections.
func envKey(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) != 2 || !sections[parts[0]] {
		return ""
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return content, nil
}

func applyAliases(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case ProviderGemini:
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("MOONSHOT_API_KEY")
		}
	}
	if cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = os.Getenv("REDIS_ADDR")
	}
	if cfg.Server.JWTSecret == "" {
		cfg.Server.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = os.Getenv("SQLITE_PATH")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Notion.BaseURL == "" {
		cfg.Notion.BaseURL = DefaultNotionBaseURL
	}
	if cfg.Notion.Version == "" {
		cfg.Notion.Version = DefaultNotionVersion
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderMoonshot
	}
	if cfg.LLM.Provider == ProviderMoonshot {
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = DefaultMoonshotBaseURL
		}
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = DefaultMoonshotModel
		}
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = DefaultTemperature
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 30 * time.Second
	}
	if cfg.Fetch.BrowserTimeout == 0 {
		cfg.Fetch.BrowserTimeout = 45 * time.Second
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.JWTExpirationHours == 0 {
		cfg.Server.JWTExpirationHours = 24 * 30
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"chrome-extension://*", "moz-extension://*", "http://localhost:*"}
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 60
	}
	if cfg.Server.RateWindow == 0 {
		cfg.Server.RateWindow = time.Minute
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
}
