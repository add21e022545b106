package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"NOTION_API_KEY", "NOTION_DATABASE_ID", "LLM_PROVIDER", "LLM_API_KEY",
		"MOONSHOT_API_KEY", "GEMINI_API_KEY", "REDIS_ADDR", "JWT_SECRET",
		"DATABASE_URL", "DATABASE_SQLITE_PATH", "SQLITE_PATH", "SERVER_PORT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_YAMLFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
notion:
  api_key: ntn_test_key
  database_id: db123
llm:
  provider: moonshot
  api_key: sk-test
fetch:
  use_browser: true
  timeout: 10s
server:
  port: 9000
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ntn_test_key", cfg.Notion.APIKey)
	assert.Equal(t, "db123", cfg.Notion.DatabaseID)
	assert.Equal(t, DefaultNotionBaseURL, cfg.Notion.BaseURL)
	assert.Equal(t, DefaultNotionVersion, cfg.Notion.Version)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, DefaultMoonshotModel, cfg.LLM.Model)
	assert.Equal(t, DefaultMoonshotBaseURL, cfg.LLM.BaseURL)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 0.0001)
	assert.True(t, cfg.Fetch.UseBrowser)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
notion:
  api_key: ntn_from_file
  database_id: file-db
`)
	t.Setenv("NOTION_DATABASE_ID", "env-db")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("MOONSHOT_API_KEY", "sk-alias")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ntn_from_file", cfg.Notion.APIKey)
	assert.Equal(t, "env-db", cfg.Notion.DatabaseID)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "sk-alias", cfg.LLM.APIKey)
}

func TestLoad_GeminiAlias(t *testing.T) {
	isolate(t)
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Empty(t, cfg.LLM.Model, "gemini models come from the llm tier table")
}

func TestLoad_SQLitePathAlias(t *testing.T) {
	isolate(t)
	t.Setenv("SQLITE_PATH", "/tmp/imports.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/imports.db", cfg.Database.SQLitePath)
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderMoonshot, cfg.LLM.Provider)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.NotEmpty(t, cfg.Server.AllowedOrigins)
}

func TestLoad_ExplicitFileNotFound(t *testing.T) {
	isolate(t)

	cfg, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "notion: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_RejectsBadNotionKey(t *testing.T) {
	isolate(t)
	t.Setenv("NOTION_API_KEY", "secret_legacy")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with ntn_")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		errMsg string
	}{
		{"empty is valid", Config{}, ""},
		{"unknown provider", Config{LLM: LLMConfig{Provider: "openai"}}, "must be one of"},
		{"bad notion url", Config{Notion: NotionConfig{BaseURL: "::"}}, "valid URL"},
		{"mysql database", Config{Database: DatabaseConfig{URL: "mysql://x"}}, "postgres://"},
		{"negative rate limit", Config{Server: ServerConfig{RateLimit: -1}}, "server.ratelimit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRequire(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.RequireNotion(), ErrNotionNotConfigured)
	assert.ErrorIs(t, cfg.RequireLLM(), ErrLLMNotConfigured)

	cfg.Notion = NotionConfig{APIKey: "ntn_x"}
	assert.ErrorIs(t, cfg.RequireNotion(), ErrNotionNotConfigured)

	cfg.Notion.DatabaseID = "db"
	cfg.LLM.APIKey = "k"
	assert.NoError(t, cfg.RequireNotion())
	assert.NoError(t, cfg.RequireLLM())
}
