package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/profile-importer/internal/config"
	"github.com/jonathan/profile-importer/internal/db"
	"github.com/jonathan/profile-importer/internal/server"
	"github.com/jonathan/profile-importer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "cli-test-secret-0123456789"

// writeConfig writes a config file into a temp dir and isolates the test
// from connection settings in the environment.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "DATABASE_SQLITE_PATH", "SQLITE_PATH", "REDIS_ADDR", "CACHE_REDIS_ADDR", "JWT_SECRET", "SERVER_JWT_SECRET"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		configPath, verbose, useBrowser = "", false, false
		historyLimit, historyURL, historyJSON = db.DefaultListLimit, "", false
		tokenClient = ""
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	path := writeConfig(t, "server:\n  jwt_secret: "+testSecret+"\n  jwt_expiration_hours: 2\n")

	out, err := execute(t, "--config", path, "token", "--client", "extension")
	require.NoError(t, err)

	svc := server.NewJWTService(&config.JWTConfig{Secret: testSecret, ExpirationHours: 2})
	claims, err := svc.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "extension", claims.ClientID)
}

func TestTokenCommand_NoSecret(t *testing.T) {
	path := writeConfig(t, "log:\n  level: error\n")

	_, err := execute(t, "--config", path, "token", "--client", "extension")
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestHistoryCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	lite, err := db.OpenSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, lite.RecordImport(context.Background(), &db.ImportRecord{
		URL:       "https://example.com/in/li",
		Name:      "Li Si",
		Status:    types.ImportStatusSaved,
		CreatedAt: time.Now(),
	}))
	lite.Close()

	path := writeConfig(t, "log:\n  level: error\ndatabase:\n  sqlite_path: "+dbPath+"\n")

	out, err := execute(t, "--config", path, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "IMPORT HISTORY")
	assert.Contains(t, out, "Li Si")

	out, err = execute(t, "--config", path, "history", "--json", "--url", "https://example.com/in/li")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Li Si"`)

	_, err = execute(t, "--config", path, "history", "--url", "https://example.com/other")
	assert.ErrorContains(t, err, "no import recorded")
}

func TestHistoryCommand_NotConfigured(t *testing.T) {
	path := writeConfig(t, "log:\n  level: error\n")

	_, err := execute(t, "--config", path, "history")
	assert.ErrorContains(t, err, "not configured")
}

func TestImportCommand_InvalidURL(t *testing.T) {
	path := writeConfig(t, "log:\n  level: error\n")

	_, err := execute(t, "--config", path, "import", "not a url")
	assert.Error(t, err)
}

func TestFetchOptions(t *testing.T) {
	opts := fetchOptions(config.FetchConfig{UseBrowser: true, Timeout: time.Second, UserAgent: "ua"})
	assert.True(t, opts.UseBrowser)
	assert.Equal(t, time.Second, opts.Timeout)
	assert.Equal(t, "ua", opts.UserAgent)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "import", "extract", "schema", "token", "history"} {
		assert.True(t, names[want], want)
	}
}
