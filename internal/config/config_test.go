package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/formsmith/internal/rowstore"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(env(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, rowstore.DefaultTimeout, cfg.RowstoreTimeout)
	assert.Empty(t, cfg.RowstoreURL)
	assert.Zero(t, cfg.PrivilegedIDs.Len())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(env(map[string]string{
		"PORT":             "9090",
		"LOG_LEVEL":        "debug",
		"DB_PATH":          "/tmp/forms.db",
		"ROWSTORE_URL":     " https://store.internal/rows ",
		"ROWSTORE_KEY":     "k",
		"ROWSTORE_TIMEOUT": "3s",
		"JWT_SECRET":       "0123456789abcdef",
		"PRIVILEGED_IDS":   "ops, admin ,",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/tmp/forms.db", cfg.DBPath)
	assert.Equal(t, "https://store.internal/rows", cfg.RowstoreURL)
	assert.Equal(t, 3*time.Second, cfg.RowstoreTimeout)
	assert.Equal(t, 2, cfg.PrivilegedIDs.Len())
	assert.True(t, cfg.PrivilegedIDs.Has("admin"))

	srv := cfg.Server()
	assert.Equal(t, 9090, srv.Port)
	assert.Equal(t, "k", srv.RowstoreKey)
	assert.True(t, srv.PrivilegedIDs.Has("ops"))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{name: "port not a number", vars: map[string]string{"PORT": "http"}},
		{name: "port out of range", vars: map[string]string{"PORT": "70000"}},
		{name: "unknown log level", vars: map[string]string{"LOG_LEVEL": "chatty"}},
		{name: "bad timeout", vars: map[string]string{"ROWSTORE_TIMEOUT": "soon"}},
		{name: "negative timeout", vars: map[string]string{"ROWSTORE_TIMEOUT": "-1s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(env(tt.vars))
			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FORMSMITH_TEST_VAR=from-file\n"), 0o600))
	t.Setenv("FORMSMITH_TEST_VAR", "")
	os.Unsetenv("FORMSMITH_TEST_VAR")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("FORMSMITH_TEST_VAR"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
