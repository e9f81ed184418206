package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/AlouiLouai/takwira/internal/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"TAKWIRA_CONFIG", "ADDR", "APP", "STORE_BACKEND", "POSTGRES_DSN", "DB_PATH",
	"POSTGRES_MIGRATIONS_DIR", "DB_MIGRATIONS_DIR", "DB_AUTO_MIGRATE", "REDIS_URL",
	"REDIS_CHANNEL", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ENABLED", "DRAG_THRESHOLD",
}

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckMemoryIsReady(t *testing.T) {
	setEnv(t, nil)

	out, err := execute(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Database is ready!")
}

func TestMigrateThenCheckSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "takwira.db")
	setEnv(t, map[string]string{"DB_PATH": dbPath})

	out, err := execute(t, "check", "--json")
	require.Error(t, err)
	var r store.Readiness
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.False(t, r.IsReady)
	assert.Equal(t, store.ErrorNotSetup, r.ErrorKind)

	out, err = execute(t, "migrate")
	require.NoError(t, err)
	assert.NotContains(t, out, "applied 0")

	out, err = execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "applied 0 migration(s)")

	out, err = execute(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Database is ready!")
}

func TestMigrateRefusesMemory(t *testing.T) {
	setEnv(t, map[string]string{"STORE_BACKEND": "memory"})
	_, err := execute(t, "migrate")
	assert.Error(t, err)
}

func TestInvalidBackendConfig(t *testing.T) {
	setEnv(t, map[string]string{"STORE_BACKEND": "postgres"})
	_, err := execute(t, "check")
	assert.Error(t, err)
}

func TestCheckWithRedisFeed(t *testing.T) {
	mr := miniredis.RunT(t)
	dbPath := filepath.Join(t.TempDir(), "takwira.db")
	setEnv(t, map[string]string{
		"DB_PATH":         dbPath,
		"DB_AUTO_MIGRATE": "true",
		"REDIS_URL":       "redis://" + mr.Addr(),
	})

	// check never migrates, even with auto-migrate on.
	_, err := execute(t, "check")
	require.Error(t, err)

	_, err = execute(t, "migrate")
	require.NoError(t, err)
	out, err := execute(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Database is ready!")
}

func TestUnreachableRedisFails(t *testing.T) {
	setEnv(t, map[string]string{"REDIS_URL": "redis://127.0.0.1:1"})
	_, err := execute(t, "check")
	assert.Error(t, err)
}
