package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Hearings.MaxAttempts)
	assert.Equal(t, "BBA3", cfg.Hearings.ServiceCode)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	p := writeFile(t, `
http_addr: ":9090"
store:
  driver: sqlite
  sqlite_path: /tmp/cases.db
hearings:
  max_attempts: 5
  op_timeout: 2s
features:
  list_assist_enabled: true
  list_assist_regions: [Leeds, Cardiff]
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Hearings.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Hearings.OpTimeout)
	assert.Equal(t, []string{"Leeds", "Cardiff"}, cfg.Features.ListAssistRegions)
	assert.Equal(t, "nats://localhost:4223", cfg.Stan.URL, "untouched keys keep defaults")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	p := writeFile(t, "store:\n  drvier: memory\n")
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict config parse error")
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	p := writeFile(t, "http_addr: \":1\"\n---\nhttp_addr: \":2\"\n")
	_, err := Load(p)
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeFile(t, "store:\n  driver: sqlite\n")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SYNC_MAX_ATTEMPTS", "7")
	t.Setenv("LIST_ASSIST_ENABLED", "true")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 7, cfg.Hearings.MaxAttempts)
	assert.True(t, cfg.Features.ListAssistEnabled)
}

func TestEnvBadValues(t *testing.T) {
	cfg := Default()
	err := applyEnv(&cfg, func(k string) (string, bool) {
		if k == "SYNC_MAX_ATTEMPTS" {
			return "many", true
		}
		return "", false
	})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Hearings.MaxAttempts = 0
	assert.Error(t, cfg.Validate())
}
