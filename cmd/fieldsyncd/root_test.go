package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsync-backend/internal/syncer"
)

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, defaultConfigPath, resolveConfigPath(""))

	t.Setenv("CONFIG_PATH", "/etc/fieldsync.yaml")
	assert.Equal(t, "/etc/fieldsync.yaml", resolveConfigPath(""))
	assert.Equal(t, "custom.yaml", resolveConfigPath("custom.yaml"))
}

func writeConfig(t *testing.T, remoteURL string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`remote:
  url: %q
  timezone: UTC
database:
  driver: sqlite
  dsn: %q
log:
  level: error
`, remoteURL, filepath.Join(dir, "fieldsync.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRefreshCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "listPending":
			_, _ = w.Write([]byte(`[{"tag":"P-1","status":"OPEN","date":"01/01/2025 10:00:00"}]`))
		case "stats":
			_, _ = w.Write([]byte(`{"ok":1,"total":1}`))
		}
	}))
	defer server.Close()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", writeConfig(t, server.URL), "refresh"})

	require.NoError(t, cmd.Execute())

	var res syncer.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, syncer.SourceCloud, res.Source)
	assert.Equal(t, 1, res.Merged)
	require.NotNil(t, res.Stats)
	assert.Equal(t, 1, res.Stats.Total)
}

func TestPingCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("SUCCESS"))
	}))
	defer server.Close()

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", writeConfig(t, server.URL), "ping"})
	assert.NoError(t, cmd.Execute())

	failing := NewRootCommand()
	failing.SetOut(&bytes.Buffer{})
	failing.SetErr(&bytes.Buffer{})
	failing.SetArgs([]string{"--config", writeConfig(t, ""), "ping"})
	assert.Error(t, failing.Execute())
}

func TestMissingConfig(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "refresh"})
	assert.Error(t, cmd.Execute())
}
