package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "alertctl.yaml")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--config", cfg, "--api-url", srv.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestAlertAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/alerts/a1/acknowledge", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]bool{"acknowledged": false})
	}))
	defer srv.Close()

	out, err := run(t, srv, "alert", "ack", "a1")
	require.NoError(t, err)
	assert.Contains(t, out, "already acknowledged")
}

func TestRulesEvaluate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"evaluated":2,"triggered":1,"failed":1,"alert_ids":["x1"],"failures":[{"rule_id":"r9","error":"boom"}]}`))
	}))
	defer srv.Close()

	out, err := run(t, srv, "rules", "evaluate")
	require.NoError(t, err)
	assert.Contains(t, out, "Evaluated 2 rules: 1 triggered, 1 failed")
	assert.Contains(t, out, "rule r9: boom")
}

func TestAlertStatsNeedsTeam(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := run(t, srv, "alert", "stats", "--team", "")
	assert.ErrorContains(t, err, "team is required")
}
