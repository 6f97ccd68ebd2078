package server

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"kernel-workspace-be/internal/bootstrap"
	"kernel-workspace-be/internal/config"
	"kernel-workspace-be/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "production",
			LogFilePath:        filepath.Join(dir, "kernel.log"),
			AuditLogFilePath:   filepath.Join(dir, "audit.log"),
			CorsAllowedOrigins: "*",
		},
		Storage: config.StorageConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(dir, "kernel.db"),
			DataDir:    filepath.Join(dir, "uploads"),
		},
		Ai: config.AIConfig{
			OllamaBaseURL: "http://127.0.0.1:1",
			LLMProvider:   "ollama",
			LLMModel:      "llama3",
			RouteCacheTTL: time.Minute,
			StreamTimeout: time.Second,
		},
		Search: config.SearchConfig{MaxResults: 3, Timeout: time.Second},
	}

	container, err := bootstrap.NewContainer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })
	return New(cfg, container)
}

func TestHealthIsServedUnderBothPrefixes(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/api/health"} {
		resp, err := srv.GetApp().Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode, path)
	}
}

func TestWorkspaceStartsEmpty(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.GetApp().Test(httptest.NewRequest("GET", "/api/workspace", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var payload dto.WorkspaceResponse
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Empty(t, payload.Files)
	assert.Nil(t, payload.PendingCommand)
	assert.Zero(t, payload.Interactions)
}

func TestCorsExposesAgentHeaders(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := srv.GetApp().Test(req)
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Access-Control-Expose-Headers"), "X-Agent-Route")
}

func TestApproveWithoutStagedCommandConflicts(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.GetApp().Test(httptest.NewRequest("POST", "/approve_command", nil))
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)
}
