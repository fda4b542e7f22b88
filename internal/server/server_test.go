package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cellexec/internal/auth"
	"github.com/sakif/cellexec/internal/config"
	"github.com/sakif/cellexec/internal/executor/builtin"
	"github.com/sakif/cellexec/internal/server"
)

const secret = "bridge-test-secret-0123456789"

func newServer(t *testing.T, jwtSecret string) *server.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	cfg.Execution.TempDir = t.TempDir()
	dispatcher := builtin.NewDispatcher(cfg, logger)

	srv, err := server.New(server.Config{
		AllowedOrigins: []string{"*"},
		JWTSecret:      jwtSecret,
		MaxCodeBytes:   cfg.Server.MaxCodeBytes,
		WriteTimeout:   time.Minute,
	}, dispatcher, logger)
	require.NoError(t, err)
	return srv
}

func postExecute(t *testing.T, h http.Handler, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/execute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRoutes_HealthAndLanguages(t *testing.T) {
	h := newServer(t, "").Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/languages", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"languages":["html","javascript","python","r","sql"]}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var health struct {
		Status   string `json:"status"`
		Runtimes []struct {
			Language  string `json:"language"`
			Available bool   `json:"available"`
		} `json:"runtimes"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&health))
	assert.Contains(t, []string{"healthy", "degraded"}, health.Status)
	assert.Len(t, health.Runtimes, 5)
}

func TestRoutes_Execute(t *testing.T) {
	h := newServer(t, "").Handler()

	rr := postExecute(t, h, `{"language":"html","code":"<p>hi</p>"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var res map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "<p>hi</p>", res["html_content"])

	rr = postExecute(t, h, `{"language":"sql","code":"SELECT n FROM t","context":{"data":{"t":[{"n":1},{"n":2}]}}}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	res = nil
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, true, res["success"], res["error"])
	assert.Contains(t, res["output"], "Results (2 rows):\n(1,)\n(2,)")

	rr = postExecute(t, h, `{"language":"cobol","code":"DISPLAY 'HI'."}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	res = nil
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, false, res["success"])
	assert.Equal(t, 0.0, res["execution_time"])

	rr = postExecute(t, h, `{"code":"print(1)"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRoutes_ExecuteRequiresTokenWhenConfigured(t *testing.T) {
	h := newServer(t, secret).Handler()

	rr := postExecute(t, h, `{"language":"html","code":"<p>hi</p>"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	tokens, err := auth.NewTokenService(secret)
	require.NoError(t, err)
	token, err := tokens.Generate("notebook", time.Hour)
	require.NoError(t, err)

	rr = postExecute(t, h, `{"language":"html","code":"<p>hi</p>"}`, token)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Read-only endpoints stay open.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRoutes_CORSPreflight(t *testing.T) {
	h := newServer(t, "").Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/execute", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestNew_ShortSecret(t *testing.T) {
	_, err := server.New(server.Config{JWTSecret: "short"}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestServe_GracefulShutdown(t *testing.T) {
	srv := newServer(t, "")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get(fmt.Sprintf("http://%s/api/languages", ln.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
