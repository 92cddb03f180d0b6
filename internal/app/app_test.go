package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-k8s/canvas-command-gateway/internal/dsl"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, body)
	})
}

func TestNewRoutes(t *testing.T) {
	a, err := New(context.Background(), dsl.ServerConfig{}, map[string]http.Handler{
		"/api/": okHandler("api"),
		"/mcp":  okHandler("mcp"),
	}, nil, 0)
	require.NoError(t, err)

	for path, want := range map[string]string{"/api/commands": "api", "/mcp": "mcp"} {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, want, rec.Body.String(), path)
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewRequiresRoutes(t *testing.T) {
	_, err := New(context.Background(), dsl.ServerConfig{}, nil, nil, 0)
	assert.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), dsl.ServerConfig{}, map[string]http.Handler{"/": okHandler("root")}, nil, time.Second)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/readyz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}
