package health

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "health_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	r := NewRouter(reg)

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/", http.StatusOK, RootText},
		{"/healthz", http.StatusOK, "ok"},
		{"/metrics", http.StatusOK, "health_test_total 1"},
		{"/missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestRouterWithoutMetrics(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerLifecycle(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewRouter(nil))
	require.NoError(t, srv.Start())

	resp, err := http.Get("http://" + srv.Addr() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, RootText, string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}

func TestServerStartFailsOnBusyPort(t *testing.T) {
	first := NewServer("127.0.0.1:0", NewRouter(nil))
	require.NoError(t, first.Start())
	t.Cleanup(func() { _ = first.Shutdown(context.Background()) })

	second := NewServer(first.Addr(), NewRouter(nil))
	assert.Error(t, second.Start())
}

func TestShutdownBeforeStart(t *testing.T) {
	assert.NoError(t, NewServer("", nil).Shutdown(context.Background()))
	assert.Equal(t, DefaultAddr, NewServer("", nil).Addr())
}
