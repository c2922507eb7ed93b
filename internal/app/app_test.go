package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/datepoll/core/bootstrap"
	coreconfig "github.com/m3rciful/datepoll/core/config"
	coredatabase "github.com/m3rciful/datepoll/core/database"
	"github.com/m3rciful/datepoll/core/logger"
	tg "github.com/m3rciful/datepoll/core/telegram"
	"github.com/m3rciful/datepoll/internal/action"
	"github.com/m3rciful/datepoll/internal/config"
	"github.com/m3rciful/datepoll/internal/pollstore"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Health.Listen = "127.0.0.1:0"
	require.NoError(t, cfg.Normalize())
	return cfg
}

func quietLogger(*coreconfig.Config) error { return nil }

func TestNewWiresRoutes(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), bootstrap.Options{LoggerInit: quietLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)

	// 7 commands, the callback route and the text route.
	assert.Len(t, opts.Routes, 9)
	assert.NotEmpty(t, opts.Middlewares)
	assert.Same(t, a.cfg.CoreConfig(), opts.Config)
	assert.ElementsMatch(t, action.Keys(), opts.Registry.ListCallbacks())
	_, isMemory := a.polls.(*pollstore.Memory)
	assert.True(t, isMemory)
}

func TestLifecycleServesHealthAndMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sessions.IdleTTL = time.Minute
	require.NoError(t, cfg.Normalize())

	a, err := New(context.Background(), cfg, bootstrap.Options{LoggerInit: quietLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, a.onStart(context.Background(), tg.Runtime{}))
	base := "http://" + a.health.Addr()

	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "Bot is running", string(body))

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "datepoll_active_sessions 0")

	require.NoError(t, a.onStop(context.Background(), tg.Runtime{}))
	assert.Nil(t, a.stopSweep)
}

func TestNewWithSQLiteArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Health.Disabled = true
	cfg.Database = coredatabase.Config{Driver: "sqlite", Path: "file:app_test?mode=memory&cache=shared"}
	require.NoError(t, cfg.Normalize())

	a, err := New(context.Background(), cfg, bootstrap.Options{LoggerInit: quietLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, isSQL := a.polls.(*pollstore.SQL)
	assert.True(t, isSQL)
	assert.Nil(t, a.health)
	require.NoError(t, a.onStart(context.Background(), tg.Runtime{}))
	require.NoError(t, a.onStop(context.Background(), tg.Runtime{}))
}

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(context.Background(), foreign{})
	assert.Error(t, err)
}

type foreign struct{}

func (foreign) CoreConfig() *coreconfig.Config { return &coreconfig.Config{} }

func TestSweepLogsRemovedSessions(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Flow
	logger.Flow = slog.New(slog.NewJSONHandler(&buf, nil))
	t.Cleanup(func() { logger.Flow = prev })

	a, err := New(context.Background(), testConfig(t), bootstrap.Options{LoggerInit: quietLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.flow.Start(context.Background(), 7, 7, time.Now())
	require.NoError(t, err)
	buf.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	a.sweepDone = make(chan struct{})
	go a.sweep(ctx, time.Nanosecond, 5*time.Millisecond)
	require.Eventually(t, func() bool { return a.flow.Sessions().Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-a.sweepDone

	assert.Contains(t, buf.String(), `"event":"session.sweep"`)
	assert.Contains(t, buf.String(), `"removed":1`)
}
