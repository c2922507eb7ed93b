// Package app assembles datepoll from its configuration and hands the result
// to the shared Telegram runner.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/m3rciful/datepoll/core/bootstrap"
	"github.com/m3rciful/datepoll/core/cmd"
	"github.com/m3rciful/datepoll/core/logger"
	"github.com/m3rciful/datepoll/core/metrics"
	tg "github.com/m3rciful/datepoll/core/telegram"
	"github.com/m3rciful/datepoll/core/telegram/router"
	"github.com/m3rciful/datepoll/core/telegram/ui"
	"github.com/m3rciful/datepoll/internal/bot"
	"github.com/m3rciful/datepoll/internal/calendar"
	"github.com/m3rciful/datepoll/internal/config"
	"github.com/m3rciful/datepoll/internal/flow"
	"github.com/m3rciful/datepoll/internal/health"
	"github.com/m3rciful/datepoll/internal/pollstore"
	"github.com/m3rciful/datepoll/internal/session"
)

const shutdownTimeout = 5 * time.Second

// App owns every long-lived component of the bot.
type App struct {
	cfg      *config.Config
	infra    *bootstrap.Result
	flow     *flow.Service
	polls    pollstore.Store
	handlers *bot.Handlers
	fallback ui.FallbackProvider
	registry *tg.Registry
	health   *health.Server

	stopSweep context.CancelFunc
	sweepDone chan struct{}
}

// Bootstrap adapts New to the runner's signature.
func Bootstrap(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	a, err := New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// LoadConfig adapts config.Load to the runner's signature.
func LoadConfig(path string) (cmd.ConfigCarrier, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// New initializes logging and storage and wires the bot. Zero fields of
// infra fall back to the bootstrap defaults; Config, Database and Migrations
// always come from cfg.
func New(ctx context.Context, cfg *config.Config, infra bootstrap.Options) (*App, error) {
	infra.Config = cfg.CoreConfig()
	infra.Database = cfg.Database
	infra.Migrations = pollstore.Migrations
	res, err := bootstrap.Run(ctx, infra)
	if err != nil {
		return nil, err
	}

	a, err := assemble(cfg, res)
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	return a, nil
}

func assemble(cfg *config.Config, res *bootstrap.Result) (*App, error) {
	var polls pollstore.Store = pollstore.NewMemory()
	if res.DB != nil {
		polls = pollstore.NewSQL(res.DB)
	}

	formatter, err := calendar.NewFormatter(cfg.Poll.Locale)
	if err != nil {
		return nil, err
	}
	clock := calendar.SystemClock{Location: cfg.Location()}
	sessions := session.NewStore()
	svc, err := flow.NewService(flow.Options{
		Store:      sessions,
		Renderer:   calendar.NewRenderer(formatter, clock),
		Formatter:  formatter,
		MaxOptions: cfg.Poll.MaxOptions,
	})
	if err != nil {
		return nil, err
	}

	handlers, err := bot.New(bot.Options{
		Flow:        svc,
		Polls:       polls,
		Clock:       clock,
		Location:    cfg.Location(),
		GroupChatID: cfg.Poll.GroupChatID,
	})
	if err != nil {
		return nil, err
	}
	reg := tg.NewRegistry()
	if err := handlers.Register(reg); err != nil {
		return nil, err
	}

	metricsReg := prometheus.NewRegistry()
	err = metrics.Register(metricsReg,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.ActiveSessions(func() float64 { return float64(sessions.Len()) }),
	)
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	a := &App{
		cfg:      cfg,
		infra:    res,
		flow:     svc,
		polls:    polls,
		handlers: handlers,
		fallback: handlers,
		registry: reg,
	}
	if !cfg.Health.Disabled {
		a.health = health.NewServer(cfg.Health.Listen, health.NewRouter(metricsReg))
	}
	return a, nil
}

// TelegramRunOptions builds the routes and lifecycle hooks for the runner.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: core.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{
		NotFound: a.fallback.UnknownCallback(),
	}))
	routes = append(routes, router.TextRoutes(a.handlers, a.registry, router.TextOptions{})...)

	return tg.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(core, nil),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.infra.Close()
}

func (a *App) onStart(ctx context.Context, _ tg.Runtime) error {
	if a.health != nil {
		if err := a.health.Start(); err != nil {
			return err
		}
	}
	if ttl := a.cfg.Sessions.IdleTTL; ttl > 0 {
		sweepCtx, cancel := context.WithCancel(ctx)
		a.stopSweep = cancel
		a.sweepDone = make(chan struct{})
		go a.sweep(sweepCtx, ttl, a.cfg.Sessions.SweepInterval)
	}
	return nil
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	if a.stopSweep != nil {
		a.stopSweep()
		<-a.sweepDone
		a.stopSweep = nil
	}
	if a.health == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return a.health.Shutdown(ctx)
}

func (a *App) sweep(ctx context.Context, ttl, every time.Duration) {
	defer close(a.sweepDone)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.flow.Sessions().Sweep(ttl); n > 0 {
				logger.LogEvent(ctx, logger.Flow, slog.LevelInfo, "session.sweep",
					slog.Int("removed", n),
					slog.Int("sessions", a.flow.Sessions().Len()),
				)
			}
		}
	}
}
