// Package app wires all TailorTalk subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the front ends and the session sweeper, and
// Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithSessionStore,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tailortalk/tailortalk/internal/config"
	"github.com/tailortalk/tailortalk/internal/dialog"
	"github.com/tailortalk/tailortalk/internal/discordfront"
	"github.com/tailortalk/tailortalk/internal/health"
	"github.com/tailortalk/tailortalk/internal/httpapi"
	"github.com/tailortalk/tailortalk/internal/intent"
	"github.com/tailortalk/tailortalk/internal/observe"
	"github.com/tailortalk/tailortalk/internal/session"
	"github.com/tailortalk/tailortalk/pkg/provider/calendar"
	"github.com/tailortalk/tailortalk/pkg/provider/llm"
)

const (
	defaultListenAddr    = ":8080"
	defaultIdleTTL       = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
	shutdownGrace        = 10 * time.Second
)

// Providers holds one interface value per provider slot. The LLM slot
// may be nil, in which case intent classification runs on keywords
// only. Populated by main.go via the config registry, with the LLM
// already wrapped in its fallback chain.
type Providers struct {
	LLM      llm.Provider
	Calendar calendar.Provider
}

// App owns all subsystem lifetimes and serves the scheduling assistant.
type App struct {
	cfg       *config.Config
	providers *Providers

	store   session.Store
	metrics *observe.Metrics
	log     *slog.Logger

	classifier *intent.Classifier

	// machine is swapped wholesale when booking rules are hot-reloaded.
	machineMu sync.RWMutex
	machine   *dialog.Machine

	httpSrv *http.Server
	discord *discordfront.Frontend

	// closers are called in reverse order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSessionStore injects a session store instead of creating one from config.
func WithSessionStore(s session.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a metrics sink instead of using the global one.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithAppLogger sets the logger. Defaults to slog.Default().
func WithAppLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// New creates an App by wiring all subsystems together. The providers
// struct comes from main.go (populated via the config registry).
//
// New performs all initialisation synchronously: session store setup,
// classifier and dialog machine construction, and the optional Discord
// connection. The HTTP listener is not bound until Run.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.Calendar == nil {
		return nil, fmt.Errorf("app: calendar provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.log == nil {
		a.log = slog.Default()
	}

	if err := a.initSessions(ctx); err != nil {
		return nil, fmt.Errorf("app: init sessions: %w", err)
	}

	a.initDialog()

	if err := a.initDiscord(); err != nil {
		return nil, fmt.Errorf("app: init discord: %w", err)
	}

	return a, nil
}

// initSessions sets up the configured session store unless one was injected.
func (a *App) initSessions(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	switch a.cfg.Session.Backend {
	case config.SessionPostgres:
		store, err := session.NewPostgresStore(ctx, a.cfg.Session.PostgresDSN)
		if err != nil {
			return err
		}
		a.store = store
	case config.SessionMemory, "":
		a.store = session.NewMemoryStore()
	default:
		return fmt.Errorf("unknown session backend %q", a.cfg.Session.Backend)
	}

	a.closers = append(a.closers, a.store.Close)
	return nil
}

// initDialog builds the classifier and the dialog machine from config.
func (a *App) initDialog() {
	var copts []intent.ClassifierOption
	if a.providers.LLM != nil {
		copts = append(copts, intent.WithInterpreter(intent.NewInterpreter(a.providers.LLM)))
	}
	copts = append(copts, intent.WithLogger(a.log))
	a.classifier = intent.NewClassifier(copts...)

	a.machine = a.buildMachine(a.cfg.Booking)
}

// buildMachine constructs a dialog machine for the given booking rules.
func (a *App) buildMachine(b config.BookingConfig) *dialog.Machine {
	var mopts []dialog.MachineOption
	mopts = append(mopts, dialog.WithMachineLogger(a.log))
	if b.OpenHour != 0 || b.CloseHour != 0 {
		mopts = append(mopts, dialog.WithBusinessHours(b.OpenHour, b.CloseHour))
	}
	if b.DefaultDurationMinutes > 0 {
		mopts = append(mopts, dialog.WithDefaultDuration(time.Duration(b.DefaultDurationMinutes)*time.Minute))
	}
	if b.LookaheadDays > 0 {
		mopts = append(mopts, dialog.WithLookahead(time.Duration(b.LookaheadDays)*24*time.Hour))
	}
	return dialog.NewMachine(a.classifier, a.providers.Calendar, mopts...)
}

// initDiscord connects the Discord front end when enabled.
func (a *App) initDiscord() error {
	if !a.cfg.Discord.Enabled {
		return nil
	}
	front, err := discordfront.New(discordfront.Config{
		Token:     a.cfg.Discord.Token,
		ChannelID: a.cfg.Discord.ChannelID,
	}, a, discordfront.WithLogger(a.log))
	if err != nil {
		return err
	}
	a.discord = front
	a.closers = append(a.closers, front.Close)
	return nil
}

// ApplyBooking swaps in new booking rules without a restart. Turns in
// flight finish under the old rules.
func (a *App) ApplyBooking(b config.BookingConfig) {
	m := a.buildMachine(b)
	a.machineMu.Lock()
	a.machine = m
	a.machineMu.Unlock()
	a.log.Info("booking rules reloaded",
		"open_hour", b.OpenHour,
		"close_hour", b.CloseHour,
		"default_duration_minutes", b.DefaultDurationMinutes,
		"lookahead_days", b.LookaheadDays,
	)
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP front end and the session sweeper until ctx is
// cancelled, then shuts the listener down gracefully.
func (a *App) Run(ctx context.Context) error {
	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}

	api := httpapi.New(a,
		httpapi.WithMetrics(a.metrics),
		httpapi.WithHealth(health.New(a.readinessChecks()...)),
		httpapi.WithLogger(a.log),
	)
	a.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("http server listening", "addr", addr, "tls", a.cfg.Server.TLS != nil)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return a.httpSrv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		a.sweepLoop(ctx)
		return nil
	})

	return g.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects
// the context deadline: if ctx expires before all closers finish,
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down", "closers", len(a.closers))

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				a.log.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				a.log.Warn("closer error", "index", i, "err", err)
			}
		}

		a.log.Info("shutdown complete")
	})
	return shutdownErr
}
