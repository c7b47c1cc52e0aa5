package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/multierr"

	"github.com/haukened/focusd/internal/focus/common/clock"
	"github.com/haukened/focusd/internal/focus/common/log"
	"github.com/haukened/focusd/internal/focus/config"
	"github.com/haukened/focusd/internal/focus/domain"
	"github.com/haukened/focusd/internal/focus/gateways/transport"
	"github.com/haukened/focusd/internal/focus/gateways/wire"
	"github.com/haukened/focusd/internal/focus/repos/ruleset"
	"github.com/haukened/focusd/internal/focus/repos/ruleset/lru"
	"github.com/haukened/focusd/internal/focus/repos/sitelist"
	"github.com/haukened/focusd/internal/focus/repos/state"
	"github.com/haukened/focusd/internal/focus/repos/state/bolt"
	"github.com/haukened/focusd/internal/focus/services/blocker"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "focusd"
)

// newTransport is swapped in tests to serve stdio from buffers.
var newTransport = transport.NewTransport

// Application holds all the components of the daemon
type Application struct {
	config    *config.AppConfig
	store     state.Store
	service   *blocker.Service
	rules     *ruleset.Table
	transport transport.ServerTransport
	firstRun  bool
}

// streamTransport is implemented by transports that end on their own and
// can report why.
type streamTransport interface {
	Err() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.LogLevel,
		"db":        cfg.DB,
		"transport": cfg.Transport,
		"listen":    cfg.Listen,
	}, "Starting "+appName)

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Failed to build application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Daemon failed")
	}

	log.Info(nil, appName+" stopped gracefully")
}

// buildApplication opens the state file and wires the service and transport.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()

	if err := prepareDB(cfg.DB); err != nil {
		return nil, err
	}

	store, err := bolt.New(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open state db %s: %w", cfg.DB, err)
	}

	repo := state.NewRepository(store)
	installed, err := repo.Installed()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	cache, err := lru.New(cfg.DecisionCacheSize)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create decision cache: %w", err)
	}
	log.Info(map[string]any{
		"type": "LRU",
		"size": cfg.DecisionCacheSize,
	}, "Decision cache configured")

	rules := ruleset.New(cache)
	svc := blocker.New(blocker.Options{
		State:          repo,
		Rules:          rules,
		Sites:          sitelist.Codec{},
		Clock:          clock.RealClock{},
		Logger:         logger,
		BlockPageURL:   cfg.BlockPageURL,
		DefaultMessage: cfg.BlockMessage,
	})

	tr, err := newTransport(transport.TransportType(cfg.Transport), cfg.Listen, wire.NewNativeCodec(), logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &Application{
		config:    cfg,
		store:     store,
		service:   svc,
		rules:     rules,
		transport: tr,
		firstRun:  !installed,
	}, nil
}

// prepareDB creates the state directory when the state file does not exist.
func prepareDB(path string) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to stat state db %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}

// Run restores state, serves until ctx is cancelled or the transport ends,
// then shuts down.
func (app *Application) Run(ctx context.Context) (err error) {
	defer func() {
		err = multierr.Append(err, app.shutdown())
	}()

	if err := app.restore(ctx); err != nil {
		return err
	}

	handler := transport.NewDispatcher(app.service, log.GetLogger())
	if err := app.transport.Start(ctx, handler); err != nil {
		return fmt.Errorf("failed to start %s transport: %w", app.config.Transport, err)
	}

	log.Info(map[string]any{
		"address":   app.transport.Address(),
		"transport": app.config.Transport,
	}, "Focus daemon started")

	select {
	case <-ctx.Done():
		log.Info(nil, "Shutdown initiated")
	case <-app.transport.Done():
		log.Info(nil, "Transport finished")
		if st, ok := app.transport.(streamTransport); ok {
			if err := st.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s transport failed: %w", app.config.Transport, err)
			}
		}
	}
	return nil
}

// restore installs defaults on first run, otherwise reapplies persisted state.
// The seed file is read before anything is written, so a bad seed leaves the
// state uninstalled and the next start tries again.
func (app *Application) restore(ctx context.Context) error {
	if !app.firstRun {
		return app.service.Startup(ctx)
	}

	var seed domain.AllowList
	if app.config.SeedSites != "" {
		sites, err := sitelist.ImportFile(app.config.SeedSites)
		if err != nil {
			return fmt.Errorf("failed to load seed sites: %w", err)
		}
		seed = sites
	}

	if err := app.service.Install(ctx, seed); err != nil {
		return err
	}
	if seed != nil {
		log.Info(map[string]any{
			"file":  app.config.SeedSites,
			"sites": len(seed),
		}, "Allow list seeded")
	}
	return nil
}

func (app *Application) shutdown() error {
	st := app.rules.Stats()
	log.Info(map[string]any{
		"rules":     st.Rules,
		"updates":   st.Updates,
		"hits":      st.Hits,
		"misses":    st.Misses,
		"evictions": st.Evictions,
	}, "Rule table stats")

	var err error
	if stopErr := app.transport.Stop(); stopErr != nil {
		err = multierr.Append(err, fmt.Errorf("failed to stop transport: %w", stopErr))
	}
	if closeErr := app.store.Close(); closeErr != nil {
		err = multierr.Append(err, fmt.Errorf("failed to close state db: %w", closeErr))
	}
	return err
}
