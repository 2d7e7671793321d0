package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ibeckermayer/verifyshot/internal/config"
	"github.com/ibeckermayer/verifyshot/internal/logging"
	"github.com/ibeckermayer/verifyshot/internal/store"
	"github.com/ibeckermayer/verifyshot/internal/types"
	"github.com/ibeckermayer/verifyshot/internal/verify"
)

// Recorder persists runs. *store.Store satisfies it.
type Recorder interface {
	SaveRun(r *types.Run) error
	LastRun(kind types.Kind) (*types.Run, error)
	Prune(keep int) (int64, error)
}

var (
	// ErrNoHistory is returned when run history is disabled
	ErrNoHistory = errors.New("run history is disabled")
	// ErrNoScreenshot is returned when the latest run wrote no screenshot
	ErrNoScreenshot = errors.New("last run has no screenshot")
)

// App holds the application state.
type App struct {
	mu         sync.RWMutex
	configPath string
	base       *slog.Logger
	logger     *slog.Logger
	recorder   Recorder // may be nil; immutable after creation
	override   func(*config.Config)

	// Mutable fields - use getSnapshot() for concurrent access.
	config   *config.Config
	verifier *verify.Verifier
}

// snapshot holds fields that may be replaced by ReloadConfig.
// Use getSnapshot() to obtain a consistent, point-in-time copy.
type snapshot struct {
	config   *config.Config
	verifier *verify.Verifier
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config:   a.config,
		verifier: a.verifier,
	}
}

// New creates a new App instance. configPath is where ReloadConfig reads
// from; recorder may be nil to disable history.
func New(cfg *config.Config, configPath string, recorder Recorder, logger *slog.Logger) *App {
	return &App{
		config:     cfg,
		configPath: configPath,
		recorder:   recorder,
		base:       logger,
		logger:     logging.Component(logger, "app"),
		verifier:   verify.New(cfg, logger),
	}
}

// Config returns the active configuration
func (a *App) Config() *config.Config {
	return a.getSnapshot().config
}

// Verify runs the footer verification flow and records the outcome.
func (a *App) Verify(ctx context.Context) (*types.Run, error) {
	s := a.getSnapshot()
	run, err := s.verifier.Run(ctx)
	a.record(s.config, run)
	return run, err
}

// CapturePage runs the full-page capture and records the outcome.
func (a *App) CapturePage(ctx context.Context) (*types.Run, error) {
	s := a.getSnapshot()
	run, err := s.verifier.CapturePage(ctx)
	a.record(s.config, run)
	return run, err
}

// record saves a run to history. History problems never fail a run.
func (a *App) record(cfg *config.Config, run *types.Run) {
	if a.recorder == nil || run == nil {
		return
	}

	if err := a.recorder.SaveRun(run); err != nil {
		a.logger.Warn("failed to record run", "run", run.ID, "err", err)
		return
	}

	if cfg.History.Keep > 0 {
		removed, err := a.recorder.Prune(cfg.History.Keep)
		if err != nil {
			a.logger.Warn("failed to prune history", "err", err)
		} else if removed > 0 {
			a.logger.Debug("pruned history", "removed", removed)
		}
	}
}

// LastOutput returns the screenshot path of the most recent run of kind.
// It fails if that run did not produce a screenshot.
func (a *App) LastOutput(kind types.Kind) (string, error) {
	if a.recorder == nil {
		return "", ErrNoHistory
	}
	run, err := a.recorder.LastRun(kind)
	if err != nil {
		return "", err
	}
	if !run.OK() {
		return "", fmt.Errorf("%w: run %s failed at %s", ErrNoScreenshot, run.ID, run.Step)
	}
	return run.OutputPath, nil
}

// SetOverride registers fn to be applied to every reloaded config, so
// command-line flags survive ReloadConfig. Call before concurrent use.
func (a *App) SetOverride(fn func(*config.Config)) {
	a.override = fn
}

// ReloadConfig reloads the configuration from disk.
func (a *App) ReloadConfig() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.override != nil {
		a.override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	a.config = cfg
	a.verifier = verify.New(cfg, a.base)
	a.mu.Unlock()

	a.logger.Debug("configuration reloaded")
	return nil
}

var _ Recorder = (*store.Store)(nil)
