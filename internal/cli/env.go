package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/verifyshot/internal/app"
	"github.com/ibeckermayer/verifyshot/internal/config"
	"github.com/ibeckermayer/verifyshot/internal/logging"
	"github.com/ibeckermayer/verifyshot/internal/store"
	"github.com/ibeckermayer/verifyshot/internal/types"
)

const defaultLogFormat = logging.FormatTint

// target selects which config section --url and --output override
type target int

const (
	targetFooter target = iota
	targetPage
)

// env is the state every command builds from its flags
type env struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	strict     bool
	noHistory  bool
	override   func(*config.Config)
}

// newEnv loads the config file, applies flag overrides, validates the
// result and sets up logging.
func newEnv(cmd *cobra.Command, t target) (*env, error) {
	flags := cmd.Flags()

	verbose, _ := flags.GetBool("verbose")
	strict, _ := flags.GetBool("strict")
	noHistory, _ := flags.GetBool("no-history")
	configPath, _ := flags.GetString("config")
	formatFlag, _ := flags.GetString("log-format")

	format, err := logging.ParseFormat(formatFlag)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), verbose, format)
	slog.SetDefault(logger)

	if configPath == "" {
		if configPath, err = config.ConfigPath(); err != nil {
			return nil, fmt.Errorf("failed to locate config directory: %w", err)
		}
	}

	cfg, err := config.Load(configPath)
	switch {
	case errors.Is(err, config.ErrNotFound):
		logger.Debug("no config file, using defaults", "path", configPath)
		cfg = config.Default()
	case err != nil:
		return nil, err
	}

	override := flagOverrides(cmd, t)
	override(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return &env{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		strict:     strict || cfg.Strict,
		noHistory:  noHistory,
		override:   override,
	}, nil
}

// flagOverrides captures the flags the user set so they can be reapplied
// whenever the config is reloaded.
func flagOverrides(cmd *cobra.Command, t target) func(*config.Config) {
	flags := cmd.Flags()

	var url, output *string
	if flags.Changed("url") {
		v, _ := flags.GetString("url")
		url = &v
	}
	if flags.Changed("output") {
		v, _ := flags.GetString("output")
		output = &v
	}
	headful, _ := flags.GetBool("headful")
	noModal := false
	if flags.Lookup("no-modal") != nil {
		noModal, _ = flags.GetBool("no-modal")
	}

	return func(cfg *config.Config) {
		switch t {
		case targetPage:
			if url != nil {
				cfg.Page.URL = *url
			}
			if output != nil {
				cfg.Page.Output = *output
			}
		default:
			if url != nil {
				cfg.Target.URL = *url
			}
			if output != nil {
				cfg.Target.Output = *output
			}
		}
		if headful {
			cfg.Browser.Headless = false
		}
		if noModal {
			cfg.Modal.Enabled = false
		}
	}
}

// newLogger builds the command logger. Colors are only used on a terminal.
func newLogger(w io.Writer, verbose bool, format logging.Format) *slog.Logger {
	return logging.New(w, logging.Options{
		Verbose: verbose,
		Format:  format,
		NoColor: !isTerminal(w),
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// openStore opens the history database, or returns nil when history is off
func (e *env) openStore() (*store.Store, error) {
	if e.noHistory || !e.cfg.History.Enabled {
		return nil, nil
	}
	return store.New(e.cfg.HistoryPath())
}

// newApp wires the app. A broken history database is logged and the run
// proceeds without it.
func (e *env) newApp() (*app.App, func()) {
	var recorder app.Recorder
	s, err := e.openStore()
	if err != nil {
		e.logger.Warn("run history unavailable", "path", e.cfg.HistoryPath(), "err", err)
	} else if s != nil {
		recorder = s
	}

	a := app.New(e.cfg, e.configPath, recorder, e.logger)
	a.SetOverride(e.override)

	return a, func() {
		if s != nil {
			if err := s.Close(); err != nil {
				e.logger.Warn("failed to close history", "err", err)
			}
		}
	}
}

// result maps a capture outcome to the command's error. The failure has
// already been logged, so only --strict turns it into a non-zero exit.
func (e *env) result(run *types.Run, err error) error {
	if err == nil || !e.strict {
		return nil
	}
	if run != nil {
		return fmt.Errorf("capture %s failed: %w", run.ID, err)
	}
	return fmt.Errorf("capture failed: %w", err)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
