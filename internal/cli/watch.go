package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/verifyshot/internal/app"
	"github.com/ibeckermayer/verifyshot/internal/config"
	"github.com/ibeckermayer/verifyshot/internal/scheduler"
)

// jobGrace is added to the run timeout so a job can record its outcome
const jobGrace = 30 * time.Second

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Repeat the capture on a schedule until interrupted",
		Long: `Watch runs the footer capture immediately and then on a schedule until
SIGINT or SIGTERM. The config file is re-read before every run, so edits take
effect without a restart. Flags still win over the file.

A run that is still going when the next one is due is skipped.

Examples:
  # Every 30 minutes (the default)
  verifyshot watch

  # Every 5 minutes, plus a full-page capture
  verifyshot watch --every 5 --page

  # Weekdays at 09:00
  verifyshot watch --cron "0 9 * * 1-5"`,
		Args: cobra.NoArgs,
		RunE: runWatchCmd,
	}

	addTargetFlags(cmd)
	cmd.Flags().Bool("no-modal", false, "Skip location modal handling")
	cmd.Flags().IntP("every", "e", 0, "Interval in minutes (default from config)")
	cmd.Flags().String("cron", "", "Cron expression (default from config)")
	cmd.Flags().Bool("page", false, "Also take a full-page capture on every run")
	cmd.MarkFlagsMutuallyExclusive("every", "cron")

	return cmd
}

// runWatchCmd executes the watch command.
func runWatchCmd(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd, targetFooter)
	if err != nil {
		return err
	}

	every, _ := cmd.Flags().GetInt("every")
	cronExpr, _ := cmd.Flags().GetString("cron")
	withPage, _ := cmd.Flags().GetBool("page")

	schedule := watchSchedule(e.cfg.Watch, every, cronExpr)

	a, closeApp := e.newApp()
	defer closeApp()

	sched, err := scheduler.New(e.cfg.Watch.Timezone, e.cfg.RunTimeout()+jobGrace, e.logger)
	if err != nil {
		return err
	}

	job := captureJob(a, e, withPage)
	if err := sched.AddJob("capture", schedule, job); err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	// First run happens now rather than one interval from now
	_ = sched.RunNow(ctx, "capture", job)

	sched.Start()
	<-ctx.Done()

	e.logger.Info("shutting down, waiting for running jobs")
	<-sched.Stop().Done()
	return nil
}

// watchSchedule picks the schedule: flags first, then the config file.
// A cron expression wins over an interval.
func watchSchedule(cfg config.WatchConfig, every int, cronExpr string) string {
	switch {
	case every > 0:
		return scheduler.IntervalSchedule(every)
	case cronExpr != "":
		return cronExpr
	case cfg.Cron != "":
		return cfg.Cron
	default:
		return scheduler.IntervalSchedule(cfg.IntervalMinutes)
	}
}

// captureJob reloads the config and runs the footer capture, plus the
// full-page capture alongside it when withPage is set. One failing capture
// does not cancel the other.
func captureJob(a *app.App, e *env, withPage bool) scheduler.Job {
	return func(ctx context.Context) error {
		reload(a, e)

		var g errgroup.Group
		g.Go(func() error {
			_, err := a.Verify(ctx)
			return err
		})
		if withPage {
			g.Go(func() error {
				_, err := a.CapturePage(ctx)
				return err
			})
		}
		return g.Wait()
	}
}

// reload picks up config edits. A missing or broken file keeps the
// previous config.
func reload(a *app.App, e *env) {
	err := a.ReloadConfig()
	switch {
	case err == nil:
	case errors.Is(err, config.ErrNotFound):
		e.logger.Debug("config file gone, keeping previous config")
	default:
		e.logger.Warn("config reload failed, keeping previous config", "err", err)
	}
}
