// Package verify drives a browser through the footer verification flow:
// navigate, dismiss the location modal, scroll, wait for the branches
// heading and screenshot the footer.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/ibeckermayer/verifyshot/internal/browser"
	"github.com/ibeckermayer/verifyshot/internal/config"
	"github.com/ibeckermayer/verifyshot/internal/logging"
	"github.com/ibeckermayer/verifyshot/internal/types"
)

// Verifier runs captures against the configured target
type Verifier struct {
	cfg    *config.Config
	logger *slog.Logger

	// onSession is called with every browser session once it has started
	onSession func(*browser.Session)
}

// New creates a verifier. cfg must already be validated.
func New(cfg *config.Config, logger *slog.Logger) *Verifier {
	return &Verifier{
		cfg:    cfg,
		logger: logging.Component(logger, "verify"),
	}
}

// Run performs the footer verification flow. It always returns a Run
// describing the outcome; the error is the main-flow failure, if any.
// The browser is closed before Run returns.
func (v *Verifier) Run(ctx context.Context) (*types.Run, error) {
	cfg := v.cfg
	run := newRun(types.KindFooter, cfg.Target.URL, cfg.Target.Output)
	log := v.logger.With("run", run.ID)

	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout())
	defer cancel()

	sess, err := v.start(ctx, log)
	if err != nil {
		return v.finish(log, run, err)
	}
	defer v.close(log, sess)

	log.Info("navigating", "url", cfg.Target.URL)
	if err := sess.Run(chromedp.Navigate(cfg.Target.URL)); err != nil {
		return v.finish(log, run, &StepError{Step: StepNavigate, Err: err})
	}

	run.Modal = v.dismissModal(sess.Context(), log)

	// Scroll to the bottom so lazily rendered footer content mounts
	if err := sess.Run(chromedp.Evaluate(scrollToBottomJS, nil)); err != nil {
		return v.finish(log, run, &StepError{Step: StepScroll, Err: err})
	}

	headingXPath, err := RoleXPath(cfg.Heading.Roles, cfg.Heading.Text)
	if err != nil {
		return v.finish(log, run, &StepError{Step: StepHeading, Err: err})
	}
	log.Debug("waiting for heading", "text", cfg.Heading.Text, "xpath", headingXPath)
	if err := v.runWithin(sess.Context(), cfg.ElementTimeout(),
		chromedp.WaitVisible(headingXPath, chromedp.BySearch),
	); err != nil {
		return v.finish(log, run, &StepError{Step: StepHeading, Err: fmt.Errorf("heading %q: %w", cfg.Heading.Text, err)})
	}

	var buf []byte
	if err := v.runWithin(sess.Context(), cfg.ElementTimeout(),
		chromedp.ScrollIntoView(cfg.Target.FooterSelector, chromedp.ByQuery),
		chromedp.Screenshot(cfg.Target.FooterSelector, &buf, chromedp.ByQuery, chromedp.NodeVisible),
	); err != nil {
		return v.finish(log, run, &StepError{Step: StepScreenshot, Err: err})
	}

	if err := writeImage(cfg.Target.Output, buf); err != nil {
		return v.finish(log, run, err)
	}

	run.Bytes = len(buf)
	log.Info("screenshot taken", "path", cfg.Target.Output, "bytes", run.Bytes)
	return v.finish(log, run, nil)
}

// start launches the browser and injects any configured cookies
func (v *Verifier) start(ctx context.Context, log *slog.Logger) (*browser.Session, error) {
	sess, err := browser.Start(ctx, v.cfg.Browser, log)
	if err != nil {
		return nil, &StepError{Step: StepLaunch, Err: err}
	}
	if v.onSession != nil {
		v.onSession(sess)
	}

	if path := v.cfg.Browser.CookiesFile; path != "" {
		cookies, err := browser.LoadCookies(path)
		if err == nil {
			err = sess.Run(browser.InjectCookies(cookies))
		}
		if err != nil {
			v.close(log, sess)
			return nil, &StepError{Step: StepCookies, Err: err}
		}
		log.Debug("injected cookies", "count", len(cookies), "file", path)
	}

	return sess, nil
}

// close releases the browser; failures are only logged
func (v *Verifier) close(log *slog.Logger, sess *browser.Session) {
	if err := sess.Close(); err != nil {
		log.Warn("browser did not close cleanly", "err", err)
		return
	}
	log.Debug("browser closed")
}

// runWithin runs actions with their own timeout, leaving the tab open on expiry
func (v *Verifier) runWithin(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// finish stamps the run and logs a main-flow error if there is one
func (v *Verifier) finish(log *slog.Logger, run *types.Run, err error) (*types.Run, error) {
	run.FinishedAt = time.Now()
	if err != nil {
		run.Status = types.StatusFailed
		run.Step = string(FailedStep(err))
		run.Error = err.Error()
		log.Error("capture failed", "step", run.Step, "err", err)
		return run, err
	}
	run.Status = types.StatusOK
	log.Debug("capture finished", "took", run.Duration())
	return run, nil
}

func newRun(kind types.Kind, url, output string) *types.Run {
	if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}
	return &types.Run{
		ID:         uuid.NewString(),
		Kind:       kind,
		URL:        url,
		OutputPath: output,
		StartedAt:  time.Now(),
	}
}

// writeImage writes png data to path, creating parent directories
func writeImage(path string, data []byte) error {
	if len(data) == 0 {
		return &StepError{Step: StepScreenshot, Err: ErrEmptyScreenshot}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &StepError{Step: StepWrite, Err: err}
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &StepError{Step: StepWrite, Err: err}
	}
	return nil
}
