package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/verifyshot/internal/types"
)

const pollInterval = 100 * time.Millisecond

// dismissModal clears the location modal on a best-effort basis.
// Failures are logged and reported through the outcome, never returned:
// the flow carries on as if the modal were already gone.
func (v *Verifier) dismissModal(ctx context.Context, log *slog.Logger) types.ModalOutcome {
	m := v.cfg.Modal
	if !m.Enabled {
		return types.ModalSkipped
	}

	titleXPath := TextXPath(m.Title)

	if err := v.runWithin(ctx, v.cfg.ModalAppearTimeout(),
		chromedp.WaitVisible(titleXPath, chromedp.BySearch),
	); err != nil {
		if ctx.Err() != nil {
			log.Warn("modal handling failed", "err", ctx.Err())
			return types.ModalFailed
		}
		log.Info("modal did not appear", "title", m.Title, "waited", v.cfg.ModalAppearTimeout())
		return types.ModalAbsent
	}

	if err := v.chooseLocation(ctx); err != nil {
		log.Warn("modal handling failed", "err", err)
		return types.ModalFailed
	}

	log.Info("modal dismissed")
	return types.ModalDismissed
}

// chooseLocation picks the pickup option, saves, and waits for the modal to go away
func (v *Verifier) chooseLocation(ctx context.Context) error {
	m := v.cfg.Modal
	timeout := v.cfg.ElementTimeout()

	if m.Option != "" {
		if err := v.runWithin(ctx, timeout,
			chromedp.Click(TextXPath(m.Option), chromedp.BySearch, chromedp.NodeVisible),
		); err != nil {
			return fmt.Errorf("click option %q: %w", m.Option, err)
		}
	}

	// The save button stays disabled until a branch is picked
	if m.SelectFirstBranch && m.BranchSelector != "" {
		if err := v.runWithin(ctx, timeout,
			chromedp.Click(m.BranchSelector, chromedp.ByQuery, chromedp.NodeVisible),
		); err != nil {
			return fmt.Errorf("select branch: %w", err)
		}
	}

	saveXPath, err := RoleXPath([]string{"button"}, m.Save)
	if err != nil {
		return err
	}
	if err := v.runWithin(ctx, timeout,
		chromedp.Click(saveXPath, chromedp.BySearch, chromedp.NodeVisible),
	); err != nil {
		return fmt.Errorf("click %q: %w", m.Save, err)
	}

	var hidden bool
	if err := chromedp.Run(ctx,
		chromedp.Poll(hiddenJS(TextXPath(m.Title)), &hidden,
			chromedp.WithPollingTimeout(timeout),
			chromedp.WithPollingInterval(pollInterval),
		),
	); err != nil {
		if errors.Is(err, chromedp.ErrPollingTimeout) {
			return fmt.Errorf("modal %q still visible after %s", m.Title, timeout)
		}
		return fmt.Errorf("wait for modal to close: %w", err)
	}

	return nil
}
