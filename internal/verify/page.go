package verify

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/verifyshot/internal/types"
)

// fullPageQuality selects PNG output for chromedp.FullScreenshot
const fullPageQuality = 100

// CapturePage navigates to the page URL, waits until the network has been
// idle, and writes a screenshot of the whole scrollable page.
func (v *Verifier) CapturePage(ctx context.Context) (*types.Run, error) {
	cfg := v.cfg
	run := newRun(types.KindPage, cfg.Page.URL, cfg.Page.Output)
	log := v.logger.With("run", run.ID)

	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout())
	defer cancel()

	sess, err := v.start(ctx, log)
	if err != nil {
		return v.finish(log, run, err)
	}
	defer v.close(log, sess)

	idle := newIdleWatcher()
	chromedp.ListenTarget(sess.Context(), idle.observe)

	log.Info("navigating", "url", cfg.Page.URL)
	if err := sess.Run(
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(cfg.Page.URL),
	); err != nil {
		return v.finish(log, run, &StepError{Step: StepNavigate, Err: err})
	}

	var loaderID cdp.LoaderID
	if err := sess.Run(chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		loaderID = tree.Frame.LoaderID
		return nil
	})); err != nil {
		return v.finish(log, run, &StepError{Step: StepNetworkIdle, Err: err})
	}

	waitCtx, waitCancel := context.WithTimeout(sess.Context(), cfg.ElementTimeout())
	err = idle.wait(waitCtx, loaderID)
	waitCancel()
	if err != nil {
		return v.finish(log, run, &StepError{Step: StepNetworkIdle, Err: err})
	}
	log.Debug("network idle", "loader", loaderID)

	var buf []byte
	if err := sess.Run(chromedp.FullScreenshot(&buf, fullPageQuality)); err != nil {
		return v.finish(log, run, &StepError{Step: StepScreenshot, Err: err})
	}

	if err := writeImage(cfg.Page.Output, buf); err != nil {
		return v.finish(log, run, err)
	}

	run.Bytes = len(buf)
	log.Info("screenshot taken", "path", cfg.Page.Output, "bytes", run.Bytes)
	return v.finish(log, run, nil)
}

// idleWatcher records which documents have reached the networkIdle lifecycle state
type idleWatcher struct {
	mu     sync.Mutex
	seen   map[cdp.LoaderID]bool
	notify chan struct{}
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{
		seen:   make(map[cdp.LoaderID]bool),
		notify: make(chan struct{}, 1),
	}
}

func (w *idleWatcher) observe(ev any) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || e.Name != "networkIdle" {
		return
	}

	w.mu.Lock()
	w.seen[e.LoaderID] = true
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *idleWatcher) reached(id cdp.LoaderID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seen[id]
}

// wait blocks until the document loaded by id is network idle or ctx ends
func (w *idleWatcher) wait(ctx context.Context, id cdp.LoaderID) error {
	for {
		if w.reached(id) {
			return nil
		}
		select {
		case <-w.notify:
		case <-ctx.Done():
			return fmt.Errorf("network never went idle: %w", ctx.Err())
		}
	}
}
