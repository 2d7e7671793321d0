package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/verifyshot/internal/config"
)

// Session owns one browser process (or one tab on a remote browser) for the
// duration of a run. Close must be called; it is safe to call more than once.
type Session struct {
	ctx      context.Context
	allocCtx context.Context

	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	closeOnce   sync.Once
	closeErr    error
}

// Start launches the browser described by cfg and opens a tab.
// When cfg.RemoteURL is set the tab is opened on that browser instead.
func Start(ctx context.Context, cfg config.BrowserConfig, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		logger.Debug("connecting to remote browser", "url", cfg.RemoteURL)
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, Options(cfg)...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("cdp: "+fmt.Sprintf(format, args...))
		}),
	)

	s := &Session{
		ctx:         tabCtx,
		allocCtx:    allocCtx,
		cancelTab:   tabCancel,
		cancelAlloc: allocCancel,
	}

	// An empty Run forces the browser to start so launch failures surface here
	if err := chromedp.Run(tabCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return s, nil
}

// Context returns the tab context to pass to chromedp.Run
func (s *Session) Context() context.Context {
	return s.ctx
}

// Run executes actions in the session's tab
func (s *Session) Run(actions ...chromedp.Action) error {
	return chromedp.Run(s.ctx, actions...)
}

// Close shuts the browser down and releases the allocator
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		err := chromedp.Cancel(s.ctx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.closeErr = err
		}
		s.cancelTab()
		s.cancelAlloc()
	})
	return s.closeErr
}

// Closed reports whether the browser has been released
func (s *Session) Closed() bool {
	select {
	case <-s.allocCtx.Done():
		return true
	default:
		return false
	}
}
