package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/verifyshot/internal/config"
	"github.com/ibeckermayer/verifyshot/internal/store"
	"github.com/ibeckermayer/verifyshot/internal/types"
)

type fakeRecorder struct {
	saved   []*types.Run
	pruned  []int
	saveErr error
}

func (f *fakeRecorder) SaveRun(r *types.Run) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeRecorder) LastRun(kind types.Kind) (*types.Run, error) {
	for i := len(f.saved) - 1; i >= 0; i-- {
		if f.saved[i].Kind == kind {
			return f.saved[i], nil
		}
	}
	return nil, store.ErrNoRuns
}

func (f *fakeRecorder) Prune(keep int) (int64, error) {
	f.pruned = append(f.pruned, keep)
	return 0, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// brokenBrowserConfig fails at launch, so runs complete quickly without Chrome
func brokenBrowserConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Browser.ExecPath = filepath.Join(t.TempDir(), "no-such-chrome")
	cfg.Target.Output = filepath.Join(t.TempDir(), "footer.png")
	cfg.Page.Output = filepath.Join(t.TempDir(), "page.png")
	cfg.History.Keep = 10
	return cfg
}

func TestVerify_RecordsFailedRun(t *testing.T) {
	rec := &fakeRecorder{}
	a := New(brokenBrowserConfig(t), "", rec, quietLogger())

	run, err := a.Verify(context.Background())
	require.Error(t, err)
	require.NotNil(t, run)

	require.Len(t, rec.saved, 1)
	assert.Same(t, run, rec.saved[0])
	assert.Equal(t, types.StatusFailed, run.Status)
	assert.Equal(t, "launch", run.Step)
	assert.Equal(t, []int{10}, rec.pruned)
}

func TestCapturePage_RecordsRun(t *testing.T) {
	rec := &fakeRecorder{}
	a := New(brokenBrowserConfig(t), "", rec, quietLogger())

	run, err := a.CapturePage(context.Background())
	require.Error(t, err)
	require.Len(t, rec.saved, 1)
	assert.Equal(t, types.KindPage, run.Kind)

	_, err = a.LastOutput(types.KindPage)
	assert.ErrorIs(t, err, ErrNoScreenshot)

	_, err = a.LastOutput(types.KindFooter)
	assert.ErrorIs(t, err, store.ErrNoRuns)
}

func TestLastOutput(t *testing.T) {
	rec := &fakeRecorder{}
	a := New(config.Default(), "", rec, quietLogger())

	rec.saved = append(rec.saved, &types.Run{
		ID:         "ok",
		Kind:       types.KindFooter,
		Status:     types.StatusOK,
		OutputPath: "/tmp/footer.png",
	})
	path, err := a.LastOutput(types.KindFooter)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/footer.png", path)

	rec.saved = append(rec.saved, &types.Run{
		ID:     "bad",
		Kind:   types.KindFooter,
		Status: types.StatusFailed,
		Step:   "navigate",
	})
	_, err = a.LastOutput(types.KindFooter)
	assert.ErrorIs(t, err, ErrNoScreenshot)
	assert.ErrorContains(t, err, "navigate")
}

func TestRecordFailureDoesNotFailRun(t *testing.T) {
	rec := &fakeRecorder{saveErr: errors.New("disk full")}
	a := New(brokenBrowserConfig(t), "", rec, quietLogger())

	run, err := a.Verify(context.Background())
	require.Error(t, err)
	assert.Equal(t, "launch", run.Step)
	assert.Empty(t, rec.pruned)
}

func TestNilRecorder(t *testing.T) {
	a := New(brokenBrowserConfig(t), "", nil, quietLogger())

	run, err := a.Verify(context.Background())
	require.Error(t, err)
	assert.NotNil(t, run)

	_, err = a.LastOutput(types.KindFooter)
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestWithSQLiteStore(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	cfg := brokenBrowserConfig(t)
	a := New(cfg, "", s, quietLogger())

	_, err = a.Verify(context.Background())
	require.Error(t, err)

	runs, err := s.ListRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.StatusFailed, runs[0].Status)
	assert.WithinDuration(t, time.Now(), runs[0].FinishedAt, time.Minute)
}

func TestReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	a := New(config.Default(), path, nil, quietLogger())

	err := a.ReloadConfig()
	assert.ErrorIs(t, err, config.ErrNotFound)
	assert.Equal(t, "http://localhost:3000", a.Config().Target.URL)

	updated := config.Default()
	updated.Target.URL = "http://127.0.0.1:4000"
	require.NoError(t, updated.Save(path))

	require.NoError(t, a.ReloadConfig())
	assert.Equal(t, "http://127.0.0.1:4000", a.Config().Target.URL)

	a.SetOverride(func(c *config.Config) { c.Modal.Enabled = false })
	require.NoError(t, a.ReloadConfig())
	assert.False(t, a.Config().Modal.Enabled)
	assert.Equal(t, "http://127.0.0.1:4000", a.Config().Target.URL)

	invalid := config.Default()
	invalid.Target.Output = ""
	require.NoError(t, invalid.Save(path))
	assert.Error(t, a.ReloadConfig())
	assert.Equal(t, "http://127.0.0.1:4000", a.Config().Target.URL)
}
