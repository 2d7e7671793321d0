package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/verifyshot/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func makeRun(id string, kind types.Kind, started time.Time) *types.Run {
	return &types.Run{
		ID:         id,
		Kind:       kind,
		URL:        "http://localhost:3000",
		OutputPath: "verification_branches_clean.png",
		Status:     types.StatusOK,
		Modal:      types.ModalDismissed,
		Bytes:      1024,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}
}

func TestSaveAndListRuns(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(makeRun("a", types.KindFooter, base)))
	require.NoError(t, s.SaveRun(makeRun("b", types.KindPage, base.Add(time.Minute))))

	failed := makeRun("c", types.KindFooter, base.Add(2*time.Minute))
	failed.Status = types.StatusFailed
	failed.Step = "navigate"
	failed.Error = "net::ERR_CONNECTION_REFUSED"
	failed.Bytes = 0
	failed.Modal = ""
	require.NoError(t, s.SaveRun(failed))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.Equal(t, "a", runs[2].ID)

	assert.Equal(t, types.StatusFailed, runs[0].Status)
	assert.Equal(t, "navigate", runs[0].Step)
	assert.Equal(t, "net::ERR_CONNECTION_REFUSED", runs[0].Error)
	assert.Equal(t, types.ModalOutcome(""), runs[0].Modal)

	assert.Equal(t, types.ModalDismissed, runs[2].Modal)
	assert.Equal(t, 1024, runs[2].Bytes)
	assert.True(t, runs[2].StartedAt.Equal(base))
	assert.Equal(t, 3*time.Second, runs[2].Duration())

	limited, err := s.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSaveRun_Upsert(t *testing.T) {
	s := newTestStore(t)
	r := makeRun("a", types.KindFooter, time.Now())
	require.NoError(t, s.SaveRun(r))

	r.Status = types.StatusFailed
	r.Error = "wait-heading: context deadline exceeded"
	require.NoError(t, s.SaveRun(r))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.StatusFailed, runs[0].Status)
	assert.Equal(t, r.Error, runs[0].Error)
}

func TestLastRun(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LastRun(types.KindFooter)
	assert.True(t, errors.Is(err, ErrNoRuns))

	base := time.Now().Add(-time.Hour)
	require.NoError(t, s.SaveRun(makeRun("old", types.KindFooter, base)))
	require.NoError(t, s.SaveRun(makeRun("new", types.KindFooter, base.Add(time.Minute))))
	require.NoError(t, s.SaveRun(makeRun("page", types.KindPage, base.Add(2*time.Minute))))

	last, err := s.LastRun(types.KindFooter)
	require.NoError(t, err)
	assert.Equal(t, "new", last.ID)

	last, err = s.LastRun(types.KindPage)
	require.NoError(t, err)
	assert.Equal(t, "page", last.ID)
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveRun(makeRun(fmt.Sprintf("r%d", i), types.KindFooter, base.Add(time.Duration(i)*time.Minute))))
	}

	removed, err := s.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r4", runs[0].ID)
	assert.Equal(t, "r3", runs[1].ID)
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(makeRun("a", types.KindFooter, time.Now())))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
