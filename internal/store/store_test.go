package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rilla-project/rilla/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "rilla.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveRunAssignsIDAndRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := &RunRecord{
		ModelName: "PSMN1R4-100CSE",
		Engine:    "external",
		Status:    StatusSuccess,
		VthVolts:  2.43,
		TempC:     25,
		VgsVolts:  []float64{0, 0.05, 0.1},
		IdAmps:    []float64{0, 1e-6, 4e-6},
	}
	require.NoError(t, s.SaveRun(ctx, rec))
	require.NotEmpty(t, rec.ID)
	require.False(t, rec.CreatedAt.IsZero())

	got, err := s.GetRun(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ModelName, got.ModelName)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Equal(t, rec.VthVolts, got.VthVolts)
	assert.Equal(t, rec.VgsVolts, got.VgsVolts)
	assert.Equal(t, rec.IdAmps, got.IdAmps)
}

func TestSaveRunErrorRecordKeepsEmptyCurves(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := &RunRecord{
		ModelName:    "BROKEN_MODEL",
		Engine:       "external",
		Status:       StatusError,
		TempC:        25,
		ErrorMessage: "solver failed: model not found",
	}
	require.NoError(t, s.SaveRun(ctx, rec))

	got, err := s.GetRun(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, "solver failed: model not found", got.ErrorMessage)
	assert.Empty(t, got.VgsVolts)
	assert.Empty(t, got.IdAmps)
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetRun(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRunsFilterAndOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"A", "B", "A"} {
		rec := &RunRecord{
			ModelName: name,
			Engine:    "builtin",
			Status:    StatusSuccess,
			TempC:     25,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.SaveRun(ctx, rec))
	}

	all, err := s.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[2].CreatedAt), "newest first")

	onlyA, err := s.ListRuns(ctx, "A", 0)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	for _, r := range onlyA {
		assert.Equal(t, "A", r.ModelName)
	}

	limited, err := s.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestReopenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rilla.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(context.Background(), &RunRecord{
		ModelName: "A", Engine: "builtin", Status: StatusSuccess, TempC: 25,
	}))
	require.NoError(t, s.Close())

	// Migrations have already run; opening again must not fail or lose data.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	runs, err := s2.ListRuns(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
