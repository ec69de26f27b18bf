package assignment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldwork/internal/pkg/apperror"
)

func TestExtendEndDate(t *testing.T) {
	end := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		minutes int
		want    string
	}{
		{1, "2024-01-11"},
		{1440, "2024-01-11"},
		{1441, "2024-01-12"},
		{4000, "2024-01-13"},
		{maxExtensionMinutes, "2024-01-17"},
	}
	for _, tc := range cases {
		got := extendEndDate(end, tc.minutes)
		assert.Equal(t, tc.want, got.Format("2006-01-02"), "minutes=%d", tc.minutes)
	}
}

func TestApproveExtensionMovesEndDate(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	job := f.job(t)

	ext, err := f.engine.RequestExtension(ctx, f.tech1, job.ID, RequestExtensionRequest{
		Reason:          "Heavy rain, site flooded",
		DurationMinutes: 4000,
		ObstacleType:    "cuaca",
	})
	require.NoError(t, err)
	assert.Equal(t, ExtensionPending, ext.Status)
	assert.Equal(t, ObstacleWeather, ext.Obstacle)
	assert.Equal(t, "2024-01-10", ext.PreviousEndDate.Format("2006-01-02"))
	assert.NotEmpty(t, f.notifier.to(f.supervisor.ID))

	resolved, err := f.engine.ResolveExtension(ctx, f.supervisor, ext.ID, DecisionApprove, "ok")
	require.NoError(t, err)
	assert.Equal(t, ExtensionApproved, resolved.Status)
	require.NotNil(t, resolved.NewEndDate)
	assert.Equal(t, "2024-01-13", resolved.NewEndDate.Format("2006-01-02"))
	require.NotNil(t, resolved.ApproverID)
	assert.Equal(t, f.supervisor.ID, *resolved.ApproverID)

	stored := f.reload(t, job.ID)
	assert.Equal(t, "2024-01-13", stored.EndDate.Format("2006-01-02"))
	assert.True(t, stored.IsExtended)

	_, err = f.engine.ResolveExtension(ctx, f.supervisor, ext.ID, DecisionReject, "")
	assert.ErrorIs(t, err, apperror.ErrAlreadyResolved)
	assert.Equal(t, "2024-01-13", f.reload(t, job.ID).EndDate.Format("2006-01-02"))
}

func TestConcurrentResolveHasOneWinner(t *testing.T) {
	f := newFixture(t, true)
	job := f.job(t)

	ext, err := f.engine.RequestExtension(context.Background(), f.tech1, job.ID, RequestExtensionRequest{
		Reason:          "Road closed",
		DurationMinutes: 1440,
		ObstacleType:    "akses",
	})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		already int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.ResolveExtension(context.Background(), f.supervisor, ext.ID, DecisionApprove, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperror.ErrAlreadyResolved):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, already)

	// extended exactly once
	assert.Equal(t, "2024-01-11", f.reload(t, job.ID).EndDate.Format("2006-01-02"))
}

func TestRejectExtensionKeepsEndDate(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	job := f.job(t)

	ext, err := f.engine.RequestExtension(ctx, f.tech2, job.ID, RequestExtensionRequest{
		Reason:          "Road closed",
		DurationMinutes: 120,
		ObstacleType:    "landslide",
	})
	require.NoError(t, err)
	assert.Equal(t, ObstacleOther, ext.Obstacle)

	resolved, err := f.engine.ResolveExtension(ctx, f.supervisor, ext.ID, DecisionReject, "use the north access")
	require.NoError(t, err)
	assert.Equal(t, ExtensionRejected, resolved.Status)
	assert.Nil(t, resolved.NewEndDate)

	stored := f.reload(t, job.ID)
	assert.Equal(t, "2024-01-10", stored.EndDate.Format("2006-01-02"))
	assert.False(t, stored.IsExtended)
	assert.Len(t, f.notifier.to(f.tech2.ID), 2)
}

func TestRequestExtensionValidation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	job := f.job(t)

	for _, minutes := range []int{0, -5, maxExtensionMinutes + 1} {
		_, err := f.engine.RequestExtension(ctx, f.tech1, job.ID, RequestExtensionRequest{Reason: "x", DurationMinutes: minutes})
		assert.ErrorIs(t, err, apperror.ErrInvalidInput, "minutes=%d", minutes)
	}

	_, err := f.engine.RequestExtension(ctx, f.tech1, job.ID, RequestExtensionRequest{DurationMinutes: 60})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.engine.RequestExtension(ctx, f.outsider, job.ID, RequestExtensionRequest{Reason: "x", DurationMinutes: 60})
	assert.ErrorIs(t, err, ErrNotAssigned)

	_, err = f.engine.RequestExtension(ctx, f.supervisor, job.ID, RequestExtensionRequest{Reason: "x", DurationMinutes: 60})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	ext, err := f.engine.RequestExtension(ctx, f.tech1, job.ID, RequestExtensionRequest{Reason: "x", DurationMinutes: maxExtensionMinutes})
	require.NoError(t, err)
	assert.Equal(t, maxExtensionMinutes, ext.DurationMinutes)
}

func TestResolveExtensionOnInactiveJob(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	job := f.job(t)

	first, err := f.engine.RequestExtension(ctx, f.tech1, job.ID, RequestExtensionRequest{Reason: "parts late", DurationMinutes: 600, ObstacleType: "teknis"})
	require.NoError(t, err)
	second, err := f.engine.RequestExtension(ctx, f.tech1, job.ID, RequestExtensionRequest{Reason: "gate locked", DurationMinutes: 60, ObstacleType: "akses"})
	require.NoError(t, err)

	_, err = f.engine.Cancel(ctx, f.supervisor, job.ID, "")
	require.NoError(t, err)

	_, err = f.engine.ResolveExtension(ctx, f.supervisor, first.ID, DecisionApprove, "")
	assert.ErrorIs(t, err, apperror.ErrIllegalTransition)

	rejected, err := f.engine.ResolveExtension(ctx, f.supervisor, second.ID, DecisionReject, "job cancelled")
	require.NoError(t, err)
	assert.Equal(t, ExtensionRejected, rejected.Status)

	_, err = f.engine.RequestExtension(ctx, f.tech1, job.ID, RequestExtensionRequest{Reason: "x", DurationMinutes: 60})
	assert.ErrorIs(t, err, apperror.ErrIllegalTransition)
}

func TestResolveExtensionAccess(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	job := f.job(t)

	ext, err := f.engine.RequestExtension(ctx, f.tech1, job.ID, RequestExtensionRequest{Reason: "x", DurationMinutes: 60})
	require.NoError(t, err)

	_, err = f.engine.ResolveExtension(ctx, f.otherSup, ext.ID, DecisionApprove, "")
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.engine.ResolveExtension(ctx, f.tech1, ext.ID, DecisionApprove, "")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.engine.ResolveExtension(ctx, f.supervisor, 9999, DecisionApprove, "")
	assert.ErrorIs(t, err, ErrExtensionNotFound)

	exts, err := f.engine.ListExtensions(ctx, f.tech2, job.ID)
	require.NoError(t, err)
	require.Len(t, exts, 1)
	assert.Equal(t, ExtensionPending, exts[0].Status)
}
