package assignment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldwork/internal/domain/equipment"
	"fieldwork/internal/pkg/apperror"
)

func TestSubmitReport(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	job := f.job(t)

	t.Run("status derived from progress", func(t *testing.T) {
		r := f.report(t, f.tech1, job.ID, 40, "")
		assert.Equal(t, ProgressOnProgress, r.Status)
		assert.Equal(t, ValidationPending, r.Validation)
		assert.Equal(t, fixedNow, r.ReportDate)

		r = f.report(t, f.tech1, job.ID, 100, "")
		assert.Equal(t, ProgressDone, r.Status)
		assert.True(t, r.Final())
	})

	t.Run("indonesian status names", func(t *testing.T) {
		r := f.report(t, f.tech2, job.ID, 60, "berjalan")
		assert.Equal(t, ProgressOnProgress, r.Status)
	})

	t.Run("final report below 100 percent", func(t *testing.T) {
		_, err := f.engine.SubmitReport(ctx, f.tech1, job.ID, SubmitReportRequest{Progress: 80, ProgressStatus: "done"})
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := f.engine.SubmitReport(ctx, f.tech1, job.ID, SubmitReportRequest{Progress: 10, ProgressStatus: "paused"})
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	})

	t.Run("progress out of range", func(t *testing.T) {
		_, err := f.engine.SubmitReport(ctx, f.tech1, job.ID, SubmitReportRequest{Progress: 120})
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	})

	t.Run("evidence photos are kept", func(t *testing.T) {
		r, err := f.engine.SubmitReport(ctx, f.tech1, job.ID, SubmitReportRequest{
			Progress:   50,
			ReportDate: "2024-01-05",
			Photos: []EvidencePhoto{{
				BeforeURL: "https://cdn.example.com/before.jpg",
				AfterURL:  "https://cdn.example.com/after.jpg",
				Caption:   "panel B",
			}},
		})
		require.NoError(t, err)

		var stored Report
		require.NoError(t, f.db.First(&stored, r.ID).Error)
		require.Len(t, stored.Photos, 1)
		assert.Equal(t, "panel B", stored.Photos[0].Caption)
		assert.Equal(t, "2024-01-05", stored.ReportDate.Format("2006-01-02"))
	})

	t.Run("bad photo url", func(t *testing.T) {
		_, err := f.engine.SubmitReport(ctx, f.tech1, job.ID, SubmitReportRequest{
			Progress: 50,
			Photos:   []EvidencePhoto{{BeforeURL: "not a url"}},
		})
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	})

	t.Run("supervisor cannot report", func(t *testing.T) {
		_, err := f.engine.SubmitReport(ctx, f.supervisor, job.ID, SubmitReportRequest{Progress: 10})
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("unassigned technician", func(t *testing.T) {
		_, err := f.engine.SubmitReport(ctx, f.outsider, job.ID, SubmitReportRequest{Progress: 10})
		assert.ErrorIs(t, err, ErrNotAssigned)
	})

	assert.NotEmpty(t, f.notifier.to(f.supervisor.ID))
}

func TestSubmitReportRequiresActiveJob(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	job := f.job(t)

	_, err := f.engine.Cancel(ctx, f.supervisor, job.ID, "")
	require.NoError(t, err)

	_, err = f.engine.SubmitReport(ctx, f.tech1, job.ID, SubmitReportRequest{Progress: 100})
	assert.ErrorIs(t, err, apperror.ErrIllegalTransition)
}

func TestValidateReportOnlyOnce(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	job := f.job(t)
	r := f.report(t, f.tech1, job.ID, 30, "")

	_, err := f.engine.ValidateReport(ctx, f.otherSup, r.ID, DecisionApprove, "")
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.engine.ValidateReport(ctx, f.supervisor, r.ID, Decision("maybe"), "")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	got, err := f.engine.ValidateReport(ctx, f.supervisor, r.ID, DecisionReject, "photos are blurry")
	require.NoError(t, err)
	assert.Equal(t, ValidationRejected, got.Validation)
	require.NotNil(t, got.ValidatorID)
	assert.Equal(t, f.supervisor.ID, *got.ValidatorID)
	assert.Equal(t, "photos are blurry", got.ValidationNote)
	assert.Len(t, f.notifier.to(f.tech1.ID), 2)

	_, err = f.engine.ValidateReport(ctx, f.supervisor, r.ID, DecisionApprove, "")
	assert.ErrorIs(t, err, apperror.ErrAlreadyValidated)

	_, err = f.engine.ValidateReport(ctx, f.supervisor, 9999, DecisionApprove, "")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestConcurrentValidationHasOneWinner(t *testing.T) {
	f := newFixture(t, false)
	job := f.job(t)
	r := f.report(t, f.tech1, job.ID, 30, "")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		already int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(d Decision) {
			defer wg.Done()
			_, err := f.engine.ValidateReport(context.Background(), f.supervisor, r.ID, d, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperror.ErrAlreadyValidated):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}([]Decision{DecisionApprove, DecisionReject}[i%2])
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, already)

	var stored Report
	require.NoError(t, f.db.First(&stored, r.ID).Error)
	assert.NotEqual(t, ValidationPending, stored.Validation)
}

func TestRejectionCanMakeJobReady(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	job := f.job(t)

	early := f.report(t, f.tech1, job.ID, 50, "on_progress")
	final := f.report(t, f.tech2, job.ID, 100, "done")

	// the early report is still pending
	f.validate(t, final.ID, DecisionApprove)
	assert.Equal(t, StatusActive, f.reload(t, job.ID).Status)

	// rejecting it leaves the approved final report as the latest one
	f.validate(t, early.ID, DecisionReject)
	stored := f.reload(t, job.ID)
	assert.Equal(t, StatusAwaitingManagerValidation, stored.Status)
	assert.Nil(t, stored.ManagerID)
	assert.Contains(t, f.notifier.to(f.manager.ID), `Job "Tower maintenance" is waiting for your final validation`)

	_, err := f.engine.SupervisorApproveCompletion(ctx, f.supervisor, job.ID)
	assert.ErrorIs(t, err, apperror.ErrIllegalTransition)

	done, err := f.engine.ManagerFinalValidate(ctx, f.manager, job.ID, DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.ManagerID)
}

func TestReadinessFollowsLatestReport(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	job := f.job(t)

	r1 := f.report(t, f.tech1, job.ID, 100, "done")
	r2 := f.report(t, f.tech2, job.ID, 90, "on_progress")

	// R2 still pending
	f.validate(t, r1.ID, DecisionApprove)
	assert.Equal(t, StatusActive, f.reload(t, job.ID).Status)

	ready, err := f.engine.Readiness(ctx, f.supervisor, job.ID)
	require.NoError(t, err)
	assert.False(t, ready.Ready)
	assert.True(t, ready.ApprovedFinal)
	assert.Equal(t, int64(1), ready.PendingReports)

	f.validate(t, r2.ID, DecisionReject)
	assert.Equal(t, StatusActive, f.reload(t, job.ID).Status)

	ready, err = f.engine.Readiness(ctx, f.manager, job.ID)
	require.NoError(t, err)
	assert.False(t, ready.Ready)
	assert.True(t, ready.LatestRejected)
	assert.True(t, ready.ManagerValidation)
	assert.Contains(t, ready.Reason, "rejected")

	r3 := f.report(t, f.tech2, job.ID, 100, "selesai")
	f.validate(t, r3.ID, DecisionApprove)

	assert.Equal(t, StatusAwaitingManagerValidation, f.reload(t, job.ID).Status)
	assert.NotEmpty(t, f.notifier.to(f.manager.ID))

	ready, err = f.engine.Readiness(ctx, f.supervisor, job.ID)
	require.NoError(t, err)
	assert.True(t, ready.Ready)
	assert.Empty(t, ready.Reason)
}

func TestReadinessWithoutReports(t *testing.T) {
	f := newFixture(t, true)
	job := f.job(t)

	ready, err := f.engine.Readiness(context.Background(), f.tech1, job.ID)
	require.NoError(t, err)
	assert.False(t, ready.Ready)
	assert.Equal(t, "no approved final report", ready.Reason)

	_, err = f.engine.Readiness(context.Background(), f.outsider, job.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestSupervisorApproveCompletion(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	drill := f.item(t, "Drill", 10)
	ladder := f.item(t, "Ladder", 2)
	job := f.job(t,
		equipment.Line{ItemID: drill.ID, Quantity: 4, BorrowerID: f.tech1.ID},
		equipment.Line{ItemID: ladder.ID, Quantity: 2, BorrowerID: f.tech2.ID},
	)

	_, err := f.engine.ReturnEquipment(ctx, f.tech1, job.Loans[0].ID, ReturnEquipmentRequest{Quantity: 1})
	require.NoError(t, err)

	_, err = f.engine.SupervisorApproveCompletion(ctx, f.supervisor, job.ID)
	assert.ErrorIs(t, err, ErrNotReady)

	r := f.report(t, f.tech1, job.ID, 100, "done")
	f.validate(t, r.ID, DecisionApprove)

	// manager validation is off, so approval leaves the job active
	assert.Equal(t, StatusActive, f.reload(t, job.ID).Status)

	_, err = f.engine.SupervisorApproveCompletion(ctx, f.otherSup, job.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	done, err := f.engine.SupervisorApproveCompletion(ctx, f.supervisor, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	assert.Equal(t, 10, f.available(t, drill.ID))
	assert.Equal(t, 2, f.available(t, ladder.ID))

	var open int64
	f.db.Model(&equipment.Loan{}).Where("job_id = ? AND returned = ?", job.ID, false).Count(&open)
	assert.Zero(t, open)

	_, err = f.engine.SupervisorApproveCompletion(ctx, f.supervisor, job.ID)
	assert.ErrorIs(t, err, apperror.ErrIllegalTransition)
}

func TestSupervisorApprovalForwardsToManagers(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	drill := f.item(t, "Drill", 10)
	job := f.job(t, equipment.Line{ItemID: drill.ID, Quantity: 3, BorrowerID: f.tech1.ID})

	r := f.report(t, f.tech1, job.ID, 100, "done")
	f.validate(t, r.ID, DecisionApprove)
	require.Equal(t, StatusActive, f.reload(t, job.ID).Status)

	// manager tier switched on while the job was already ready
	f.engine.managerValidation = true

	got, err := f.engine.SupervisorApproveCompletion(ctx, f.supervisor, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingManagerValidation, got.Status)
	assert.Nil(t, got.CompletedAt)

	stored := f.reload(t, job.ID)
	assert.Equal(t, StatusAwaitingManagerValidation, stored.Status)
	assert.Nil(t, stored.ManagerID)
	assert.Equal(t, 7, f.available(t, drill.ID))
	assert.NotEmpty(t, f.notifier.to(f.manager.ID))

	_, err = f.engine.SupervisorApproveCompletion(ctx, f.supervisor, job.ID)
	assert.ErrorIs(t, err, apperror.ErrIllegalTransition)
}

func TestSupervisorCannotCompleteAwaitingJob(t *testing.T) {
	f := newFixture(t, true)
	job, _ := f.awaitingJob(t)

	_, err := f.engine.SupervisorApproveCompletion(context.Background(), f.supervisor, job.ID)
	assert.ErrorIs(t, err, apperror.ErrIllegalTransition)
}

func TestListReports(t *testing.T) {
	f := newFixture(t, true)
	job := f.job(t)
	first := f.report(t, f.tech1, job.ID, 20, "")
	second := f.report(t, f.tech1, job.ID, 40, "")

	reports, err := f.engine.ListReports(context.Background(), f.supervisor, job.ID)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, second.ID, reports[0].ID)
	assert.Equal(t, first.ID, reports[1].ID)
}
