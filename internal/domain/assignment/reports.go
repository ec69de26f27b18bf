package assignment

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"fieldwork/internal/domain/auth"
	"fieldwork/internal/pkg/apperror"
	"fieldwork/internal/pkg/validator"
)

// SubmitReport records a technician's progress on an active job. The report
// waits for the supervisor's validation.
func (e *Engine) SubmitReport(ctx context.Context, caller auth.Caller, jobID int64, req SubmitReportRequest) (*Report, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	status, ok := ParseProgressStatus(req.ProgressStatus)
	if !ok {
		return nil, fmt.Errorf("%w: unknown progress status %q", apperror.ErrInvalidInput, req.ProgressStatus)
	}
	if status == "" {
		status = ProgressOnProgress
		if req.Progress == 100 {
			status = ProgressDone
		}
	}
	if status == ProgressDone && req.Progress < 100 {
		return nil, fmt.Errorf("%w: a final report must state 100%% progress", apperror.ErrInvalidInput)
	}

	reportDate := e.now()
	if req.ReportDate != "" {
		d, err := parseDate("report_date", req.ReportDate)
		if err != nil {
			return nil, err
		}
		reportDate = d
	}

	report := &Report{
		JobID:      jobID,
		ReporterID: caller.ID,
		ReportDate: reportDate,
		Progress:   req.Progress,
		Status:     status,
		Note:       req.Note,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Photos:     req.Photos,
		Validation: ValidationPending,
	}
	if report.Photos == nil {
		report.Photos = []EvidencePhoto{}
	}

	err := e.run(ctx, func(u *unit) error {
		job, err := lockJob(u.tx, jobID)
		if err != nil {
			return err
		}
		if err := authorize(u.tx, opSubmitReport, caller, job); err != nil {
			return err
		}
		if job.Status != StatusActive {
			return notActive(job.Status)
		}

		if err := u.tx.Create(report).Error; err != nil {
			return err
		}

		u.audit(caller.ID, "report.submit", fmt.Sprintf("submitted report #%d (%d%%) for job #%d", report.ID, report.Progress, job.ID))
		u.notify(job.SupervisorID, fmt.Sprintf("New progress report (%d%%) on job %q", report.Progress, job.Title))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ValidateReport approves or rejects a pending report. Only one validation
// per report succeeds. After either decision the job is handed to the
// managers if it has become ready for final validation.
func (e *Engine) ValidateReport(ctx context.Context, caller auth.Caller, reportID int64, decision Decision, note string) (*Report, error) {
	if err := authorize(e.db, opValidateReport, caller, nil); err != nil {
		return nil, err
	}

	var next ValidationStatus
	switch decision {
	case DecisionApprove:
		next = ValidationApproved
	case DecisionReject:
		next = ValidationRejected
	default:
		return nil, fmt.Errorf("%w: decision must be approve or reject", apperror.ErrInvalidInput)
	}

	var report Report
	err := e.run(ctx, func(u *unit) error {
		if err := u.tx.First(&report, reportID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReportNotFound
			}
			return err
		}

		job, err := lockJob(u.tx, report.JobID)
		if err != nil {
			return err
		}
		if err := authorize(u.tx, opValidateReport, caller, job); err != nil {
			return err
		}
		if report.Validation != ValidationPending {
			return fmt.Errorf("%w: report #%d is already %s", apperror.ErrAlreadyValidated, report.ID, report.Validation)
		}

		now := e.now()
		res := u.tx.Model(&Report{}).
			Where("id = ? AND validation = ?", report.ID, ValidationPending).
			Updates(map[string]any{
				"validation":      next,
				"validator_id":    caller.ID,
				"validated_at":    now,
				"validation_note": note,
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: report #%d was validated concurrently", apperror.ErrAlreadyValidated, report.ID)
		}

		validatorID := caller.ID
		report.Validation = next
		report.ValidatorID = &validatorID
		report.ValidatedAt = &now
		report.ValidationNote = note

		u.audit(caller.ID, "report.validate", fmt.Sprintf("%s report #%d of job #%d", next, report.ID, job.ID))
		u.notify(report.ReporterID, fmt.Sprintf("Your report on job %q was %s", job.Title, next))

		// a rejection can also clear the last pending report
		return e.advanceIfReady(u, job)
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// advanceIfReady moves an active job to AwaitingManagerValidation when
// manager validation is on and the readiness check passes.
func (e *Engine) advanceIfReady(u *unit, job *Job) error {
	if !e.managerValidation || job.Status != StatusActive {
		return nil
	}

	r, err := readiness(u.tx, job.ID)
	if err != nil || !r.Ready {
		return err
	}

	return e.handToManagers(u, job)
}

func (e *Engine) handToManagers(u *unit, job *Job) error {
	if err := e.setStatus(u.tx, job, StatusAwaitingManagerValidation, nil); err != nil {
		return err
	}
	u.audit(job.SupervisorID, "job.awaiting_manager_validation", fmt.Sprintf("job #%d %q is ready for manager validation", job.ID, job.Title))
	u.notifyRole(auth.RoleManager, fmt.Sprintf("Job %q is waiting for your final validation", job.Title))
	return nil
}

func (e *Engine) Readiness(ctx context.Context, caller auth.Caller, jobID int64) (*Readiness, error) {
	db := e.db.WithContext(ctx)

	var job Job
	if err := db.First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, apperror.Internal(err)
	}
	if err := authorize(db, opViewJob, caller, &job); err != nil {
		return nil, apperror.Internal(err)
	}

	r, err := readiness(db, job.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	r.ManagerValidation = e.managerValidation
	return r, nil
}

// readiness: at least one approved final report, nothing pending, and the
// most recently submitted report not rejected.
func readiness(tx *gorm.DB, jobID int64) (*Readiness, error) {
	r := &Readiness{}

	var approvedFinal int64
	err := tx.Model(&Report{}).
		Where("job_id = ? AND status = ? AND validation = ?", jobID, ProgressDone, ValidationApproved).
		Count(&approvedFinal).Error
	if err != nil {
		return nil, err
	}
	r.ApprovedFinal = approvedFinal > 0

	if err := tx.Model(&Report{}).Where("job_id = ? AND validation = ?", jobID, ValidationPending).Count(&r.PendingReports).Error; err != nil {
		return nil, err
	}

	var latest Report
	err = tx.Where("job_id = ?", jobID).Order("id desc").Limit(1).Find(&latest).Error
	if err != nil {
		return nil, err
	}
	r.LatestRejected = latest.ID != 0 && latest.Validation == ValidationRejected

	switch {
	case !r.ApprovedFinal:
		r.Reason = "no approved final report"
	case r.PendingReports > 0:
		r.Reason = fmt.Sprintf("%d reports still pending validation", r.PendingReports)
	case r.LatestRejected:
		r.Reason = "latest report was rejected and has not been resubmitted"
	default:
		r.Ready = true
	}
	return r, nil
}

func (e *Engine) ListReports(ctx context.Context, caller auth.Caller, jobID int64) ([]Report, error) {
	db := e.db.WithContext(ctx)

	var job Job
	if err := db.First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, apperror.Internal(err)
	}
	if err := authorize(db, opViewJob, caller, &job); err != nil {
		return nil, apperror.Internal(err)
	}

	var reports []Report
	if err := db.Where("job_id = ?", jobID).Order("report_date desc, id desc").Find(&reports).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	return reports, nil
}
