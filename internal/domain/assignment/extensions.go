package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"fieldwork/internal/domain/auth"
	"fieldwork/internal/pkg/apperror"
	"fieldwork/internal/pkg/validator"
)

const maxExtensionMinutes = 7 * 24 * 60

// RequestExtension files a kendala for an active job. The job's current end
// date is kept on the request as it was at filing time.
func (e *Engine) RequestExtension(ctx context.Context, caller auth.Caller, jobID int64, req RequestExtensionRequest) (*Extension, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	if req.DurationMinutes < 1 || req.DurationMinutes > maxExtensionMinutes {
		return nil, fmt.Errorf("%w: duration must be between 1 and %d minutes (7 days)", apperror.ErrInvalidInput, maxExtensionMinutes)
	}

	var ext *Extension
	err := e.run(ctx, func(u *unit) error {
		job, err := lockJob(u.tx, jobID)
		if err != nil {
			return err
		}
		if err := authorize(u.tx, opRequestExtension, caller, job); err != nil {
			return err
		}
		if job.Status != StatusActive {
			return notActive(job.Status)
		}

		ext = &Extension{
			JobID:           job.ID,
			RequesterID:     caller.ID,
			Reason:          req.Reason,
			DurationMinutes: req.DurationMinutes,
			Obstacle:        ParseObstacle(req.ObstacleType),
			PreviousEndDate: job.EndDate,
			PhotoURL:        req.PhotoURL,
			Status:          ExtensionPending,
		}
		if err := u.tx.Create(ext).Error; err != nil {
			return err
		}

		u.audit(caller.ID, "extension.request", fmt.Sprintf("requested %d minutes (%s) on job #%d", ext.DurationMinutes, ext.Obstacle, job.ID))
		u.notify(job.SupervisorID, fmt.Sprintf("Extension requested on job %q: %s", job.Title, ext.Reason))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ext, nil
}

// ResolveExtension decides a pending request once. An approval pushes the
// job's end date out by the requested duration rounded up to whole days.
func (e *Engine) ResolveExtension(ctx context.Context, caller auth.Caller, extensionID int64, decision Decision, note string) (*Extension, error) {
	if err := authorize(e.db, opResolveExtension, caller, nil); err != nil {
		return nil, err
	}

	var next ExtensionStatus
	switch decision {
	case DecisionApprove:
		next = ExtensionApproved
	case DecisionReject:
		next = ExtensionRejected
	default:
		return nil, fmt.Errorf("%w: decision must be approved or rejected", apperror.ErrInvalidInput)
	}

	var ext Extension
	err := e.run(ctx, func(u *unit) error {
		if err := u.tx.First(&ext, extensionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrExtensionNotFound
			}
			return err
		}

		job, err := lockJob(u.tx, ext.JobID)
		if err != nil {
			return err
		}
		if err := authorize(u.tx, opResolveExtension, caller, job); err != nil {
			return err
		}
		if ext.Status != ExtensionPending {
			return fmt.Errorf("%w: extension request #%d is already %s", apperror.ErrAlreadyResolved, ext.ID, ext.Status)
		}
		if next == ExtensionApproved && job.Status != StatusActive {
			return notActive(job.Status)
		}

		now := e.now()
		updates := map[string]any{
			"status":          next,
			"approver_id":     caller.ID,
			"resolved_at":     now,
			"resolution_note": note,
			"updated_at":      now,
		}
		var newEnd time.Time
		if next == ExtensionApproved {
			newEnd = extendEndDate(job.EndDate, ext.DurationMinutes)
			updates["new_end_date"] = newEnd
		}

		res := u.tx.Model(&Extension{}).Where("id = ? AND status = ?", ext.ID, ExtensionPending).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: extension request #%d was resolved concurrently", apperror.ErrAlreadyResolved, ext.ID)
		}

		approverID := caller.ID
		ext.Status = next
		ext.ApproverID = &approverID
		ext.ResolvedAt = &now
		ext.ResolutionNote = note

		if next == ExtensionApproved {
			err := u.tx.Model(&Job{}).Where("id = ?", job.ID).Updates(map[string]any{
				"end_date":    newEnd,
				"is_extended": true,
				"updated_at":  now,
			}).Error
			if err != nil {
				return err
			}
			ext.NewEndDate = &newEnd
			u.notify(ext.RequesterID, fmt.Sprintf("Your extension on job %q was approved; new end date %s", job.Title, newEnd.Format("2006-01-02")))
		} else {
			u.notify(ext.RequesterID, fmt.Sprintf("Your extension on job %q was rejected", job.Title))
		}

		u.audit(caller.ID, "extension.resolve", fmt.Sprintf("%s extension request #%d on job #%d", next, ext.ID, job.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ext, nil
}

func (e *Engine) ListExtensions(ctx context.Context, caller auth.Caller, jobID int64) ([]Extension, error) {
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

	var exts []Extension
	if err := db.Where("job_id = ?", jobID).Order("id desc").Find(&exts).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	return exts, nil
}

// extendEndDate adds the duration rounded up to whole days.
func extendEndDate(end time.Time, minutes int) time.Time {
	days := (minutes + 24*60 - 1) / (24 * 60)
	return end.AddDate(0, 0, days)
}
