package assignment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"fieldwork/internal/domain/auth"
	"fieldwork/internal/domain/equipment"
	"fieldwork/internal/pkg/apperror"
	"fieldwork/internal/pkg/validator"
)

// CreateJob stores a job, its technicians and its initial equipment in one
// transaction. If any equipment line cannot be reserved nothing is kept.
func (e *Engine) CreateJob(ctx context.Context, caller auth.Caller, req CreateJobRequest) (*Job, error) {
	if err := authorize(e.db, opCreateJob, caller, nil); err != nil {
		return nil, err
	}
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_date must not be before start_date", apperror.ErrInvalidInput)
	}

	techs := dedupe(req.TechnicianIDs)
	if err := e.requireTechnicians(ctx, techs); err != nil {
		return nil, apperror.Internal(err)
	}
	for _, line := range req.Equipment {
		if line.BorrowerID != 0 && line.BorrowerID != caller.ID && !contains(techs, line.BorrowerID) {
			return nil, fmt.Errorf("%w: borrower %d is not on this job", apperror.ErrInvalidInput, line.BorrowerID)
		}
	}

	job := &Job{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Category:     ParseCategory(req.Category),
		Frequency:    ParseFrequency(req.ReportFrequency),
		SupervisorID: caller.ID,
		LocationName: req.LocationName,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		StartDate:    start,
		EndDate:      end,
		Status:       StatusActive,
	}

	err = e.run(ctx, func(u *unit) error {
		if err := u.tx.Create(job).Error; err != nil {
			return err
		}

		assignments := make([]TechnicianAssignment, 0, len(techs))
		for _, id := range techs {
			a := TechnicianAssignment{JobID: job.ID, TechnicianID: id}
			if err := u.tx.Create(&a).Error; err != nil {
				return err
			}
			assignments = append(assignments, a)
		}

		loans, err := e.ledger.ReserveBatch(u.tx, job.ID, caller.ID, req.Equipment)
		if err != nil {
			return err
		}

		job.Technicians = assignments
		job.Loans = loans

		u.audit(caller.ID, "job.create", fmt.Sprintf("created job #%d %q with %d technicians and %d equipment lines", job.ID, job.Title, len(techs), len(loans)))
		u.notifyAll(techs, fmt.Sprintf("You have been assigned to job %q", job.Title))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (e *Engine) GetJob(ctx context.Context, caller auth.Caller, jobID int64) (*Job, error) {
	db := e.db.WithContext(ctx)

	var job Job
	err := db.
		Preload("Technicians").
		Preload("Loans", func(tx *gorm.DB) *gorm.DB { return tx.Order("returned asc, id asc") }).
		Preload("Loans.Item", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		First(&job, jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, apperror.Internal(err)
	}

	if err := authorize(db, opViewJob, caller, &job); err != nil {
		return nil, apperror.Internal(err)
	}
	return &job, nil
}

// ListJobs returns the jobs visible to the caller: managers see every job,
// supervisors the jobs they own, technicians the jobs they are assigned to.
func (e *Engine) ListJobs(ctx context.Context, caller auth.Caller, f JobFilter) ([]Job, error) {
	if err := authorize(e.db, opViewJob, caller, nil); err != nil {
		return nil, err
	}

	q := e.db.WithContext(ctx).Model(&Job{})
	switch caller.Role {
	case auth.RoleSupervisor:
		q = q.Where("supervisor_id = ?", caller.ID)
	case auth.RoleTechnician:
		q = q.Where("id IN (?)", e.db.Model(&TechnicianAssignment{}).Select("job_id").Where("technician_id = ?", caller.ID))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var jobs []Job
	if err := q.Preload("Technicians").Order("id desc").Find(&jobs).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	return jobs, nil
}

// DeleteJob soft-deletes a finished or cancelled job with no equipment out.
func (e *Engine) DeleteJob(ctx context.Context, caller auth.Caller, jobID int64) error {
	return e.run(ctx, func(u *unit) error {
		job, err := lockJob(u.tx, jobID)
		if err != nil {
			return err
		}
		if err := authorize(u.tx, opDeleteJob, caller, job); err != nil {
			return err
		}
		if !job.Status.Terminal() {
			return fmt.Errorf("%w: only completed, rejected or cancelled jobs can be deleted", apperror.ErrIllegalTransition)
		}

		var open int64
		if err := u.tx.Model(&equipment.Loan{}).Where("job_id = ? AND returned = ?", job.ID, false).Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: job still has %d open equipment loans", apperror.ErrIllegalTransition, open)
		}

		if err := u.tx.Delete(&Job{}, job.ID).Error; err != nil {
			return err
		}
		u.audit(caller.ID, "job.delete", fmt.Sprintf("deleted job #%d %q", job.ID, job.Title))
		return nil
	})
}

func (e *Engine) AssignTechnician(ctx context.Context, caller auth.Caller, jobID, technicianID int64) (*TechnicianAssignment, error) {
	if err := authorize(e.db, opAssignTechnician, caller, nil); err != nil {
		return nil, err
	}
	if err := e.requireTechnicians(ctx, []int64{technicianID}); err != nil {
		return nil, apperror.Internal(err)
	}

	var a TechnicianAssignment
	err := e.run(ctx, func(u *unit) error {
		job, err := lockJob(u.tx, jobID)
		if err != nil {
			return err
		}
		if err := authorize(u.tx, opAssignTechnician, caller, job); err != nil {
			return err
		}
		if job.Status != StatusActive {
			return notActive(job.Status)
		}

		assigned, err := isAssigned(u.tx, job.ID, technicianID)
		if err != nil {
			return err
		}
		if assigned {
			return ErrAlreadyAssigned
		}

		a = TechnicianAssignment{JobID: job.ID, TechnicianID: technicianID}
		if err := u.tx.Create(&a).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrAlreadyAssigned
			}
			return err
		}

		u.audit(caller.ID, "job.assign_technician", fmt.Sprintf("assigned technician %d to job #%d", technicianID, job.ID))
		u.notify(technicianID, fmt.Sprintf("You have been assigned to job %q", job.Title))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UnassignTechnician removes a technician from an active job. A technician
// still holding equipment for the job has to return it first.
func (e *Engine) UnassignTechnician(ctx context.Context, caller auth.Caller, jobID, technicianID int64) error {
	return e.run(ctx, func(u *unit) error {
		job, err := lockJob(u.tx, jobID)
		if err != nil {
			return err
		}
		if err := authorize(u.tx, opUnassignTechnician, caller, job); err != nil {
			return err
		}
		if job.Status != StatusActive {
			return notActive(job.Status)
		}

		var open int64
		err = u.tx.Model(&equipment.Loan{}).
			Where("job_id = ? AND borrower_id = ? AND returned = ?", job.ID, technicianID, false).
			Count(&open).Error
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: technician %d still holds %d open equipment loans", apperror.ErrInvalidInput, technicianID, open)
		}

		res := u.tx.Where("job_id = ? AND technician_id = ?", job.ID, technicianID).Delete(&TechnicianAssignment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: technician %d is not assigned to job %d", apperror.ErrNotFound, technicianID, job.ID)
		}

		u.audit(caller.ID, "job.unassign_technician", fmt.Sprintf("removed technician %d from job #%d", technicianID, job.ID))
		u.notify(technicianID, fmt.Sprintf("You have been removed from job %q", job.Title))
		return nil
	})
}

// AssignEquipment reserves more equipment for an active job. Technicians may
// only borrow for themselves.
func (e *Engine) AssignEquipment(ctx context.Context, caller auth.Caller, jobID int64, req AssignEquipmentRequest) ([]equipment.Loan, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	var loans []equipment.Loan
	err := e.run(ctx, func(u *unit) error {
		job, err := lockJob(u.tx, jobID)
		if err != nil {
			return err
		}
		if err := authorize(u.tx, opAssignEquipment, caller, job); err != nil {
			return err
		}
		if job.Status != StatusActive {
			return notActive(job.Status)
		}

		lines := make([]equipment.Line, len(req.Lines))
		for i, line := range req.Lines {
			if line.BorrowerID == 0 {
				line.BorrowerID = caller.ID
			}
			if caller.Role == auth.RoleTechnician && line.BorrowerID != caller.ID {
				return fmt.Errorf("%w: technicians may only borrow equipment for themselves", apperror.ErrForbidden)
			}
			if line.BorrowerID != job.SupervisorID {
				if ok, err := isAssigned(u.tx, job.ID, line.BorrowerID); err != nil {
					return err
				} else if !ok {
					return fmt.Errorf("%w: borrower %d is not on this job", apperror.ErrInvalidInput, line.BorrowerID)
				}
			}
			lines[i] = line
		}

		loans, err = e.ledger.ReserveBatch(u.tx, job.ID, caller.ID, lines)
		if err != nil {
			return err
		}

		u.audit(caller.ID, "equipment.borrow", fmt.Sprintf("reserved %d equipment lines for job #%d", len(loans), job.ID))
		if caller.ID != job.SupervisorID {
			u.notify(job.SupervisorID, fmt.Sprintf("Equipment was borrowed for job %q", job.Title))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// ReturnEquipment gives back part or all of a loan. The owning supervisor
// or the borrowing technician may return it, whatever the job's status.
func (e *Engine) ReturnEquipment(ctx context.Context, caller auth.Caller, loanID int64, req ReturnEquipmentRequest) (*equipment.Loan, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	var loan *equipment.Loan
	err := e.run(ctx, func(u *unit) error {
		var current equipment.Loan
		if err := u.tx.First(&current, loanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return equipment.ErrLoanNotFound
			}
			return err
		}

		job, err := lockJob(u.tx, current.JobID)
		if err != nil {
			return err
		}
		if err := authorize(u.tx, opReturnEquipment, caller, job); err != nil {
			return err
		}
		if caller.Role == auth.RoleTechnician && current.BorrowerID != caller.ID {
			return fmt.Errorf("%w: only the borrower may return this equipment", apperror.ErrForbidden)
		}

		loan, err = e.ledger.ReturnPartial(u.tx, current.ID, req.Quantity, req.PhotoURL)
		if err != nil {
			return err
		}

		u.audit(caller.ID, "equipment.return", fmt.Sprintf("returned %d units on loan #%d (job #%d), %d outstanding", req.Quantity, loan.ID, job.ID, loan.Outstanding))
		if caller.ID != job.SupervisorID {
			u.notify(job.SupervisorID, fmt.Sprintf("Equipment was returned for job %q", job.Title))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Cancel stops an active job. Equipment stays on loan until returned.
func (e *Engine) Cancel(ctx context.Context, caller auth.Caller, jobID int64, reason string) (*Job, error) {
	var job *Job
	err := e.run(ctx, func(u *unit) error {
		var err error
		job, err = lockJob(u.tx, jobID)
		if err != nil {
			return err
		}
		if err := authorize(u.tx, opCancelJob, caller, job); err != nil {
			return err
		}

		now := e.now()
		if err := e.setStatus(u.tx, job, StatusCancelled, map[string]any{"cancelled_at": now}); err != nil {
			return err
		}
		job.CancelledAt = &now

		techs, err := technicianIDs(u.tx, job.ID)
		if err != nil {
			return err
		}

		desc := fmt.Sprintf("cancelled job #%d %q", job.ID, job.Title)
		if reason = strings.TrimSpace(reason); reason != "" {
			desc += ": " + reason
		}
		u.audit(caller.ID, "job.cancel", desc)
		u.notifyAll(techs, fmt.Sprintf("Job %q has been cancelled", job.Title))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// SupervisorApproveCompletion completes an active job whose reports pass
// the readiness check, returning all outstanding equipment. When manager
// validation is on the job goes to AwaitingManagerValidation instead.
func (e *Engine) SupervisorApproveCompletion(ctx context.Context, caller auth.Caller, jobID int64) (*Job, error) {
	var job *Job
	err := e.run(ctx, func(u *unit) error {
		var err error
		job, err = lockJob(u.tx, jobID)
		if err != nil {
			return err
		}
		if err := authorize(u.tx, opCompleteJob, caller, job); err != nil {
			return err
		}
		if job.Status != StatusActive {
			return illegalTransition(job.Status, StatusCompleted)
		}

		r, err := readiness(u.tx, job.ID)
		if err != nil {
			return err
		}
		if !r.Ready {
			return fmt.Errorf("%w: %s", ErrNotReady, r.Reason)
		}

		// with the manager tier on, the supervisor's approval only forwards the job
		if e.managerValidation {
			return e.handToManagers(u, job)
		}

		if err := e.complete(u, job, nil); err != nil {
			return err
		}
		u.audit(caller.ID, "job.complete", fmt.Sprintf("supervisor completed job #%d %q", job.ID, job.Title))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ManagerFinalValidate settles a job awaiting manager validation. A job can
// be settled once; later calls get ErrAlreadyResolved.
func (e *Engine) ManagerFinalValidate(ctx context.Context, caller auth.Caller, jobID int64, decision Decision, note string) (*Job, error) {
	if err := authorize(e.db, opFinalValidate, caller, nil); err != nil {
		return nil, err
	}
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, fmt.Errorf("%w: decision must be completed or rejected", apperror.ErrInvalidInput)
	}

	var job *Job
	err := e.run(ctx, func(u *unit) error {
		var err error
		job, err = lockJob(u.tx, jobID)
		if err != nil {
			return err
		}
		if job.ManagerID != nil {
			return fmt.Errorf("%w: job #%d was already %s by a manager", apperror.ErrAlreadyResolved, job.ID, job.Status)
		}
		if job.Status != StatusAwaitingManagerValidation {
			return fmt.Errorf("%w: job is %s, not awaiting manager validation", apperror.ErrIllegalTransition, job.Status)
		}

		now := e.now()
		managerID := caller.ID
		fields := map[string]any{
			"manager_id":          managerID,
			"manager_note":        note,
			"manager_validate_at": now,
		}
		job.ManagerID = &managerID
		job.ManagerNote = note
		job.ManagerValidateAt = &now

		if decision == DecisionApprove {
			if err := e.complete(u, job, fields); err != nil {
				return err
			}
			u.notify(job.SupervisorID, fmt.Sprintf("Job %q was approved by the manager", job.Title))
		} else {
			if err := e.setStatus(u.tx, job, StatusRejected, fields); err != nil {
				return err
			}
			techs, err := technicianIDs(u.tx, job.ID)
			if err != nil {
				return err
			}
			u.notify(job.SupervisorID, fmt.Sprintf("Job %q was rejected by the manager", job.Title))
			u.notifyAll(techs, fmt.Sprintf("Job %q was rejected by the manager", job.Title))
		}

		u.audit(caller.ID, "job.final_validation", fmt.Sprintf("manager marked job #%d %s", job.ID, job.Status))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// complete moves job to Completed, closes every open loan and tells the
// technicians. Both completion paths go through here.
func (e *Engine) complete(u *unit, job *Job, extra map[string]any) error {
	now := e.now()
	fields := map[string]any{"completed_at": now}
	for k, v := range extra {
		fields[k] = v
	}
	if err := e.setStatus(u.tx, job, StatusCompleted, fields); err != nil {
		return err
	}
	job.CompletedAt = &now

	returned, err := e.ledger.ForceReturnAllOutstanding(u.tx, job.ID)
	if err != nil {
		return err
	}
	if returned > 0 {
		u.audit(job.SupervisorID, "equipment.force_return", fmt.Sprintf("returned %d open loans of completed job #%d", returned, job.ID))
	}

	techs, err := technicianIDs(u.tx, job.ID)
	if err != nil {
		return err
	}
	u.notifyAll(techs, fmt.Sprintf("Job %q has been completed", job.Title))
	return nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
