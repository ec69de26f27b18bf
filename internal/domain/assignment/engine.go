package assignment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldwork/internal/domain/auth"
	"fieldwork/internal/domain/equipment"
	"fieldwork/internal/pkg/apperror"
)

// Notifier delivers a short message to a user. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, recipientID int64, message string) error
}

// Auditor appends to the activity log. Best-effort as well.
type Auditor interface {
	Record(ctx context.Context, actorID int64, action, description string) error
}

// Directory answers role questions about users.
type Directory interface {
	RolesByID(ctx context.Context, ids []int64) (map[int64]auth.UserRole, error)
	IDsByRole(ctx context.Context, role auth.UserRole) ([]int64, error)
}

type Deps struct {
	DB        *gorm.DB
	Ledger    *equipment.Ledger
	Directory Directory
	Notifier  Notifier
	Auditor   Auditor
	Log       *zap.Logger

	// ManagerValidation routes ready jobs to a manager before completion.
	ManagerValidation bool
}

// Engine runs every job lifecycle operation: the state machine, report
// validation, extension requests and the equipment movements tied to them.
type Engine struct {
	db                *gorm.DB
	ledger            *equipment.Ledger
	directory         Directory
	notifier          Notifier
	auditor           Auditor
	log               *zap.Logger
	managerValidation bool
	now               func() time.Time
}

func NewEngine(d Deps) *Engine {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	ledger := d.Ledger
	if ledger == nil {
		ledger = equipment.NewLedger()
	}
	return &Engine{
		db:                d.DB,
		ledger:            ledger,
		directory:         d.Directory,
		notifier:          d.Notifier,
		auditor:           d.Auditor,
		log:               log,
		managerValidation: d.ManagerValidation,
		now:               time.Now,
	}
}

// unit is one operation's transaction plus the side effects that may only
// run once it has committed.
type unit struct {
	e       *Engine
	tx      *gorm.DB
	effects []func(ctx context.Context)
}

func (e *Engine) run(ctx context.Context, fn func(u *unit) error) error {
	u := &unit{e: e}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u.tx = tx
		return fn(u)
	})
	if err != nil {
		return apperror.Internal(err)
	}
	for _, effect := range u.effects {
		effect(ctx)
	}
	return nil
}

func (u *unit) afterCommit(fn func(ctx context.Context)) {
	u.effects = append(u.effects, fn)
}

func (u *unit) notify(recipientID int64, message string) {
	if u.e.notifier == nil || recipientID == 0 {
		return
	}
	u.afterCommit(func(ctx context.Context) {
		if err := u.e.notifier.Notify(ctx, recipientID, message); err != nil {
			u.e.log.Warn("notification failed",
				zap.Int64("recipient_id", recipientID),
				zap.Error(err),
			)
		}
	})
}

func (u *unit) notifyAll(recipients []int64, message string) {
	for _, id := range recipients {
		u.notify(id, message)
	}
}

// notifyRole resolves the recipients after commit so the directory lookup
// stays outside the transaction.
func (u *unit) notifyRole(role auth.UserRole, message string) {
	if u.e.directory == nil {
		return
	}
	u.afterCommit(func(ctx context.Context) {
		ids, err := u.e.directory.IDsByRole(ctx, role)
		if err != nil {
			u.e.log.Warn("recipient lookup failed", zap.String("role", string(role)), zap.Error(err))
			return
		}
		for _, id := range ids {
			if u.e.notifier == nil {
				return
			}
			if err := u.e.notifier.Notify(ctx, id, message); err != nil {
				u.e.log.Warn("notification failed", zap.Int64("recipient_id", id), zap.Error(err))
			}
		}
	})
}

func (u *unit) audit(actorID int64, action, description string) {
	if u.e.auditor == nil {
		return
	}
	u.afterCommit(func(ctx context.Context) {
		if err := u.e.auditor.Record(ctx, actorID, action, description); err != nil {
			u.e.log.Warn("activity log write failed",
				zap.String("action", action),
				zap.Error(err),
			)
		}
	})
}

func lockJob(tx *gorm.DB, id int64) (*Job, error) {
	var job Job
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&job, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w (id %d)", ErrJobNotFound, id)
		}
		return nil, err
	}
	return &job, nil
}

// setStatus moves a job only if it is still in the status it was read in.
func (e *Engine) setStatus(tx *gorm.DB, job *Job, to JobStatus, extra map[string]any) error {
	if !CanTransition(job.Status, to) {
		return illegalTransition(job.Status, to)
	}

	updates := map[string]any{"status": to, "updated_at": e.now()}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&Job{}).Where("id = ? AND status = ?", job.ID, job.Status).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: job %d changed status concurrently", apperror.ErrIllegalTransition, job.ID)
	}
	job.Status = to
	return nil
}

func technicianIDs(tx *gorm.DB, jobID int64) ([]int64, error) {
	var ids []int64
	err := tx.Model(&TechnicianAssignment{}).
		Where("job_id = ?", jobID).
		Order("technician_id").
		Pluck("technician_id", &ids).Error
	return ids, err
}

func isAssigned(tx *gorm.DB, jobID, technicianID int64) (bool, error) {
	var count int64
	err := tx.Model(&TechnicianAssignment{}).
		Where("job_id = ? AND technician_id = ?", jobID, technicianID).
		Count(&count).Error
	return count > 0, err
}

// requireTechnicians checks that every id belongs to a technician account.
func (e *Engine) requireTechnicians(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if e.directory == nil {
		return fmt.Errorf("%w: no user directory configured", apperror.ErrInternal)
	}
	roles, err := e.directory.RolesByID(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		role, ok := roles[id]
		if !ok {
			return fmt.Errorf("%w: user %d does not exist", apperror.ErrInvalidInput, id)
		}
		if role != auth.RoleTechnician {
			return fmt.Errorf("%w: user %d is not a technician", apperror.ErrInvalidInput, id)
		}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id <= 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
