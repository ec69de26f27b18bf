package audit

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fieldwork/internal/pkg/apperror"
)

// Service writes the activity trail and echoes every entry to the log.
type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log.Named("audit")}
}

func (s *Service) Record(ctx context.Context, actorID int64, action, description string) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return fmt.Errorf("%w: action is required", apperror.ErrInvalidInput)
	}

	entry := &ActivityLog{ActorID: actorID, Action: action, Description: description}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("store activity log: %w", err)
	}

	s.log.Info(description,
		zap.String("audit_id", entry.ID.String()),
		zap.Int64("actor_id", actorID),
		zap.String("action", action),
	)
	return nil
}

type Filter struct {
	ActorID int64  `form:"actor_id"`
	Action  string `form:"action"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

// List returns entries newest first. Action matches as a prefix, so
// "job." selects every job event.
func (s *Service) List(ctx context.Context, f Filter) ([]ActivityLog, int64, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	filtered := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&ActivityLog{})
		if f.ActorID > 0 {
			q = q.Where("actor_id = ?", f.ActorID)
		}
		if a := strings.TrimSpace(f.Action); a != "" {
			q = q.Where("action LIKE ?", a+"%")
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal(err)
	}

	var entries []ActivityLog
	if err := filtered().Order("created_at desc").Limit(f.Limit).Offset(f.Offset).Find(&entries).Error; err != nil {
		return nil, 0, apperror.Internal(err)
	}
	return entries, total, nil
}
