package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityLog is one line of the append-only activity trail.
type ActivityLog struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ActorID     int64     `json:"actor_id" gorm:"not null;index"`
	Action      string    `json:"action" gorm:"size:64;not null;index"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

func (l *ActivityLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
