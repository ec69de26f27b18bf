package notification

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, n *Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListByUser returns the newest notifications first together with the
// user's total.
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Notification, int64, error) {
	byUser := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userID)
	}

	var total int64
	if err := byUser().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []Notification
	if err := byUser().Order("created_at desc, id desc").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkAsRead only touches notifications owned by userID.
func (r *Repository) MarkAsRead(ctx context.Context, id, userID int64, now time.Time) (*Notification, error) {
	var n Notification
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	if n.IsRead {
		return &n, nil
	}

	n.MarkAsRead(now)
	err = r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", n.ID).
		Updates(map[string]any{"is_read": true, "read_at": now}).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *Repository) MarkAllAsRead(ctx context.Context, userID int64, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	return res.RowsAffected, res.Error
}

// DeleteReadBefore removes read notifications created before cutoff.
func (r *Repository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&Notification{})
	return res.RowsAffected, res.Error
}
