package notification

import "time"

// Notification is a message stored for one user. It is also pushed live
// to the user's websocket when one is connected.
type Notification struct {
	ID        int64      `json:"id" gorm:"primaryKey"`
	UserID    int64      `json:"user_id" gorm:"not null;index:idx_notifications_user_unread"`
	Message   string     `json:"message" gorm:"type:text;not null"`
	IsRead    bool       `json:"is_read" gorm:"not null;default:false;index:idx_notifications_user_unread"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"index"`
}

func (Notification) TableName() string {
	return "notifications"
}

// MarkAsRead marks notification as read with timestamp
func (n *Notification) MarkAsRead(now time.Time) {
	n.IsRead = true
	n.ReadAt = &now
}
