package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"fieldwork/internal/pkg/apperror"
)

// Pusher delivers an event to a live connection of the user, if any.
type Pusher interface {
	Push(userID int64, event *Event) bool
}

type Service struct {
	repo   *Repository
	pusher Pusher
	log    *zap.Logger
	now    func() time.Time
}

func NewService(repo *Repository, pusher Pusher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, pusher: pusher, log: log, now: time.Now}
}

// Notify stores the message for the recipient and pushes it to their open
// websocket. A failed push is not an error; the stored row is the record.
func (s *Service) Notify(ctx context.Context, recipientID int64, message string) error {
	message = strings.TrimSpace(message)
	if recipientID <= 0 || message == "" {
		return fmt.Errorf("%w: recipient and message are required", apperror.ErrInvalidInput)
	}

	n := &Notification{UserID: recipientID, Message: message}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if s.pusher != nil {
		delivered := s.pusher.Push(recipientID, &Event{Type: EventNotification, Payload: n})
		s.log.Debug("notification stored",
			zap.Int64("notification_id", n.ID),
			zap.Int64("recipient_id", recipientID),
			zap.Bool("pushed", delivered),
		)
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID int64, limit, offset int) ([]Notification, int64, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	list, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, 0, apperror.Internal(err)
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.log.Warn("count unread notifications", zap.Int64("user_id", userID), zap.Error(err))
		unread = 0
	}
	return list, unread, total, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}

func (s *Service) MarkAsRead(ctx context.Context, id, userID int64) (*Notification, error) {
	n, err := s.repo.MarkAsRead(ctx, id, userID, s.now())
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return n, nil
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.MarkAllAsRead(ctx, userID, s.now())
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}
