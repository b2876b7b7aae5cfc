package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pasabuyph/backend/internal/models"
	"github.com/pasabuyph/backend/internal/pkg/apperror"
)

// NotificationRepo is the persistence surface for notifications.
type NotificationRepo interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// Pusher delivers a notification to connected clients in real time.
type Pusher interface {
	Push(userID uuid.UUID, payload []byte)
}

// NotificationService is the notification sink for the settlement core:
// persists notifications and pushes them over the websocket hub. Delivery is
// best effort; financial transactions never wait on it.
type NotificationService struct {
	repo   NotificationRepo
	pusher Pusher
}

func NewNotificationService(repo NotificationRepo, pusher Pusher) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher}
}

// Notify stores a notification of the given kind and pushes it to the user.
// A non-zero ttl bounds how long the notification stays visible.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, kind string, data interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(map[string]interface{}{
		"kind": kind,
		"data": data,
	})
	if err != nil {
		return fmt.Errorf("notification service: marshal payload %w", err)
	}

	notification := &models.Notification{
		UserID:  userID,
		Kind:    kind,
		Payload: payload,
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		notification.ExpiresAt = &expires
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	if s.pusher != nil {
		s.pusher.Push(userID, payload)
	}

	return nil
}

// List returns the user's notifications.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead marks one of the user's notifications as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, id, userID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeNotFound, "notification not found")
	}
	return nil
}

// CountUnread returns the user's unread notification count.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
