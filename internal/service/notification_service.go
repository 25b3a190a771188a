package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"maintenance-service/internal/model"
	"maintenance-service/internal/repository"
)

// NotificationService serves the caller's own notification inbox.
type NotificationService struct {
	notifications repository.NotificationRepository
	now           func() time.Time
}

func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications, now: time.Now}
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, principal model.Principal) ([]model.Notification, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	return s.notifications.ListByRecipient(ctx, principal.UserID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, principal model.Principal) (int64, error) {
	if err := requireAuthenticated(principal); err != nil {
		return 0, err
	}
	return s.notifications.CountUnread(ctx, principal.UserID)
}

// MarkRead fails with ErrNotFound when the notification is missing, already
// read or addressed to someone else.
func (s *NotificationService) MarkRead(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if err := requireAuthenticated(principal); err != nil {
		return err
	}
	return mapNotFound(s.notifications.MarkRead(ctx, principal.UserID, id, s.now()))
}

func (s *NotificationService) MarkAllRead(ctx context.Context, principal model.Principal) (int64, error) {
	if err := requireAuthenticated(principal); err != nil {
		return 0, err
	}
	return s.notifications.MarkAllRead(ctx, principal.UserID, s.now())
}

func (s *NotificationService) Delete(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if err := requireAuthenticated(principal); err != nil {
		return err
	}
	return mapNotFound(s.notifications.Delete(ctx, principal.UserID, id))
}
