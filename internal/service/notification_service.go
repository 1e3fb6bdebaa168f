package service

import (
	"context"

	"github.com/gustavohdab/rettiwt-backend/internal/models"
	"github.com/gustavohdab/rettiwt-backend/internal/repository"
)

// NotificationService serves the per-user notification inbox.
type NotificationService struct {
	notifications repository.NotificationRepository
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// Inbox returns the user's notifications, newest first, plus the unread count
// for the badge.
func (s *NotificationService) Inbox(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error) {
	items, err := s.notifications.ListByRecipient(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return items, unread, nil
}

// UnreadCount returns how many of the user's notifications are unread.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// MarkRead marks one of the user's notifications read. Another user's
// notification id reports not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	return s.notifications.MarkRead(ctx, userID, id)
}

// MarkAllRead marks every unread notification of the user read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.notifications.MarkAllRead(ctx, userID)
}
