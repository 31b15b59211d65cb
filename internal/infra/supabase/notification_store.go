package supabase

import (
	"context"
	"fmt"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// ============================================================
// Notifications (implements port.NotificationStore)
// ============================================================

func (c *Client) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateNotification")
	defer span.End()

	row := map[string]any{
		"user_id": n.UserID,
		"type":    n.Type,
		"title":   n.Title,
		"message": n.Message,
		"read":    false,
	}
	if n.RelatedID != "" {
		row["related_id"] = n.RelatedID
	}
	if len(n.Data) > 0 {
		row["data"] = n.Data
	}

	var body []byte
	err := c.mutate(ctx, "notifications", func() (err error) {
		body, err = c.doPost(ctx, "notifications", row)
		return err
	})
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.Notification](body, "notification")
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("no result from notifications insert")
	}
	return created, nil
}

func (c *Client) ListNotifications(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]domain.Notification, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListNotifications")
	defer span.End()

	path := fmt.Sprintf("notifications?user_id=%s&order=created_at.desc&%s", eq(userID), pageOffset(page, pageSize))
	if unreadOnly {
		path += "&read=is.false"
	}
	body, err := c.query(ctx, "notifications", path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Notification](body, "notifications")
}

func (c *Client) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountUnreadNotifications")
	defer span.End()

	var count int
	err := c.guard(ctx, "notifications", func() (err error) {
		count, err = c.doCount(ctx, fmt.Sprintf("notifications?user_id=%s&read=is.false&select=id", eq(userID)))
		return markPermanent(err)
	})
	return count, err
}

func (c *Client) GetNotification(ctx context.Context, notificationID string) (*domain.Notification, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetNotification")
	defer span.End()

	body, err := c.query(ctx, "notifications", fmt.Sprintf("notifications?id=%s&limit=1", eq(notificationID)))
	if err != nil {
		return nil, err
	}
	n, err := decodeFirst[domain.Notification](body, "notification")
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, &domain.ErrNotFound{Resource: "notification", ID: notificationID}
	}
	return n, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.MarkNotificationRead")
	defer span.End()

	return c.mutate(ctx, "notifications", func() error {
		_, err := c.doPatch(ctx, "notifications?id="+eq(notificationID), map[string]any{"read": true})
		return err
	})
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.MarkAllNotificationsRead")
	defer span.End()

	return c.mutate(ctx, "notifications", func() error {
		_, err := c.doPatch(ctx, fmt.Sprintf("notifications?user_id=%s&read=is.false", eq(userID)), map[string]any{"read": true})
		return err
	})
}
