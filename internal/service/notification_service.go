package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agent-hub-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var notificationTracer = otel.Tracer("service/notification")

const defaultNotificationPageSize = 20

// NotificationService manages per-user notifications.
type NotificationService struct {
	store   port.NotificationStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewNotificationService creates a notification service.
func NewNotificationService(store port.NotificationStore, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	return &NotificationService{store: store, metrics: metrics, logger: logger}
}

// Create validates and stores a notification. Agents may only notify
// themselves; admins may notify anyone.
func (s *NotificationService) Create(ctx context.Context, actor *domain.Principal, req *domain.NotificationRequest) (*domain.Notification, error) {
	ctx, span := notificationTracer.Start(ctx, "NotificationService.Create")
	defer span.End()

	if actor == nil {
		return nil, &domain.ErrUnauthorized{}
	}
	if req.UserID == "" {
		req.UserID = actor.UserID
	}
	if err := requireSelfOrAdmin(actor, req.UserID, "create notifications for other users"); err != nil {
		return nil, err
	}
	return s.create(ctx, req)
}

// Notify creates a notification on behalf of the system. Failures are logged
// and swallowed so they never fail the calling operation.
func (s *NotificationService) Notify(ctx context.Context, req *domain.NotificationRequest) {
	if _, err := s.create(ctx, req); err != nil {
		s.logger.Warn("failed to create notification",
			zap.String("user_id", req.UserID),
			zap.String("type", req.Type),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) create(ctx context.Context, req *domain.NotificationRequest) (*domain.Notification, error) {
	switch {
	case req.UserID == "":
		return nil, &domain.ErrValidation{Field: "user_id", Message: "required"}
	case req.Type == "":
		return nil, &domain.ErrValidation{Field: "type", Message: "required"}
	case req.Title == "":
		return nil, &domain.ErrValidation{Field: "title", Message: "required"}
	case req.Message == "":
		return nil, &domain.ErrValidation{Field: "message", Message: "required"}
	}

	n := &domain.Notification{
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		RelatedID: req.RelatedID,
	}
	if len(req.Data) > 0 {
		data, err := json.Marshal(req.Data)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "data", Message: fmt.Sprintf("not serialisable: %v", err)}
		}
		n.Data = data
	}

	created, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrNotification(req.Type)
	return created, nil
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]domain.Notification, error) {
	ctx, span := notificationTracer.Start(ctx, "NotificationService.List")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.Bool("unread_only", unreadOnly))

	if pageSize <= 0 || pageSize > 100 {
		pageSize = defaultNotificationPageSize
	}
	items, err := s.store.ListNotifications(ctx, userID, unreadOnly, page, pageSize)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (*domain.UnreadCount, error) {
	ctx, span := notificationTracer.Start(ctx, "NotificationService.UnreadCount")
	defer span.End()

	n, err := s.store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.UnreadCount{Count: n}, nil
}

// MarkRead marks one notification read. Only its recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, actor *domain.Principal, notificationID string) error {
	ctx, span := notificationTracer.Start(ctx, "NotificationService.MarkRead")
	defer span.End()

	n, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if actor == nil || n.UserID != actor.UserID {
		return &domain.ErrForbidden{Action: "mark another user's notification as read"}
	}
	if n.Read {
		return nil
	}
	return s.store.MarkNotificationRead(ctx, notificationID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	ctx, span := notificationTracer.Start(ctx, "NotificationService.MarkAllRead")
	defer span.End()

	return s.store.MarkAllNotificationsRead(ctx, userID)
}
