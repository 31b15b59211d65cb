package handler

import (
	"net/http"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Notifications: always scoped to the caller
// ============================================================

func listNotificationsHandler(svc *service.NotificationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/notifications")
		defer span.End()

		p := PrincipalFromContext(ctx)
		page, pageSize := parsePagination(r)
		unreadOnly := r.URL.Query().Get("unread") == "true"

		items, err := svc.List(ctx, p.UserID, unreadOnly, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Notification]{
			Data:     items,
			Total:    len(items),
			Page:     page,
			PageSize: pageSize,
			HasMore:  len(items) == pageSize,
		})
	}
}

func unreadCountHandler(svc *service.NotificationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/notifications/unread-count")
		defer span.End()

		count, err := svc.UnreadCount(ctx, PrincipalFromContext(ctx).UserID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, count)
	}
}

func createNotificationHandler(svc *service.NotificationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notifications")
		defer span.End()

		var req domain.NotificationRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		n, err := svc.Create(ctx, PrincipalFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, n)
	}
}

func markReadHandler(svc *service.NotificationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notifications/{id}/read")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.MarkRead(ctx, PrincipalFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "notification marked as read", ID: id})
	}
}

func markAllReadHandler(svc *service.NotificationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notifications/read-all")
		defer span.End()

		if err := svc.MarkAllRead(ctx, PrincipalFromContext(ctx).UserID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "all notifications marked as read"})
	}
}
