package handler

import (
	"net/http"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Approvals
// ============================================================

func listApprovalsHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/approvals")
		defer span.End()

		page, pageSize := parsePagination(r)
		status := domain.ApprovalStatus(r.URL.Query().Get("status"))

		items, err := svc.List(ctx, PrincipalFromContext(ctx), status, page, pageSize)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.CommissionApproval]{
			Data:     items,
			Total:    len(items),
			Page:     page,
			PageSize: pageSize,
			HasMore:  len(items) == pageSize,
		})
	}
}

func approvalCountsHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/approvals/counts")
		defer span.End()

		counts, err := svc.StatusCounts(ctx, PrincipalFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

func getApprovalHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/approvals/{id}")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		q := r.URL.Query()
		opts := service.ApprovalOptions{
			History:  q.Get("history") != "false",
			Comments: q.Get("comments") != "false",
		}
		approval, err := svc.Get(ctx, PrincipalFromContext(ctx), id, opts)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, approval)
	}
}

func transactionApprovalHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/{id}/approval")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		approval, err := svc.GetByTransaction(ctx, PrincipalFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, approval)
	}
}

func updateApprovalStatusHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/approvals/{id}/status")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req domain.ApprovalStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("approval.status", string(req.Status)))

		approval, err := svc.UpdateStatus(ctx, PrincipalFromContext(ctx), id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, approval)
	}
}

// ============================================================
// Comments
// ============================================================

func listApprovalCommentsHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/approvals/{id}/comments")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		comments, err := svc.ListComments(ctx, PrincipalFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, comments)
	}
}

func addApprovalCommentHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/approvals/{id}/comments")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req domain.ApprovalCommentRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		comment, err := svc.AddComment(ctx, PrincipalFromContext(ctx), id, req.CommentText)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, comment)
	}
}

func deleteApprovalCommentHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/approvals/comments/{commentId}")
		defer span.End()

		id, err := uuidParam(r, "commentId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.DeleteComment(ctx, PrincipalFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Admin: approval threshold
// ============================================================

func getThresholdHandler(svc *service.ApprovalService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/approval-threshold")
		defer span.End()

		writeJSON(w, http.StatusOK, domain.ApprovalThreshold{Threshold: svc.Threshold(ctx)})
	}
}

func updateThresholdHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/admin/approval-threshold")
		defer span.End()

		var req domain.ApprovalThreshold
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		resp, err := svc.UpdateThreshold(ctx, PrincipalFromContext(ctx), req.Threshold)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
