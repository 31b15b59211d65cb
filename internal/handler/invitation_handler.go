package handler

import (
	"net/http"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Invitations
// ============================================================

func inviteAgentHandler(svc *service.InvitationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/invitations")
		defer span.End()

		var req domain.InvitationRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		resp, err := svc.Invite(ctx, PrincipalFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// acceptInvitationHandler binds the invitation to the caller's Clerk
// session, which exists right after sign-up even before a profile does.
func acceptInvitationHandler(svc *service.InvitationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/invitations/accept")
		defer span.End()

		var req domain.AcceptInvitationRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		profile, err := svc.Accept(ctx, PrincipalFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}
