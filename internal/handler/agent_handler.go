package handler

import (
	"net/http"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Agents & hierarchy
// ============================================================

func meHandler(svc *service.AgentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agents/me")
		defer span.End()

		profile, err := svc.Me(ctx, PrincipalFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func getAgentHandler(svc *service.AgentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agents/{agentId}")
		defer span.End()

		agentID := chi.URLParam(r, "agentId")
		span.SetAttributes(attribute.String("agent.id", agentID))

		profile, err := svc.Profile(ctx, PrincipalFromContext(ctx), agentID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func hierarchyHandler(svc *service.AgentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agents/{agentId}/hierarchy")
		defer span.End()

		tree, err := svc.Hierarchy(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "agentId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tree)
	}
}

func overridesHandler(svc *service.AgentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agents/{agentId}/overrides")
		defer span.End()

		amount, err := queryFloat(r, "amount")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		resp, err := svc.Overrides(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "agentId"), amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateRankHandler(svc *service.AgentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/agents/{agentId}/rank")
		defer span.End()

		var req domain.UpdateRankRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		profile, err := svc.UpdateRank(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "agentId"), req.Rank)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func dashboardHandler(svc *service.AgentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agents/{agentId}/dashboard")
		defer span.End()

		dashboard, err := svc.Dashboard(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "agentId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dashboard)
	}
}

func commissionTiersHandler(svc *service.AgentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Tiers())
	}
}
