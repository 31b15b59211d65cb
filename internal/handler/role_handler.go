package handler

import (
	"net/http"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Roles & permissions
// ============================================================

func listPermissionsHandler(svc *service.RoleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/permissions")
		defer span.End()

		items, err := svc.Permissions(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func permissionCategoriesHandler(svc *service.RoleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/permissions/categories")
		defer span.End()

		items, err := svc.PermissionCategories(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func rolePermissionsHandler(svc *service.RoleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/roles/{roleId}/permissions")
		defer span.End()

		items, err := svc.RolePermissions(ctx, chi.URLParam(r, "roleId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func listRoleRelationsHandler(svc *service.RoleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/roles/hierarchy")
		defer span.End()

		items, err := svc.Relations(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func addRoleRelationHandler(svc *service.RoleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/roles/hierarchy")
		defer span.End()

		var req domain.RoleRelationRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		rel, err := svc.AddRelation(ctx, PrincipalFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rel)
	}
}

func removeRoleRelationHandler(svc *service.RoleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/roles/hierarchy")
		defer span.End()

		var req domain.RoleRelationRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.RemoveRelation(ctx, PrincipalFromContext(ctx), &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func roleLevelsHandler(svc *service.RoleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/roles/levels")
		defer span.End()

		items, err := svc.Levels(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func userRolesHandler(svc *service.RoleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/roles")
		defer span.End()

		items, err := svc.UserRoles(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "userId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func assignRoleHandler(svc *service.RoleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/roles")
		defer span.End()

		var req domain.AssignRoleRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		ur, err := svc.AssignRole(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "userId"), req.RoleID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, ur)
	}
}

func identityUserHandler(svc *service.RoleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/clerk/users/{userId}")
		defer span.End()

		user, err := svc.IdentityUser(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "userId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
