package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agent-hub-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// HealthChecker probes a backing service for /healthz.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services bundles the use cases exposed over HTTP. Any nil service leaves
// its routes unmounted.
type Services struct {
	Auth          *service.AuthService
	Agents        *service.AgentService
	Properties    *service.PropertyService
	Transactions  *service.TransactionService
	Installments  *service.InstallmentService
	Approvals     *service.ApprovalService
	Notifications *service.NotificationService
	Roles         *service.RoleService
	Invitations   *service.InvitationService
	Database      HealthChecker
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, allowedOrigins []string, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Database, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(requestMetrics(metrics))

		if svc.Auth == nil {
			logger.Warn("no session verifier configured, authenticated routes disabled")
			return
		}

		r.Group(func(r chi.Router) {
			r.Use(ClerkAuthMiddleware(svc.Auth, logger))

			r.Get("/metrics/summary", metricsSummaryHandler(metrics))

			// Any signed-in user, including one without an agent profile yet.
			if svc.Invitations != nil {
				r.Post("/invitations/accept", acceptInvitationHandler(svc.Invitations, logger))
			}

			// =============================================
			// 1. Properties
			// =============================================
			if svc.Properties != nil {
				r.Get("/properties", listPropertiesHandler(svc.Properties, logger))
				r.Post("/properties", createPropertyHandler(svc.Properties, logger))
				r.Get("/properties/{id}", getPropertyHandler(svc.Properties, logger))
				r.Put("/properties/{id}", updatePropertyHandler(svc.Properties, logger))
				r.Delete("/properties/{id}", deletePropertyHandler(svc.Properties, logger))
				r.Post("/properties/{id}/images", uploadPropertyImageHandler(svc.Properties, logger))
				r.Put("/properties/{id}/images/{imageId}/cover", setCoverImageHandler(svc.Properties, logger))
				r.Post("/properties/{id}/documents", uploadPropertyDocumentHandler(svc.Properties, logger))
				r.Get("/properties/{id}/documents/{docId}/url", documentURLHandler(svc.Properties, logger))
			}

			// =============================================
			// 2. Transactions & commission calculator
			// =============================================
			if svc.Transactions != nil {
				r.Post("/transactions", recordTransactionHandler(svc.Transactions, logger))
				r.Get("/transactions/{id}", getTransactionHandler(svc.Transactions, logger))
				r.Get("/agents/{agentId}/transactions", listAgentTransactionsHandler(svc.Transactions, logger))
				r.Post("/commission/calculate", calculateCommissionHandler(svc.Transactions, logger))
				r.Post("/commission/split", splitCommissionHandler(svc.Transactions, logger))
			}

			// =============================================
			// 3. Installments, schedules & forecast
			// =============================================
			if svc.Installments != nil {
				r.Post("/commission/installments/preview", previewInstallmentsHandler(svc.Installments, logger))
				r.Post("/transactions/{id}/installments", generateInstallmentsHandler(svc.Installments, logger))
				r.Get("/transactions/{id}/installments", listTransactionInstallmentsHandler(svc.Installments, logger))
				r.Post("/installments/{id}/process", processInstallmentHandler(svc.Installments, logger))
				r.Get("/agents/{agentId}/installments", listAgentInstallmentsHandler(svc.Installments, logger))

				r.Get("/payment-schedules", listSchedulesHandler(svc.Installments, logger))
				r.Post("/payment-schedules", createScheduleHandler(svc.Installments, logger))
				r.Get("/payment-schedules/{id}", getScheduleHandler(svc.Installments, logger))
				r.Delete("/payment-schedules/{id}", deleteScheduleHandler(svc.Installments, logger))
				r.Post("/payment-schedules/{id}/default", setDefaultScheduleHandler(svc.Installments, logger))

				r.Get("/agents/{agentId}/forecast", forecastHandler(svc.Installments, logger))
				r.Post("/agents/{agentId}/forecast/projections", projectionsHandler(svc.Installments, logger))
			}

			// =============================================
			// 4. Approvals
			// =============================================
			if svc.Approvals != nil {
				r.Get("/approvals", listApprovalsHandler(svc.Approvals, logger))
				r.Get("/approvals/counts", approvalCountsHandler(svc.Approvals, logger))
				r.Delete("/approvals/comments/{commentId}", deleteApprovalCommentHandler(svc.Approvals, logger))
				r.Get("/approvals/{id}", getApprovalHandler(svc.Approvals, logger))
				r.Post("/approvals/{id}/status", updateApprovalStatusHandler(svc.Approvals, logger))
				r.Get("/approvals/{id}/comments", listApprovalCommentsHandler(svc.Approvals, logger))
				r.Post("/approvals/{id}/comments", addApprovalCommentHandler(svc.Approvals, logger))
				r.Get("/transactions/{id}/approval", transactionApprovalHandler(svc.Approvals, logger))
			}

			// =============================================
			// 5. Agents & hierarchy
			// =============================================
			if svc.Agents != nil {
				r.Get("/agents/me", meHandler(svc.Agents, logger))
				r.Get("/agents/{agentId}", getAgentHandler(svc.Agents, logger))
				r.Get("/agents/{agentId}/hierarchy", hierarchyHandler(svc.Agents, logger))
				r.Get("/agents/{agentId}/overrides", overridesHandler(svc.Agents, logger))
				r.Put("/agents/{agentId}/rank", updateRankHandler(svc.Agents, logger))
				r.Get("/agents/{agentId}/dashboard", dashboardHandler(svc.Agents, logger))
				r.Get("/commission/tiers", commissionTiersHandler(svc.Agents))
			}

			// =============================================
			// 6. Notifications
			// =============================================
			if svc.Notifications != nil {
				r.Get("/notifications", listNotificationsHandler(svc.Notifications, logger))
				r.Get("/notifications/unread-count", unreadCountHandler(svc.Notifications, logger))
				r.Post("/notifications", createNotificationHandler(svc.Notifications, logger))
				r.Post("/notifications/read-all", markAllReadHandler(svc.Notifications, logger))
				r.Post("/notifications/{id}/read", markReadHandler(svc.Notifications, logger))
			}

			// =============================================
			// 7. Roles & permissions
			// =============================================
			if svc.Roles != nil {
				r.Get("/permissions", listPermissionsHandler(svc.Roles, logger))
				r.Get("/permissions/categories", permissionCategoriesHandler(svc.Roles, logger))
				r.Get("/roles/hierarchy", listRoleRelationsHandler(svc.Roles, logger))
				r.Post("/roles/hierarchy", addRoleRelationHandler(svc.Roles, logger))
				r.Delete("/roles/hierarchy", removeRoleRelationHandler(svc.Roles, logger))
				r.Get("/roles/levels", roleLevelsHandler(svc.Roles, logger))
				r.Get("/roles/{roleId}/permissions", rolePermissionsHandler(svc.Roles, logger))
				r.Get("/users/{userId}/roles", userRolesHandler(svc.Roles, logger))
				r.Post("/users/{userId}/roles", assignRoleHandler(svc.Roles, logger))
			}

			// =============================================
			// 8. Admin
			// =============================================
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin(logger))
				if svc.Approvals != nil {
					r.Get("/approval-threshold", getThresholdHandler(svc.Approvals))
					r.Put("/approval-threshold", updateThresholdHandler(svc.Approvals, logger))
				}
				if svc.Invitations != nil {
					r.Post("/invitations", inviteAgentHandler(svc.Invitations, logger))
				}
				if svc.Roles != nil {
					r.Get("/clerk/users/{userId}", identityUserHandler(svc.Roles, logger))
				}
			})
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(db HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "agenthub-api", Status: "healthy", LatencyMs: 0, UptimePercent: 99.99, LastChecked: now},
		}

		if db != nil {
			start := time.Now()
			err := db.Ping(ctx)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				logger.Warn("healthz: supabase probe failed", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "supabase", Status: status, LatencyMs: latency,
				UptimePercent: 99.9, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSummaryHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
