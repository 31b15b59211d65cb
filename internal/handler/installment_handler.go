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
// Installments
// ============================================================

func previewInstallmentsHandler(svc *service.InstallmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/commission/installments/preview")
		defer span.End()

		var req domain.InstallmentPreviewRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		resp, err := svc.Preview(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func generateInstallmentsHandler(svc *service.InstallmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/{id}/installments")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		items, err := svc.Generate(ctx, PrincipalFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("installments.count", len(items)))
		writeJSON(w, http.StatusCreated, items)
	}
}

func listTransactionInstallmentsHandler(svc *service.InstallmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/{id}/installments")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		items, err := svc.ListByTransaction(ctx, PrincipalFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func processInstallmentHandler(svc *service.InstallmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/installments/{id}/process")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req domain.ProcessInstallmentRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		item, err := svc.Process(ctx, PrincipalFromContext(ctx), id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func listAgentInstallmentsHandler(svc *service.InstallmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agents/{agentId}/installments")
		defer span.End()

		items, err := svc.ListByAgent(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "agentId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// ============================================================
// Payment schedules
// ============================================================

func listSchedulesHandler(svc *service.InstallmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/payment-schedules")
		defer span.End()

		items, err := svc.ListSchedules(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func getScheduleHandler(svc *service.InstallmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/payment-schedules/{id}")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		schedule, err := svc.GetSchedule(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, schedule)
	}
}

func createScheduleHandler(svc *service.InstallmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payment-schedules")
		defer span.End()

		var req domain.PaymentScheduleRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		schedule, err := svc.CreateSchedule(ctx, PrincipalFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, schedule)
	}
}

func deleteScheduleHandler(svc *service.InstallmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/payment-schedules/{id}")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.DeleteSchedule(ctx, PrincipalFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func setDefaultScheduleHandler(svc *service.InstallmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payment-schedules/{id}/default")
		defer span.End()

		id, err := uuidParam(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.SetDefaultSchedule(ctx, PrincipalFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "default schedule updated", ID: id})
	}
}

// ============================================================
// Forecast
// ============================================================

func forecastHandler(svc *service.InstallmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agents/{agentId}/forecast")
		defer span.End()

		months, err := queryInt(r, "months")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		forecast, err := svc.Forecast(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "agentId"), months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, forecast)
	}
}

func projectionsHandler(svc *service.InstallmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/agents/{agentId}/forecast/projections")
		defer span.End()

		months, err := queryInt(r, "months")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		resp, err := svc.GenerateProjections(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "agentId"), months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
