package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/commission"
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agent-hub-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var installmentTracer = otel.Tracer("service/installment")

const (
	projectionHistoryLimit = 50
	generateLockStripes    = 32
)

// InstallmentService generates and processes commission installments and
// manages the payment schedules and forecasts built on them.
type InstallmentService struct {
	txs          port.TransactionStore
	installments port.InstallmentStore
	schedules    port.ScheduleStore
	forecasts    port.ForecastStore
	notifier     *NotificationService
	defaultPct   float64
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time

	// Serialises Generate per transaction within this process.
	generateLocks [generateLockStripes]sync.Mutex
}

// NewInstallmentService creates an installment service.
func NewInstallmentService(
	txs port.TransactionStore,
	installments port.InstallmentStore,
	schedules port.ScheduleStore,
	forecasts port.ForecastStore,
	notifier *NotificationService,
	defaultPct float64,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *InstallmentService {
	return &InstallmentService{
		txs:          txs,
		installments: installments,
		schedules:    schedules,
		forecasts:    forecasts,
		notifier:     notifier,
		defaultPct:   defaultPct,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// ============================================================
// Installments
// ============================================================

// Generate splits the agent's commission of a transaction across its payment
// schedule (the default schedule when none is set). It runs once per
// transaction; a second call is a conflict.
func (s *InstallmentService) Generate(ctx context.Context, actor *domain.Principal, transactionID string) ([]domain.CommissionInstallment, error) {
	ctx, span := installmentTracer.Start(ctx, "InstallmentService.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", transactionID))

	tx, err := s.txs.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := requireSelfOrAdmin(actor, tx.AgentID, "generate installments for this transaction"); err != nil {
		return nil, err
	}
	if tx.InstallmentsGenerated {
		return nil, &domain.ErrConflict{Message: "installments already generated for this transaction"}
	}

	mu := s.generateLock(tx.ID)
	mu.Lock()
	defer mu.Unlock()

	// The flag can lag behind the rows when marking failed on an earlier run.
	existing, err := s.installments.ListInstallmentsByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		s.markGenerated(ctx, tx.ID)
		return nil, &domain.ErrConflict{Message: "installments already generated for this transaction"}
	}

	schedule, err := s.scheduleFor(ctx, tx.PaymentScheduleID)
	if err != nil {
		return nil, err
	}
	s.warnPercentages(schedule)

	txDate, err := commission.ParseDate(tx.TransactionDate)
	if err != nil {
		return nil, err
	}

	pct := tx.AgentPercentage
	if pct <= 0 {
		pct = s.defaultPct
	}
	agentCommission := tx.CommissionAmount * pct / 100

	generated := commission.GenerateInstallments(agentCommission, schedule.Installments, txDate)
	rows := make([]domain.CommissionInstallment, 0, len(generated))
	for _, g := range generated {
		rows = append(rows, domain.CommissionInstallment{
			TransactionID:     tx.ID,
			AgentID:           tx.AgentID,
			InstallmentNumber: g.Number,
			Amount:            commission.RoundCents(g.Amount),
			Percentage:        g.Percentage,
			ScheduledDate:     g.ScheduledDate(),
			Status:            domain.InstallmentStatusPending,
			Notes:             g.Notes,
		})
	}

	created, err := s.installments.InsertInstallments(ctx, rows)
	if err != nil {
		s.logger.Error("failed to insert installments", zap.String("transaction_id", tx.ID), zap.Error(err))
		return nil, err
	}
	s.markGenerated(ctx, tx.ID)
	s.metrics.AddInstallmentsGenerated(len(created))

	s.logger.Info("installments generated",
		zap.String("transaction_id", tx.ID),
		zap.String("agent_id", tx.AgentID),
		zap.String("schedule_id", schedule.ID),
		zap.Int("count", len(created)),
		zap.Float64("amount", commission.RoundCents(agentCommission)),
	)
	return nonNil(created), nil
}

func (s *InstallmentService) generateLock(transactionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(transactionID))
	return &s.generateLocks[h.Sum32()%generateLockStripes]
}

// markGenerated sets installments_generated. The inserted rows are the
// source of truth, so a failure here is logged and the next Generate
// repairs the flag.
func (s *InstallmentService) markGenerated(ctx context.Context, transactionID string) {
	if err := s.txs.MarkInstallmentsGenerated(ctx, transactionID); err != nil {
		s.logger.Warn("failed to mark installments generated",
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
	}
}

// Process changes an installment's payment status. Admin only. Paid
// installments are final; marking one paid stamps the payment and notifies
// the agent.
func (s *InstallmentService) Process(ctx context.Context, actor *domain.Principal, installmentID string, req *domain.ProcessInstallmentRequest) (*domain.CommissionInstallment, error) {
	ctx, span := installmentTracer.Start(ctx, "InstallmentService.Process")
	defer span.End()

	if err := requireAdmin(actor, "process installments"); err != nil {
		return nil, err
	}
	switch req.Status {
	case domain.InstallmentStatusPending, domain.InstallmentStatusProcessing,
		domain.InstallmentStatusPaid, domain.InstallmentStatusCancelled:
	default:
		return nil, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", req.Status)}
	}

	current, err := s.installments.GetInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.InstallmentStatusPaid {
		return nil, &domain.ErrConflict{Message: "installment already paid"}
	}

	updates := map[string]any{"status": req.Status}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}
	if req.Status == domain.InstallmentStatusPaid {
		updates["payment_date"] = s.now().UTC().Format(time.RFC3339)
		updates["processed_by"] = actor.UserID
	}

	updated, err := s.installments.UpdateInstallment(ctx, installmentID, updates)
	if err != nil {
		return nil, err
	}

	if req.Status == domain.InstallmentStatusPaid {
		s.notifier.Notify(ctx, &domain.NotificationRequest{
			UserID: updated.AgentID,
			Type:   domain.NotificationPaymentProcessed,
			Title:  "Commission Payment Processed",
			Message: fmt.Sprintf("Installment %d of %s has been paid.",
				updated.InstallmentNumber, commission.FormatCurrency(updated.Amount)),
			RelatedID: updated.ID,
			Data: map[string]any{
				"transaction_id":     updated.TransactionID,
				"installment_number": updated.InstallmentNumber,
				"amount":             updated.Amount,
			},
		})
	}

	s.logger.Info("installment processed",
		zap.String("installment_id", installmentID),
		zap.String("status", req.Status),
		zap.String("by", actor.UserID),
	)
	return updated, nil
}

func (s *InstallmentService) ListByTransaction(ctx context.Context, actor *domain.Principal, transactionID string) ([]domain.CommissionInstallment, error) {
	ctx, span := installmentTracer.Start(ctx, "InstallmentService.ListByTransaction")
	defer span.End()

	tx, err := s.txs.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := requireSelfOrAdmin(actor, tx.AgentID, "view installments of this transaction"); err != nil {
		return nil, err
	}
	items, err := s.installments.ListInstallmentsByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

func (s *InstallmentService) ListByAgent(ctx context.Context, actor *domain.Principal, agentID string) ([]domain.CommissionInstallment, error) {
	ctx, span := installmentTracer.Start(ctx, "InstallmentService.ListByAgent")
	defer span.End()

	if err := requireSelfOrAdmin(actor, agentID, "view another agent's installments"); err != nil {
		return nil, err
	}
	items, err := s.installments.ListInstallmentsByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

// Preview computes installments for a total without persisting anything.
// The schedule comes from the request, a stored schedule, or the default.
func (s *InstallmentService) Preview(ctx context.Context, req *domain.InstallmentPreviewRequest) (*domain.InstallmentPreviewResponse, error) {
	ctx, span := installmentTracer.Start(ctx, "InstallmentService.Preview")
	defer span.End()

	if req.Total < 0 {
		return nil, &domain.ErrValidation{Field: "total", Message: "must not be negative"}
	}
	txDate := s.now().UTC()
	if req.TransactionDate != "" {
		d, err := commission.ParseDate(req.TransactionDate)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "transaction_date", Message: "expected YYYY-MM-DD"}
		}
		txDate = d
	}

	slots := req.Installments
	if len(slots) == 0 {
		var id *string
		if req.ScheduleID != "" {
			id = &req.ScheduleID
		}
		schedule, err := s.scheduleFor(ctx, id)
		if err != nil {
			return nil, err
		}
		slots = schedule.Installments
	}
	if err := commission.ValidateSchedule(slots); err != nil {
		return nil, err
	}

	resp := &domain.InstallmentPreviewResponse{
		Installments:    []domain.InstallmentPreview{},
		PercentageTotal: commission.PercentageTotal(slots),
	}
	if err := commission.ValidatePercentages(slots); err != nil {
		resp.Warning = err.Error()
		s.warnPercentages(&domain.PaymentSchedule{Installments: slots})
	}

	generated := commission.GenerateInstallments(req.Total, slots, txDate)
	for _, g := range generated {
		resp.Installments = append(resp.Installments, domain.InstallmentPreview{
			InstallmentNumber: g.Number,
			Percentage:        g.Percentage,
			Amount:            commission.RoundCents(g.Amount),
			ScheduledDate:     g.ScheduledDate(),
			Notes:             g.Notes,
			Formatted:         commission.FormatCurrency(g.Amount),
		})
	}
	resp.Total = commission.RoundCents(commission.SumAmounts(generated))
	return resp, nil
}

// warnPercentages logs a schedule whose percentages do not add up to 100.
// The operation proceeds regardless.
func (s *InstallmentService) warnPercentages(schedule *domain.PaymentSchedule) {
	if err := commission.ValidatePercentages(schedule.Installments); err != nil {
		s.metrics.IncrScheduleWarning()
		s.logger.Warn("payment schedule percentages do not sum to 100",
			zap.String("schedule_id", schedule.ID),
			zap.Float64("percentage_total", commission.PercentageTotal(schedule.Installments)),
		)
	}
}

func (s *InstallmentService) scheduleFor(ctx context.Context, scheduleID *string) (*domain.PaymentSchedule, error) {
	if scheduleID != nil && *scheduleID != "" {
		return s.schedules.GetPaymentSchedule(ctx, *scheduleID)
	}
	return s.schedules.GetDefaultPaymentSchedule(ctx)
}

// ============================================================
// Payment schedules
// ============================================================

func (s *InstallmentService) ListSchedules(ctx context.Context) ([]domain.PaymentSchedule, error) {
	ctx, span := installmentTracer.Start(ctx, "InstallmentService.ListSchedules")
	defer span.End()

	schedules, err := s.schedules.ListPaymentSchedules(ctx)
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		schedules[i].Summary = commission.ScheduleSummary(schedules[i].Installments)
	}
	return nonNil(schedules), nil
}

func (s *InstallmentService) GetSchedule(ctx context.Context, scheduleID string) (*domain.PaymentSchedule, error) {
	ctx, span := installmentTracer.Start(ctx, "InstallmentService.GetSchedule")
	defer span.End()

	schedule, err := s.schedules.GetPaymentSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	schedule.Summary = commission.ScheduleSummary(schedule.Installments)
	return schedule, nil
}

// CreateSchedule stores a schedule template. Admin only. Percentages that do
// not sum to 100 are logged, not rejected.
func (s *InstallmentService) CreateSchedule(ctx context.Context, actor *domain.Principal, req *domain.PaymentScheduleRequest) (*domain.PaymentSchedule, error) {
	ctx, span := installmentTracer.Start(ctx, "InstallmentService.CreateSchedule")
	defer span.End()

	if err := requireAdmin(actor, "create payment schedules"); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if err := commission.ValidateSchedule(req.Installments); err != nil {
		return nil, err
	}

	schedule := &domain.PaymentSchedule{
		Name:         req.Name,
		Description:  req.Description,
		Installments: req.Installments,
	}
	s.warnPercentages(schedule)

	created, err := s.schedules.CreatePaymentSchedule(ctx, schedule)
	if err != nil {
		return nil, err
	}
	if req.IsDefault {
		if err := s.schedules.SetDefaultPaymentSchedule(ctx, created.ID); err != nil {
			return nil, err
		}
		created.IsDefault = true
	}
	created.Summary = commission.ScheduleSummary(created.Installments)

	s.logger.Info("payment schedule created", zap.String("schedule_id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// DeleteSchedule removes a schedule template. The default schedule cannot be deleted.
func (s *InstallmentService) DeleteSchedule(ctx context.Context, actor *domain.Principal, scheduleID string) error {
	ctx, span := installmentTracer.Start(ctx, "InstallmentService.DeleteSchedule")
	defer span.End()

	if err := requireAdmin(actor, "delete payment schedules"); err != nil {
		return err
	}
	schedule, err := s.schedules.GetPaymentSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if schedule.IsDefault {
		return &domain.ErrConflict{Message: "the default payment schedule cannot be deleted"}
	}
	return s.schedules.DeletePaymentSchedule(ctx, scheduleID)
}

func (s *InstallmentService) SetDefaultSchedule(ctx context.Context, actor *domain.Principal, scheduleID string) error {
	ctx, span := installmentTracer.Start(ctx, "InstallmentService.SetDefaultSchedule")
	defer span.End()

	if err := requireAdmin(actor, "change the default payment schedule"); err != nil {
		return err
	}
	if _, err := s.schedules.GetPaymentSchedule(ctx, scheduleID); err != nil {
		return err
	}
	return s.schedules.SetDefaultPaymentSchedule(ctx, scheduleID)
}

// ============================================================
// Forecast
// ============================================================

// Forecast buckets the agent's installments into months from the current one.
func (s *InstallmentService) Forecast(ctx context.Context, actor *domain.Principal, agentID string, months int) (*domain.CommissionForecast, error) {
	ctx, span := installmentTracer.Start(ctx, "InstallmentService.Forecast")
	defer span.End()

	if err := requireSelfOrAdmin(actor, agentID, "view another agent's forecast"); err != nil {
		return nil, err
	}
	months = commission.ClampMonths(months, commission.DefaultForecastMonths)

	installments, err := s.installments.ListInstallmentsByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	periods, total := commission.ForecastPeriods(s.now(), months, installments)
	return &domain.CommissionForecast{AgentID: agentID, TotalExpected: total, Periods: periods}, nil
}

// GenerateProjections replaces the agent's stored projections with fresh
// ones derived from recent transactions and the default schedule.
func (s *InstallmentService) GenerateProjections(ctx context.Context, actor *domain.Principal, agentID string, months int) (*domain.ProjectionResponse, error) {
	ctx, span := installmentTracer.Start(ctx, "InstallmentService.GenerateProjections")
	defer span.End()

	if err := requireSelfOrAdmin(actor, agentID, "generate another agent's projections"); err != nil {
		return nil, err
	}
	months = commission.ClampMonths(months, commission.DefaultProjectionMonths)

	history, err := s.txs.ListTransactionsByAgent(ctx, agentID, projectionHistoryLimit)
	if err != nil {
		return nil, err
	}
	resp := &domain.ProjectionResponse{AgentID: agentID, Projections: []domain.ForecastProjection{}}
	if len(history) == 0 {
		resp.Message = "No transaction history to project from"
		return resp, nil
	}

	schedule, err := s.schedules.GetDefaultPaymentSchedule(ctx)
	if err != nil {
		return nil, err
	}

	projections := commission.ProjectForecast(s.now(), months, agentID, history, schedule.Installments)

	if err := s.forecasts.DeleteProjections(ctx, agentID); err != nil {
		return nil, err
	}
	if len(projections) > 0 {
		stored, err := s.forecasts.InsertProjections(ctx, projections)
		if err != nil {
			return nil, err
		}
		resp.Projections = nonNil(stored)
	}

	resp.Count = len(resp.Projections)
	resp.Message = fmt.Sprintf("Generated %d projected installments over %d months", resp.Count, months)
	s.logger.Info("forecast projections generated",
		zap.String("agent_id", agentID),
		zap.Int("count", resp.Count),
		zap.Int("months", months),
	)
	return resp, nil
}
