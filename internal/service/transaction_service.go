// Package service holds the brokerage use cases: listings, transactions,
// commission approvals and installments, agents, roles and invitations.
// Services depend on port interfaces only.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/commission"
	"github.com/boddenberg/agent-hub-bfa-go/internal/config"
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agent-hub-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var transactionTracer = otel.Tracer("service/transaction")

const defaultTransactionListLimit = 50

// TransactionService records deals and runs the commission calculator.
type TransactionService struct {
	store      port.TransactionStore
	agents     *AgentService
	approvals  *ApprovalService
	notifier   *NotificationService
	table      *config.CommissionTable
	defaultPct float64
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewTransactionService creates a transaction service.
func NewTransactionService(
	store port.TransactionStore,
	agents *AgentService,
	approvals *ApprovalService,
	notifier *NotificationService,
	table *config.CommissionTable,
	defaultPct float64,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		store:      store,
		agents:     agents,
		approvals:  approvals,
		notifier:   notifier,
		table:      table,
		defaultPct: defaultPct,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Calculate runs the transaction-form calculator and flags amounts above the
// approval threshold.
func (s *TransactionService) Calculate(ctx context.Context, in domain.CommissionInput) (*domain.CommissionBreakdown, error) {
	ctx, span := transactionTracer.Start(ctx, "TransactionService.Calculate")
	defer span.End()

	if err := validateTransactionType(in.TransactionType); err != nil {
		return nil, err
	}
	b, err := commission.CalculateBreakdown(in, s.table.Tiers, s.defaultPct)
	if err != nil {
		return nil, err
	}
	b.ThresholdExceeded = b.OurAgencyCommission > s.approvals.Threshold(ctx)
	return &b, nil
}

// Split divides a commission between agent and agency.
func (s *TransactionService) Split(req *domain.SplitRequest) (*domain.SplitResponse, error) {
	if req.Total < 0 {
		return nil, &domain.ErrValidation{Field: "total", Message: "must not be negative"}
	}
	split, err := commission.SplitCommission(req.Total, req.AgentPercentage)
	if err != nil {
		return nil, err
	}
	agent := commission.RoundCents(split.AgentShare)
	return &domain.SplitResponse{
		Total:           req.Total,
		AgentPercentage: req.AgentPercentage,
		AgentShare:      agent,
		AgencyShare:     commission.RoundCents(req.Total - agent),
	}, nil
}

// Record stores a transaction with its computed commission, opens its
// approval and notifies the agent.
func (s *TransactionService) Record(ctx context.Context, actor *domain.Principal, req *domain.TransactionRequest) (*domain.TransactionResponse, error) {
	ctx, span := transactionTracer.Start(ctx, "TransactionService.Record")
	defer span.End()

	if actor == nil {
		return nil, &domain.ErrUnauthorized{}
	}
	agentID := req.AgentID
	if agentID == "" {
		agentID = actor.UserID
	}
	if err := requireSelfOrAdmin(actor, agentID, "record transactions for another agent"); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("agent.id", agentID))

	if req.PropertyID == "" {
		return nil, &domain.ErrValidation{Field: "property_id", Message: "required"}
	}
	if err := validateTransactionType(req.TransactionType); err != nil {
		return nil, err
	}

	txDate := s.now().UTC()
	if req.TransactionDate != "" {
		d, err := commission.ParseDate(req.TransactionDate)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "transaction_date", Message: "expected YYYY-MM-DD"}
		}
		txDate = d
	}

	tierName := ""
	profile, err := s.agents.GetProfile(ctx, agentID)
	switch {
	case err == nil:
		tierName = profile.TierName
	case !isNotFound(err):
		return nil, err
	}

	breakdown, err := commission.CalculateBreakdown(domain.CommissionInput{
		TransactionType:  req.TransactionType,
		TransactionValue: req.TransactionValue,
		CommissionRate:   req.CommissionRate,
		CommissionAmount: req.CommissionAmount,
		AgentTier:        tierName,
		CoBroking:        req.CoBroking,
		CoBrokingSplit:   req.CoBrokingSplit,
	}, s.table.Tiers, s.defaultPct)
	if err != nil {
		return nil, err
	}

	tx := &domain.PropertyTransaction{
		PropertyID:       req.PropertyID,
		AgentID:          agentID,
		TransactionType:  req.TransactionType,
		TransactionDate:  txDate.Format(commission.DateLayout),
		TransactionValue: req.TransactionValue,
		CommissionRate:   req.CommissionRate,
		CommissionAmount: breakdown.OurAgencyCommission,
		AgentPercentage:  breakdown.AgentPercentage,
		AgentShare:       breakdown.AgentShare,
		AgencyShare:      breakdown.AgencyShare,
		CoBroking:        req.CoBroking,
		CoAgencyName:     req.CoAgencyName,
		CoBrokingSplit:   breakdown.CoBrokingSplit,
		BuyerName:        req.BuyerName,
		SellerName:       req.SellerName,
		Status:           domain.TransactionStatusPending,
		Notes:            req.Notes,
	}
	if req.PaymentScheduleID != "" {
		id := req.PaymentScheduleID
		tx.PaymentScheduleID = &id
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		s.logger.Error("failed to record transaction", zap.String("agent_id", agentID), zap.Error(err))
		return nil, err
	}

	resp := &domain.TransactionResponse{Transaction: created, Breakdown: breakdown}

	approval, err := s.approvals.Open(ctx, created)
	if err != nil {
		s.logger.Error("failed to open commission approval",
			zap.String("transaction_id", created.ID),
			zap.Error(err),
		)
	} else {
		resp.Approval = approval
		resp.Breakdown.ThresholdExceeded = approval.ThresholdExceeded
	}

	s.notifier.Notify(ctx, &domain.NotificationRequest{
		UserID:    agentID,
		Type:      domain.NotificationTransactionRecorded,
		Title:     "Transaction Recorded",
		Message:   "Your transaction was recorded with a commission of " + commission.FormatCurrency(created.CommissionAmount) + ".",
		RelatedID: created.ID,
	})

	s.logger.Info("transaction recorded",
		zap.String("transaction_id", created.ID),
		zap.String("agent_id", agentID),
		zap.Float64("amount", created.CommissionAmount),
	)
	return resp, nil
}

func (s *TransactionService) Get(ctx context.Context, actor *domain.Principal, transactionID string) (*domain.PropertyTransaction, error) {
	ctx, span := transactionTracer.Start(ctx, "TransactionService.Get")
	defer span.End()

	tx, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := requireSelfOrAdmin(actor, tx.AgentID, "view this transaction"); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *TransactionService) ListByAgent(ctx context.Context, actor *domain.Principal, agentID string) ([]domain.PropertyTransaction, error) {
	ctx, span := transactionTracer.Start(ctx, "TransactionService.ListByAgent")
	defer span.End()

	if err := requireSelfOrAdmin(actor, agentID, "view another agent's transactions"); err != nil {
		return nil, err
	}
	items, err := s.store.ListTransactionsByAgent(ctx, agentID, defaultTransactionListLimit)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

func validateTransactionType(t string) error {
	switch t {
	case domain.TransactionTypeSale, domain.TransactionTypeRent, domain.TransactionTypePrimary:
		return nil
	}
	return &domain.ErrValidation{Field: "transaction_type", Message: "must be Sale, Rent or Primary"}
}

func isNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}
