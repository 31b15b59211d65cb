package port

import (
	"context"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// TransactionStore handles property transactions.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *domain.PropertyTransaction) (*domain.PropertyTransaction, error)
	GetTransaction(ctx context.Context, transactionID string) (*domain.PropertyTransaction, error)
	ListTransactionsByAgent(ctx context.Context, agentID string, limit int) ([]domain.PropertyTransaction, error)
	MarkInstallmentsGenerated(ctx context.Context, transactionID string) error
}

// ApprovalStore handles commission approvals with their history and comments.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, a *domain.CommissionApproval) (*domain.CommissionApproval, error)
	GetApproval(ctx context.Context, approvalID string) (*domain.CommissionApproval, error)
	GetApprovalByTransaction(ctx context.Context, transactionID string) (*domain.CommissionApproval, error)
	ListApprovals(ctx context.Context, status domain.ApprovalStatus, page, pageSize int) ([]domain.CommissionApproval, error)
	CountApprovals(ctx context.Context, status domain.ApprovalStatus) (int, error)
	UpdateApprovalStatus(ctx context.Context, approvalID string, status domain.ApprovalStatus, reviewerID, notes string) error

	InsertApprovalHistory(ctx context.Context, h *domain.ApprovalHistory) error
	ListApprovalHistory(ctx context.Context, approvalID string) ([]domain.ApprovalHistory, error)

	CreateApprovalComment(ctx context.Context, c *domain.ApprovalComment) (*domain.ApprovalComment, error)
	ListApprovalComments(ctx context.Context, approvalID string) ([]domain.ApprovalComment, error)
	GetApprovalComment(ctx context.Context, commentID string) (*domain.ApprovalComment, error)
	DeleteApprovalComment(ctx context.Context, commentID string) error
}

// ScheduleStore handles payment schedule templates.
type ScheduleStore interface {
	ListPaymentSchedules(ctx context.Context) ([]domain.PaymentSchedule, error)
	GetPaymentSchedule(ctx context.Context, scheduleID string) (*domain.PaymentSchedule, error)
	GetDefaultPaymentSchedule(ctx context.Context) (*domain.PaymentSchedule, error)
	CreatePaymentSchedule(ctx context.Context, s *domain.PaymentSchedule) (*domain.PaymentSchedule, error)
	DeletePaymentSchedule(ctx context.Context, scheduleID string) error
	SetDefaultPaymentSchedule(ctx context.Context, scheduleID string) error
}

// InstallmentStore handles generated commission installments.
type InstallmentStore interface {
	InsertInstallments(ctx context.Context, rows []domain.CommissionInstallment) ([]domain.CommissionInstallment, error)
	GetInstallment(ctx context.Context, installmentID string) (*domain.CommissionInstallment, error)
	UpdateInstallment(ctx context.Context, installmentID string, updates map[string]any) (*domain.CommissionInstallment, error)
	ListInstallmentsByTransaction(ctx context.Context, transactionID string) ([]domain.CommissionInstallment, error)
	ListInstallmentsByAgent(ctx context.Context, agentID string) ([]domain.CommissionInstallment, error)
	ListInstallmentsDue(ctx context.Context, from, to time.Time, status string) ([]domain.CommissionInstallment, error)
}

// ForecastStore persists forecast projections.
type ForecastStore interface {
	DeleteProjections(ctx context.Context, agentID string) error
	InsertProjections(ctx context.Context, rows []domain.ForecastProjection) ([]domain.ForecastProjection, error)
}

// ConfigStore reads and writes the system_configuration table.
type ConfigStore interface {
	GetSystemConfig(ctx context.Context, key string) (string, error)
	SetSystemConfig(ctx context.Context, key, value string) error
}
