package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/boddenberg/agent-hub-bfa-go/internal/commission"
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agent-hub-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var approvalTracer = otel.Tracer("service/approval")

// ThresholdConfigKey is the system_configuration key of the approval threshold.
const ThresholdConfigKey = "commission_approval_threshold"

const thresholdCacheKey = "config:" + ThresholdConfigKey

// ApprovalOptions selects the related rows loaded with an approval.
type ApprovalOptions struct {
	History  bool
	Comments bool
}

// ApprovalService runs the commission approval workflow.
type ApprovalService struct {
	store            port.ApprovalStore
	config           port.ConfigStore
	cache            port.Cache[float64]
	notifier         *NotificationService
	defaultThreshold float64
	metrics          *observability.Metrics
	logger           *zap.Logger
}

// NewApprovalService creates an approval service.
func NewApprovalService(
	store port.ApprovalStore,
	config port.ConfigStore,
	cache port.Cache[float64],
	notifier *NotificationService,
	defaultThreshold float64,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ApprovalService {
	return &ApprovalService{
		store:            store,
		config:           config,
		cache:            cache,
		notifier:         notifier,
		defaultThreshold: defaultThreshold,
		metrics:          metrics,
		logger:           logger,
	}
}

// ============================================================
// Threshold
// ============================================================

// Threshold returns the configured approval threshold, falling back to the
// default when the key is missing, malformed or unreachable.
func (s *ApprovalService) Threshold(ctx context.Context) float64 {
	ctx, span := approvalTracer.Start(ctx, "ApprovalService.Threshold")
	defer span.End()

	if v, ok := s.cache.Get(thresholdCacheKey); ok {
		s.metrics.IncrCacheHit("threshold")
		return v
	}
	s.metrics.IncrCacheMiss("threshold")

	raw, err := s.config.GetSystemConfig(ctx, ThresholdConfigKey)
	if err != nil {
		var nf *domain.ErrNotFound
		if !errors.As(err, &nf) {
			s.logger.Warn("failed to read approval threshold, using default", zap.Error(err))
			return s.defaultThreshold
		}
		s.cache.Set(thresholdCacheKey, s.defaultThreshold)
		return s.defaultThreshold
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v <= 0 {
		s.logger.Warn("invalid approval threshold in configuration, using default", zap.String("value", raw))
		v = s.defaultThreshold
	}
	s.cache.Set(thresholdCacheKey, v)
	return v
}

// UpdateThreshold stores a new threshold. Admin only.
func (s *ApprovalService) UpdateThreshold(ctx context.Context, actor *domain.Principal, threshold float64) (*domain.ApprovalThreshold, error) {
	ctx, span := approvalTracer.Start(ctx, "ApprovalService.UpdateThreshold")
	defer span.End()

	if err := requireAdmin(actor, "update the approval threshold"); err != nil {
		return nil, err
	}
	if threshold <= 0 {
		return nil, &domain.ErrValidation{Field: "threshold", Message: "must be greater than zero"}
	}

	if err := s.config.SetSystemConfig(ctx, ThresholdConfigKey, strconv.FormatFloat(threshold, 'f', -1, 64)); err != nil {
		return nil, err
	}
	s.cache.Set(thresholdCacheKey, threshold)

	s.logger.Info("approval threshold updated", zap.Float64("threshold", threshold), zap.String("by", actor.UserID))
	return &domain.ApprovalThreshold{Threshold: threshold}, nil
}

// ============================================================
// Workflow
// ============================================================

// Open creates the Pending approval of a freshly recorded transaction.
func (s *ApprovalService) Open(ctx context.Context, tx *domain.PropertyTransaction) (*domain.CommissionApproval, error) {
	ctx, span := approvalTracer.Start(ctx, "ApprovalService.Open")
	defer span.End()

	threshold := s.Threshold(ctx)
	return s.store.CreateApproval(ctx, &domain.CommissionApproval{
		TransactionID:     tx.ID,
		Status:            domain.ApprovalPending,
		SubmittedBy:       tx.AgentID,
		CommissionAmount:  tx.CommissionAmount,
		ThresholdExceeded: tx.CommissionAmount > threshold,
	})
}

// UpdateStatus moves an approval along the workflow. Admin only. The history
// row and the agent notification are best-effort.
func (s *ApprovalService) UpdateStatus(ctx context.Context, actor *domain.Principal, approvalID string, req *domain.ApprovalStatusRequest) (*domain.CommissionApproval, error) {
	ctx, span := approvalTracer.Start(ctx, "ApprovalService.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("approval.id", approvalID), attribute.String("approval.status", string(req.Status)))

	if err := requireAdmin(actor, "change approval status"); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", req.Status)}
	}

	current, err := s.store.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(req.Status) {
		return nil, &domain.ErrInvalidTransition{From: string(current.Status), To: string(req.Status)}
	}

	if err := s.store.UpdateApprovalStatus(ctx, approvalID, req.Status, actor.UserID, req.Notes); err != nil {
		s.logger.Error("failed to update approval status", zap.String("approval_id", approvalID), zap.Error(err))
		return nil, err
	}
	s.metrics.IncrApprovalTransition(string(req.Status))

	if err := s.store.InsertApprovalHistory(ctx, &domain.ApprovalHistory{
		ApprovalID:     approvalID,
		PreviousStatus: string(current.Status),
		NewStatus:      string(req.Status),
		ChangedBy:      actor.UserID,
		Notes:          req.Notes,
	}); err != nil {
		s.logger.Warn("failed to record approval history", zap.String("approval_id", approvalID), zap.Error(err))
	}

	s.notifier.Notify(ctx, &domain.NotificationRequest{
		UserID:    current.SubmittedBy,
		Type:      domain.NotificationApprovalStatusChanged,
		Title:     "Commission Approval Update",
		Message:   statusMessage(current, req.Status),
		RelatedID: approvalID,
		Data: map[string]any{
			"approval_id":     approvalID,
			"transaction_id":  current.TransactionID,
			"previous_status": current.Status,
			"new_status":      req.Status,
		},
	})

	s.logger.Info("approval status changed",
		zap.String("approval_id", approvalID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(req.Status)),
		zap.String("by", actor.UserID),
	)

	updated, err := s.store.GetApproval(ctx, approvalID)
	if err != nil {
		current.Status = req.Status
		current.ReviewerID = actor.UserID
		current.Notes = req.Notes
		return current, nil
	}
	return updated, nil
}

func statusMessage(a *domain.CommissionApproval, status domain.ApprovalStatus) string {
	amount := commission.FormatCurrency(a.CommissionAmount)
	switch status {
	case domain.ApprovalApproved:
		return fmt.Sprintf("Your commission of %s has been approved.", amount)
	case domain.ApprovalRejected:
		return fmt.Sprintf("Your commission of %s has been rejected.", amount)
	case domain.ApprovalReadyForPayment:
		return fmt.Sprintf("Your commission of %s is ready for payment.", amount)
	case domain.ApprovalPaid:
		return fmt.Sprintf("Your commission of %s has been paid.", amount)
	}
	return fmt.Sprintf("Your commission approval is now %s.", status)
}

// Get loads an approval, fetching history and comments concurrently when asked.
func (s *ApprovalService) Get(ctx context.Context, actor *domain.Principal, approvalID string, opts ApprovalOptions) (*domain.CommissionApproval, error) {
	ctx, span := approvalTracer.Start(ctx, "ApprovalService.Get")
	defer span.End()

	var (
		approval *domain.CommissionApproval
		history  []domain.ApprovalHistory
		comments []domain.ApprovalComment
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.store.GetApproval(gCtx, approvalID)
		approval = a
		return err
	})
	if opts.History {
		g.Go(func() error {
			h, err := s.store.ListApprovalHistory(gCtx, approvalID)
			history = h
			return err
		})
	}
	if opts.Comments {
		g.Go(func() error {
			c, err := s.store.ListApprovalComments(gCtx, approvalID)
			comments = c
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := requireSelfOrAdmin(actor, approval.SubmittedBy, "view this approval"); err != nil {
		return nil, err
	}
	if opts.History {
		approval.History = nonNil(history)
	}
	if opts.Comments {
		approval.Comments = nonNil(comments)
	}
	return approval, nil
}

func (s *ApprovalService) GetByTransaction(ctx context.Context, actor *domain.Principal, transactionID string) (*domain.CommissionApproval, error) {
	ctx, span := approvalTracer.Start(ctx, "ApprovalService.GetByTransaction")
	defer span.End()

	a, err := s.store.GetApprovalByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := requireSelfOrAdmin(actor, a.SubmittedBy, "view this approval"); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns approvals, optionally filtered by status. Admin only.
func (s *ApprovalService) List(ctx context.Context, actor *domain.Principal, status domain.ApprovalStatus, page, pageSize int) ([]domain.CommissionApproval, error) {
	ctx, span := approvalTracer.Start(ctx, "ApprovalService.List")
	defer span.End()

	if err := requireAdmin(actor, "list approvals"); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	items, err := s.store.ListApprovals(ctx, status, page, pageSize)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

// StatusCounts counts approvals per status, one concurrent count per status.
func (s *ApprovalService) StatusCounts(ctx context.Context, actor *domain.Principal) (*domain.ApprovalStatusCounts, error) {
	ctx, span := approvalTracer.Start(ctx, "ApprovalService.StatusCounts")
	defer span.End()

	if err := requireAdmin(actor, "view approval counts"); err != nil {
		return nil, err
	}

	counts := make([]int, len(domain.ApprovalStatuses))
	g, gCtx := errgroup.WithContext(ctx)
	for i, st := range domain.ApprovalStatuses {
		i, st := i, st
		g.Go(func() error {
			n, err := s.store.CountApprovals(gCtx, st)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.ApprovalStatusCounts{
		Pending:         counts[0],
		UnderReview:     counts[1],
		Approved:        counts[2],
		ReadyForPayment: counts[3],
		Paid:            counts[4],
		Rejected:        counts[5],
	}, nil
}

// ============================================================
// Comments
// ============================================================

func (s *ApprovalService) AddComment(ctx context.Context, actor *domain.Principal, approvalID, text string) (*domain.ApprovalComment, error) {
	ctx, span := approvalTracer.Start(ctx, "ApprovalService.AddComment")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &domain.ErrValidation{Field: "comment_text", Message: "required"}
	}

	approval, err := s.store.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if err := requireSelfOrAdmin(actor, approval.SubmittedBy, "comment on this approval"); err != nil {
		return nil, err
	}

	comment, err := s.store.CreateApprovalComment(ctx, &domain.ApprovalComment{
		ApprovalID:  approvalID,
		CreatedBy:   actor.UserID,
		CommentText: text,
	})
	if err != nil {
		return nil, err
	}

	if approval.SubmittedBy != actor.UserID {
		s.notifier.Notify(ctx, &domain.NotificationRequest{
			UserID:    approval.SubmittedBy,
			Type:      domain.NotificationApprovalComment,
			Title:     "New Comment on Commission Approval",
			Message:   text,
			RelatedID: approvalID,
		})
	}
	return comment, nil
}

func (s *ApprovalService) ListComments(ctx context.Context, actor *domain.Principal, approvalID string) ([]domain.ApprovalComment, error) {
	ctx, span := approvalTracer.Start(ctx, "ApprovalService.ListComments")
	defer span.End()

	approval, err := s.store.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if err := requireSelfOrAdmin(actor, approval.SubmittedBy, "view comments on this approval"); err != nil {
		return nil, err
	}
	items, err := s.store.ListApprovalComments(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

// DeleteComment removes a comment. Only its author or an admin may do so.
func (s *ApprovalService) DeleteComment(ctx context.Context, actor *domain.Principal, commentID string) error {
	ctx, span := approvalTracer.Start(ctx, "ApprovalService.DeleteComment")
	defer span.End()

	comment, err := s.store.GetApprovalComment(ctx, commentID)
	if err != nil {
		return err
	}
	if err := requireSelfOrAdmin(actor, comment.CreatedBy, "delete another user's comment"); err != nil {
		return err
	}
	return s.store.DeleteApprovalComment(ctx, commentID)
}
