package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Commission approvals, history & comments (implements port.ApprovalStore)
// ============================================================

const approvalSelect = "select=*,transaction:property_transactions(*)"

func (c *Client) CreateApproval(ctx context.Context, a *domain.CommissionApproval) (*domain.CommissionApproval, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateApproval")
	defer span.End()

	row := map[string]any{
		"transaction_id":     a.TransactionID,
		"status":             a.Status,
		"submitted_by":       a.SubmittedBy,
		"commission_amount":  a.CommissionAmount,
		"threshold_exceeded": a.ThresholdExceeded,
		"notes":              a.Notes,
	}

	var body []byte
	err := c.mutate(ctx, "commission_approvals", func() (err error) {
		body, err = c.doPost(ctx, "commission_approvals", row)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &domain.ErrConflict{Message: "an approval already exists for this transaction"}
		}
		return nil, err
	}
	created, err := decodeFirst[domain.CommissionApproval](body, "commission_approval")
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("no result from commission_approvals insert")
	}
	return created, nil
}

func (c *Client) GetApproval(ctx context.Context, approvalID string) (*domain.CommissionApproval, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetApproval")
	defer span.End()
	span.SetAttributes(attribute.String("approval.id", approvalID))

	body, err := c.query(ctx, "commission_approvals", fmt.Sprintf("commission_approvals?id=%s&%s&limit=1", eq(approvalID), approvalSelect))
	if err != nil {
		return nil, err
	}
	a, err := decodeFirst[domain.CommissionApproval](body, "commission_approval")
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &domain.ErrNotFound{Resource: "approval", ID: approvalID}
	}
	return a, nil
}

func (c *Client) GetApprovalByTransaction(ctx context.Context, transactionID string) (*domain.CommissionApproval, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetApprovalByTransaction")
	defer span.End()

	body, err := c.query(ctx, "commission_approvals", fmt.Sprintf("commission_approvals?transaction_id=%s&%s&limit=1", eq(transactionID), approvalSelect))
	if err != nil {
		return nil, err
	}
	a, err := decodeFirst[domain.CommissionApproval](body, "commission_approval")
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &domain.ErrNotFound{Resource: "approval for transaction", ID: transactionID}
	}
	return a, nil
}

func (c *Client) ListApprovals(ctx context.Context, status domain.ApprovalStatus, page, pageSize int) ([]domain.CommissionApproval, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListApprovals")
	defer span.End()

	path := "commission_approvals?" + approvalSelect
	if status != "" {
		path += "&status=" + eq(string(status))
	}
	path += "&order=created_at.desc&" + pageOffset(page, pageSize)

	body, err := c.query(ctx, "commission_approvals", path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.CommissionApproval](body, "commission_approvals")
}

func (c *Client) CountApprovals(ctx context.Context, status domain.ApprovalStatus) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountApprovals")
	defer span.End()

	path := "commission_approvals?select=id"
	if status != "" {
		path += "&status=" + eq(string(status))
	}

	var n int
	err := c.guard(ctx, "commission_approvals", func() (err error) {
		n, err = c.doCount(ctx, path)
		return markPermanent(err)
	})
	return n, err
}

func (c *Client) UpdateApprovalStatus(ctx context.Context, approvalID string, status domain.ApprovalStatus, reviewerID, notes string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateApprovalStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("approval.id", approvalID),
		attribute.String("approval.status", string(status)),
	)

	now := time.Now().UTC().Format(time.RFC3339)
	updates := map[string]any{
		"status":      status,
		"reviewer_id": reviewerID,
		"reviewed_at": now,
		"updated_at":  now,
	}
	if notes != "" {
		updates["notes"] = notes
	}

	return c.mutate(ctx, "commission_approvals", func() error {
		_, err := c.doPatch(ctx, "commission_approvals?id="+eq(approvalID), updates)
		return err
	})
}

// --- History ---

func (c *Client) InsertApprovalHistory(ctx context.Context, h *domain.ApprovalHistory) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertApprovalHistory")
	defer span.End()

	row := map[string]any{
		"approval_id":     h.ApprovalID,
		"previous_status": h.PreviousStatus,
		"new_status":      h.NewStatus,
		"changed_by":      h.ChangedBy,
		"notes":           h.Notes,
	}
	return c.mutate(ctx, "approval_history", func() error {
		_, err := c.doPost(ctx, "approval_history", row)
		return err
	})
}

func (c *Client) ListApprovalHistory(ctx context.Context, approvalID string) ([]domain.ApprovalHistory, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListApprovalHistory")
	defer span.End()

	body, err := c.query(ctx, "approval_history", fmt.Sprintf("approval_history?approval_id=%s&order=created_at.asc", eq(approvalID)))
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.ApprovalHistory](body, "approval_history")
}

// --- Comments ---

func (c *Client) CreateApprovalComment(ctx context.Context, cm *domain.ApprovalComment) (*domain.ApprovalComment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateApprovalComment")
	defer span.End()

	row := map[string]any{
		"approval_id":  cm.ApprovalID,
		"created_by":   cm.CreatedBy,
		"comment_text": cm.CommentText,
	}

	var body []byte
	err := c.mutate(ctx, "approval_comments", func() (err error) {
		body, err = c.doPost(ctx, "approval_comments", row)
		return err
	})
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.ApprovalComment](body, "approval_comment")
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("no result from approval_comments insert")
	}
	return created, nil
}

func (c *Client) ListApprovalComments(ctx context.Context, approvalID string) ([]domain.ApprovalComment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListApprovalComments")
	defer span.End()

	body, err := c.query(ctx, "approval_comments", fmt.Sprintf("approval_comments?approval_id=%s&order=created_at.asc", eq(approvalID)))
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.ApprovalComment](body, "approval_comments")
}

func (c *Client) GetApprovalComment(ctx context.Context, commentID string) (*domain.ApprovalComment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetApprovalComment")
	defer span.End()

	body, err := c.query(ctx, "approval_comments", fmt.Sprintf("approval_comments?id=%s&limit=1", eq(commentID)))
	if err != nil {
		return nil, err
	}
	cm, err := decodeFirst[domain.ApprovalComment](body, "approval_comment")
	if err != nil {
		return nil, err
	}
	if cm == nil {
		return nil, &domain.ErrNotFound{Resource: "comment", ID: commentID}
	}
	return cm, nil
}

func (c *Client) DeleteApprovalComment(ctx context.Context, commentID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteApprovalComment")
	defer span.End()

	return c.mutate(ctx, "approval_comments", func() error {
		return c.doDelete(ctx, "approval_comments?id="+eq(commentID))
	})
}
