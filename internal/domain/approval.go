package domain

import "time"

// ============================================================
// Commission Approvals
// ============================================================

// ApprovalStatus is the workflow state of a commission approval.
type ApprovalStatus string

const (
	ApprovalPending         ApprovalStatus = "Pending"
	ApprovalUnderReview     ApprovalStatus = "Under Review"
	ApprovalApproved        ApprovalStatus = "Approved"
	ApprovalReadyForPayment ApprovalStatus = "Ready for Payment"
	ApprovalPaid            ApprovalStatus = "Paid"
	ApprovalRejected        ApprovalStatus = "Rejected"
)

// ApprovalStatuses lists every status in workflow order.
var ApprovalStatuses = []ApprovalStatus{
	ApprovalPending,
	ApprovalUnderReview,
	ApprovalApproved,
	ApprovalReadyForPayment,
	ApprovalPaid,
	ApprovalRejected,
}

var approvalTransitions = map[ApprovalStatus][]ApprovalStatus{
	ApprovalPending:         {ApprovalUnderReview, ApprovalApproved, ApprovalRejected},
	ApprovalUnderReview:     {ApprovalApproved, ApprovalRejected, ApprovalPending},
	ApprovalApproved:        {ApprovalReadyForPayment, ApprovalRejected},
	ApprovalReadyForPayment: {ApprovalPaid},
}

// Valid reports whether s is a known status.
func (s ApprovalStatus) Valid() bool {
	for _, st := range ApprovalStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalPaid || s == ApprovalRejected
}

// CanTransitionTo reports whether the workflow allows moving from s to next.
func (s ApprovalStatus) CanTransitionTo(next ApprovalStatus) bool {
	for _, allowed := range approvalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CommissionApproval is a row of commission_approvals.
type CommissionApproval struct {
	ID                string               `json:"id"`
	TransactionID     string               `json:"transaction_id"`
	Status            ApprovalStatus       `json:"status"`
	SubmittedBy       string               `json:"submitted_by"`
	ReviewerID        string               `json:"reviewer_id,omitempty"`
	Notes             string               `json:"notes,omitempty"`
	CommissionAmount  float64              `json:"commission_amount"`
	ThresholdExceeded bool                 `json:"threshold_exceeded"`
	ReviewedAt        *time.Time           `json:"reviewed_at,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
	Transaction       *PropertyTransaction `json:"transaction,omitempty"`
	History           []ApprovalHistory    `json:"history,omitempty"`
	Comments          []ApprovalComment    `json:"comments,omitempty"`
}

// ApprovalHistory is a row of approval_history.
type ApprovalHistory struct {
	ID             string    `json:"id,omitempty"`
	ApprovalID     string    `json:"approval_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ChangedBy      string    `json:"changed_by"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ApprovalComment is a row of approval_comments.
type ApprovalComment struct {
	ID          string    `json:"id"`
	ApprovalID  string    `json:"approval_id"`
	CreatedBy   string    `json:"created_by"`
	CommentText string    `json:"comment_text"`
	CreatedAt   time.Time `json:"created_at"`
}

// ApprovalStatusRequest is the body for POST /v1/approvals/{id}/status.
type ApprovalStatusRequest struct {
	Status ApprovalStatus `json:"status"`
	Notes  string         `json:"notes,omitempty"`
}

// ApprovalCommentRequest is the body for POST /v1/approvals/{id}/comments.
type ApprovalCommentRequest struct {
	CommentText string `json:"comment_text"`
}

// ApprovalStatusCounts is returned by GET /v1/approvals/counts.
type ApprovalStatusCounts struct {
	Pending         int `json:"pending"`
	UnderReview     int `json:"under_review"`
	Approved        int `json:"approved"`
	ReadyForPayment int `json:"ready_for_payment"`
	Paid            int `json:"paid"`
	Rejected        int `json:"rejected"`
}

// ApprovalThreshold is the commission amount above which an approval is
// flagged for senior review.
type ApprovalThreshold struct {
	Threshold float64 `json:"threshold"`
}
