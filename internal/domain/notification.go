package domain

import (
	"encoding/json"
	"time"
)

// ============================================================
// Notifications
// ============================================================

// Notification types.
const (
	NotificationApprovalStatusChanged = "approval_status_changed"
	NotificationPaymentProcessed      = "payment_processed"
	NotificationInstallmentDue        = "installment_due"
	NotificationTransactionRecorded   = "transaction_recorded"
	NotificationApprovalComment       = "approval_comment"
)

// Notification is a row of notifications.
type Notification struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Read      bool            `json:"read"`
	RelatedID string          `json:"related_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NotificationRequest is the body for POST /v1/notifications.
type NotificationRequest struct {
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	RelatedID string         `json:"related_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// UnreadCount is returned by GET /v1/notifications/unread-count.
type UnreadCount struct {
	Count int `json:"count"`
}
