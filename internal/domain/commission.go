package domain

import "time"

// ============================================================
// Property Transactions
// ============================================================

// Transaction statuses.
const (
	TransactionStatusPending   = "Pending"
	TransactionStatusCompleted = "Completed"
	TransactionStatusCancelled = "Cancelled"
)

// PropertyTransaction is a row of property_transactions.
type PropertyTransaction struct {
	ID                    string    `json:"id"`
	PropertyID            string    `json:"property_id"`
	AgentID               string    `json:"agent_id"`
	TransactionType       string    `json:"transaction_type"` // Sale, Rent, Primary
	TransactionDate       string    `json:"transaction_date"` // YYYY-MM-DD
	TransactionValue      float64   `json:"transaction_value"`
	CommissionRate        float64   `json:"commission_rate"`
	CommissionAmount      float64   `json:"commission_amount"`
	AgentPercentage       float64   `json:"agent_percentage"`
	AgentShare            float64   `json:"agent_share"`
	AgencyShare           float64   `json:"agency_share"`
	CoBroking             bool      `json:"co_broking"`
	CoAgencyName          string    `json:"co_agency_name,omitempty"`
	CoBrokingSplit        float64   `json:"co_broking_split,omitempty"`
	BuyerName             string    `json:"buyer_name,omitempty"`
	SellerName            string    `json:"seller_name,omitempty"`
	PaymentScheduleID     *string   `json:"payment_schedule_id"`
	InstallmentsGenerated bool      `json:"installments_generated"`
	Status                string    `json:"status"`
	Notes                 string    `json:"notes,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// TransactionRequest is the body for POST /v1/transactions.
type TransactionRequest struct {
	PropertyID        string  `json:"property_id"`
	AgentID           string  `json:"agent_id,omitempty"` // defaults to the caller
	TransactionType   string  `json:"transaction_type"`
	TransactionDate   string  `json:"transaction_date"` // YYYY-MM-DD, empty = today
	TransactionValue  float64 `json:"transaction_value"`
	CommissionRate    float64 `json:"commission_rate"`
	CommissionAmount  float64 `json:"commission_amount,omitempty"` // owner-agreed amount for rentals
	CoBroking         bool    `json:"co_broking"`
	CoAgencyName      string  `json:"co_agency_name,omitempty"`
	CoBrokingSplit    float64 `json:"co_broking_split,omitempty"`
	BuyerName         string  `json:"buyer_name,omitempty"`
	SellerName        string  `json:"seller_name,omitempty"`
	PaymentScheduleID string  `json:"payment_schedule_id,omitempty"`
	Notes             string  `json:"notes,omitempty"`
}

// TransactionResponse is returned by POST /v1/transactions.
type TransactionResponse struct {
	Transaction *PropertyTransaction `json:"transaction"`
	Approval    *CommissionApproval  `json:"approval,omitempty"`
	Breakdown   CommissionBreakdown  `json:"breakdown"`
}

// ============================================================
// Commission calculator
// ============================================================

// CommissionInput feeds the transaction-form calculator.
type CommissionInput struct {
	TransactionType  string  `json:"transaction_type"`
	TransactionValue float64 `json:"transaction_value"`
	CommissionRate   float64 `json:"commission_rate"`
	CommissionAmount float64 `json:"commission_amount,omitempty"` // rentals only
	AgentTier        string  `json:"agent_tier,omitempty"`        // tier name; empty = default percentage
	CoBroking        bool    `json:"co_broking"`
	CoBrokingSplit   float64 `json:"co_broking_split,omitempty"` // our side, default 50
}

// CommissionBreakdown is the result of the calculator.
type CommissionBreakdown struct {
	TotalCommission      float64 `json:"total_commission"`
	CoAgencyCommission   float64 `json:"co_agency_commission"`
	OurAgencyCommission  float64 `json:"our_agency_commission"`
	AgentPercentage      float64 `json:"agent_percentage"`
	AgencyPercentage     float64 `json:"agency_percentage"`
	AgentShare           float64 `json:"agent_share"`
	AgencyShare          float64 `json:"agency_share"`
	CoBrokingSplit       float64 `json:"co_broking_split,omitempty"`
	CommissionRate       float64 `json:"commission_rate"`
	TransactionValue     float64 `json:"transaction_value"`
	TierName             string  `json:"tier_name,omitempty"`
	ThresholdExceeded    bool    `json:"threshold_exceeded"`
	FormattedTotal       string  `json:"formatted_total"`
	FormattedAgentShare  string  `json:"formatted_agent_share"`
	FormattedAgencyShare string  `json:"formatted_agency_share"`
}

// SplitRequest is the body for POST /v1/commission/split.
type SplitRequest struct {
	Total           float64 `json:"total"`
	AgentPercentage float64 `json:"agent_percentage"`
}

// SplitResponse is the agent/agency split of a commission total.
type SplitResponse struct {
	Total           float64 `json:"total"`
	AgentPercentage float64 `json:"agent_percentage"`
	AgentShare      float64 `json:"agent_share"`
	AgencyShare     float64 `json:"agency_share"`
}

// CommissionTier maps a tier to the agent's share of commission.
type CommissionTier struct {
	Name            string  `json:"name" yaml:"name"`
	Rank            string  `json:"rank" yaml:"rank"`
	AgentPercentage float64 `json:"agent_percentage" yaml:"agent_percentage"`
	MinTransactions int     `json:"min_transactions" yaml:"min_transactions"`
	MinSalesVolume  float64 `json:"min_sales_volume" yaml:"min_sales_volume"`
	Color           string  `json:"color,omitempty" yaml:"color"`
}

// AgentRank describes a rank in the upline structure.
type AgentRank struct {
	Name               string  `json:"name" yaml:"name"`
	Level              int     `json:"level" yaml:"level"`
	OverridePercentage float64 `json:"override_percentage" yaml:"override_percentage"`
	MinSalesValue      float64 `json:"min_sales_value" yaml:"min_sales_value"`
}

// OverrideCommission is what one upline earns from a downline's commission.
type OverrideCommission struct {
	AgentID    string  `json:"agent_id"`
	AgentName  string  `json:"agent_name"`
	Rank       string  `json:"rank"`
	Level      int     `json:"level"`      // distance from the selling agent, 1 = direct upline
	Percentage float64 `json:"percentage"` // override percentage of the base commission
	Amount     float64 `json:"amount"`
}

// OverrideResponse is returned by GET /v1/agents/{agentId}/overrides.
type OverrideResponse struct {
	AgentID        string               `json:"agent_id"`
	BaseCommission float64              `json:"base_commission"`
	Overrides      []OverrideCommission `json:"overrides"`
	TotalOverride  float64              `json:"total_override"`
}

// ============================================================
// Payment schedules and installments
// ============================================================

// Installment statuses.
const (
	InstallmentStatusPending    = "Pending"
	InstallmentStatusProcessing = "Processing"
	InstallmentStatusPaid       = "Paid"
	InstallmentStatusCancelled  = "Cancelled"
	InstallmentStatusProjected  = "Projected"
)

// PaymentSchedule is a row of commission_payment_schedules with its
// schedule_installments embedded.
type PaymentSchedule struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description,omitempty"`
	IsDefault    bool                  `json:"is_default"`
	Installments []ScheduleInstallment `json:"installments"`
	Summary      string                `json:"summary,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

// ScheduleInstallment is one slot of a payment schedule.
type ScheduleInstallment struct {
	ID                   string  `json:"id,omitempty"`
	ScheduleID           string  `json:"schedule_id,omitempty"`
	InstallmentNumber    int     `json:"installment_number"`
	Percentage           float64 `json:"percentage"`
	DaysAfterTransaction int     `json:"days_after_transaction"`
	Description          string  `json:"description,omitempty"`
}

// PaymentScheduleRequest is the body for POST /v1/payment-schedules.
type PaymentScheduleRequest struct {
	Name         string                `json:"name"`
	Description  string                `json:"description,omitempty"`
	IsDefault    bool                  `json:"is_default"`
	Installments []ScheduleInstallment `json:"installments"`
}

// CommissionInstallment is a row of commission_installments.
type CommissionInstallment struct {
	ID                string     `json:"id,omitempty"`
	TransactionID     string     `json:"transaction_id"`
	AgentID           string     `json:"agent_id"`
	InstallmentNumber int        `json:"installment_number"`
	Amount            float64    `json:"amount"`
	Percentage        float64    `json:"percentage"`
	ScheduledDate     string     `json:"scheduled_date"` // YYYY-MM-DD
	Status            string     `json:"status"`
	Notes             string     `json:"notes,omitempty"`
	PaymentDate       *time.Time `json:"payment_date,omitempty"`
	ProcessedBy       string     `json:"processed_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// InstallmentPreviewRequest is the body for POST /v1/commission/installments/preview.
type InstallmentPreviewRequest struct {
	Total           float64               `json:"total"`
	TransactionDate string                `json:"transaction_date"` // YYYY-MM-DD
	ScheduleID      string                `json:"schedule_id,omitempty"`
	Installments    []ScheduleInstallment `json:"installments,omitempty"`
}

// InstallmentPreview is one computed installment, not yet persisted.
type InstallmentPreview struct {
	InstallmentNumber int     `json:"installment_number"`
	Percentage        float64 `json:"percentage"`
	Amount            float64 `json:"amount"`
	ScheduledDate     string  `json:"scheduled_date"`
	Notes             string  `json:"notes"`
	Formatted         string  `json:"formatted"`
}

// InstallmentPreviewResponse is returned by the preview endpoint.
type InstallmentPreviewResponse struct {
	Installments    []InstallmentPreview `json:"installments"`
	Total           float64              `json:"total"`
	PercentageTotal float64              `json:"percentage_total"`
	Warning         string               `json:"warning,omitempty"`
}

// ProcessInstallmentRequest is the body for POST /v1/installments/{id}/process.
type ProcessInstallmentRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// ============================================================
// Forecast
// ============================================================

// ForecastPeriod is one calendar month of expected commission.
type ForecastPeriod struct {
	Month           string  `json:"month"` // YYYY-MM
	ExpectedAmount  float64 `json:"expected_amount"`
	ConfirmedAmount float64 `json:"confirmed_amount"`
	PendingAmount   float64 `json:"pending_amount"`
}

// CommissionForecast is returned by GET /v1/agents/{agentId}/forecast.
type CommissionForecast struct {
	AgentID       string           `json:"agent_id"`
	TotalExpected float64          `json:"total_expected"`
	Periods       []ForecastPeriod `json:"periods"`
}

// ForecastProjection is a row of forecast_projections.
type ForecastProjection struct {
	ID                     string    `json:"id,omitempty"`
	ProjectedTransactionID string    `json:"projected_transaction_id"`
	AgentID                string    `json:"agent_id"`
	InstallmentNumber      int       `json:"installment_number"`
	Amount                 float64   `json:"amount"`
	Percentage             float64   `json:"percentage"`
	ScheduledDate          string    `json:"scheduled_date"`   // YYYY-MM-DD
	TransactionDate        string    `json:"transaction_date"` // YYYY-MM-DD
	Status                 string    `json:"status"`
	CreatedAt              time.Time `json:"created_at"`
}

// ProjectionResponse is returned by POST /v1/agents/{agentId}/forecast/projections.
type ProjectionResponse struct {
	AgentID     string               `json:"agent_id"`
	Count       int                  `json:"count"`
	Message     string               `json:"message"`
	Projections []ForecastProjection `json:"projections"`
}
