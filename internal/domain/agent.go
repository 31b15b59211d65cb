package domain

import "time"

// ============================================================
// Agents (profiles, hierarchy, dashboard)
// ============================================================

// AdministratorTier is the synthetic tier given to configured admin emails.
const (
	AdministratorTier     = 5
	AdministratorTierName = "Administrator"
)

// AgentProfile is a row of agent_profiles.
type AgentProfile struct {
	ID                   string    `json:"id"`
	FullName             string    `json:"full_name"`
	Email                string    `json:"email"`
	Phone                string    `json:"phone,omitempty"`
	AvatarURL            string    `json:"avatar_url,omitempty"`
	Tier                 int       `json:"tier"`
	TierName             string    `json:"tier_name"`
	Rank                 string    `json:"rank"`
	CommissionPercentage float64   `json:"commission_percentage"`
	UplineID             *string   `json:"upline_id"`
	TotalSales           float64   `json:"total_sales"`
	TransactionCount     int       `json:"transaction_count"`
	IsAdmin              bool      `json:"is_admin"`
	JoinDate             string    `json:"join_date,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// AgentNode is a profile with its downline, used by the hierarchy tree.
type AgentNode struct {
	AgentProfile
	Downline []AgentNode `json:"downline"`
}

// AgentHierarchy is returned by GET /v1/agents/{agentId}/hierarchy.
type AgentHierarchy struct {
	Root          AgentNode      `json:"root"`
	Upline        []AgentProfile `json:"upline"`
	DownlineCount int            `json:"downline_count"`
}

// UpdateRankRequest is the body for PUT /v1/agents/{agentId}/rank.
type UpdateRankRequest struct {
	Rank string `json:"rank"`
}

// AgentDashboard is returned by GET /v1/agents/{agentId}/dashboard.
type AgentDashboard struct {
	Profile              *AgentProfile           `json:"profile"`
	RecentTransactions   []PropertyTransaction   `json:"recent_transactions"`
	UpcomingInstallments []CommissionInstallment `json:"upcoming_installments"`
	PaidCommission       float64                 `json:"paid_commission"`
	PendingCommission    float64                 `json:"pending_commission"`
	UnreadNotifications  int                     `json:"unread_notifications"`
	NextRank             string                  `json:"next_rank,omitempty"`
	SalesToNextRank      float64                 `json:"sales_to_next_rank"`
}
