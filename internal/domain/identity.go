package domain

import "time"

// ============================================================
// Identity (Clerk) & Invitations
// ============================================================

// Application roles carried in Clerk public metadata.
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// Principal is the authenticated caller extracted from a session token.
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the caller holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// IdentityUser is the subset of a Clerk user the BFA reads.
type IdentityUser struct {
	ID             string         `json:"id"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Email          string         `json:"email"`
	Role           string         `json:"role"`
	PublicMetadata map[string]any `json:"public_metadata"`
}

// Invitation is a row of agent_invitations.
type Invitation struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name,omitempty"`
	CodeHash  string     `json:"code_hash"`
	InvitedBy string     `json:"invited_by"`
	UplineID  *string    `json:"upline_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	UsedBy    string     `json:"used_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// InvitationRequest is the body for POST /v1/admin/invitations.
type InvitationRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	UplineID  string `json:"upline_id,omitempty"`
}

// InvitationResponse is returned after an invitation is created.
type InvitationResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	EmailSent bool      `json:"email_sent"`
}

// AcceptInvitationRequest is the body for POST /v1/invitations/accept. The
// user id comes from the session; Email defaults to the session email.
type AcceptInvitationRequest struct {
	Email    string `json:"email,omitempty"`
	Code     string `json:"code"`
	FullName string `json:"full_name,omitempty"`
}

// InvitationEmail is what the mailer needs to send an invitation.
type InvitationEmail struct {
	To         string
	FirstName  string
	Code       string
	SignupLink string
	ExpiresAt  time.Time
}
