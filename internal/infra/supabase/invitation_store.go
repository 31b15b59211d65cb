package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// ============================================================
// Agent invitations (implements port.InvitationStore)
// ============================================================

func (c *Client) CreateInvitation(ctx context.Context, inv *domain.Invitation) (*domain.Invitation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateInvitation")
	defer span.End()

	row := map[string]any{
		"id":         inv.ID,
		"email":      inv.Email,
		"first_name": inv.FirstName,
		"code_hash":  inv.CodeHash,
		"invited_by": inv.InvitedBy,
		"upline_id":  inv.UplineID,
		"expires_at": inv.ExpiresAt.UTC().Format(time.RFC3339),
	}

	var body []byte
	err := c.mutate(ctx, "agent_invitations", func() (err error) {
		body, err = c.doPost(ctx, "agent_invitations", row)
		return err
	})
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.Invitation](body, "agent_invitation")
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("no result from agent_invitations insert")
	}
	return created, nil
}

// GetOpenInvitation returns the newest unused invitation for email.
func (c *Client) GetOpenInvitation(ctx context.Context, email string) (*domain.Invitation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetOpenInvitation")
	defer span.End()

	path := fmt.Sprintf("agent_invitations?email=%s&used_at=is.null&order=created_at.desc&limit=1", eq(email))
	body, err := c.query(ctx, "agent_invitations", path)
	if err != nil {
		return nil, err
	}
	inv, err := decodeFirst[domain.Invitation](body, "agent_invitation")
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, &domain.ErrNotFound{Resource: "invitation", ID: email}
	}
	return inv, nil
}

func (c *Client) MarkInvitationUsed(ctx context.Context, invitationID, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.MarkInvitationUsed")
	defer span.End()

	return c.mutate(ctx, "agent_invitations", func() error {
		_, err := c.doPatch(ctx, "agent_invitations?id="+eq(invitationID)+"&used_at=is.null", map[string]any{
			"used_at": time.Now().UTC().Format(time.RFC3339),
			"used_by": userID,
		})
		return err
	})
}
