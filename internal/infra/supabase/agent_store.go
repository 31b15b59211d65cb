package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"go.uber.org/zap"
)

// ============================================================
// Agent profiles (implements port.AgentStore)
// ============================================================

// GetAgentProfile reads through the get_agent_profile_by_id function, which
// bypasses row-level security, and falls back to the table when the function
// is missing or fails.
func (c *Client) GetAgentProfile(ctx context.Context, agentID string) (*domain.AgentProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAgentProfile")
	defer span.End()

	body, err := c.callRPC(ctx, "get_agent_profile_by_id", map[string]any{"user_id": agentID})
	if err == nil {
		profile, decErr := decodeFirst[domain.AgentProfile](body, "agent_profile")
		if decErr == nil && profile != nil {
			return profile, nil
		}
	} else {
		c.logger.Debug("supabase: get_agent_profile_by_id failed, falling back to table",
			zap.String("agent_id", agentID),
			zap.Error(err),
		)
	}

	body, err = c.query(ctx, "agent_profiles", fmt.Sprintf("agent_profiles?id=%s&limit=1", eq(agentID)))
	if err != nil {
		return nil, err
	}
	profile, err := decodeFirst[domain.AgentProfile](body, "agent_profile")
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &domain.ErrNotFound{Resource: "agent", ID: agentID}
	}
	return profile, nil
}

func (c *Client) ListDownline(ctx context.Context, uplineID string) ([]domain.AgentProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListDownline")
	defer span.End()

	path := fmt.Sprintf("agent_profiles?upline_id=%s&order=full_name.asc", eq(uplineID))
	body, err := c.query(ctx, "agent_profiles", path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.AgentProfile](body, "agent_profiles")
}

func (c *Client) CreateAgentProfile(ctx context.Context, p *domain.AgentProfile) (*domain.AgentProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateAgentProfile")
	defer span.End()

	row := map[string]any{
		"id":                    p.ID,
		"full_name":             p.FullName,
		"email":                 p.Email,
		"tier":                  p.Tier,
		"tier_name":             p.TierName,
		"rank":                  p.Rank,
		"commission_percentage": p.CommissionPercentage,
		"upline_id":             p.UplineID,
		"join_date":             time.Now().UTC().Format("2006-01-02"),
	}

	var body []byte
	err := c.mutate(ctx, "agent_profiles", func() (err error) {
		body, err = c.doPost(ctx, "agent_profiles", row)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &domain.ErrConflict{Message: "agent profile already exists"}
		}
		return nil, err
	}
	created, err := decodeFirst[domain.AgentProfile](body, "agent_profile")
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("no result from agent_profiles insert")
	}
	return created, nil
}

func (c *Client) UpdateAgentProfile(ctx context.Context, agentID string, updates map[string]any) (*domain.AgentProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateAgentProfile")
	defer span.End()

	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	var body []byte
	err := c.mutate(ctx, "agent_profiles", func() (err error) {
		body, err = c.doPatch(ctx, "agent_profiles?id="+eq(agentID), updates)
		return err
	})
	if err != nil {
		return nil, err
	}
	profile, err := decodeFirst[domain.AgentProfile](body, "agent_profile")
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &domain.ErrNotFound{Resource: "agent", ID: agentID}
	}
	return profile, nil
}
