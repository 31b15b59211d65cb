package service

import (
	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// requireAdmin rejects callers without the admin role.
func requireAdmin(actor *domain.Principal, action string) error {
	if !actor.IsAdmin() {
		return &domain.ErrForbidden{Action: action}
	}
	return nil
}

// requireSelfOrAdmin lets agents act on their own records and admins on any.
func requireSelfOrAdmin(actor *domain.Principal, agentID, action string) error {
	if actor == nil {
		return &domain.ErrUnauthorized{}
	}
	if actor.IsAdmin() || actor.UserID == agentID {
		return nil
	}
	return &domain.ErrForbidden{Action: action}
}

// requireTeamViewer extends requireSelfOrAdmin to any agent in upline, so
// team leaders can read their downline.
func requireTeamViewer(actor *domain.Principal, agentID string, upline []domain.AgentProfile, action string) error {
	err := requireSelfOrAdmin(actor, agentID, action)
	if err == nil || actor == nil {
		return err
	}
	for _, up := range upline {
		if up.ID == actor.UserID {
			return nil
		}
	}
	return err
}

// nonNil keeps list responses from serialising as null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
