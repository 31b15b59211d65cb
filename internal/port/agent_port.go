package port

import (
	"context"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// AgentStore handles agent profiles.
type AgentStore interface {
	GetAgentProfile(ctx context.Context, agentID string) (*domain.AgentProfile, error)
	ListDownline(ctx context.Context, uplineID string) ([]domain.AgentProfile, error)
	CreateAgentProfile(ctx context.Context, p *domain.AgentProfile) (*domain.AgentProfile, error)
	UpdateAgentProfile(ctx context.Context, agentID string, updates map[string]any) (*domain.AgentProfile, error)
}

// NotificationStore handles per-user notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]domain.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	GetNotification(ctx context.Context, notificationID string) (*domain.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}

// RoleStore handles roles, permissions and their hierarchy.
type RoleStore interface {
	GetRole(ctx context.Context, roleID string) (*domain.Role, error)
	ListPermissions(ctx context.Context) ([]domain.Permission, error)
	ListRolePermissions(ctx context.Context, roleID string) ([]domain.Permission, error)

	ListRoleRelations(ctx context.Context) ([]domain.RoleRelation, error)
	ListRoleDescendants(ctx context.Context, roleID string) ([]string, error)
	CreateRoleRelation(ctx context.Context, parentRoleID, childRoleID string) (*domain.RoleRelation, error)
	DeleteRoleRelation(ctx context.Context, parentRoleID, childRoleID string) error
	ListRoleLevels(ctx context.Context) ([]domain.RoleLevel, error)

	ListUserRoles(ctx context.Context, userID string) ([]domain.UserRole, error)
	AssignUserRole(ctx context.Context, userID, roleID string) (*domain.UserRole, error)
}

// InvitationStore handles agent invitations.
type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv *domain.Invitation) (*domain.Invitation, error)
	GetOpenInvitation(ctx context.Context, email string) (*domain.Invitation, error)
	MarkInvitationUsed(ctx context.Context, invitationID, userID string) error
}
