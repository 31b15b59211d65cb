package service

import (
	"context"
	"sort"
	"strings"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/boddenberg/agent-hub-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var roleTracer = otel.Tracer("service/role")

// RoleService manages permissions, the role hierarchy and user role
// assignments. Assignments are mirrored to the identity provider when one is
// configured.
type RoleService struct {
	store    port.RoleStore
	identity port.IdentityAdmin // may be nil
	logger   *zap.Logger
}

// NewRoleService creates a role service. identity may be nil.
func NewRoleService(store port.RoleStore, identity port.IdentityAdmin, logger *zap.Logger) *RoleService {
	return &RoleService{store: store, identity: identity, logger: logger}
}

func (s *RoleService) Permissions(ctx context.Context) ([]domain.Permission, error) {
	ctx, span := roleTracer.Start(ctx, "RoleService.Permissions")
	defer span.End()

	perms, err := s.store.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(perms), nil
}

// PermissionCategories groups permissions by category, sorted by name.
func (s *RoleService) PermissionCategories(ctx context.Context) ([]domain.PermissionCategory, error) {
	perms, err := s.Permissions(ctx)
	if err != nil {
		return nil, err
	}
	return GroupPermissions(perms), nil
}

// GroupPermissions buckets permissions by category. Uncategorised
// permissions land in the General category.
func GroupPermissions(perms []domain.Permission) []domain.PermissionCategory {
	byName := make(map[string][]domain.Permission)
	for _, p := range perms {
		cat := strings.TrimSpace(p.Category)
		if cat == "" {
			cat = domain.DefaultPermissionCategory
		}
		byName[cat] = append(byName[cat], p)
	}

	out := make([]domain.PermissionCategory, 0, len(byName))
	for name, items := range byName {
		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
		out = append(out, domain.PermissionCategory{Name: name, Permissions: items})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *RoleService) RolePermissions(ctx context.Context, roleID string) ([]domain.Permission, error) {
	ctx, span := roleTracer.Start(ctx, "RoleService.RolePermissions")
	defer span.End()

	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	perms, err := s.store.ListRolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return nonNil(perms), nil
}

// ============================================================
// Hierarchy
// ============================================================

func (s *RoleService) Relations(ctx context.Context) ([]domain.RoleRelation, error) {
	ctx, span := roleTracer.Start(ctx, "RoleService.Relations")
	defer span.End()

	rels, err := s.store.ListRoleRelations(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(rels), nil
}

// AddRelation makes parent a parent of child. A role cannot be its own
// parent, and a parent that already descends from child would close a cycle.
func (s *RoleService) AddRelation(ctx context.Context, actor *domain.Principal, req *domain.RoleRelationRequest) (*domain.RoleRelation, error) {
	ctx, span := roleTracer.Start(ctx, "RoleService.AddRelation")
	defer span.End()

	if err := requireAdmin(actor, "change the role hierarchy"); err != nil {
		return nil, err
	}
	if req.ParentRoleID == "" || req.ChildRoleID == "" {
		return nil, &domain.ErrValidation{Field: "role_id", Message: "parent_role_id and child_role_id are required"}
	}
	if req.ParentRoleID == req.ChildRoleID {
		return nil, &domain.ErrValidation{Field: "child_role_id", Message: "a role cannot be its own parent"}
	}

	descendants, err := s.store.ListRoleDescendants(ctx, req.ChildRoleID)
	if err != nil {
		return nil, err
	}
	for _, id := range descendants {
		if id == req.ParentRoleID {
			return nil, &domain.ErrConflict{Message: "relation would create a cycle in the role hierarchy"}
		}
	}

	rel, err := s.store.CreateRoleRelation(ctx, req.ParentRoleID, req.ChildRoleID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("role relation added",
		zap.String("parent_role_id", req.ParentRoleID),
		zap.String("child_role_id", req.ChildRoleID),
		zap.String("by", actor.UserID),
	)
	return rel, nil
}

func (s *RoleService) RemoveRelation(ctx context.Context, actor *domain.Principal, req *domain.RoleRelationRequest) error {
	ctx, span := roleTracer.Start(ctx, "RoleService.RemoveRelation")
	defer span.End()

	if err := requireAdmin(actor, "change the role hierarchy"); err != nil {
		return err
	}
	if req.ParentRoleID == "" || req.ChildRoleID == "" {
		return &domain.ErrValidation{Field: "role_id", Message: "parent_role_id and child_role_id are required"}
	}
	return s.store.DeleteRoleRelation(ctx, req.ParentRoleID, req.ChildRoleID)
}

func (s *RoleService) Levels(ctx context.Context) ([]domain.RoleLevel, error) {
	ctx, span := roleTracer.Start(ctx, "RoleService.Levels")
	defer span.End()

	levels, err := s.store.ListRoleLevels(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(levels), nil
}

// ============================================================
// User roles
// ============================================================

func (s *RoleService) UserRoles(ctx context.Context, actor *domain.Principal, userID string) ([]domain.UserRole, error) {
	ctx, span := roleTracer.Start(ctx, "RoleService.UserRoles")
	defer span.End()

	if err := requireSelfOrAdmin(actor, userID, "view another user's roles"); err != nil {
		return nil, err
	}
	roles, err := s.store.ListUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return nonNil(roles), nil
}

// AssignRole grants a role and mirrors it into the identity provider's
// public metadata. A failed sync is logged; the assignment stands.
func (s *RoleService) AssignRole(ctx context.Context, actor *domain.Principal, userID, roleID string) (*domain.UserRole, error) {
	ctx, span := roleTracer.Start(ctx, "RoleService.AssignRole")
	defer span.End()

	if err := requireAdmin(actor, "assign roles"); err != nil {
		return nil, err
	}
	if roleID == "" {
		return nil, &domain.ErrValidation{Field: "role_id", Message: "required"}
	}

	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	assigned, err := s.store.AssignUserRole(ctx, userID, roleID)
	if err != nil {
		return nil, err
	}
	assigned.Role = role

	if s.identity != nil {
		if _, err := s.identity.UpdateUserRole(ctx, userID, IdentityRole(role.Name)); err != nil {
			s.logger.Warn("identity role sync failed",
				zap.String("user_id", userID),
				zap.String("role", role.Name),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("role assigned",
		zap.String("user_id", userID),
		zap.String("role", role.Name),
		zap.String("by", actor.UserID),
	)
	return assigned, nil
}

// IdentityUser reads a user from the identity provider. Admin only.
func (s *RoleService) IdentityUser(ctx context.Context, actor *domain.Principal, userID string) (*domain.IdentityUser, error) {
	ctx, span := roleTracer.Start(ctx, "RoleService.IdentityUser")
	defer span.End()

	if err := requireAdmin(actor, "read identity users"); err != nil {
		return nil, err
	}
	if s.identity == nil {
		return nil, &domain.ErrExternalService{Service: "clerk", Err: errIdentityDisabled}
	}
	return s.identity.GetUser(ctx, userID)
}

// IdentityRole maps a role name onto the two application roles the session
// token carries.
func IdentityRole(roleName string) string {
	switch strings.ToLower(strings.TrimSpace(roleName)) {
	case "admin", "administrator":
		return domain.RoleAdmin
	}
	return domain.RoleAgent
}
