package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
)

// ============================================================
// Roles, permissions and role hierarchy (implements port.RoleStore)
// ============================================================

type rolePermissionRow struct {
	Permission *domain.Permission `json:"permission"`
}

type descendantRow struct {
	DescendantID string `json:"descendant_id"`
}

func (c *Client) GetRole(ctx context.Context, roleID string) (*domain.Role, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRole")
	defer span.End()

	body, err := c.query(ctx, "roles", fmt.Sprintf("roles?id=%s&limit=1", eq(roleID)))
	if err != nil {
		return nil, err
	}
	role, err := decodeFirst[domain.Role](body, "role")
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, &domain.ErrNotFound{Resource: "role", ID: roleID}
	}
	return role, nil
}

func (c *Client) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPermissions")
	defer span.End()

	body, err := c.query(ctx, "permissions", "permissions?order=name.asc")
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Permission](body, "permissions")
}

// ListRolePermissions reads role_permissions with the permission embedded.
func (c *Client) ListRolePermissions(ctx context.Context, roleID string) ([]domain.Permission, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRolePermissions")
	defer span.End()

	path := fmt.Sprintf("role_permissions?role_id=%s&select=permission:permissions(*)", eq(roleID))
	body, err := c.query(ctx, "role_permissions", path)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[rolePermissionRow](body, "role_permissions")
	if err != nil {
		return nil, err
	}
	perms := make([]domain.Permission, 0, len(rows))
	for _, r := range rows {
		if r.Permission != nil {
			perms = append(perms, *r.Permission)
		}
	}
	return perms, nil
}

const relationSelect = "select=id,parent_role_id,child_role_id,parent_role:roles!parent_role_id(*),child_role:roles!child_role_id(*)"

func (c *Client) ListRoleRelations(ctx context.Context) ([]domain.RoleRelation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRoleRelations")
	defer span.End()

	body, err := c.query(ctx, "role_hierarchy", "role_hierarchy?"+relationSelect)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.RoleRelation](body, "role_hierarchy")
}

// ListRoleDescendants returns every role below roleID, via get_role_descendants.
func (c *Client) ListRoleDescendants(ctx context.Context, roleID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRoleDescendants")
	defer span.End()

	body, err := c.callRPC(ctx, "get_role_descendants", map[string]any{"role_id": roleID})
	if err != nil {
		return nil, err
	}
	return decodeDescendants(body)
}

// decodeDescendants accepts either a bare uuid array or rows of {descendant_id}.
func decodeDescendants(body []byte) ([]string, error) {
	ids := []string{}
	if len(body) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(body, &ids); err == nil {
		return ids, nil
	}
	rows, err := decodeRows[descendantRow](body, "role descendants")
	if err != nil {
		return nil, err
	}
	ids = make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.DescendantID)
	}
	return ids, nil
}

func (c *Client) CreateRoleRelation(ctx context.Context, parentRoleID, childRoleID string) (*domain.RoleRelation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateRoleRelation")
	defer span.End()

	var body []byte
	err := c.mutate(ctx, "role_hierarchy", func() (err error) {
		body, err = c.doPost(ctx, "role_hierarchy", map[string]any{
			"parent_role_id": parentRoleID,
			"child_role_id":  childRoleID,
		})
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &domain.ErrConflict{Message: "this role relationship already exists"}
		}
		return nil, err
	}
	rel, err := decodeFirst[domain.RoleRelation](body, "role_hierarchy")
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, fmt.Errorf("no result from role_hierarchy insert")
	}
	return rel, nil
}

func (c *Client) DeleteRoleRelation(ctx context.Context, parentRoleID, childRoleID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteRoleRelation")
	defer span.End()

	return c.mutate(ctx, "role_hierarchy", func() error {
		return c.doDelete(ctx, fmt.Sprintf("role_hierarchy?parent_role_id=%s&child_role_id=%s", eq(parentRoleID), eq(childRoleID)))
	})
}

func (c *Client) ListRoleLevels(ctx context.Context) ([]domain.RoleLevel, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRoleLevels")
	defer span.End()

	body, err := c.query(ctx, "role_levels", "role_levels?order=order_index.asc")
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.RoleLevel](body, "role_levels")
}

const userRoleSelect = "select=id,user_id,role_id,role:roles(*)"

func (c *Client) ListUserRoles(ctx context.Context, userID string) ([]domain.UserRole, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListUserRoles")
	defer span.End()

	body, err := c.query(ctx, "user_roles", fmt.Sprintf("user_roles?user_id=%s&%s", eq(userID), userRoleSelect))
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.UserRole](body, "user_roles")
}

func (c *Client) AssignUserRole(ctx context.Context, userID, roleID string) (*domain.UserRole, error) {
	ctx, span := tracer.Start(ctx, "Supabase.AssignUserRole")
	defer span.End()

	var body []byte
	err := c.mutate(ctx, "user_roles", func() (err error) {
		body, err = c.doPost(ctx, "user_roles", map[string]any{"user_id": userID, "role_id": roleID})
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &domain.ErrConflict{Message: "user already has this role"}
		}
		return nil, err
	}
	ur, err := decodeFirst[domain.UserRole](body, "user_role")
	if err != nil {
		return nil, err
	}
	if ur == nil {
		return nil, fmt.Errorf("no result from user_roles insert")
	}
	return ur, nil
}
