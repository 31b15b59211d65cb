package domain

// ============================================================
// Roles & Permissions
// ============================================================

// DefaultPermissionCategory groups permissions that have no category.
const DefaultPermissionCategory = "General"

// Role is a row of roles.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Permission is a row of permissions.
type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// PermissionCategory groups permissions for GET /v1/permissions/categories.
type PermissionCategory struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// RoleRelation is a row of role_hierarchy.
type RoleRelation struct {
	ID           string `json:"id,omitempty"`
	ParentRoleID string `json:"parent_role_id"`
	ChildRoleID  string `json:"child_role_id"`
	ParentRole   *Role  `json:"parent_role,omitempty"`
	ChildRole    *Role  `json:"child_role,omitempty"`
}

// RoleRelationRequest is the body for POST/DELETE /v1/roles/hierarchy.
type RoleRelationRequest struct {
	ParentRoleID string `json:"parent_role_id"`
	ChildRoleID  string `json:"child_role_id"`
}

// RoleLevel is a row of role_levels, the sales bands an agent progresses through.
type RoleLevel struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	DisplayName        string   `json:"display_name"`
	Description        string   `json:"description,omitempty"`
	MinSalesValue      float64  `json:"min_sales_value"`
	NextLevelThreshold *float64 `json:"next_level_threshold"`
	RoleID             *string  `json:"role_id"`
	OrderIndex         int      `json:"order_index"`
}

// UserRole is a row of user_roles with the role embedded.
type UserRole struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"user_id"`
	RoleID string `json:"role_id"`
	Role   *Role  `json:"role,omitempty"`
}

// AssignRoleRequest is the body for POST /v1/users/{userId}/roles.
type AssignRoleRequest struct {
	RoleID string `json:"role_id"`
}
