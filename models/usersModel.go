package models

import (
	"time"

	"gorm.io/gorm"
)

// Role names used across middleware checks.
const (
	RoleAdmin   = "Admin"
	RoleMRStaff = "MR Staff"
	RoleCA      = "CA"
)

// Role represents a user role
type Role struct {
	ID          int64        `gorm:"primaryKey;column:id" json:"id"`
	Name        string       `gorm:"size:50;not null;unique;index;column:name" json:"name"`
	Description string       `gorm:"type:text;column:description" json:"description"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
}

func (Role) TableName() string {
	return "roles"
}

// SeedRoles inserts initial roles into the database
func SeedRoles(db *gorm.DB) error {
	initialRoles := []Role{
		{Name: RoleAdmin, Description: "Full access to the system"},
		{Name: RoleMRStaff, Description: "Medical Records staff: approve, reject, verify and file case notes"},
		{Name: RoleCA, Description: "Clinic Assistant: request, hold, hand over and return case notes"},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, role := range initialRoles {
			if err := tx.FirstOrCreate(&role, Role{Name: role.Name}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// User represents a user in the system
type User struct {
	ID        int64     `gorm:"primaryKey;column:id" json:"id"`
	Username  string    `gorm:"size:100;not null;unique;index;column:username" json:"username"`
	Name      string    `gorm:"size:255;not null;column:name" json:"name"`
	Email     string    `gorm:"size:255;not null;unique;index;column:email" json:"email"`
	Password  string    `gorm:"size:255;not null;column:password" json:"password"`
	RoleID    int64     `gorm:"index;not null;column:role_id" json:"role_id"`
	Role      Role      `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// Permission represents a permission in the system
type Permission struct {
	ID          int64  `gorm:"primaryKey;column:id" json:"id"`
	Name        string `gorm:"size:100;not null;unique;index;column:name" json:"name"`
	Description string `gorm:"type:text;column:description" json:"description"`
}

func (Permission) TableName() string {
	return "permissions"
}

// SeedPermissions inserts initial permissions into the database
func SeedPermissions(db *gorm.DB) error {
	initialPermissions := []Permission{
		{Name: "manage_users", Description: "Create, update, or delete users"},
		{Name: "create_requests", Description: "Submit case note requests"},
		{Name: "decide_requests", Description: "Approve or reject case note requests"},
		{Name: "verify_returns", Description: "Verify or reject returned case notes"},
		{Name: "hold_case_notes", Description: "Receive, hand over and return case notes"},
		{Name: "file_case_notes", Description: "Approve or reject filing requests"},
		{Name: "view_reports", Description: "Export tracking reports"},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, permission := range initialPermissions {
			if err := tx.FirstOrCreate(&permission, Permission{Name: permission.Name}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RolePermission represents the association between roles and permissions
type RolePermission struct {
	ID           int64 `gorm:"primaryKey;column:id" json:"id"`
	RoleID       int64 `gorm:"index;column:role_id" json:"role_id"`
	PermissionID int64 `gorm:"index;column:permission_id" json:"permission_id"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

// SeedRolePermissions inserts initial role permissions into the database
func SeedRolePermissions(db *gorm.DB) error {
	initialRolePermissions := []RolePermission{
		{RoleID: 1, PermissionID: 1}, // Admin: manage_users
		{RoleID: 1, PermissionID: 2}, // Admin: create_requests
		{RoleID: 1, PermissionID: 3}, // Admin: decide_requests
		{RoleID: 1, PermissionID: 4}, // Admin: verify_returns
		{RoleID: 1, PermissionID: 5}, // Admin: hold_case_notes
		{RoleID: 1, PermissionID: 6}, // Admin: file_case_notes
		{RoleID: 1, PermissionID: 7}, // Admin: view_reports
		{RoleID: 2, PermissionID: 3}, // MR Staff: decide_requests
		{RoleID: 2, PermissionID: 4}, // MR Staff: verify_returns
		{RoleID: 2, PermissionID: 6}, // MR Staff: file_case_notes
		{RoleID: 2, PermissionID: 7}, // MR Staff: view_reports
		{RoleID: 3, PermissionID: 2}, // CA: create_requests
		{RoleID: 3, PermissionID: 5}, // CA: hold_case_notes
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, rolePermission := range initialRolePermissions {
			if err := tx.FirstOrCreate(&rolePermission, RolePermission{RoleID: rolePermission.RoleID, PermissionID: rolePermission.PermissionID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
