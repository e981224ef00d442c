package models

import (
	"time"

	"github.com/lib/pq"
)

// UserStatus represents the account lifecycle state.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusDisabled UserStatus = "DISABLED"
)

// DataScope constrains which organisational data a user may see.
type DataScope string

const (
	DataScopeAll  DataScope = "ALL"
	DataScopeDept DataScope = "DEPT"
	DataScopeSelf DataScope = "SELF"
)

// RoleAdmin marks users allowed to manage dictionaries, notices and sessions.
const RoleAdmin = "ADMIN"

// User represents a console account stored in the users table.
type User struct {
	ID           string         `db:"id" json:"id"`
	Username     string         `db:"username" json:"username"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Nickname     string         `db:"nickname" json:"nickname"`
	Email        string         `db:"email" json:"email"`
	Phone        string         `db:"phone" json:"phone"`
	DeptID       string         `db:"dept_id" json:"dept_id"`
	DataScope    DataScope      `db:"data_scope" json:"data_scope"`
	Roles        pq.StringArray `db:"roles" json:"roles"`
	Status       UserStatus     `db:"status" json:"status"`
	LastLogin    *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Disabled reports whether the account may not authenticate.
func (u *User) Disabled() bool {
	return u == nil || u.Status == UserStatusDisabled
}

// HasRole reports whether the user carries the given role key.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
