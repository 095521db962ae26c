package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the roles known to the host CMS.
type UserRole string

const (
	RoleAdministrator UserRole = "administrator"
	RoleEditor        UserRole = "editor"
	RoleAuthor        UserRole = "author"
	RoleContributor   UserRole = "contributor"
	RoleSubscriber    UserRole = "subscriber"
)

// User represents an account stored in the users table.
type User struct {
	ID           int64          `db:"id" json:"id"`
	Login        string         `db:"login" json:"login"`
	Email        string         `db:"email" json:"email"`
	DisplayName  string         `db:"display_name" json:"display_name"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Roles        pq.StringArray `db:"roles" json:"roles"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role UserRole) bool {
	for _, r := range u.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}

// Label returns the name shown for the user in listings.
func (u *User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Login
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Search   string
	Page     int
	PageSize int
}
