// Package models defines the core data structures for identities,
// inventory records and audit entries.
package models

import (
	"strings"
	"time"
)

// Role is the closed set of access levels an identity can hold.
type Role string

const (
	// RoleAdmin manages identities, backups and the audit log.
	RoleAdmin Role = "admin"
	// RoleOperator creates and updates inventory records.
	RoleOperator Role = "operator"
	// RoleReadOnly can only read inventory, statistics and reports.
	RoleReadOnly Role = "readonly"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleOperator, RoleReadOnly}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleReadOnly:
		return true
	}
	return false
}

// ParseRole normalizes s and returns the matching Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// DefaultSite is the site tag assigned when none is provided.
const DefaultSite = "Arequipa 06 - Socabaya"

// User represents an identity allowed to use the service.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Username is the unique login name.
	Username string `json:"username"`
	// Email is the unique contact address.
	Email string `json:"email"`
	// FullName is the display name.
	FullName string `json:"full_name"`
	// PasswordHash is the bcrypt digest. It is never serialized.
	PasswordHash string `json:"-"`
	// Role is the access level.
	Role Role `json:"role"`
	// IsActive is false for deactivated identities.
	IsActive bool `json:"is_active"`
	// Site is the location tag copied into audit entries.
	Site string `json:"sede"`
	// CreatedAt is the registration time.
	CreatedAt time.Time `json:"created_at"`
	// LastLogin is the time of the last successful login.
	LastLogin *time.Time `json:"last_login"`
	// UpdatedAt is the time of the last administrative update.
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NewUser holds registration input.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Site     string `json:"sede"`
}

// UserUpdate holds the administrative allow-list of mutable identity fields.
// Nil fields are left unchanged.
type UserUpdate struct {
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	Site     *string `json:"sede,omitempty"`
}

// Fields returns the JSON names of the fields set in u.
func (u UserUpdate) Fields() []string {
	var fields []string
	if u.Email != nil {
		fields = append(fields, "email")
	}
	if u.FullName != nil {
		fields = append(fields, "full_name")
	}
	if u.Role != nil {
		fields = append(fields, "role")
	}
	if u.IsActive != nil {
		fields = append(fields, "is_active")
	}
	if u.Site != nil {
		fields = append(fields, "sede")
	}
	return fields
}

// Apply copies the set fields of u onto user.
func (u UserUpdate) Apply(user *User) {
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.FullName != nil {
		user.FullName = *u.FullName
	}
	if u.Role != nil {
		user.Role = *u.Role
	}
	if u.IsActive != nil {
		user.IsActive = *u.IsActive
	}
	if u.Site != nil {
		user.Site = *u.Site
	}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        *User  `json:"user"`
}
