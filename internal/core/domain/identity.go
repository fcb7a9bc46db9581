package domain

import (
	"strings"
	"time"
)

// Role enumerates the closed set of account roles.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleSuper Role = "super"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleUser, RoleAdmin, RoleSuper:
		return true
	default:
		return false
	}
}

// ParseRole converts the raw value into a Role, falling back to guest for unknown input.
func ParseRole(raw string) Role {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return RoleGuest
	}
	return role
}

// User mirrors the persisted identity record.
type User struct {
	ID             string     `json:"id" bson:"_id"`
	Username       string     `json:"username" bson:"username"`
	Email          string     `json:"email" bson:"email"`
	PasswordHash   string     `json:"-" bson:"password_hash"`
	Role           Role       `json:"role" bson:"role"`
	Name           *string    `json:"name,omitempty" bson:"name,omitempty"`
	PhoneNumber    *string    `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
	ProfilePicture *string    `json:"profile_picture,omitempty" bson:"profile_picture,omitempty"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty" bson:"date_of_birth,omitempty"`
	Address        *string    `json:"address,omitempty" bson:"address,omitempty"`
	IsActive       bool       `json:"is_active" bson:"is_active"`
	IsVerified     bool       `json:"is_verified" bson:"is_verified"`
	LastLogin      *time.Time `json:"last_login,omitempty" bson:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" bson:"updated_at"`
	CreatedBy      *string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
	UpdatedBy      *string    `json:"updated_by,omitempty" bson:"updated_by,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
	Version        int64      `json:"version" bson:"version"`
}

// Deleted reports whether the record has been soft-deleted.
func (u User) Deleted() bool {
	return u.DeletedAt != nil
}

// Sanitized returns a copy without credential material.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// ProfilePatch lists the mutable profile fields. Nil fields are left untouched.
// Passwords are not part of a profile; they change through the reset flows.
type ProfilePatch struct {
	Username       *string
	Email          *string
	Name           *string
	PhoneNumber    *string
	ProfilePicture *string
	DateOfBirth    *time.Time
	Address        *string
}

// Empty reports whether the patch carries no changes.
func (p ProfilePatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.Name == nil &&
		p.PhoneNumber == nil && p.ProfilePicture == nil && p.DateOfBirth == nil && p.Address == nil
}

// Principal identifies the caller of a request.
type Principal struct {
	ID       string
	Username string
	Role     Role
}

// AnonymousPrincipal is attached to requests without a valid token.
func AnonymousPrincipal() Principal {
	return Principal{Role: RoleGuest}
}

// Authenticated reports whether the principal came from a verified token.
func (p Principal) Authenticated() bool {
	return p.ID != "" && p.Role != RoleGuest
}

// HasAnyRole reports whether the principal holds one of the roles.
func (p Principal) HasAnyRole(roles ...Role) bool {
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	return false
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
