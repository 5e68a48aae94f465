// Package models holds the server-side domain records.
package models

import "time"

// Role is the authorization role of a user. The set is closed.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// User is a credential record. PasswordHash is only populated by lookups
// that explicitly ask for it and is never serialized.
type User struct {
	ID                         string     `json:"id" bson:"_id"`
	Email                      string     `json:"email" bson:"email"`
	PasswordHash               string     `json:"-" bson:"passwordHash,omitempty"`
	FirstName                  string     `json:"firstName" bson:"firstName"`
	LastName                   string     `json:"lastName" bson:"lastName"`
	Role                       Role       `json:"role" bson:"role"`
	Phone                      *string    `json:"phone,omitempty" bson:"phone,omitempty"`
	IsActive                   bool       `json:"isActive" bson:"isActive"`
	IsEmailVerified            bool       `json:"isEmailVerified" bson:"isEmailVerified"`
	EmailVerificationToken     *string    `json:"-" bson:"emailVerificationToken,omitempty"`
	EmailVerificationExpiresAt *time.Time `json:"-" bson:"emailVerificationExpires,omitempty"`
	PasswordResetToken         *string    `json:"-" bson:"passwordResetToken,omitempty"`
	PasswordResetExpiresAt     *time.Time `json:"-" bson:"passwordResetExpires,omitempty"`
	LastLogin                  *time.Time `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	CreatedAt                  time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt                  time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Sanitized returns a copy without the password digest or one-time tokens.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	c.PasswordResetToken = nil
	c.PasswordResetExpiresAt = nil
	c.EmailVerificationToken = nil
	c.EmailVerificationExpiresAt = nil
	return &c
}
