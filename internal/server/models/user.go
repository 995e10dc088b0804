// Package models defines server-side records persisted in the database.
package models

import (
	"slices"
	"time"
)

// Role is the authorization level carried in access tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// User is the identity and authorization anchor. PasswordHash, RefreshTokens
// and Version never leave the server.
type User struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	PasswordHash  string         `json:"-"`
	Phone         string         `json:"phone,omitempty"`
	Role          Role           `json:"role"`
	IsActive      bool           `json:"isActive"`
	RefreshTokens []RefreshToken `json:"-"`
	Version       int64          `json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	newPassword *string
}

// SetPassword stages a new plaintext password. It is hashed by the credential
// store on the next write and never persisted as is.
func (u *User) SetPassword(plain string) {
	u.newPassword = &plain
}

// PendingPassword returns the staged plaintext, if any.
func (u *User) PendingPassword() (string, bool) {
	if u.newPassword == nil {
		return "", false
	}
	return *u.newPassword, true
}

// CommitPassword replaces the hash and drops the staged plaintext.
func (u *User) CommitPassword(hash string) {
	u.PasswordHash = hash
	u.newPassword = nil
}

// HasRefreshToken reports whether token is still in the collection.
func (u *User) HasRefreshToken(token string) bool {
	return slices.ContainsFunc(u.RefreshTokens, func(rt RefreshToken) bool { return rt.Token == token })
}

// AddRefreshToken appends a new entry.
func (u *User) AddRefreshToken(rt RefreshToken) {
	u.RefreshTokens = append(u.RefreshTokens, rt)
}

// RemoveRefreshToken drops every entry equal to token and reports whether
// anything was removed.
func (u *User) RemoveRefreshToken(token string) bool {
	before := len(u.RefreshTokens)
	u.RefreshTokens = slices.DeleteFunc(u.RefreshTokens, func(rt RefreshToken) bool { return rt.Token == token })
	return len(u.RefreshTokens) != before
}

// PurgeExpiredRefreshTokens removes entries that expired at or before now and
// returns how many were dropped. Remaining entries keep their order.
func (u *User) PurgeExpiredRefreshTokens(now time.Time) int {
	before := len(u.RefreshTokens)
	u.RefreshTokens = slices.DeleteFunc(u.RefreshTokens, func(rt RefreshToken) bool { return rt.Expired(now) })
	return before - len(u.RefreshTokens)
}

// PublicView is the redacted shape returned by login.
type PublicView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u *User) PublicView() PublicView {
	return PublicView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
