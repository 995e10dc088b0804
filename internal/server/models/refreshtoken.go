package models

import "time"

// RefreshToken is one entry of a user's refresh-token collection. ExpiresAt
// equals the exp claim signed into Token.
type RefreshToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired is true once now has reached ExpiresAt.
func (rt RefreshToken) Expired(now time.Time) bool {
	return !rt.ExpiresAt.After(now)
}
