// Package auth signs and verifies the two token classes: short-lived access
// tokens carrying the principal, and long-lived refresh tokens carrying only
// the user id. Each class has its own secret and lifetime.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID string      `json:"userId"`
	Role   models.Role `json:"role"`
	Type   string      `json:"typ"`
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Type   string `json:"typ"`
}

// TokenCodec is stateless apart from its key material and clock.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// Option customises a TokenCodec.
type Option func(*TokenCodec)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *TokenCodec) { c.now = now }
}

func NewTokenCodec(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration, opts ...Option) *TokenCodec {
	c := &TokenCodec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// IssueAccessToken signs {userId, role} with the access secret.
func (c *TokenCodec) IssueAccessToken(userID string, role models.Role) (string, time.Time, error) {
	reg := c.registered(c.accessTTL)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: reg,
		UserID:           userID,
		Role:             role,
		Type:             typeAccess,
	})
	s, err := tok.SignedString(c.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, reg.ExpiresAt.Time, nil
}

// IssueRefreshToken signs {userId} with the refresh secret. The returned
// expiry is exactly the exp claim inside the token.
func (c *TokenCodec) IssueRefreshToken(userID string) (string, time.Time, error) {
	reg := c.registered(c.refreshTTL)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: reg,
		UserID:           userID,
		Type:             typeRefresh,
	})
	s, err := tok.SignedString(c.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, reg.ExpiresAt.Time, nil
}

// VerifyAccessToken fails with common.ErrTokenExpired once exp is reached and
// with common.ErrInvalidToken for everything else. Validity depends only on
// the signature and exp; iat is informational.
func (c *TokenCodec) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(tokenString, claims, c.accessSecret); err != nil {
		return nil, err
	}
	if claims.Type != typeAccess || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken has the same failure split as VerifyAccessToken.
func (c *TokenCodec) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(tokenString, claims, c.refreshSecret); err != nil {
		return nil, err
	}
	if claims.Type != typeRefresh || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (c *TokenCodec) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := c.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (c *TokenCodec) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	if tokenString == "" {
		return common.ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}
