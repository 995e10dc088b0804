package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/logging"
	"github.com/dmitrijs2005/authcrud/internal/server/auth"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
)

// CredentialStore is the part of credentials.Store the session manager needs.
type CredentialStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, fn func(u *models.User) error) (*models.User, error)
	IDsWithExpiredTokens(ctx context.Context, now time.Time) ([]string, error)
	HashPassword(plain string) (string, error)
	ComparePassword(plain, hash string) bool
}

// AuthObserver receives the outcome of every session operation. err is nil
// on success.
type AuthObserver interface {
	ObserveAuth(op string, err error)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	User         models.PublicView `json:"user"`
}

// RefreshResult carries the new access token. The refresh token is not rotated.
type RefreshResult struct {
	AccessToken string `json:"accessToken"`
}

// errUnchanged aborts a store update that has nothing to write.
var errUnchanged = errors.New("unchanged")

// SessionService is the only writer of a user's refresh-token collection.
type SessionService struct {
	store    CredentialStore
	codec    *auth.TokenCodec
	log      logging.Logger
	observer AuthObserver
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

type SessionOption func(*SessionService)

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

func WithAuthObserver(o AuthObserver) SessionOption {
	return func(s *SessionService) { s.observer = o }
}

func NewSessionService(store CredentialStore, codec *auth.TokenCodec, log logging.Logger, opts ...SessionOption) *SessionService {
	s := &SessionService{
		store: store,
		codec: codec,
		log:   log.With("module", "sessions"),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SessionService) observe(op string, err error) {
	if s.observer != nil {
		s.observer.ObserveAuth(op, err)
	}
}

// burnCompare spends one bcrypt comparison so unknown emails take as long as
// wrong passwords.
func (s *SessionService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.store.HashPassword("not-a-real-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	s.store.ComparePassword(password, s.dummyHash)
}

// Login verifies the credentials, drops the user's expired refresh tokens,
// stores a new one and returns both tokens with the redacted user view.
func (s *SessionService) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	defer func() { s.observe("login", err) }()

	if strings.TrimSpace(email) == "" || password == "" {
		return nil, common.ErrMissingCredentials
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnCompare(password)
			s.log.Info(ctx, "auth.login.fail", "reason", "unknown_email")
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		s.log.Info(ctx, "auth.login.fail", "user_id", user.ID, "reason", "disabled")
		return nil, common.ErrAccountDisabled
	}
	if !s.store.ComparePassword(password, user.PasswordHash) {
		s.log.Info(ctx, "auth.login.fail", "user_id", user.ID, "reason", "bad_password")
		return nil, common.ErrInvalidCredentials
	}

	access, _, err := s.codec.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, expiresAt, err := s.codec.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	now := s.now()
	saved, err := s.store.Update(ctx, user.ID, func(u *models.User) error {
		u.PurgeExpiredRefreshTokens(now)
		u.AddRefreshToken(models.RefreshToken{Token: refresh, ExpiresAt: expiresAt})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.log.Info(ctx, "auth.login.ok", "user_id", saved.ID)
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         saved.PublicView(),
	}, nil
}

// Refresh exchanges a stored, verifiable refresh token for a new access token.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (res *RefreshResult, err error) {
	defer func() { s.observe("refresh", err) }()

	if refreshToken == "" {
		return nil, common.ErrMissingToken
	}

	claims, err := s.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.log.Debug(ctx, "auth.refresh.fail", "reason", err.Error())
		return nil, common.ErrInvalidRefreshToken
	}

	user, err := s.store.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, common.ErrAccountDisabled
	}
	if !user.HasRefreshToken(refreshToken) {
		s.log.Info(ctx, "auth.refresh.revoked", "user_id", user.ID)
		return nil, common.ErrTokenRevoked
	}

	access, _, err := s.codec.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &RefreshResult{AccessToken: access}, nil
}

// Logout revokes one refresh token. Tokens that no longer verify, belong to
// no user or were already removed are treated as logged out.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) (err error) {
	defer func() { s.observe("logout", err) }()

	if refreshToken == "" {
		return common.ErrMissingToken
	}

	claims, err := s.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.log.Debug(ctx, "auth.logout.unverifiable", "reason", err.Error())
		return nil
	}

	_, err = s.store.Update(ctx, claims.UserID, func(u *models.User) error {
		if !u.RemoveRefreshToken(refreshToken) {
			return errUnchanged
		}
		return nil
	})
	switch {
	case err == nil:
		s.log.Info(ctx, "auth.logout.ok", "user_id", claims.UserID)
		return nil
	case errors.Is(err, errUnchanged), errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return fmt.Errorf("revoke refresh token: %w", err)
	}
}

// CleanupExpiredTokens removes the user's refresh tokens that expired at or
// before now and persists only when something was removed.
func (s *SessionService) CleanupExpiredTokens(ctx context.Context, userID string) (int, error) {
	now := s.now()
	removed := 0
	_, err := s.store.Update(ctx, userID, func(u *models.User) error {
		removed = u.PurgeExpiredRefreshTokens(now)
		if removed == 0 {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errUnchanged) {
			return 0, nil
		}
		return 0, err
	}
	return removed, nil
}

// CleanupAll runs CleanupExpiredTokens for every user holding an expired
// entry. Failures for one user do not stop the sweep.
func (s *SessionService) CleanupAll(ctx context.Context) (int, error) {
	ids, err := s.store.IDsWithExpiredTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list users with expired tokens: %w", err)
	}

	total := 0
	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		n, err := s.CleanupExpiredTokens(ctx, id)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "auth.cleanup.user_failed", "user_id", id, "error", err)
			errs = append(errs, err)
			continue
		}
		total += n
	}

	s.log.Info(ctx, "auth.cleanup.done", "users", len(ids), "removed", total)
	return total, errors.Join(errs...)
}
