// Package credentials is the single write boundary for user records. Every
// staged password passes through the bcrypt transform here before it reaches
// the database, and every write is guarded by the record version.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/cryptox"
	"github.com/dmitrijs2005/authcrud/internal/logging"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/users"
)

const (
	MinPasswordLength = 8
	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72
	// DefaultUpdateAttempts bounds the reload-and-reapply loop in Update.
	DefaultUpdateAttempts = 5
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Store struct {
	users    users.Repository
	hasher   *cryptox.PasswordHasher
	log      logging.Logger
	attempts int
}

func NewStore(repo users.Repository, hasher *cryptox.PasswordHasher, log logging.Logger) *Store {
	return &Store{
		users:    repo,
		hasher:   hasher,
		log:      log.With("module", "credentials"),
		attempts: DefaultUpdateAttempts,
	}
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.FindByEmail(ctx, NormalizeEmail(email))
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *Store) List(ctx context.Context, limit, skip int) ([]*models.User, error) {
	return s.users.List(ctx, limit, skip)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	return s.users.DeleteAll(ctx)
}

func (s *Store) IDsWithExpiredTokens(ctx context.Context, now time.Time) ([]string, error) {
	return s.users.IDsWithExpiredTokens(ctx, now)
}

func (s *Store) HashPassword(plain string) (string, error) {
	return s.hasher.Hash(plain)
}

func (s *Store) ComparePassword(plain, hash string) bool {
	return s.hasher.Compare(plain, hash)
}

// Create validates u, hashes its staged password and inserts it. A password
// must be staged.
func (s *Store) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if _, ok := u.PendingPassword(); !ok {
		return nil, common.NewValidationError("password", "password is required")
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if err := s.prepare(u); err != nil {
		return nil, err
	}
	return s.users.Create(ctx, u)
}

// Persist writes back every mutable field of u. The write succeeds only when
// u.Version still matches the stored version; otherwise it fails with
// common.ErrVersionConflict. The hash is replaced only when a new password is
// staged.
func (s *Store) Persist(ctx context.Context, u *models.User) (*models.User, error) {
	if err := s.prepare(u); err != nil {
		return nil, err
	}
	return s.users.Update(ctx, u)
}

// Update loads the user, applies fn and persists the result. On a version
// conflict the record is reloaded and fn applied again, so fn must be safe to
// run more than once. An error from fn aborts without writing.
func (s *Store) Update(ctx context.Context, id string, fn func(u *models.User) error) (*models.User, error) {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		u, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(u); err != nil {
			return nil, err
		}

		saved, err := s.Persist(ctx, u)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, common.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
		s.log.Debug(ctx, "credentials.update.retry", "user_id", id, "attempt", attempt)
	}
	return nil, fmt.Errorf("update user %s: %w", id, lastErr)
}

func (s *Store) prepare(u *models.User) error {
	u.Email = NormalizeEmail(u.Email)
	u.Name = strings.TrimSpace(u.Name)

	if u.Name == "" {
		return common.NewValidationError("name", "name is required")
	}
	if !emailPattern.MatchString(u.Email) {
		return common.NewValidationError("email", "please enter a valid email")
	}
	if !u.Role.Valid() {
		return common.NewValidationError("role", "role must be one of user, admin")
	}

	plain, ok := u.PendingPassword()
	if !ok {
		return nil
	}
	if len(plain) < MinPasswordLength {
		return common.NewValidationError("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(plain) > MaxPasswordLength {
		return common.NewValidationError("password", fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength))
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.CommitPassword(hash)
	return nil
}
