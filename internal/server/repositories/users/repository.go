package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// Update writes every mutable column when the stored version still equals
	// user.Version and bumps it. A stale version yields common.ErrVersionConflict.
	Update(ctx context.Context, user *models.User) (*models.User, error)
	List(ctx context.Context, limit, skip int) ([]*models.User, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	// IDsWithExpiredTokens lists users holding at least one refresh-token
	// entry that expired at or before now.
	IDsWithExpiredTokens(ctx context.Context, now time.Time) ([]string, error)
}
