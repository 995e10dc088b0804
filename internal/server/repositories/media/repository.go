package media

import (
	"context"

	"github.com/dmitrijs2005/authcrud/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Media) (*models.Media, error)
	FindByID(ctx context.Context, id string) (*models.Media, error)
	Delete(ctx context.Context, id string) error
}
