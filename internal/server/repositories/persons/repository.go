package persons

import (
	"context"

	"github.com/dmitrijs2005/authcrud/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Person) (*models.Person, error)
	FindByID(ctx context.Context, id string) (*models.Person, error)
	List(ctx context.Context, limit, skip int) ([]*models.Person, error)
	Update(ctx context.Context, p *models.Person) (*models.Person, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}
