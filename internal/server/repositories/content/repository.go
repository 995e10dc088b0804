package content

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/server/models"
)

type TypeRepository interface {
	Create(ctx context.Context, t *models.ContentType) (*models.ContentType, error)
	FindByID(ctx context.Context, id string) (*models.ContentType, error)
	FindByName(ctx context.Context, name string) (*models.ContentType, error)
	List(ctx context.Context, limit, skip int) ([]*models.ContentType, error)
	Update(ctx context.Context, t *models.ContentType) (*models.ContentType, error)
	Delete(ctx context.Context, id string) error
}

// PublishedFilter narrows FindPublished. Empty fields match everything.
type PublishedFilter struct {
	Tag      string
	Category string
}

type ItemRepository interface {
	Create(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error)
	FindByID(ctx context.Context, id string) (*models.ContentItem, error)
	List(ctx context.Context, limit, skip int) ([]*models.ContentItem, error)
	Update(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error)
	Delete(ctx context.Context, id string) error
	FindByContentTypeID(ctx context.Context, typeID string) ([]*models.ContentItem, error)
	FindPublished(ctx context.Context, now time.Time, f PublishedFilter) ([]*models.ContentItem, error)
}
