package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/content"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/repomanager"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultTemplate      = "default"
	contentTypeCacheSize = 128
)

// ContentTypeInput is a partial content type; nil fields keep their value on
// update and take the defaults on create.
type ContentTypeInput struct {
	Name             *string
	Description      *string
	DefaultTemplate  *string
	SupportsComments *bool
	SupportsSticky   *bool
}

func (in ContentTypeInput) apply(t *models.ContentType) {
	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.DefaultTemplate != nil {
		t.DefaultTemplate = *in.DefaultTemplate
	}
	if in.SupportsComments != nil {
		t.SupportsComments = *in.SupportsComments
	}
	if in.SupportsSticky != nil {
		t.SupportsSticky = *in.SupportsSticky
	}
}

// ContentItemInput is a partial content item with the same nil semantics.
type ContentItemInput struct {
	Title          *string
	Slug           *string
	Status         *models.ContentStatus
	AuthorID       *string
	PublishedAt    *time.Time
	ContentTypeID  *string
	Visibility     *models.Visibility
	SortOrder      *int
	Content        *string
	Excerpt        *string
	Categories     []string
	Tags           []string
	MediaRelations []models.MediaRelation
	Settings       map[string]any
}

func (in ContentItemInput) apply(item *models.ContentItem) {
	if in.Title != nil {
		item.Title = strings.TrimSpace(*in.Title)
	}
	if in.Slug != nil {
		item.Slug = *in.Slug
	}
	if in.Status != nil {
		item.Status = *in.Status
	}
	if in.AuthorID != nil {
		item.AuthorID = *in.AuthorID
	}
	if in.PublishedAt != nil {
		item.PublishedAt = in.PublishedAt
	}
	if in.ContentTypeID != nil {
		item.ContentTypeID = *in.ContentTypeID
	}
	if in.Visibility != nil {
		item.Visibility = *in.Visibility
	}
	if in.SortOrder != nil {
		item.SortOrder = *in.SortOrder
	}
	if in.Content != nil {
		item.Content = *in.Content
	}
	if in.Excerpt != nil {
		item.Excerpt = *in.Excerpt
	}
	if in.Categories != nil {
		item.Categories = in.Categories
	}
	if in.Tags != nil {
		item.Tags = in.Tags
	}
	if in.MediaRelations != nil {
		item.MediaRelations = in.MediaRelations
	}
	if in.Settings != nil {
		item.Settings = in.Settings
	}
}

// ContentService runs the CMS: content types, content items and the media
// relations of items. Type names are resolved through a small LRU cache.
type ContentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	typeIDs     *lru.Cache[string, string]
	now         func() time.Time
}

func NewContentService(db *sql.DB, repomanager repomanager.RepositoryManager) (*ContentService, error) {
	cache, err := lru.New[string, string](contentTypeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("content type cache: %w", err)
	}
	return &ContentService{
		db:          db,
		repomanager: repomanager,
		typeIDs:     cache,
		now:         time.Now,
	}, nil
}

func validateType(t *models.ContentType) error {
	if t.Name == "" {
		return common.NewValidationError("name", "name is required")
	}
	return nil
}

func (s *ContentService) CreateType(ctx context.Context, in ContentTypeInput) (*models.ContentType, error) {
	t := &models.ContentType{DefaultTemplate: DefaultTemplate, SupportsComments: true}
	in.apply(t)
	if err := validateType(t); err != nil {
		return nil, err
	}
	created, err := s.repomanager.ContentTypes(s.db).Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create content type: %w", err)
	}
	return created, nil
}

func (s *ContentService) GetType(ctx context.Context, id string) (*models.ContentType, error) {
	return s.repomanager.ContentTypes(s.db).FindByID(ctx, id)
}

func (s *ContentService) ListTypes(ctx context.Context, limit, skip int) ([]*models.ContentType, error) {
	return s.repomanager.ContentTypes(s.db).List(ctx, limit, skip)
}

func (s *ContentService) UpdateType(ctx context.Context, id string, in ContentTypeInput) (*models.ContentType, error) {
	repo := s.repomanager.ContentTypes(s.db)
	t, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldName := t.Name
	in.apply(t)
	if err := validateType(t); err != nil {
		return nil, err
	}
	updated, err := repo.Update(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("update content type: %w", err)
	}
	s.typeIDs.Remove(oldName)
	return updated, nil
}

func (s *ContentService) DeleteType(ctx context.Context, id string) error {
	repo := s.repomanager.ContentTypes(s.db)
	t, err := repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		return err
	}
	s.typeIDs.Remove(t.Name)
	return nil
}

func (s *ContentService) validateItem(item *models.ContentItem) error {
	switch {
	case item.Title == "":
		return common.NewValidationError("title", "title is required")
	case item.ContentTypeID == "":
		return common.NewValidationError("contentType", "content type is required")
	case !slices.Contains([]models.ContentStatus{models.StatusDraft, models.StatusPublished, models.StatusArchived}, item.Status):
		return common.NewValidationError("status", "status must be one of draft, published, archived")
	case !slices.Contains([]models.Visibility{models.VisibilityPublic, models.VisibilityPrivate, models.VisibilityPasswordProtected}, item.Visibility):
		return common.NewValidationError("visibility", "visibility must be one of public, private, password_protected")
	}
	for _, rel := range item.MediaRelations {
		if err := validateRelationship(rel.RelationshipType); err != nil {
			return err
		}
	}
	if item.Status == models.StatusPublished && item.PublishedAt == nil {
		now := s.now()
		item.PublishedAt = &now
	}
	return nil
}

func validateRelationship(rt models.RelationshipType) error {
	switch rt {
	case models.RelationFeatured, models.RelationGallery, models.RelationAttachment:
		return nil
	}
	return common.NewValidationError("relationshipType", "relationship type must be one of featured, gallery, attachment")
}

// CreateItem stores a new item authored by authorID. Items default to draft
// and public; publishing without a publish time stamps the current time.
func (s *ContentService) CreateItem(ctx context.Context, authorID string, in ContentItemInput) (*models.ContentItem, error) {
	item := &models.ContentItem{
		Status:     models.StatusDraft,
		Visibility: models.VisibilityPublic,
		AuthorID:   authorID,
	}
	in.apply(item)
	if err := s.validateItem(item); err != nil {
		return nil, err
	}
	created, err := s.repomanager.ContentItems(s.db).Create(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("create content item: %w", err)
	}
	return created, nil
}

func (s *ContentService) GetItem(ctx context.Context, id string) (*models.ContentItem, error) {
	return s.repomanager.ContentItems(s.db).FindByID(ctx, id)
}

func (s *ContentService) ListItems(ctx context.Context, limit, skip int) ([]*models.ContentItem, error) {
	return s.repomanager.ContentItems(s.db).List(ctx, limit, skip)
}

func (s *ContentService) UpdateItem(ctx context.Context, id string, in ContentItemInput) (*models.ContentItem, error) {
	return s.mutateItem(ctx, id, func(item *models.ContentItem) error {
		in.apply(item)
		return s.validateItem(item)
	})
}

func (s *ContentService) DeleteItem(ctx context.Context, id string) error {
	return s.repomanager.ContentItems(s.db).Delete(ctx, id)
}

func (s *ContentService) mutateItem(ctx context.Context, id string, fn func(item *models.ContentItem) error) (*models.ContentItem, error) {
	repo := s.repomanager.ContentItems(s.db)
	item, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(item); err != nil {
		return nil, err
	}
	updated, err := repo.Update(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("update content item: %w", err)
	}
	return updated, nil
}

// ByTypeName lists the items of the named type. An unknown type yields an
// empty list.
func (s *ContentService) ByTypeName(ctx context.Context, name string) ([]*models.ContentItem, error) {
	typeID, ok := s.typeIDs.Get(name)
	if !ok {
		t, err := s.repomanager.ContentTypes(s.db).FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return []*models.ContentItem{}, nil
			}
			return nil, err
		}
		typeID = t.ID
		s.typeIDs.Add(name, typeID)
	}
	return s.repomanager.ContentItems(s.db).FindByContentTypeID(ctx, typeID)
}

// Published lists public, published items whose publish time has passed.
func (s *ContentService) Published(ctx context.Context, f content.PublishedFilter) ([]*models.ContentItem, error) {
	return s.repomanager.ContentItems(s.db).FindPublished(ctx, s.now(), f)
}

// AddMedia attaches mediaID to the item. An existing relation with the same
// media and relationship type only gets its sort order updated.
func (s *ContentService) AddMedia(ctx context.Context, id, mediaID string, rt models.RelationshipType, sortOrder int) (*models.ContentItem, error) {
	if mediaID == "" {
		return nil, common.NewValidationError("mediaId", "media id is required")
	}
	if err := validateRelationship(rt); err != nil {
		return nil, err
	}
	if _, err := s.repomanager.Media(s.db).FindByID(ctx, mediaID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewValidationError("mediaId", "unknown media")
		}
		return nil, err
	}

	return s.mutateItem(ctx, id, func(item *models.ContentItem) error {
		i := slices.IndexFunc(item.MediaRelations, func(r models.MediaRelation) bool {
			return r.MediaID == mediaID && r.RelationshipType == rt
		})
		if i >= 0 {
			item.MediaRelations[i].SortOrder = sortOrder
			return nil
		}
		item.MediaRelations = append(item.MediaRelations, models.MediaRelation{
			MediaID:          mediaID,
			RelationshipType: rt,
			SortOrder:        sortOrder,
		})
		return nil
	})
}

// RemoveMedia drops the relations to mediaID, only those of type rt when rt
// is set.
func (s *ContentService) RemoveMedia(ctx context.Context, id, mediaID string, rt models.RelationshipType) (*models.ContentItem, error) {
	return s.mutateItem(ctx, id, func(item *models.ContentItem) error {
		item.MediaRelations = slices.DeleteFunc(item.MediaRelations, func(r models.MediaRelation) bool {
			return r.MediaID == mediaID && (rt == "" || r.RelationshipType == rt)
		})
		return nil
	})
}

// UpdateSettings merges settings into the item's settings map.
func (s *ContentService) UpdateSettings(ctx context.Context, id string, settings map[string]any) (*models.ContentItem, error) {
	return s.mutateItem(ctx, id, func(item *models.ContentItem) error {
		if item.Settings == nil {
			item.Settings = make(map[string]any, len(settings))
		}
		maps.Copy(item.Settings, settings)
		return nil
	})
}
