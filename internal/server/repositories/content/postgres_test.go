package content

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	typeID = "3d0a4c55-6b2e-4f7a-9f3e-5c1d2b3a4e01"
	itemID = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

var itemCols = []string{"id", "title", "slug", "status", "author_id", "published_at", "content_type_id",
	"visibility", "sort_order", "content", "excerpt", "categories", "tags", "media_relations", "settings",
	"created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestTypeCreate_DuplicateName(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresTypeRepository(db)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+content_types`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "content_types_name_key"})

	_, err := repo.Create(context.Background(), &models.ContentType{Name: "article"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestTypeFindByName(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresTypeRepository(db)

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*name,.*FROM\s+content_types\s+WHERE\s+name\s*=\s*\$1`).
		WithArgs("article").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "default_template",
			"supports_comments", "supports_sticky", "created_at"}).
			AddRow(typeID, "article", "", "default", true, false, time.Now()))

	got, err := repo.FindByName(context.Background(), "article")
	require.NoError(t, err)
	assert.Equal(t, typeID, got.ID)
	assert.True(t, got.SupportsComments)

	mock.ExpectQuery(`(?s)FROM\s+content_types\s+WHERE\s+name`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByName(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTypeDelete_InUse(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresTypeRepository(db)

	mock.ExpectExec(`(?s)DELETE\s+FROM\s+content_types\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(typeID).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := repo.Delete(context.Background(), typeID)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestItemCreate_EncodesJSONColumns(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresItemRepository(db)

	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+content_items.*RETURNING\s+created_at,\s*updated_at`).
		WithArgs(sqlmock.AnyArg(), "Hello", "hello", "draft", nil, nil, typeID, "public", 0, "", "",
			`["news"]`, `[]`, `[{"media":"m1","relationshipType":"featured","sortOrder":1}]`, `{}`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	item := &models.ContentItem{
		Title: "Hello", Slug: "hello", Status: models.StatusDraft, ContentTypeID: typeID,
		Visibility: models.VisibilityPublic, Categories: []string{"news"},
		MediaRelations: []models.MediaRelation{{MediaID: "m1", RelationshipType: models.RelationFeatured, SortOrder: 1}},
	}
	got, err := repo.Create(context.Background(), item)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemCreate_UnknownType(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresItemRepository(db)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+content_items`).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := repo.Create(context.Background(), &models.ContentItem{Title: "x", ContentTypeID: typeID})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestItemFindByID_DecodesJSONColumns(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresItemRepository(db)

	pub := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT\s+id,\s*title,.*FROM\s+content_items\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(itemID).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(
			itemID, "Hello", "hello", "published", nil, pub, typeID, "public", 2, "body", "ex",
			[]byte(`["news"]`), []byte(`["go","db"]`),
			[]byte(`[{"media":"m1","relationshipType":"gallery","sortOrder":3}]`),
			[]byte(`{"layout":"wide"}`), pub, pub))

	got, err := repo.FindByID(context.Background(), itemID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, got.Status)
	assert.Empty(t, got.AuthorID)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, got.PublishedAt.Equal(pub))
	assert.Equal(t, []string{"go", "db"}, got.Tags)
	assert.Equal(t, models.RelationGallery, got.MediaRelations[0].RelationshipType)
	assert.Equal(t, "wide", got.Settings["layout"])
}

func TestItemFindPublished_Filters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresItemRepository(db)
	now := time.Now()

	mock.ExpectQuery(`(?s)WHERE\s+status\s*=\s*'published'\s+AND\s+visibility\s*=\s*'public'\s+AND\s+published_at\s*<=\s*\$1\s+AND\s+tags\s+\?\s+\$2\s+AND\s+categories\s+\?\s+\$3\s+ORDER\s+BY\s+published_at\s+DESC`).
		WithArgs(now, "go", "news").
		WillReturnRows(sqlmock.NewRows(itemCols))

	got, err := repo.FindPublished(context.Background(), now, PublishedFilter{Tag: "go", Category: "news"})
	require.NoError(t, err)
	assert.Empty(t, got)

	mock.ExpectQuery(`(?s)published_at\s*<=\s*\$1\s+AND\s+categories\s+\?\s+\$2\s+ORDER`).
		WithArgs(now, "news").
		WillReturnRows(sqlmock.NewRows(itemCols))

	_, err = repo.FindPublished(context.Background(), now, PublishedFilter{Category: "news"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemUpdate_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresItemRepository(db)

	mock.ExpectQuery(`(?s)UPDATE\s+content_items`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))

	_, err := repo.Update(context.Background(), &models.ContentItem{ID: itemID})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestItemFindByContentTypeID_DBError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresItemRepository(db)

	mock.ExpectQuery(`(?s)FROM\s+content_items\s+WHERE\s+content_type_id\s*=\s*\$1`).
		WithArgs(typeID).
		WillReturnError(errors.New("boom"))

	_, err := repo.FindByContentTypeID(context.Background(), typeID)
	assert.ErrorContains(t, err, "db error: boom")
}
