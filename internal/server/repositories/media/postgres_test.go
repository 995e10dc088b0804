package media

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
)

const mediaID = "5b5d3c7a-2e11-4c59-b1a0-7f3e2d1c0b9a"

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_NullUploader(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+media\s*\(id,\s*file_name,\s*content_type,\s*storage_key,\s*uploaded_by\)`).
		WithArgs(sqlmock.AnyArg(), "a.png", "image/png", "media/a.png", nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	got, err := repo.Create(context.Background(), &models.Media{FileName: "a.png", ContentType: "image/png", StorageKey: "media/a.png"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected media: %+v", got)
	}
}

func TestFindByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)SELECT\s+id,\s*file_name,\s*content_type,\s*storage_key,\s*uploaded_by,\s*created_at\s+FROM\s+media\s+WHERE\s+id\s*=\s*\$1`
	mock.ExpectQuery(q).
		WithArgs(mediaID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "file_name", "content_type", "storage_key", "uploaded_by", "created_at"}).
			AddRow(mediaID, "a.png", "image/png", "media/a.png", nil, time.Now()))

	got, err := repo.FindByID(context.Background(), mediaID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.StorageKey != "media/a.png" || got.UploadedBy != "" {
		t.Fatalf("unexpected media: %+v", got)
	}

	mock.ExpectQuery(q).WithArgs(mediaID).WillReturnError(sql.ErrNoRows)
	if _, err := repo.FindByID(context.Background(), mediaID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)DELETE\s+FROM\s+media`).
		WithArgs(mediaID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), mediaID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
