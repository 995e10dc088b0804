package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const testID = "6f1c2a0e-8d5b-4c8e-9a34-2f6b1d7e9c01"

var columns = []string{"id", "name", "email", "password_hash", "phone", "role", "is_active",
	"refresh_tokens", "version", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*name,\s*email,\s*password_hash,\s*phone,\s*role,\s*is_active,\s*refresh_tokens\)\s*VALUES\s*\(\$1,.*\$8\)\s*RETURNING\s+version,\s*created_at,\s*updated_at\s*$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs(sqlmock.AnyArg(), "Alice", "alice@example.com", "hash", "", "user", true, "[]").
		WillReturnRows(sqlmock.NewRows([]string{"version", "created_at", "updated_at"}).AddRow(int64(1), now, now))

	u := &models.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hash", Role: models.RoleUser, IsActive: true}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID == "" || got.Version != 1 {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{Email: "alice@example.com", Role: models.RoleUser})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want common.ErrorAlreadyExists, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "alice@example.com"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*name,.*FROM\s+users\s+WHERE\s+email\s*=\s*lower\(\$1\)\s*$`

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tokens := `[{"token":"rt-1","expiresAt":"2025-01-09T03:04:05Z"}]`
	mock.ExpectQuery(q).
		WithArgs("Alice@Example.com").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(testID, "Alice", "alice@example.com", "hash", "555", "admin", true, []byte(tokens), int64(3), now, now))

	got, err := repo.FindByEmail(context.Background(), "Alice@Example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if got.ID != testID || got.Role != models.RoleAdmin || got.Version != 3 {
		t.Fatalf("unexpected user: %+v", got)
	}
	if len(got.RefreshTokens) != 1 || got.RefreshTokens[0].Token != "rt-1" {
		t.Fatalf("unexpected refresh tokens: %+v", got.RefreshTokens)
	}
	if !got.RefreshTokens[0].ExpiresAt.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry: %v", got.RefreshTokens[0].ExpiresAt)
	}
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users\s+WHERE\s+email`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFindByID_MalformedIDSkipsQuery(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected query: %v", err)
	}
}

func TestFindByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(testID).
		WillReturnError(errors.New("db err"))

	_, err := repo.FindByID(context.Background(), testID)
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET.*version\s*=\s*version\s*\+\s*1.*WHERE\s+id\s*=\s*\$1\s+AND\s+version\s*=\s*\$9\s+RETURNING\s+version,\s*updated_at\s*$`

	exp := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q).
		WithArgs(testID, "Alice", "alice@example.com", "hash", "", "user", true,
			`[{"token":"rt-1","expiresAt":"2025-01-09T00:00:00Z"}]`, int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(int64(5), time.Now()))

	u := &models.User{ID: testID, Name: "Alice", Email: "alice@example.com", PasswordHash: "hash",
		Role: models.RoleUser, IsActive: true, Version: 4,
		RefreshTokens: []models.RefreshToken{{Token: "rt-1", ExpiresAt: exp}}}
	got, err := repo.Update(context.Background(), u)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.Version != 5 {
		t.Fatalf("version not bumped: %d", got.Version)
	}
}

func TestUpdate_VersionConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^UPDATE\s+users`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))
	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS`).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.Update(context.Background(), &models.User{ID: testID, Version: 1})
	if !errors.Is(err, common.ErrVersionConflict) {
		t.Fatalf("want common.ErrVersionConflict, got %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^UPDATE\s+users`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))
	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS`).
		WithArgs(testID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.Update(context.Background(), &models.User{ID: testID, Version: 1})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestList_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users\s+ORDER\s+BY\s+created_at,\s*id\s+LIMIT\s+\$1\s+OFFSET\s+\$2\s*$`).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(testID, "A", "a@example.com", "h", "", "user", true, []byte(`[]`), int64(1), now, now).
			AddRow("7a1c2a0e-8d5b-4c8e-9a34-2f6b1d7e9c02", "B", "b@example.com", "h", "", "admin", false, []byte(`[]`), int64(1), now, now))

	got, err := repo.List(context.Background(), 10, 20)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 2 || got[1].IsActive {
		t.Fatalf("unexpected list: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs(testID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Delete(context.Background(), testID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+users\s+WHERE\s+id`).
		WithArgs(testID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(context.Background(), testID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDeleteAll(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+users\s*$`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteAll(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("DeleteAll = %d, %v", n, err)
	}
}

func TestIDsWithExpiredTokens(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id\s+FROM\s+users\s+WHERE\s+EXISTS.*jsonb_array_elements\(refresh_tokens\).*<=\s*\$1`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1").AddRow("u-2"))

	ids, err := repo.IDsWithExpiredTokens(context.Background(), now)
	if err != nil {
		t.Fatalf("IDsWithExpiredTokens error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "u-1" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
