package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/dbx"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/google/uuid"
)

const userColumns = `id, name, email, password_hash, phone, role, is_active, refresh_tokens, version, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var (
		u      models.User
		role   string
		tokens []byte
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &role, &u.IsActive,
		&tokens, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	if len(tokens) > 0 {
		if err := json.Unmarshal(tokens, &u.RefreshTokens); err != nil {
			return nil, fmt.Errorf("decode refresh tokens: %w", err)
		}
	}
	return &u, nil
}

func encodeTokens(tokens []models.RefreshToken) (string, error) {
	if tokens == nil {
		tokens = []models.RefreshToken{}
	}
	b, err := json.Marshal(tokens)
	if err != nil {
		return "", fmt.Errorf("encode refresh tokens: %w", err)
	}
	return string(b), nil
}

func mapWriteError(err error) error {
	if _, ok := dbx.IsUniqueViolation(err); ok {
		return common.ErrorAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	tokens, err := encodeTokens(user.RefreshTokens)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO users (id, name, email, password_hash, phone, role, is_active, refresh_tokens)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING version, created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Phone, string(user.Role), user.IsActive, tokens).
		Scan(&user.Version, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, mapWriteError(err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE email = lower($1)
		 `
	return r.findOne(ctx, query, email)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.findOne(ctx, query, id)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	tokens, err := encodeTokens(user.RefreshTokens)
	if err != nil {
		return nil, err
	}

	query :=
		`UPDATE users SET name = $2, email = $3, password_hash = $4, phone = $5, role = $6,
		        is_active = $7, refresh_tokens = $8, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $9
		 RETURNING version, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Phone, string(user.Role), user.IsActive, tokens, user.Version).
		Scan(&user.Version, &user.UpdatedAt)

	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapWriteError(err)
	}

	var exists bool
	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, user.ID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return nil, common.ErrorNotFound
	}
	return nil, common.ErrVersionConflict
}

func (r *PostgresRepository) List(ctx context.Context, limit, skip int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 ORDER BY created_at, id
		 LIMIT $1 OFFSET $2
		 `

	rows, err := r.db.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return common.ErrorNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.RowsAffectedOne(res)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users`)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) IDsWithExpiredTokens(ctx context.Context, now time.Time) ([]string, error) {
	query :=
		`SELECT id FROM users
		 WHERE EXISTS (
		     SELECT 1 FROM jsonb_array_elements(refresh_tokens) AS rt
		     WHERE (rt->>'expiresAt')::timestamptz <= $1
		 )
		 `

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}
