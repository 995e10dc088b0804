package persons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/dbx"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Person) (*models.Person, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO persons (id, full_name, dob, phone, photo)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	if _, err := r.db.ExecContext(ctx, query, p.ID, p.FullName, p.DOB, p.Phone, p.Photo); err != nil {
		if _, ok := dbx.IsUniqueViolation(err); ok {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Person, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}

	query :=
		`SELECT id, full_name, dob, phone, photo FROM persons
		 WHERE id = $1
		 `

	p := &models.Person{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.FullName, &p.DOB, &p.Phone, &p.Photo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, skip int) ([]*models.Person, error) {
	query :=
		`SELECT id, full_name, dob, phone, photo FROM persons
		 ORDER BY created_at, id
		 LIMIT $1 OFFSET $2
		 `

	rows, err := r.db.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Person, 0)
	for rows.Next() {
		p := &models.Person{}
		if err := rows.Scan(&p.ID, &p.FullName, &p.DOB, &p.Phone, &p.Photo); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Person) (*models.Person, error) {
	if uuid.Validate(p.ID) != nil {
		return nil, common.ErrorNotFound
	}

	query :=
		`UPDATE persons SET full_name = $2, dob = $3, phone = $4, photo = $5
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, p.ID, p.FullName, p.DOB, p.Phone, p.Photo)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.RowsAffectedOne(res)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return nil, common.ErrorNotFound
	}

	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return common.ErrorNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, id)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM persons`)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
