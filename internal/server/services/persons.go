package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/repomanager"
)

type PersonService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewPersonService(db *sql.DB, repomanager repomanager.RepositoryManager) *PersonService {
	return &PersonService{
		db:          db,
		repomanager: repomanager,
	}
}

func validatePerson(p *models.Person) error {
	p.FullName = strings.TrimSpace(p.FullName)
	switch {
	case p.FullName == "":
		return common.NewValidationError("full_name", "full name is required")
	case p.DOB.IsZero():
		return common.NewValidationError("dob", "date of birth is required")
	case strings.TrimSpace(p.Phone) == "":
		return common.NewValidationError("phone", "phone is required")
	case strings.TrimSpace(p.Photo) == "":
		return common.NewValidationError("photo", "photo is required")
	}
	return nil
}

func (s *PersonService) Create(ctx context.Context, p *models.Person) (*models.Person, error) {
	if err := validatePerson(p); err != nil {
		return nil, err
	}
	created, err := s.repomanager.Persons(s.db).Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create person: %w", err)
	}
	return created, nil
}

func (s *PersonService) Get(ctx context.Context, id string) (*models.Person, error) {
	return s.repomanager.Persons(s.db).FindByID(ctx, id)
}

func (s *PersonService) List(ctx context.Context, limit, skip int) ([]*models.Person, error) {
	return s.repomanager.Persons(s.db).List(ctx, limit, skip)
}

// Update replaces every field of the person with id.
func (s *PersonService) Update(ctx context.Context, id string, p *models.Person) (*models.Person, error) {
	p.ID = id
	if err := validatePerson(p); err != nil {
		return nil, err
	}
	updated, err := s.repomanager.Persons(s.db).Update(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("update person: %w", err)
	}
	return updated, nil
}

func (s *PersonService) Delete(ctx context.Context, id string) error {
	return s.repomanager.Persons(s.db).Delete(ctx, id)
}
