// Package services contains server-side business logic: the session manager,
// the user and person CRUD services and the CMS content and media services.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authcrud/internal/server/models"
)

// UserStore is the slice of credentials.Store used for user CRUD.
type UserStore interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, u *models.User) (*models.User, error)
	Update(ctx context.Context, id string, fn func(u *models.User) error) (*models.User, error)
	List(ctx context.Context, limit, skip int) ([]*models.User, error)
	Delete(ctx context.Context, id string) error
}

// UserInput is a partial user record. Nil fields are left untouched on
// update; Name, Email and Password are required on create.
type UserInput struct {
	Name     *string
	Email    *string
	Password *string
	Phone    *string
	Role     *models.Role
	IsActive *bool
}

func (in UserInput) apply(u *models.User) {
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Password != nil {
		u.SetPassword(*in.Password)
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
}

// UserService is the generic CRUD surface over user records. Password writes
// go through the store, which hashes them.
type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	u := &models.User{Role: models.RoleUser, IsActive: true}
	in.apply(u)
	created, err := s.store.Create(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.store.FindUserByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, limit, skip int) ([]*models.User, error) {
	return s.store.List(ctx, limit, skip)
}

// Update applies in to the stored record. Refresh tokens are never touched
// here, so a concurrent login or logout is not lost.
func (s *UserService) Update(ctx context.Context, id string, in UserInput) (*models.User, error) {
	updated, err := s.store.Update(ctx, id, func(u *models.User) error {
		in.apply(u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
