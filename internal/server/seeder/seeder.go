// Package seeder loads the development fixtures into the database and
// removes them again. User passwords go through the credential store, so
// seeded users can log in like any other.
package seeder

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/cryptox"
	"github.com/dmitrijs2005/authcrud/internal/dbx"
	"github.com/dmitrijs2005/authcrud/internal/logging"
	"github.com/dmitrijs2005/authcrud/internal/server/credentials"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/repomanager"
	"gopkg.in/yaml.v3"
)

const (
	CollectionUsers   = "users"
	CollectionPersons = "persons"
)

//go:embed seed.yaml
var defaultSeed []byte

type UserSeed struct {
	Name     string      `yaml:"name"`
	Email    string      `yaml:"email"`
	Password string      `yaml:"password"`
	Phone    string      `yaml:"phone"`
	Role     models.Role `yaml:"role"`
	IsActive bool        `yaml:"isActive"`
}

type PersonSeed struct {
	FullName string    `yaml:"full_name"`
	DOB      time.Time `yaml:"dob"`
	Phone    string    `yaml:"phone"`
	Photo    string    `yaml:"photo"`
}

// Data is the content of a seed file.
type Data struct {
	Users   []UserSeed   `yaml:"users"`
	Persons []PersonSeed `yaml:"persons"`
}

// Parse decodes a seed file.
func Parse(b []byte) (*Data, error) {
	d := &Data{}
	if err := yaml.Unmarshal(b, d); err != nil {
		return nil, fmt.Errorf("parse seed data: %w", err)
	}
	return d, nil
}

// Default returns the embedded fixtures.
func Default() (*Data, error) {
	return Parse(defaultSeed)
}

// SetAdminPassword replaces the password of every admin fixture.
func (d *Data) SetAdminPassword(password string) {
	for i := range d.Users {
		if d.Users[i].Role == models.RoleAdmin {
			d.Users[i].Password = password
		}
	}
}

// ValidCollection reports whether name is "", users or persons.
func ValidCollection(name string) bool {
	return name == "" || name == CollectionUsers || name == CollectionPersons
}

type Seeder struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *cryptox.PasswordHasher
	log         logging.Logger
}

func New(db *sql.DB, rm repomanager.RepositoryManager, hasher *cryptox.PasswordHasher, log logging.Logger) *Seeder {
	return &Seeder{
		db:          db,
		repomanager: rm,
		hasher:      hasher,
		log:         log.With("module", "seeder"),
	}
}

func wants(collection, name string) bool {
	return collection == "" || collection == name
}

// Import replaces the contents of collection ("" for all) with d. Each
// collection is replaced in its own transaction.
func (s *Seeder) Import(ctx context.Context, collection string, d *Data) error {
	if !ValidCollection(collection) {
		return fmt.Errorf("unknown collection %q", collection)
	}
	if wants(collection, CollectionUsers) {
		if err := s.importUsers(ctx, d.Users); err != nil {
			return err
		}
	}
	if wants(collection, CollectionPersons) {
		if err := s.importPersons(ctx, d.Persons); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes every record of collection ("" for all).
func (s *Seeder) Delete(ctx context.Context, collection string) error {
	if !ValidCollection(collection) {
		return fmt.Errorf("unknown collection %q", collection)
	}
	if wants(collection, CollectionUsers) {
		n, err := s.store(s.db).DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("delete users: %w", err)
		}
		s.log.Info(ctx, "seeder.delete", "collection", CollectionUsers, "count", n)
	}
	if wants(collection, CollectionPersons) {
		n, err := s.repomanager.Persons(s.db).DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("delete persons: %w", err)
		}
		s.log.Info(ctx, "seeder.delete", "collection", CollectionPersons, "count", n)
	}
	return nil
}

func (s *Seeder) store(db dbx.DBTX) *credentials.Store {
	return credentials.NewStore(s.repomanager.Users(db), s.hasher, s.log)
}

func (s *Seeder) importUsers(ctx context.Context, seeds []UserSeed) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		store := s.store(tx)
		if _, err := store.DeleteAll(ctx); err != nil {
			return err
		}
		for _, us := range seeds {
			u := &models.User{
				Name:     us.Name,
				Email:    us.Email,
				Phone:    us.Phone,
				Role:     us.Role,
				IsActive: us.IsActive,
			}
			u.SetPassword(us.Password)
			if _, err := store.Create(ctx, u); err != nil {
				return fmt.Errorf("user %s: %w", us.Email, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	s.log.Info(ctx, "seeder.import", "collection", CollectionUsers, "count", len(seeds))
	return nil
}

func (s *Seeder) importPersons(ctx context.Context, seeds []PersonSeed) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Persons(tx)
		if _, err := repo.DeleteAll(ctx); err != nil {
			return err
		}
		for _, ps := range seeds {
			p := &models.Person{FullName: ps.FullName, DOB: ps.DOB, Phone: ps.Phone, Photo: ps.Photo}
			if _, err := repo.Create(ctx, p); err != nil {
				return fmt.Errorf("person %s: %w", ps.FullName, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed persons: %w", err)
	}
	s.log.Info(ctx, "seeder.import", "collection", CollectionPersons, "count", len(seeds))
	return nil
}
