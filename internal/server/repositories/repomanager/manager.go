package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/authcrud/internal/dbx"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/content"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/media"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/persons"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Persons(db dbx.DBTX) persons.Repository
	ContentTypes(db dbx.DBTX) content.TypeRepository
	ContentItems(db dbx.DBTX) content.ItemRepository
	Media(db dbx.DBTX) media.Repository
}
