package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophident/internal/dbx"
	"github.com/dmitrijs2005/gophident/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or an open
// transaction, and owns the schema.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
