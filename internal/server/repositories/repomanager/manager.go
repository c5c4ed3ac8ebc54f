package repomanager

import (
	"context"
	"database/sql"

	"github.com/copypaster/server/internal/dbx"
	"github.com/copypaster/server/internal/server/repositories/refreshtokens"
	"github.com/copypaster/server/internal/server/repositories/todos"
	"github.com/copypaster/server/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so a service can
// obtain the same repository against the pool or against a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Todos(db dbx.DBTX) todos.Repository
}
