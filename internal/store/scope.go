package store

import (
	"context"
	"database/sql"

	"github.com/lazypower/rapport/internal/apperr"
)

// Scope is the only way to read or write profiles and interactions. Every
// statement it issues binds the owner it was created for, so a missing
// filter can never expose another owner's rows.
type Scope struct {
	db    *DB
	owner string
}

// ForOwner returns a Scope bound to ownerID.
func (db *DB) ForOwner(ownerID string) *Scope {
	return &Scope{db: db, owner: ownerID}
}

func (s *Scope) check() error {
	if s.owner == "" {
		return apperr.Unauthorized("missing owner identity")
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
