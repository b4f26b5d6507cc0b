package library

import (
	"database/sql"
	"fmt"
)

// querier abstracts *sql.DB and *sql.Tx for shared query logic.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

// Store provides access to the media_metadata table.
type Store struct {
	db *sql.DB
}

// NewStore creates a new library store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Begin starts a transaction.
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx wraps a database transaction with the same methods as Store.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Savepoint opens a named savepoint inside the transaction.
func (t *Tx) Savepoint(name string) error {
	if _, err := t.tx.Exec("SAVEPOINT " + quoteIdent(name)); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	return nil
}

// RollbackTo undoes everything since the named savepoint and releases it.
func (t *Tx) RollbackTo(name string) error {
	if _, err := t.tx.Exec("ROLLBACK TO SAVEPOINT " + quoteIdent(name)); err != nil {
		return fmt.Errorf("rollback to %s: %w", name, err)
	}
	return t.Release(name)
}

// Release keeps the work done since the named savepoint.
func (t *Tx) Release(name string) error {
	if _, err := t.tx.Exec("RELEASE SAVEPOINT " + quoteIdent(name)); err != nil {
		return fmt.Errorf("release %s: %w", name, err)
	}
	return nil
}

func quoteIdent(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, name[i])
	}
	return string(append(out, '"'))
}
