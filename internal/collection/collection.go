// Package collection adapts a legacy-layout Anki2 SQLite file into the
// operations ki's sync engine needs: note CRUD, notetype lookup/add/
// change, deck tree enumeration, and media add/have/dir. It is the Go
// equivalent of the "collection-opening library" spec.md treats as an
// external collaborator — there is no Go package for the real Anki
// database, so this package speaks the on-disk format directly.
//
// Modeled on the teacher's internal/core.Engine: one *sql.DB opened with
// modernc.org/sqlite, a schema applied at Open, and thin Exec/Query/
// QueryRow wrappers — generalized here to hold a single exclusive
// connection for the lifetime of the Collection, per spec.md §4.1's
// locking contract.
package collection

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pwintz/ki/internal/kitypes"
)

// lockTimeout is the budget for acquiring the collection's exclusive
// transaction before giving up with a SQLiteLockError, per spec.md §4.1.
const lockTimeout = 100 * time.Millisecond

// Collection is an open handle on a collection file. Every operation
// runs inside the single exclusive transaction acquired at Open; Close
// commits or rolls it back.
type Collection struct {
	path     string
	mediaDir string

	db   *sql.DB
	conn *sql.Conn
	ctx  context.Context
}

// Path returns the collection file path this handle was opened from.
func (c *Collection) Path() string { return c.path }

// MediaDirFor returns the media directory for the collection file at
// colPath, its sibling <stem>.media/, exactly as Anki's MediaManager.dir().
func MediaDirFor(colPath string) string {
	stem := strings.TrimSuffix(colPath, filepath.Ext(colPath))
	return stem + ".media"
}

// Open acquires an exclusive lock on path (creating the file and schema
// if it doesn't exist) and returns a Collection. Fails with
// SQLiteLockError if the exclusive transaction cannot be started within
// lockTimeout — the collection is open elsewhere (e.g. the Anki desktop
// client).
func Open(path string) (*Collection, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(100)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, &kitypes.SQLiteLockError{Path: path, Err: err}
	}

	if _, err := conn.ExecContext(ctx, "BEGIN EXCLUSIVE"); err != nil {
		conn.Close()
		db.Close()
		return nil, &kitypes.SQLiteLockError{Path: path, Err: err}
	}

	c := &Collection{
		path:     path,
		mediaDir: MediaDirFor(path),
		db:       db,
		conn:     conn,
		ctx:      context.Background(),
	}

	if _, err := conn.ExecContext(c.ctx, schema); err != nil {
		c.Close(false)
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return c, nil
}

// Close commits the held transaction if save is true, otherwise rolls it
// back, and releases the connection. Mirrors the original's col.close().
func (c *Collection) Close(save bool) error {
	var err error
	if save {
		_, err = c.conn.ExecContext(c.ctx, "COMMIT")
	} else {
		_, err = c.conn.ExecContext(c.ctx, "ROLLBACK")
	}
	c.conn.Close()
	c.db.Close()
	return err
}

// Exec runs a write query against the held connection.
func (c *Collection) Exec(query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(c.ctx, query, args...)
}

// Query runs a read query against the held connection.
func (c *Collection) Query(query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(c.ctx, query, args...)
}

// QueryRow runs a single-row read query against the held connection.
func (c *Collection) QueryRow(query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(c.ctx, query, args...)
}

// List runs a query expected to return a single integer column per row,
// e.g. "select distinct mid from notes where id in (...)". Mirrors the
// original's col.db.list().
func (c *Collection) List(query string, args ...any) ([]int64, error) {
	rows, err := c.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AfterNoteUpdates is a no-op marker kept for parity with the shape of
// the wrapped API; this implementation recomputes field health
// synchronously (see CheckFieldsHealth) so there is nothing to defer.
func (c *Collection) AfterNoteUpdates(nids []int64, markModified bool) error {
	return nil
}
