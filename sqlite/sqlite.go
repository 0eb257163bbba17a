package sqlite

import (
	"database/sql/driver"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync/atomic"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// anonCounter generates distinct synthetic names for anonymous in-memory
// databases so two nameless opens never collide on the same database.
// Incremented atomically, never reset.
var anonCounter atomic.Int64

var sqliteDriver = &sqlite3.SQLiteDriver{}

// Database wraps one native SQLite connection, held at the driver level so
// that every statement — including a live Cursor — runs on that same
// connection. A cursor left mid-stream therefore never blocks other
// operations on the database. A nil inner connection means the database has
// been closed; the wrapper stays a valid object of its kind but every
// operation on it fails with the closed condition.
type Database struct {
	conn *sqlite3.SQLiteConn
}

// dataSource builds the connection string for path, always requesting the
// engine's full mutex. An empty path names a fresh in-memory database under
// a synthesized unique name.
func dataSource(path string) string {
	if path == "" {
		// Shared-cache mode lets a future handle attach to the same
		// database; the unique name keeps anonymous opens apart.
		return fmt.Sprintf("file:litehost-anon-%d?mode=memory&cache=shared&_mutex=full",
			anonCounter.Add(1))
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "_mutex=full"
}

// Open opens the database at path, requesting create, read-write, URI
// interpretation and the engine's full mutex. An empty path opens a fresh
// in-memory database under a synthesized unique name.
//
// Note the wrapper itself is not thread-safe; concurrent use of one Database
// requires external serialization by the caller.
func Open(path string) (*Database, error) {
	conn, err := sqliteDriver.Open(dataSource(path))
	if err != nil {
		return nil, translate(err)
	}

	d := &Database{conn: conn.(*sqlite3.SQLiteConn)}
	runtime.SetFinalizer(d, (*Database).release)
	return d, nil
}

// release frees the native connection. It is the single release operation
// shared by explicit Close and the garbage-collector path, made idempotent
// by nil-ing the stored connection on first use.
func (d *Database) release() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

// Close releases the native connection immediately and marks the wrapper
// closed. It reports whether anything was released: a second close is a
// no-op returning false, while any other operation on a closed Database
// fails with the closed condition.
func (d *Database) Close() bool {
	if d.conn == nil {
		return false
	}
	runtime.SetFinalizer(d, nil)
	d.release()
	return true
}

// prepare compiles the first statement of the text on the live connection.
// The driver stops at the first statement boundary, so any further
// semicolon-separated statements never run.
func (d *Database) prepare(query string) (*sqlite3.SQLiteStmt, error) {
	if d.conn == nil {
		return nil, ErrDatabaseClosed
	}
	stmt, err := d.conn.Prepare(query)
	if err != nil {
		return nil, translate(err)
	}
	return stmt.(*sqlite3.SQLiteStmt), nil
}

// Execute runs query to completion and returns the connection's affected-row
// count. Parameters are converted before anything is prepared. Only the
// first statement in query is prepared and run; any further semicolon-
// separated statements are silently ignored.
func (d *Database) Execute(query string, params []any) (int64, error) {
	args, err := bindParams(params)
	if err != nil {
		return 0, err
	}
	stmt, err := d.prepare(query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	res, err := stmt.Exec(args)
	if err != nil {
		return 0, translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// query prepares the first statement of the text and starts execution.
// On success the caller owns both the statement and the row stream.
func (d *Database) query(query string, params []any) (*sqlite3.SQLiteStmt, *sqlite3.SQLiteRows, error) {
	args, err := bindParams(params)
	if err != nil {
		return nil, nil, err
	}
	stmt, err := d.prepare(query)
	if err != nil {
		return nil, nil, err
	}
	rows, err := stmt.Query(args)
	if err != nil {
		stmt.Close()
		return nil, nil, translate(err)
	}
	return stmt, rows.(*sqlite3.SQLiteRows), nil
}

// Select drains the query and returns every matching row decoded into guest
// values. The statement is finalized before returning on every path,
// including errors, so no native cursor can leak.
func (d *Database) Select(query string, params []any) ([][]any, error) {
	return d.drain(query, params, false)
}

// SelectFull is Select with a header row of column names prepended.
func (d *Database) SelectFull(query string, params []any) ([][]any, error) {
	return d.drain(query, params, true)
}

func (d *Database) drain(query string, params []any, header bool) ([][]any, error) {
	stmt, rows, err := d.query(query, params)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	defer rows.Close()

	cols := rows.Columns()
	decls := rows.DeclTypes()
	out := [][]any{}
	if header {
		hdr := make([]any, len(cols))
		for i, c := range cols {
			hdr[i] = c
		}
		out = append(out, hdr)
	}
	dest := make([]driver.Value, len(cols))
	for {
		err := rows.Next(dest)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, translate(err)
		}
		out = append(out, decodeRow(dest, decls))
	}
	return out, nil
}

// SelectSet prepares and starts the query but transfers step-by-step control
// to the caller through a live Cursor instead of draining it. The cursor
// runs on the database's own connection, so other statements stay usable
// while it is open.
func (d *Database) SelectSet(query string, params []any) (*Cursor, error) {
	stmt, rows, err := d.query(query, params)
	if err != nil {
		return nil, err
	}

	c := &Cursor{
		stmt:  stmt,
		rows:  rows,
		cols:  append([]string(nil), rows.Columns()...),
		decls: append([]string(nil), rows.DeclTypes()...),
	}
	runtime.SetFinalizer(c, (*Cursor).release)
	return c, nil
}

// Transaction control issues fixed literal statements and reports success or
// failure by boolean alone, never signaling for a native failure. Callers
// that need the failure detail must re-issue through Execute. Only the
// handle-state check can produce an error here.

// Begin starts a transaction.
func (d *Database) Begin() (bool, error) { return d.literal("begin") }

// Commit commits the current transaction.
func (d *Database) Commit() (bool, error) { return d.literal("commit") }

// Rollback rolls back the current transaction.
func (d *Database) Rollback() (bool, error) { return d.literal("rollback") }

// Pragma executes "PRAGMA " + text, reporting success by boolean like
// transaction control.
func (d *Database) Pragma(text string) (bool, error) {
	return d.literal("PRAGMA " + text)
}

func (d *Database) literal(query string) (bool, error) {
	if d.conn == nil {
		return false, ErrDatabaseClosed
	}
	stmt, err := d.conn.Prepare(query)
	if err != nil {
		return false, nil
	}
	defer stmt.Close()
	if _, err := stmt.(*sqlite3.SQLiteStmt).Exec(nil); err != nil {
		return false, nil
	}
	return true, nil
}
