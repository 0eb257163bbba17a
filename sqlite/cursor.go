package sqlite

import (
	"database/sql/driver"
	"io"
	"runtime"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Cursor wraps a native prepared statement running on the connection that
// created it, plus an end-of-results flag. A nil inner statement means the
// cursor was finalized and no further stepping is possible.
type Cursor struct {
	stmt  *sqlite3.SQLiteStmt
	rows  *sqlite3.SQLiteRows
	cols  []string
	decls []string
	eof   bool
}

// release frees the native statement, shared by explicit Finalize and the
// garbage-collector path.
func (c *Cursor) release() {
	if c.stmt != nil {
		c.rows.Close()
		c.stmt.Close()
		c.rows = nil
		c.stmt = nil
	}
}

func (c *Cursor) check() error {
	if c.stmt == nil {
		return ErrStatementClosed
	}
	return nil
}

// Next advances the cursor one step. At the end of the result set it sets
// the exhausted flag and returns (nil, nil); further calls keep returning
// nil rather than an error. A mid-stream engine failure is translated.
func (c *Cursor) Next() ([]any, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.eof {
		return nil, nil
	}
	dest := make([]driver.Value, len(c.cols))
	err := c.rows.Next(dest)
	if err == io.EOF {
		c.eof = true
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return decodeRow(dest, c.decls), nil
}

// Columns returns the result's column names in order.
func (c *Cursor) Columns() ([]string, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return append([]string(nil), c.cols...), nil
}

// More reports whether the cursor has not yet stepped past the last row.
// It stays true until the Next call that observes the end of the results.
func (c *Cursor) More() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	return !c.eof, nil
}

// Finalize releases the native statement and marks the cursor finalized.
// It is not idempotent from the caller's side: finalizing an already
// finalized cursor fails the closed check.
func (c *Cursor) Finalize() error {
	if err := c.check(); err != nil {
		return err
	}
	runtime.SetFinalizer(c, nil)
	c.release()
	return nil
}
