// Package guest is the client half a WASM guest links against to drive the
// host's SQLite binding. Calls are marshalled into the proto envelope and
// sent through CallHost, which the wasip1 build wires to the litehost_call
// host function. Native builds can point CallHost at an in-process host for
// testing.
package guest

import (
	"encoding/json"
	"fmt"

	"github.com/litehost/litehost/proto"
)

// CallHost transports one request payload to the host and returns the raw
// response payload. It must be set before any database operations.
var CallHost func(requestPayload []byte) (responsePayload []byte, err error)

// SetHostHandler sets the transport used to reach the host.
func SetHostHandler(handler func(requestPayload []byte) (responsePayload []byte, err error)) {
	CallHost = handler
}

// HostError is a condition signaled by the host, carrying the kind the host
// classified it as and the engine's message.
type HostError struct {
	Kind    string
	Message string
}

func (e *HostError) Error() string { return e.Message }

// IsLocked reports whether err is the retryable locked/busy condition.
func IsLocked(err error) bool {
	herr, ok := err.(*HostError)
	return ok && herr.Kind == "locked"
}

func call(op string, args ...any) (any, error) {
	if CallHost == nil {
		return nil, fmt.Errorf("guest: CallHost is not set")
	}
	rawArgs, err := proto.EncodeArgs(args)
	if err != nil {
		return nil, fmt.Errorf("guest: failed to encode %s request: %w", op, err)
	}
	payload, err := json.Marshal(proto.Request{Op: op, Args: rawArgs})
	if err != nil {
		return nil, fmt.Errorf("guest: failed to marshal %s request: %w", op, err)
	}

	respPayload, err := CallHost(payload)
	if err != nil {
		return nil, fmt.Errorf("guest: CallHost for %s failed: %w", op, err)
	}

	var resp proto.Response
	if err := json.Unmarshal(respPayload, &resp); err != nil {
		return nil, fmt.Errorf("guest: failed to unmarshal %s response: %w", op, err)
	}
	if resp.Error != nil {
		return nil, &HostError{Kind: resp.Error.Kind, Message: resp.Error.Message}
	}
	return proto.DecodeValue(resp.Value)
}

// DB is a guest-side reference to a host database handle.
type DB struct {
	handle proto.Handle
}

// Cursor is a guest-side reference to a host cursor handle.
type Cursor struct {
	handle proto.Handle
}

// Available reports whether the host binding is loaded.
func Available() bool {
	v, err := call("available")
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Open opens the database at path, or a fresh anonymous in-memory database
// if path is empty. It returns nil if the host could not open the database;
// callers must check the result.
func Open(path string) (*DB, error) {
	var args []any
	if path != "" {
		args = append(args, path)
	}
	v, err := call("open", args...)
	if err != nil {
		return nil, err
	}
	h, ok := v.(proto.Handle)
	if !ok {
		return nil, nil
	}
	return &DB{handle: h}, nil
}

// Close releases the host-side connection. A second close reports false.
func (db *DB) Close() (bool, error) {
	return asBool(call("close", db.handle))
}

// Execute runs the first statement of query and returns the affected-row
// count.
func (db *DB) Execute(query string, params ...any) (int64, error) {
	v, err := call("execute", db.handle, query, paramArg(params))
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("guest: execute returned %T, want int64", v)
	}
	return n, nil
}

// Select returns every matching row.
func (db *DB) Select(query string, params ...any) ([][]any, error) {
	return asRows(call("select", db.handle, query, paramArg(params)))
}

// SelectFull is Select with a header row of column names prepended.
func (db *DB) SelectFull(query string, params ...any) ([][]any, error) {
	return asRows(call("select", db.handle, query, paramArg(params), "full"))
}

// SelectSet returns a live cursor over the results instead of draining them.
func (db *DB) SelectSet(query string, params ...any) (*Cursor, error) {
	v, err := call("select", db.handle, query, paramArg(params), "set")
	if err != nil {
		return nil, err
	}
	h, ok := v.(proto.Handle)
	if !ok {
		return nil, fmt.Errorf("guest: select set returned %T, want handle", v)
	}
	return &Cursor{handle: h}, nil
}

// Begin starts a transaction, reporting success by boolean alone.
func (db *DB) Begin() (bool, error) { return asBool(call("begin", db.handle)) }

// Commit commits the current transaction.
func (db *DB) Commit() (bool, error) { return asBool(call("commit", db.handle)) }

// Rollback rolls back the current transaction.
func (db *DB) Rollback() (bool, error) { return asBool(call("rollback", db.handle)) }

// Pragma executes "PRAGMA " + text.
func (db *DB) Pragma(text string) (bool, error) {
	return asBool(call("pragma", db.handle, text))
}

// Next advances one row, returning nil once the results are exhausted.
func (c *Cursor) Next() ([]any, error) {
	v, err := call("next", c.handle)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	row, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("guest: next returned %T, want row", v)
	}
	return row, nil
}

// Columns returns the cursor's column names.
func (c *Cursor) Columns() ([]string, error) {
	v, err := call("columns", c.handle)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("guest: columns returned %T, want list", v)
	}
	cols := make([]string, len(list))
	for i, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("guest: column name is %T, want string", e)
		}
		cols[i] = s
	}
	return cols, nil
}

// More reports whether the cursor is not yet exhausted.
func (c *Cursor) More() (bool, error) { return asBool(call("more", c.handle)) }

// Finalize releases the host-side statement.
func (c *Cursor) Finalize() (bool, error) { return asBool(call("finalize", c.handle)) }

// IsHandle reports whether the host recognizes v as one of its handles.
// DB and Cursor references are unwrapped to the handle they carry.
func IsHandle(v any) (bool, error) {
	switch ref := v.(type) {
	case *DB:
		v = ref.handle
	case *Cursor:
		v = ref.handle
	}
	return asBool(call("is-handle", v))
}

func paramArg(params []any) any {
	if len(params) == 0 {
		return nil
	}
	return params
}

func asBool(v any, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("guest: host returned %T, want bool", v)
	}
	return b, nil
}

func asRows(v any, err error) ([][]any, error) {
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("guest: host returned %T, want rows", v)
	}
	rows := make([][]any, len(list))
	for i, e := range list {
		row, ok := e.([]any)
		if !ok {
			return nil, fmt.Errorf("guest: row %d is %T, want list", i, e)
		}
		rows[i] = row
	}
	return rows, nil
}
