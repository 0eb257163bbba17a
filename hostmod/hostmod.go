// Package hostmod is the host half of the binding: it declares the
// operations a guest runtime may call, with their arities, resolves handle
// arguments through the Registry, converts envelope values through the
// sqlite codec, and packages results or translated error conditions back
// into the response envelope. Pure glue around the sqlite package.
package hostmod

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/litehost/litehost/proto"
	"github.com/litehost/litehost/sqlite"
)

// Host dispatches guest requests against a handle registry.
type Host struct {
	registry *Registry
}

func NewHost() *Host {
	return &Host{registry: NewRegistry()}
}

// Registry exposes the handle registry, mainly for tests and embedders.
func (h *Host) Registry() *Registry { return h.registry }

type opFunc func(h *Host, args []any) (any, error)

type opDef struct {
	minArgs int
	maxArgs int
	fn      opFunc
}

// The externally callable operations and their arities.
var ops = map[string]opDef{
	"open":      {0, 1, opOpen},
	"close":     {1, 1, opClose},
	"execute":   {2, 3, opExecute},
	"select":    {2, 4, opSelect},
	"begin":     {1, 1, opBegin},
	"commit":    {1, 1, opCommit},
	"rollback":  {1, 1, opRollback},
	"pragma":    {2, 2, opPragma},
	"next":      {1, 1, opNext},
	"columns":   {1, 1, opColumns},
	"more":      {1, 1, opMore},
	"finalize":  {1, 1, opFinalize},
	"is-handle": {1, 1, opIsHandle},
	"available": {0, 0, opAvailable},
}

// Handle processes one raw request payload and returns the raw response.
// Operational errors are packaged in the payload; the caller only ever has
// to transport the bytes.
func (h *Host) Handle(payload []byte) []byte {
	var req proto.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return errorResponse(fmt.Errorf("bad request payload: %w", err))
	}

	op, ok := ops[req.Op]
	if !ok {
		return errorResponse(fmt.Errorf("unknown operation: %s", req.Op))
	}
	if len(req.Args) < op.minArgs || len(req.Args) > op.maxArgs {
		return errorResponse(fmt.Errorf("wrong number of arguments for %s: %d", req.Op, len(req.Args)))
	}

	args := make([]any, len(req.Args))
	for i, raw := range req.Args {
		v, err := proto.DecodeValue(raw)
		if err != nil {
			return errorResponse(err)
		}
		args[i] = v
	}

	v, err := op.fn(h, args)
	if err != nil {
		return errorResponse(err)
	}

	raw, err := proto.EncodeValue(v)
	if err != nil {
		return errorResponse(err)
	}
	resp, err := json.Marshal(proto.Response{Value: raw})
	if err != nil {
		return errorResponse(err)
	}
	return resp
}

func errorResponse(err error) []byte {
	info := &proto.ErrorInfo{Kind: sqlite.KindGeneric.String(), Message: err.Error()}
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		info.Kind = serr.Kind.String()
	}
	resp, merr := json.Marshal(proto.Response{Error: info})
	if merr != nil {
		return []byte(`{"error":{"kind":"error","message":"failed to marshal error response"}}`)
	}
	return resp
}

// --- argument helpers ---

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func (h *Host) database(v any) (*sqlite.Database, error) {
	ref, ok := v.(proto.Handle)
	if !ok {
		return nil, &sqlite.Error{Kind: sqlite.KindWrongType, Message: "wrong type argument: sqlitep"}
	}
	return h.registry.Database(ref)
}

func (h *Host) cursor(v any) (*sqlite.Cursor, error) {
	ref, ok := v.(proto.Handle)
	if !ok {
		return nil, &sqlite.Error{Kind: sqlite.KindWrongType, Message: "wrong type argument: sqlitep"}
	}
	return h.registry.Cursor(ref)
}

func argString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &sqlite.Error{Kind: sqlite.KindWrongType, Message: "wrong type argument: stringp"}
	}
	return s, nil
}

// argParams accepts the parameter list for execute/select: absent, a list,
// or nothing else. Coded text arrives as proto.Text and is handed to the
// codec as sqlite.Text.
func argParams(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &sqlite.Error{Kind: sqlite.KindGeneric, Message: "VALUES must be a list or a vector"}
	}
	params := make([]any, len(list))
	for i, e := range list {
		if t, ok := e.(proto.Text); ok {
			params[i] = sqlite.Text{S: t.S, Coding: t.Coding}
			continue
		}
		params[i] = e
	}
	return params, nil
}

// --- operations ---

// opOpen opens a database. Failure to open yields the absence value, not an
// error condition; callers must check the result.
func opOpen(h *Host, args []any) (any, error) {
	path := ""
	if v := arg(args, 0); v != nil {
		s, err := argString(v)
		if err != nil {
			return nil, err
		}
		path = s
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, nil
	}
	return h.registry.AddDatabase(db), nil
}

func opClose(h *Host, args []any) (any, error) {
	db, err := h.database(args[0])
	if err != nil {
		return nil, err
	}
	return db.Close(), nil
}

func opExecute(h *Host, args []any) (any, error) {
	db, err := h.database(args[0])
	if err != nil {
		return nil, err
	}
	query, err := argString(args[1])
	if err != nil {
		return nil, err
	}
	params, err := argParams(arg(args, 2))
	if err != nil {
		return nil, err
	}
	return db.Execute(query, params)
}

func opSelect(h *Host, args []any) (any, error) {
	db, err := h.database(args[0])
	if err != nil {
		return nil, err
	}
	query, err := argString(args[1])
	if err != nil {
		return nil, err
	}
	params, err := argParams(arg(args, 2))
	if err != nil {
		return nil, err
	}

	// Any mode other than "set" or "full" selects the default row-list
	// return shape.
	switch arg(args, 3) {
	case "set":
		cur, err := db.SelectSet(query, params)
		if err != nil {
			return nil, err
		}
		return h.registry.AddCursor(cur), nil
	case "full":
		return db.SelectFull(query, params)
	default:
		return db.Select(query, params)
	}
}

func opBegin(h *Host, args []any) (any, error) {
	db, err := h.database(args[0])
	if err != nil {
		return nil, err
	}
	return db.Begin()
}

func opCommit(h *Host, args []any) (any, error) {
	db, err := h.database(args[0])
	if err != nil {
		return nil, err
	}
	return db.Commit()
}

func opRollback(h *Host, args []any) (any, error) {
	db, err := h.database(args[0])
	if err != nil {
		return nil, err
	}
	return db.Rollback()
}

func opPragma(h *Host, args []any) (any, error) {
	db, err := h.database(args[0])
	if err != nil {
		return nil, err
	}
	text, err := argString(args[1])
	if err != nil {
		return nil, err
	}
	return db.Pragma(text)
}

func opNext(h *Host, args []any) (any, error) {
	cur, err := h.cursor(args[0])
	if err != nil {
		return nil, err
	}
	row, err := cur.Next()
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return row, nil
}

func opColumns(h *Host, args []any) (any, error) {
	cur, err := h.cursor(args[0])
	if err != nil {
		return nil, err
	}
	return cur.Columns()
}

func opMore(h *Host, args []any) (any, error) {
	cur, err := h.cursor(args[0])
	if err != nil {
		return nil, err
	}
	return cur.More()
}

func opFinalize(h *Host, args []any) (any, error) {
	cur, err := h.cursor(args[0])
	if err != nil {
		return nil, err
	}
	if err := cur.Finalize(); err != nil {
		return nil, err
	}
	return true, nil
}

// opIsHandle reports whether the value names a registered handle of either
// kind, closed or not. Non-handle values answer false, never an error.
func opIsHandle(h *Host, args []any) (any, error) {
	ref, ok := args[0].(proto.Handle)
	if !ok {
		return false, nil
	}
	return h.registry.Contains(ref), nil
}

func opAvailable(h *Host, args []any) (any, error) {
	return true, nil
}
