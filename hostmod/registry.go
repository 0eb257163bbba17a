package hostmod

import (
	"sync"

	"github.com/google/uuid"

	"github.com/litehost/litehost/proto"
	"github.com/litehost/litehost/sqlite"
)

// Kind discriminates the two native resource kinds a guest handle can
// reference. The kind tag lives here, out of band from the guest's value
// model, and is the sole dispatch mechanism for validating that an argument
// is the expected kind of handle.
type Kind int

const (
	KindDatabase Kind = iota + 1
	KindCursor
)

type entry struct {
	kind Kind
	db   *sqlite.Database
	cur  *sqlite.Cursor
}

// Registry maps the opaque IDs held by guests to live native wrappers.
// Entries persist after close/finalize so a stale reference still resolves
// to an object of the right kind and fails with the closed condition rather
// than looking like a type error.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// AddDatabase registers a database wrapper and returns its guest handle.
func (r *Registry) AddDatabase(db *sqlite.Database) proto.Handle {
	return r.add(entry{kind: KindDatabase, db: db})
}

// AddCursor registers a cursor wrapper and returns its guest handle.
func (r *Registry) AddCursor(cur *sqlite.Cursor) proto.Handle {
	return r.add(entry{kind: KindCursor, cur: cur})
}

func (r *Registry) add(e entry) proto.Handle {
	// TODO: reap closed entries once the guest protocol grows an explicit
	// handle-drop notification.
	id := uuid.NewString()
	r.mu.Lock()
	r.entries[id] = e
	r.mu.Unlock()
	return proto.Handle{ID: id}
}

func (r *Registry) lookup(h proto.Handle) (entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[h.ID]
	return e, ok
}

// Database resolves h to a database wrapper. A handle of the wrong kind is
// the distinct invalid-object condition, not a generic type error; a value
// that references no known handle at all is a wrong-type condition.
func (r *Registry) Database(h proto.Handle) (*sqlite.Database, error) {
	e, ok := r.lookup(h)
	if !ok {
		return nil, &sqlite.Error{Kind: sqlite.KindWrongType, Message: "wrong type argument: sqlitep"}
	}
	if e.kind != KindDatabase {
		return nil, &sqlite.Error{Kind: sqlite.KindInvalidObject, Message: "invalid database object"}
	}
	return e.db, nil
}

// Cursor resolves h to a cursor wrapper with the same error policy as
// Database.
func (r *Registry) Cursor(h proto.Handle) (*sqlite.Cursor, error) {
	e, ok := r.lookup(h)
	if !ok {
		return nil, &sqlite.Error{Kind: sqlite.KindWrongType, Message: "wrong type argument: sqlitep"}
	}
	if e.kind != KindCursor {
		return nil, &sqlite.Error{Kind: sqlite.KindInvalidObject, Message: "invalid set object"}
	}
	return e.cur, nil
}

// Contains reports whether h names a registered handle of either kind,
// closed or not.
func (r *Registry) Contains(h proto.Handle) bool {
	_, ok := r.lookup(h)
	return ok
}
