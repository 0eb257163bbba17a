package hostmod

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/litehost/litehost/proto"
)

// callHost drives the dispatch path the way a guest transport would.
func callHost(t *testing.T, h *Host, op string, args ...any) (any, *proto.ErrorInfo) {
	t.Helper()
	rawArgs, err := proto.EncodeArgs(args)
	if err != nil {
		t.Fatalf("EncodeArgs returned error: %v", err)
	}
	payload, err := json.Marshal(proto.Request{Op: op, Args: rawArgs})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	var resp proto.Response
	if err := json.Unmarshal(h.Handle(payload), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	v, err := proto.DecodeValue(resp.Value)
	if err != nil {
		t.Fatalf("DecodeValue returned error: %v", err)
	}
	return v, nil
}

func mustCall(t *testing.T, h *Host, op string, args ...any) any {
	t.Helper()
	v, errInfo := callHost(t, h, op, args...)
	if errInfo != nil {
		t.Fatalf("%s signaled %s: %s", op, errInfo.Kind, errInfo.Message)
	}
	return v
}

func openAnon(t *testing.T, h *Host) proto.Handle {
	t.Helper()
	v := mustCall(t, h, "open")
	handle, ok := v.(proto.Handle)
	if !ok {
		t.Fatalf("open returned %T, want handle", v)
	}
	t.Cleanup(func() { callHost(t, h, "close", handle) })
	return handle
}

func TestOpenExecuteSelect(t *testing.T) {
	h := NewHost()
	db := openAnon(t, h)

	if v := mustCall(t, h, "execute", db, "create table t (x integer)"); v != int64(0) {
		t.Errorf("create table affected %v rows", v)
	}
	if v := mustCall(t, h, "execute", db, "insert into t values (?)", []any{int64(5)}); v != int64(1) {
		t.Errorf("insert affected %v rows, want 1", v)
	}

	rows := mustCall(t, h, "select", db, "select x from t")
	want := []any{[]any{int64(5)}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("select = %v, want %v", rows, want)
	}

	full := mustCall(t, h, "select", db, "select x from t", nil, "full")
	wantFull := []any{[]any{"x"}, []any{int64(5)}}
	if !reflect.DeepEqual(full, wantFull) {
		t.Errorf("select full = %v, want %v", full, wantFull)
	}
}

func TestBlobParamsTravelTagged(t *testing.T) {
	h := NewHost()
	db := openAnon(t, h)
	mustCall(t, h, "execute", db, "create table b (v blob)")
	mustCall(t, h, "execute", db, "insert into b values (?)", []any{[]byte{0, 1, 0xfe}})

	rows := mustCall(t, h, "select", db, "select v from b")
	got := rows.([]any)[0].([]any)[0]
	if !reflect.DeepEqual(got, []byte{0, 1, 0xfe}) {
		t.Errorf("blob = %v (%T)", got, got)
	}
}

func TestCursorOps(t *testing.T) {
	h := NewHost()
	db := openAnon(t, h)
	mustCall(t, h, "execute", db, "create table t (x integer)")
	mustCall(t, h, "execute", db, "insert into t values (1), (2)")

	v := mustCall(t, h, "select", db, "select x from t order by x", nil, "set")
	cur, ok := v.(proto.Handle)
	if !ok {
		t.Fatalf("select set returned %T, want handle", v)
	}

	if cols := mustCall(t, h, "columns", cur); !reflect.DeepEqual(cols, []any{"x"}) {
		t.Errorf("columns = %v", cols)
	}
	if row := mustCall(t, h, "next", cur); !reflect.DeepEqual(row, []any{int64(1)}) {
		t.Errorf("first row = %v", row)
	}
	if more := mustCall(t, h, "more", cur); more != true {
		t.Error("more reported false mid-stream")
	}
	if row := mustCall(t, h, "next", cur); !reflect.DeepEqual(row, []any{int64(2)}) {
		t.Errorf("second row = %v", row)
	}
	if row := mustCall(t, h, "next", cur); row != nil {
		t.Errorf("terminal next = %v, want absence", row)
	}
	if more := mustCall(t, h, "more", cur); more != false {
		t.Error("more reported true after exhaustion")
	}

	if v := mustCall(t, h, "finalize", cur); v != true {
		t.Errorf("finalize = %v", v)
	}
	if _, errInfo := callHost(t, h, "finalize", cur); errInfo == nil || errInfo.Kind != "closed" {
		t.Errorf("second finalize = %v, want closed condition", errInfo)
	}

	// Passing a cursor where a database is expected is the distinct
	// invalid-object condition.
	if _, errInfo := callHost(t, h, "execute", cur, "select 1"); errInfo == nil || errInfo.Kind != "invalid-object" {
		t.Errorf("execute on cursor handle = %v, want invalid-object", errInfo)
	}
}

func TestOpenFailureYieldsAbsence(t *testing.T) {
	h := NewHost()
	v, errInfo := callHost(t, h, "open", filepath.Join(t.TempDir(), "missing", "sub.db"))
	if errInfo != nil {
		t.Fatalf("open signaled %s: %s, want silent absence", errInfo.Kind, errInfo.Message)
	}
	if v != nil {
		t.Errorf("open = %v, want absence", v)
	}
}

func TestCloseTwice(t *testing.T) {
	h := NewHost()
	db := openAnon(t, h)
	if v := mustCall(t, h, "close", db); v != true {
		t.Errorf("first close = %v", v)
	}
	if v := mustCall(t, h, "close", db); v != false {
		t.Errorf("second close = %v, want false", v)
	}
	if _, errInfo := callHost(t, h, "execute", db, "select 1"); errInfo == nil || errInfo.Kind != "closed" {
		t.Errorf("execute after close = %v, want closed condition", errInfo)
	}
}

func TestArgumentValidation(t *testing.T) {
	h := NewHost()
	db := openAnon(t, h)

	tests := []struct {
		name     string
		op       string
		args     []any
		wantKind string
	}{
		{"unknown op", "vacuum", []any{db}, "error"},
		{"too few args", "execute", []any{db}, "error"},
		{"too many args", "close", []any{db, db}, "error"},
		{"non-string sql", "execute", []any{db, int64(1)}, "wrong-type"},
		{"non-handle database", "execute", []any{"db", "select 1"}, "wrong-type"},
		{"bad params type", "execute", []any{db, "select ?", "not-a-list"}, "error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, errInfo := callHost(t, h, tc.op, tc.args...)
			if errInfo == nil {
				t.Fatal("expected an error condition")
			}
			if errInfo.Kind != tc.wantKind {
				t.Errorf("kind = %q, want %q (%s)", errInfo.Kind, tc.wantKind, errInfo.Message)
			}
		})
	}
}

func TestIsHandleAndAvailable(t *testing.T) {
	h := NewHost()
	db := openAnon(t, h)

	if v := mustCall(t, h, "available"); v != true {
		t.Errorf("available = %v", v)
	}
	if v := mustCall(t, h, "is-handle", db); v != true {
		t.Errorf("is-handle on database = %v", v)
	}
	if v := mustCall(t, h, "is-handle", "not a handle"); v != false {
		t.Errorf("is-handle on string = %v", v)
	}
	if v := mustCall(t, h, "is-handle", proto.Handle{ID: "stale"}); v != false {
		t.Errorf("is-handle on unknown id = %v", v)
	}
}

func TestTransactionBooleans(t *testing.T) {
	h := NewHost()
	db := openAnon(t, h)
	mustCall(t, h, "execute", db, "create table t (x integer)")

	if v := mustCall(t, h, "rollback", db); v != false {
		t.Errorf("rollback with no transaction = %v, want false", v)
	}
	if v := mustCall(t, h, "begin", db); v != true {
		t.Errorf("begin = %v", v)
	}
	mustCall(t, h, "execute", db, "insert into t values (1)")
	if v := mustCall(t, h, "commit", db); v != true {
		t.Errorf("commit = %v", v)
	}
	rows := mustCall(t, h, "select", db, "select count(*) from t")
	if !reflect.DeepEqual(rows, []any{[]any{int64(1)}}) {
		t.Errorf("committed rows = %v", rows)
	}

	if v := mustCall(t, h, "pragma", db, "user_version = 3"); v != true {
		t.Errorf("pragma = %v", v)
	}
	rows = mustCall(t, h, "select", db, "select * from pragma_user_version")
	if !reflect.DeepEqual(rows, []any{[]any{int64(3)}}) {
		t.Errorf("user_version = %v", rows)
	}
}
