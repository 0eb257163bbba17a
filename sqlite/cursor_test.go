package sqlite

import (
	"errors"
	"reflect"
	"testing"
)

func setupCursorDB(t *testing.T) *Database {
	t.Helper()
	db := openTestDB(t)
	mustExecute(t, db, "create table t (x integer, name text)")
	for i, name := range []string{"one", "two", "three"} {
		mustExecute(t, db, "insert into t values (?, ?)", int64(i+1), name)
	}
	return db
}

func TestCursorStepping(t *testing.T) {
	db := setupCursorDB(t)

	cur, err := db.SelectSet("select x, name from t order by x", nil)
	if err != nil {
		t.Fatalf("SelectSet returned error: %v", err)
	}
	defer cur.Finalize()

	cols, err := cur.Columns()
	if err != nil {
		t.Fatalf("Columns returned error: %v", err)
	}
	if !reflect.DeepEqual(cols, []string{"x", "name"}) {
		t.Errorf("Columns = %v", cols)
	}

	want := [][]any{
		{int64(1), "one"},
		{int64(2), "two"},
		{int64(3), "three"},
	}
	for i, wantRow := range want {
		if more, _ := cur.More(); !more {
			t.Fatalf("More reported false before row %d", i)
		}
		row, err := cur.Next()
		if err != nil {
			t.Fatalf("Next returned error at row %d: %v", i, err)
		}
		if !reflect.DeepEqual(row, wantRow) {
			t.Errorf("row %d = %v, want %v", i, row, wantRow)
		}
	}

	// More stays true until the Next call that observes the end.
	if more, _ := cur.More(); !more {
		t.Error("More reported false before the terminal Next")
	}
	row, err := cur.Next()
	if err != nil {
		t.Fatalf("terminal Next returned error: %v", err)
	}
	if row != nil {
		t.Fatalf("terminal Next = %v, want nil", row)
	}
	if more, _ := cur.More(); more {
		t.Error("More reported true after exhaustion")
	}

	// Next after exhaustion keeps returning absence, not an error.
	row, err = cur.Next()
	if err != nil || row != nil {
		t.Errorf("Next after exhaustion = %v, %v, want nil, nil", row, err)
	}
}

func TestCursorFinalize(t *testing.T) {
	db := setupCursorDB(t)

	cur, err := db.SelectSet("select x from t", nil)
	if err != nil {
		t.Fatalf("SelectSet returned error: %v", err)
	}
	if err := cur.Finalize(); err != nil {
		t.Fatalf("Finalize returned error: %v", err)
	}

	var serr *Error
	if err := cur.Finalize(); !errors.As(err, &serr) || serr.Kind != KindClosed {
		t.Errorf("second Finalize = %v, want closed condition", err)
	}
	if _, err := cur.Next(); !errors.As(err, &serr) || serr.Kind != KindClosed {
		t.Errorf("Next after Finalize = %v, want closed condition", err)
	}
	if _, err := cur.Columns(); !errors.As(err, &serr) || serr.Kind != KindClosed {
		t.Errorf("Columns after Finalize = %v, want closed condition", err)
	}
	if _, err := cur.More(); !errors.As(err, &serr) || serr.Kind != KindClosed {
		t.Errorf("More after Finalize = %v, want closed condition", err)
	}
}

func TestLiveCursorDoesNotBlockOtherStatements(t *testing.T) {
	db := setupCursorDB(t)

	cur, err := db.SelectSet("select x, name from t order by x", nil)
	if err != nil {
		t.Fatalf("SelectSet returned error: %v", err)
	}
	defer cur.Finalize()

	row, err := cur.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if row[0] != int64(1) {
		t.Fatalf("first row = %v", row)
	}

	// With the cursor mid-stream, the same database must keep serving
	// other statements: they all share the one native connection.
	mustExecute(t, db, "create table audit (note text)")
	if n := mustExecute(t, db, "insert into audit values ('while stepping')"); n != 1 {
		t.Errorf("insert affected %d rows, want 1", n)
	}
	rows, err := db.Select("select count(*) from audit", nil)
	if err != nil {
		t.Fatalf("Select with live cursor returned error: %v", err)
	}
	if rows[0][0] != int64(1) {
		t.Errorf("count = %v, want 1", rows[0][0])
	}

	// The cursor still steps through its remaining rows afterwards.
	for _, wantName := range []string{"two", "three"} {
		row, err := cur.Next()
		if err != nil {
			t.Fatalf("Next after interleaved statements returned error: %v", err)
		}
		if row == nil || row[1] != wantName {
			t.Fatalf("row after interleaved statements = %v, want name %q", row, wantName)
		}
	}
	if row, err := cur.Next(); err != nil || row != nil {
		t.Errorf("terminal Next = %v, %v, want nil, nil", row, err)
	}
}

func TestCursorEmptyResult(t *testing.T) {
	db := setupCursorDB(t)

	cur, err := db.SelectSet("select x from t where x > 100", nil)
	if err != nil {
		t.Fatalf("SelectSet returned error: %v", err)
	}
	defer cur.Finalize()

	// The exhausted flag is only set by stepping, so More starts true
	// even for an empty result.
	if more, _ := cur.More(); !more {
		t.Error("More reported false before the first Next")
	}
	row, err := cur.Next()
	if err != nil || row != nil {
		t.Fatalf("Next on empty result = %v, %v, want nil, nil", row, err)
	}
	if more, _ := cur.More(); more {
		t.Error("More reported true after the empty result was observed")
	}
}
