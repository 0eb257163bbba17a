package sqlite

import (
	"database/sql/driver"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

// CodingBinary marks a Text parameter as raw bytes to be bound as a blob.
const CodingBinary = "binary"

// Text is a string parameter carrying a coding-system annotation. An empty
// Coding binds the string as UTF-8 text; CodingBinary binds it as a blob
// (the string must be unibyte); any other value names a coding system the
// string is transcoded through before being bound as text.
type Text struct {
	S      string
	Coding string
}

func (t Text) bind() (driver.Value, error) {
	switch t.Coding {
	case "":
		return t.S, nil
	case CodingBinary:
		// Each character must map to exactly one byte.
		if utf8.RuneCountInString(t.S) != len(t.S) {
			return nil, &Error{Kind: KindGeneric, Message: "BLOB values must be unibyte"}
		}
		return []byte(t.S), nil
	default:
		enc, err := ianaindex.IANA.Encoding(t.Coding)
		if err != nil || enc == nil {
			return nil, &Error{
				Kind:    KindGeneric,
				Message: fmt.Sprintf("unknown coding system %q", t.Coding),
			}
		}
		encoded, err := enc.NewEncoder().String(t.S)
		if err != nil {
			return nil, &Error{
				Kind:    KindGeneric,
				Message: fmt.Sprintf("cannot encode text as %s: %v", t.Coding, err),
			}
		}
		return encoded, nil
	}
}

// bindArg converts one guest dynamic value to the engine's typed parameter
// model. There is no native boolean type, so true and false bind as the
// integers 1 and 0. A zero-length string or blob binds as an explicit empty
// value, not null.
func bindArg(v any) (driver.Value, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		return v, nil
	case []byte:
		if v == nil {
			v = []byte{}
		}
		return v, nil
	case Text:
		return v.bind()
	default:
		return nil, &Error{
			Kind:    KindGeneric,
			Message: fmt.Sprintf("invalid argument: cannot bind value of type %T", v),
		}
	}
}

// bindParams converts every parameter up front, before the engine sees the
// statement, so argument-shape errors never touch native resources.
func bindParams(params []any) ([]driver.Value, error) {
	if len(params) == 0 {
		return nil, nil
	}
	args := make([]driver.Value, len(params))
	for i, v := range params {
		a, err := bindArg(v)
		if err != nil {
			return nil, err
		}
		args[i] = a
	}
	return args, nil
}

// storedTimeText renders a column value the driver eagerly parsed into
// time.Time back into the engine's text layout. Columns declared date whose
// value is a bare midnight render as a date alone; everything else renders
// as "YYYY-MM-DD HH:MM:SS", with fractional seconds and a zone offset only
// when the value carries them.
func storedTimeText(t time.Time, decl string) string {
	if decl == "date" && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	layout := "2006-01-02 15:04:05"
	if t.Nanosecond() != 0 {
		layout += ".999999999"
	}
	if _, offset := t.Zone(); offset != 0 {
		layout += "-07:00"
	}
	return t.Format(layout)
}

// decodeColumn converts one column value by its runtime storage class.
// Blobs are copied at their exact length with no decoding applied; text
// comes back as a string of the exact bytes the engine holds. decl is the
// column's declared type: for columns declared date, datetime, timestamp or
// boolean the driver converts before this layer can see the raw value, so
// the conversion is folded back into the storage-class model — booleans to
// integers, times to their stored text. Any other value decodes to absence.
func decodeColumn(v driver.Value, decl string) any {
	switch v := v.(type) {
	case int64:
		return v
	case float64:
		return v
	case []byte:
		return append([]byte(nil), v...)
	case string:
		return v
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return storedTimeText(v, decl)
	default:
		return nil
	}
}

func decodeRow(vals []driver.Value, decls []string) []any {
	row := make([]any, len(vals))
	for i, v := range vals {
		decl := ""
		if i < len(decls) {
			decl = decls[i]
		}
		row[i] = decodeColumn(v, decl)
	}
	return row
}
