// Package proto defines the JSON envelope exchanged between a guest runtime
// and the litehost host module, and the encoding of dynamic values within
// it. Scalars travel as plain JSON; forms JSON cannot express natively are
// tagged objects: {"handle":id} for opaque resource references,
// {"blob":base64} for byte strings, and {"text":s,"coding":name} for strings
// carrying a coding-system annotation.
//
// The package is shared by the host and guest halves and therefore must not
// depend on the engine binding.
package proto

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Request is one guest call into the host module.
type Request struct {
	Op   string            `json:"op"`
	Args []json.RawMessage `json:"args,omitempty"`
}

// Response carries either the operation's value or its error condition.
// Operational errors ride in-band; only transport failures surface as Go
// errors on the call path.
type Response struct {
	Value json.RawMessage `json:"value,omitempty"`
	Error *ErrorInfo      `json:"error,omitempty"`
}

// ErrorInfo is a host condition: a kind the guest can dispatch on plus the
// engine's message text.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Handle is an opaque reference to a host-side native resource.
type Handle struct {
	ID string
}

// Text is a string parameter with a coding-system annotation. Coding
// "binary" marks the string as raw bytes to bind as a blob.
type Text struct {
	S      string
	Coding string
}

type taggedValue struct {
	Handle *string `json:"handle,omitempty"`
	Blob   *string `json:"blob,omitempty"`
	Text   *string `json:"text,omitempty"`
	Coding string  `json:"coding,omitempty"`
}

// EncodeValue renders one dynamic value into its envelope form.
func EncodeValue(v any) (json.RawMessage, error) {
	switch v := v.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case bool:
		if v {
			return json.RawMessage("true"), nil
		}
		return json.RawMessage("false"), nil
	case int:
		return json.RawMessage(strconv.FormatInt(int64(v), 10)), nil
	case int64:
		return json.RawMessage(strconv.FormatInt(v, 10)), nil
	case float64:
		return encodeFloat(v), nil
	case string:
		return json.Marshal(v)
	case []byte:
		s := base64.StdEncoding.EncodeToString(v)
		return json.Marshal(taggedValue{Blob: &s})
	case Text:
		return json.Marshal(taggedValue{Text: &v.S, Coding: v.Coding})
	case Handle:
		return json.Marshal(taggedValue{Handle: &v.ID})
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return encodeSlice(out)
	case []any:
		return encodeSlice(v)
	case [][]any:
		out := make([]any, len(v))
		for i, row := range v {
			out[i] = row
		}
		return encodeSlice(out)
	default:
		return nil, fmt.Errorf("proto: cannot encode value of type %T", v)
	}
}

func encodeSlice(vals []any) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range vals {
		if i > 0 {
			buf.WriteByte(',')
		}
		raw, err := EncodeValue(v)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// encodeFloat keeps floats distinguishable from integers on the wire: a
// whole-valued float is rendered with a trailing ".0". Non-finite values
// have no JSON form and become null, matching the engine's own inability
// to store them.
func encodeFloat(f float64) json.RawMessage {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.RawMessage("null")
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return json.RawMessage(s)
}

// EncodeArgs encodes an argument list for a Request.
func EncodeArgs(args []any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(args))
	for i, v := range args {
		raw, err := EncodeValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

// DecodeValue parses one envelope value back into a dynamic value: nil,
// bool, int64, float64, string, []byte, Text, Handle or []any.
func DecodeValue(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	switch raw[0] {
	case 'n':
		return nil, nil
	case 't':
		return true, nil
	case 'f':
		return false, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, err
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			v, err := DecodeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case '{':
		var tagged taggedValue
		if err := json.Unmarshal(raw, &tagged); err != nil {
			return nil, err
		}
		switch {
		case tagged.Handle != nil:
			return Handle{ID: *tagged.Handle}, nil
		case tagged.Blob != nil:
			b, err := base64.StdEncoding.DecodeString(*tagged.Blob)
			if err != nil {
				return nil, fmt.Errorf("proto: bad blob encoding: %w", err)
			}
			return b, nil
		case tagged.Text != nil:
			return Text{S: *tagged.Text, Coding: tagged.Coding}, nil
		default:
			return nil, fmt.Errorf("proto: unrecognized tagged value %s", raw)
		}
	default:
		s := string(raw)
		if strings.ContainsAny(s, ".eE") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("proto: bad number %q: %w", s, err)
			}
			return f, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("proto: bad number %q: %w", s, err)
		}
		return n, nil
	}
}
