package trace

import (
	"bytes"
	"encoding/json"
)

// Result is the opaque payload attached to a step. It may wrap a structured
// object, a list or a scalar; internally it is always held as JSON so there is
// exactly one text encoding at the persistence boundary.
type Result struct {
	raw json.RawMessage
}

// NewResult wraps v. A nil v yields an empty Result.
func NewResult(v any) Result {
	switch x := v.(type) {
	case nil:
		return Result{}
	case Result:
		return x
	case json.RawMessage:
		return Result{raw: append(json.RawMessage(nil), x...)}
	}
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"encode_error": err.Error()})
	}
	return Result{raw: data}
}

// ParseResult rebuilds a Result from its canonical text encoding.
func ParseResult(text string) (Result, error) {
	if text == "" {
		return Result{}, nil
	}
	if !json.Valid([]byte(text)) {
		// Rows written by older code may hold a bare string.
		return NewResult(text), nil
	}
	return Result{raw: json.RawMessage(text)}, nil
}

// IsEmpty reports whether no payload was attached.
func (r Result) IsEmpty() bool {
	return len(r.raw) == 0 || bytes.Equal(r.raw, []byte("null"))
}

// Text returns the canonical encoding, or "" when empty.
func (r Result) Text() string {
	if r.IsEmpty() {
		return ""
	}
	return string(r.raw)
}

// Decode unmarshals the payload into v.
func (r Result) Decode(v any) error {
	if r.IsEmpty() {
		return nil
	}
	return json.Unmarshal(r.raw, v)
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.IsEmpty() {
		return []byte("null"), nil
	}
	return r.raw, nil
}

func (r *Result) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		r.raw = nil
		return nil
	}
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}
