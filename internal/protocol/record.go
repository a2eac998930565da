package protocol

import (
	"encoding/json"
	"fmt"
)

// Record is one decoded protocol object from the agent stream. Accessors are
// total over partially-populated records: a missing or mistyped field reads as
// the zero value, never as an error.
type Record map[string]any

// Type returns the discriminant used to route the record to a renderer.
func (r Record) Type() string {
	t, _ := r["type"].(string)
	return t
}

// Text returns the string field under key, or "" when absent.
func (r Record) Text(key string) string {
	v, _ := r[key].(string)
	return v
}

// Flag returns the boolean field under key. Only an exact JSON true reads as
// true; truthy strings and numbers do not.
func (r Record) Flag(key string) bool {
	v, _ := r[key].(bool)
	return v
}

// Object returns the nested object under key, or nil when absent.
func (r Record) Object(key string) Record {
	v, _ := r[key].(map[string]any)
	return Record(v)
}

// List returns the array field under key, or nil when absent.
func (r Record) List(key string) []any {
	v, _ := r[key].([]any)
	return v
}

// DecodeError reports one malformed line. It is contained at the per-record
// boundary: the caller drops the line and keeps processing the stream.
type DecodeError struct {
	Line string
	Err  error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("malformed record: %v", e.Err)
}

func (e DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses one newline-stripped line as a JSON object.
func Decode(line string) (Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return nil, DecodeError{Line: line, Err: err}
	}
	return rec, nil
}
