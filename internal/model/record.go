package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Field names with a fixed meaning.
const (
	// AliasField marks a beer page that redirects to another beer.
	// A record carrying it has no other fields before the union pass.
	AliasField = "Alias for another beer"

	// URLField holds the beer URL after the union pass.
	URLField = "url"

	// TimestampField holds the capture time in UTC.
	TimestampField = "UTC timestamp"

	// DefaultSentinel fills fields a record does not have.
	DefaultSentinel = "NA"
)

// ErrInvalidJSON is returned when a record or dataset document has the wrong shape.
var ErrInvalidJSON = errors.New("invalid json document")

// Record is an ordered mapping from field name to value.
// Values are strings, except the alias flag which is the boolean true.
// The zero value is not usable; create records with NewRecord.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{
		keys:   make([]string, 0),
		values: make(map[string]any),
	}
}

// NewAliasRecord returns the record produced for alias pages.
func NewAliasRecord() *Record {
	r := NewRecord()
	r.Set(AliasField, true)
	return r
}

// Set stores value under key. An existing key keeps its position.
func (r *Record) Set(key string, value any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// SetDefault stores value under key only when key is absent.
// It reports whether the value was stored.
func (r *Record) SetDefault(key string, value any) bool {
	if _, ok := r.values[key]; ok {
		return false
	}
	r.Set(key, value)
	return true
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// String returns the value under key formatted as a string.
// Absent keys yield "".
func (r *Record) String(key string) string {
	v, ok := r.values[key]
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// IsAlias reports whether the record is the alias marker.
func (r *Record) IsAlias() bool {
	v, ok := r.values[AliasField]
	if !ok {
		return false
	}
	b, isBool := v.(bool)
	return isBool && b
}

// Clone returns a copy of the record. Values are copied shallowly.
func (r *Record) Clone() *Record {
	c := &Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]any, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		val, err := marshalNoEscape(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the order of its keys.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	decoded := NewRecord()
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrInvalidJSON, key, err)
		}
		decoded.Set(key, value)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return err
	}

	*r = *decoded
	return nil
}

// marshalNoEscape encodes v without escaping <, > and &, which occur
// in beer descriptions.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrInvalidJSON, want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", ErrInvalidJSON, tok)
	}
	return key, nil
}
