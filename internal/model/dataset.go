package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
)

// Dataset maps beer URLs to records and remembers insertion order.
// It is the intermediate form written before the union pass.
type Dataset struct {
	urls    []string
	records map[string]*Record
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		urls:    make([]string, 0),
		records: make(map[string]*Record),
	}
}

// Put stores the record for url. Storing an existing url replaces its
// record and keeps its position.
func (d *Dataset) Put(url string, r *Record) {
	if _, ok := d.records[url]; !ok {
		d.urls = append(d.urls, url)
	}
	d.records[url] = r
}

// Get returns the record stored for url.
func (d *Dataset) Get(url string) (*Record, bool) {
	r, ok := d.records[url]
	return r, ok
}

// URLs returns the dataset keys in insertion order.
func (d *Dataset) URLs() []string {
	out := make([]string, len(d.urls))
	copy(out, d.urls)
	return out
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.urls)
}

// All iterates over url/record pairs in insertion order.
func (d *Dataset) All() iter.Seq2[string, *Record] {
	return func(yield func(string, *Record) bool) {
		for _, u := range d.urls {
			if !yield(u, d.records[u]) {
				return
			}
		}
	}
}

// MarshalJSON encodes the dataset as a JSON object keyed by URL.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, u := range d.urls {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(u)
		if err != nil {
			return nil, err
		}
		val, err := d.records[u].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", u, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of records, keeping key order.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	decoded := NewDataset()
	for dec.More() {
		u, err := readKey(dec)
		if err != nil {
			return err
		}
		r := NewRecord()
		if err := dec.Decode(r); err != nil {
			return fmt.Errorf("%w: record %q: %v", ErrInvalidJSON, u, err)
		}
		decoded.Put(u, r)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return err
	}

	*d = *decoded
	return nil
}
