package dataset

import (
	"fmt"

	"github.com/nao1215/brewcrawl/internal/model"
)

// UnionSchema returns the records of ds, in dataset order, each carrying
// every field that appears in any record. Missing fields are set to
// sentinel; present fields are never changed. All records share one field
// order, the order in which fields are first seen across the dataset, and
// every record ends with model.URLField holding its dataset key.
//
// The records in ds are not modified. Applying UnionSchema to its own
// output (via FromRecords) returns equal records.
func UnionSchema(ds *model.Dataset, sentinel string) []*model.Record {
	fields := unionFields(ds)

	out := make([]*model.Record, 0, ds.Len())
	for url, record := range ds.All() {
		r := model.NewRecord()
		for _, f := range fields {
			if v, ok := record.Get(f); ok {
				r.Set(f, v)
			} else {
				r.Set(f, sentinel)
			}
		}
		r.Set(model.URLField, url)
		out = append(out, r)
	}
	return out
}

// unionFields returns every field name except model.URLField in
// first-seen order.
func unionFields(ds *model.Dataset) []string {
	seen := make(map[string]struct{})
	var fields []string
	for _, record := range ds.All() {
		for _, k := range record.Keys() {
			if k == model.URLField {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			fields = append(fields, k)
		}
	}
	return fields
}

// FromRecords keys formatted records by their model.URLField value. It
// fails when a record has no url.
func FromRecords(records []*model.Record) (*model.Dataset, error) {
	ds := model.NewDataset()
	for i, r := range records {
		url := r.String(model.URLField)
		if url == "" {
			return nil, fmt.Errorf("%w: record %d has no %q field", model.ErrInvalidJSON, i, model.URLField)
		}
		ds.Put(url, r)
	}
	return ds, nil
}
