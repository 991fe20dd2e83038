package dataset

import "github.com/nao1215/brewcrawl/internal/model"

// Summary describes a set of records for reports.
type Summary struct {
	// Total is the number of records.
	Total int `json:"total"`

	// Aliases is the number of alias records.
	Aliases int `json:"aliases"`

	// Fields lists every field in first-seen order with the number of
	// records that carry a real value for it.
	Fields []FieldCoverage `json:"fields"`
}

// FieldCoverage counts the records with a value for one field.
type FieldCoverage struct {
	Name    string `json:"name"`
	Present int    `json:"present"`
}

// Ratio returns Present/total, or 0 when total is 0.
func (c FieldCoverage) Ratio(total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(c.Present) / float64(total)
}

// Summarize counts records, aliases and per-field coverage. A field whose
// value equals sentinel counts as absent, so formatted records report the
// coverage of the data actually scraped.
func Summarize(records []*model.Record, sentinel string) Summary {
	s := Summary{Total: len(records)}
	index := make(map[string]int)

	for _, r := range records {
		if r.IsAlias() {
			s.Aliases++
		}
		for _, k := range r.Keys() {
			i, ok := index[k]
			if !ok {
				i = len(s.Fields)
				index[k] = i
				s.Fields = append(s.Fields, FieldCoverage{Name: k})
			}
			if v, _ := r.Get(k); v != sentinel {
				s.Fields[i].Present++
			}
		}
	}
	return s
}
