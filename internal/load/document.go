package load

import (
	"github.com/ToniPaltus/airflow-intro/internal/dataset"
)

// Field is one named document value. Value is nil, string, int64, float64
// or time.Time.
type Field struct {
	Name  string
	Value any
}

// Document is one stored row. Field order follows the dataset's columns.
type Document []Field

// Map returns the document as a map, for stores that do not keep field order.
func (d Document) Map() map[string]any {
	m := make(map[string]any, len(d))
	for _, f := range d {
		m[f.Name] = f.Value
	}
	return m
}

// Get returns the named field's value.
func (d Document) Get(name string) (any, bool) {
	for _, f := range d {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// DocumentFromRecord converts one dataset record. Missing values become nil.
func DocumentFromRecord(rec []dataset.Field) Document {
	doc := make(Document, len(rec))
	for i, f := range rec {
		doc[i] = Field{Name: f.Name, Value: f.Value.Interface()}
	}
	return doc
}

// Documents converts rows [from, to) of d.
func Documents(d *dataset.Dataset, from, to int) []Document {
	docs := make([]Document, 0, to-from)
	for i := from; i < to; i++ {
		docs = append(docs, DocumentFromRecord(d.Record(i)))
	}
	return docs
}
