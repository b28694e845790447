// Package schema declares the record shape the pipeline accepts and
// reconciles incoming micro-batches against it.
package schema

import (
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/record"
)

type FieldType string

const TypeString FieldType = "string"

// Field describes one declared column.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
}

// Schema is the fixed set of fields the pipeline consumes. It is declared
// once at startup and never changes while the stream runs.
type Schema struct {
	fields []Field
	names  map[string]struct{}
}

func New(fields ...Field) Schema {
	names := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		names[f.Name] = struct{}{}
	}
	return Schema{fields: fields, names: names}
}

// Expected returns the pipeline's declared schema: a single nullable string
// field carrying the post text.
func Expected() Schema {
	return New(Field{Name: record.FieldText, Type: TypeString, Nullable: true})
}

// FieldNames returns the declared column names in declaration order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Contains reports whether name is a declared column.
func (s Schema) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Reconcile projects a batch onto the declared schema: observed columns that
// are not declared are dropped, declared columns missing from the batch are
// simply absent. No values are coerced and nothing is null-filled.
func Reconcile(b record.Batch, s Schema) record.Batch {
	common := make([]string, 0, len(b.Columns))
	for _, c := range b.Columns {
		if s.Contains(c) {
			common = append(common, c)
		}
	}
	return b.Project(common)
}
