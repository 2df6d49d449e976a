package record

import (
	"fmt"
	"strings"

	"github.com/kbukum/kindflow/errors"
)

// DataKind labels a cardinality domain. Outputs of the same kind correspond
// row by row once aligned.
type DataKind string

// FieldType is the storage type of a schema field.
type FieldType int

const (
	Int64 FieldType = iota
	Float64
	String
	Bool
)

func (t FieldType) String() string {
	switch t {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

func (t FieldType) zero() any {
	switch t {
	case Float64:
		return float64(0)
	case String:
		return ""
	case Bool:
		return false
	default:
		return int64(0)
	}
}

func (t FieldType) accepts(v any) bool {
	switch v.(type) {
	case int64:
		return t == Int64
	case float64:
		return t == Float64
	case string:
		return t == String
	case bool:
		return t == Bool
	default:
		return false
	}
}

// Names of the fields that carry time structure.
const (
	FieldTime    = "time"
	FieldEndtime = "endtime"
	FieldLength  = "length"
	FieldDt      = "dt"
)

// structural fields may appear in several inputs of a merge; they are kept once.
var structural = map[string]bool{
	FieldTime:    true,
	FieldEndtime: true,
	FieldLength:  true,
	FieldDt:      true,
}

// IsStructural reports whether name is one of the time-structure fields.
func IsStructural(name string) bool { return structural[name] }

// Field is a named, typed schema column.
type Field struct {
	Name string
	Type FieldType
}

// F is shorthand for Field{Name: name, Type: t}.
func F(name string, t FieldType) Field { return Field{Name: name, Type: t} }

// Schema is an ordered sequence of uniquely named fields. It is immutable.
type Schema struct {
	fields []Field
	index  map[string]int

	timeIdx, endIdx, lengthIdx, dtIdx int
}

// NewSchema builds a schema, rejecting empty or duplicate field names.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields:  make([]Field, len(fields)),
		index:   make(map[string]int, len(fields)),
		timeIdx: -1, endIdx: -1, lengthIdx: -1, dtIdx: -1,
	}
	copy(s.fields, fields)
	for i, f := range fields {
		if f.Name == "" {
			return nil, errors.Configuration("schema field %d has no name", i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, errors.Configuration("schema field %q declared twice", f.Name)
		}
		s.index[f.Name] = i
		if f.Type != Int64 {
			continue
		}
		switch f.Name {
		case FieldTime:
			s.timeIdx = i
		case FieldEndtime:
			s.endIdx = i
		case FieldLength:
			s.lengthIdx = i
		case FieldDt:
			s.dtIdx = i
		}
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error. Meant for package-level schemas.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

// Fields returns a copy of the field list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the field names in order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Index returns the position of a field.
func (s *Schema) Index(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	i, ok := s.index[name]
	return i, ok
}

// Field returns the field with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether the schema contains a field.
func (s *Schema) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[name]
	return ok
}

// HasTime reports whether records of this schema carry an int64 time field.
func (s *Schema) HasTime() bool { return s != nil && s.timeIdx >= 0 }

// Equal reports whether both schemas have the same fields in the same order.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != o.fields[i] {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.Name + ":" + f.Type.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// endtime computes the exclusive upper time bound of a row.
func (s *Schema) endtime(values []any) int64 {
	switch {
	case s.endIdx >= 0:
		return values[s.endIdx].(int64)
	case s.timeIdx >= 0 && s.lengthIdx >= 0 && s.dtIdx >= 0:
		return values[s.timeIdx].(int64) + values[s.lengthIdx].(int64)*values[s.dtIdx].(int64)
	case s.timeIdx >= 0:
		return values[s.timeIdx].(int64)
	default:
		return 0
	}
}

// Concat joins schemas in order. Structural time fields that repeat with the
// same type are kept once at their first position; any other repeated name is
// a configuration error.
func Concat(schemas ...*Schema) (*Schema, error) {
	var fields []Field
	seen := make(map[string]Field)
	for _, s := range schemas {
		if s == nil {
			continue
		}
		for _, f := range s.fields {
			prev, dup := seen[f.Name]
			if !dup {
				seen[f.Name] = f
				fields = append(fields, f)
				continue
			}
			if IsStructural(f.Name) && prev.Type == f.Type {
				continue
			}
			return nil, errors.Configuration("field %q is provided by more than one input", f.Name).
				WithDetail("field", f.Name)
		}
	}
	return NewSchema(fields...)
}
