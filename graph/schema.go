package graph

import (
	"fmt"
)

// Reducer merges an update value into the current value of a field.
type Reducer func(current, update any) (any, error)

// Field declares a named State field with its merge rule.
type Field struct {
	Name    string
	Reducer Reducer
	// Zero produces the initial value of the field; nil means no value.
	Zero func() any
	// Copy returns a detached copy of a value so readers cannot alias state.
	Copy func(any) any
}

// Override is the replace-on-write reducer.
func Override(_, update any) (any, error) { return update, nil }

// OverrideField declares a field whose updates replace the current value.
func OverrideField(name string) Field {
	return Field{Name: name, Reducer: Override}
}

// AppendField declares a list field of element type T whose updates are
// concatenated onto the current value. An update may be a []T or a single T.
func AppendField[T any](name string) Field {
	return Field{
		Name:    name,
		Reducer: appendReducer[T](name),
		Zero:    func() any { return []T{} },
		Copy: func(v any) any {
			s, _ := v.([]T)
			return append([]T{}, s...)
		},
	}
}

func appendReducer[T any](name string) Reducer {
	return func(current, update any) (any, error) {
		cur, ok := current.([]T)
		if current != nil && !ok {
			return nil, fmt.Errorf("%w: field %s holds %T", ErrTypeMismatch, name, current)
		}

		var add []T

		switch u := update.(type) {
		case nil:
			return current, nil
		case []T:
			add = u
		case T:
			add = []T{u}
		default:
			return nil, fmt.Errorf("%w: field %s cannot append %T", ErrTypeMismatch, name, update)
		}

		out := make([]T, 0, len(cur)+len(add))
		out = append(out, cur...)
		out = append(out, add...)

		return out, nil
	}
}

// Schema is the ordered set of fields a State holds.
type Schema struct {
	fields map[string]Field
	order  []string
}

// NewSchema builds a schema from field declarations. A later declaration of
// the same name replaces an earlier one.
func NewSchema(fields ...Field) *Schema {
	s := &Schema{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		if _, exists := s.fields[f.Name]; !exists {
			s.order = append(s.order, f.Name)
		}

		if f.Reducer == nil {
			f.Reducer = Override
		}

		s.fields[f.Name] = f
	}

	return s
}

// Field returns the declaration of the named field.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}
