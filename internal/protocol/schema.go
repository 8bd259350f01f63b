package protocol

import (
	"encoding/binary"
	"fmt"
)

// Schema is an ordered, immutable sequence of fields describing one packet
// shape. Build schemas once, at package init, and share them.
type Schema struct {
	name   string
	order  binary.ByteOrder
	fields []Field
	index  map[string]int
	// governed maps a string/list name to the index of its length field.
	governed map[string]int
}

// NewSchema validates fields and returns the schema.
//
// Names must be unique (padding is unnamed), and a length field must be
// declared before the string or list it governs.
func NewSchema(name string, order binary.ByteOrder, fields ...Field) (*Schema, error) {
	if order == nil {
		order = binary.LittleEndian
	}
	s := &Schema{
		name:     name,
		order:    order,
		fields:   make([]Field, len(fields)),
		index:    make(map[string]int, len(fields)),
		governed: make(map[string]int),
	}
	pending := make(map[string]int)
	for i, f := range fields {
		if f.Order == nil {
			f.Order = order
		}
		if err := checkField(f); err != nil {
			return nil, fmt.Errorf("%w: %s field %d (%s): %v", ErrInvalidSchema, name, i, f.Name, err)
		}
		if f.Kind != KindPad {
			if _, dup := s.index[f.Name]; dup {
				return nil, fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidSchema, name, f.Name)
			}
			s.index[f.Name] = i
		}
		switch f.Kind {
		case KindLength:
			if _, dup := pending[f.Of]; dup {
				return nil, fmt.Errorf("%w: %s: %q has two length fields", ErrInvalidSchema, name, f.Of)
			}
			pending[f.Of] = i
		case KindString, KindList:
			if li, ok := pending[f.Name]; ok {
				s.governed[f.Name] = li
				delete(pending, f.Name)
			}
		}
		s.fields[i] = f
	}
	for of := range pending {
		return nil, fmt.Errorf("%w: %s: length field governs missing or earlier field %q", ErrInvalidSchema, name, of)
	}
	return s, nil
}

// MustSchema is NewSchema for static tables; it panics on an invalid schema.
func MustSchema(name string, order binary.ByteOrder, fields ...Field) *Schema {
	s, err := NewSchema(name, order, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func checkField(f Field) error {
	switch f.Kind {
	case KindScalar:
		if f.Name == "" {
			return fmt.Errorf("scalar needs a name")
		}
		if !validWidth(f.Width) {
			return fmt.Errorf("bad width %d", f.Width)
		}
	case KindDerived:
		if !validWidth(f.Width) {
			return fmt.Errorf("bad width %d", f.Width)
		}
		if f.Compute == nil {
			return fmt.Errorf("derived field without compute")
		}
	case KindPad:
		if f.PadSize < 0 {
			return fmt.Errorf("negative padding")
		}
	case KindLength:
		if !validWidth(f.Width) {
			return fmt.Errorf("bad width %d", f.Width)
		}
		if f.Of == "" {
			return fmt.Errorf("length without governed field")
		}
	case KindString:
		if f.Name == "" {
			return fmt.Errorf("string needs a name")
		}
	case KindList:
		if f.Elem == nil && !validWidth(f.Width) {
			return fmt.Errorf("list needs a schema or an element width")
		}
	case KindStruct:
		if f.Elem == nil {
			return fmt.Errorf("struct needs a schema")
		}
	default:
		return fmt.Errorf("unknown kind %d", f.Kind)
	}
	return nil
}

func (s *Schema) Name() string {
	return s.name
}

func (s *Schema) Order() binary.ByteOrder {
	return s.order
}

// Fields returns a copy of the field table.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a named field.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// FixedSize reports the encoded size when no field is variable.
func (s *Schema) FixedSize() (int, bool) {
	total := 0
	for _, f := range s.fields {
		n, ok := f.fixedSize()
		if !ok {
			return 0, false
		}
		total += n
	}
	return total, true
}

// New returns an empty record of this schema.
func (s *Schema) New() *Record {
	return &Record{schema: s, values: make(map[string]any, len(s.index))}
}

// Build returns a record with the given name/value pairs set, in order.
func (s *Schema) Build(pairs ...any) *Record {
	r := s.New()
	for i := 0; i+1 < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			r.fail(fmt.Errorf("%w: pair %d key is %T", ErrFieldTypeMismatch, i/2, pairs[i]))
			continue
		}
		r.Set(name, pairs[i+1])
	}
	if len(pairs)%2 != 0 {
		r.fail(fmt.Errorf("%w: odd number of build arguments", ErrFieldTypeMismatch))
	}
	return r
}

func (s *Schema) String() string {
	return s.name
}
