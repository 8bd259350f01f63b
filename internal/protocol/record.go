package protocol

import (
	"bytes"
	"fmt"
	"strings"
)

// Record is one instance of a schema. Scalars are held as uint32 bit patterns
// truncated to the field width; strings as bytes; lists as []uint32 or
// []*Record; structs as *Record.
//
// Set never fails loudly: the first bad assignment is kept and reported by
// Err and by Encode.
type Record struct {
	schema *Schema
	values map[string]any
	err    error
}

func (r *Record) Schema() *Schema {
	return r.schema
}

// Err returns the first assignment error, if any.
func (r *Record) Err() error {
	return r.err
}

func (r *Record) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Set assigns a field value and returns r for chaining.
func (r *Record) Set(name string, v any) *Record {
	f, ok := r.schema.Field(name)
	if !ok {
		r.fail(fmt.Errorf("%w: %s.%s", ErrUnknownField, r.schema.name, name))
		return r
	}
	nv, err := normalize(f, v)
	if err != nil {
		r.fail(&FieldError{Schema: r.schema.name, Field: name, Err: err})
		return r
	}
	r.values[name] = nv
	return r
}

// Has reports whether the field holds a value.
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Uint returns an unsigned scalar; zero when unset. An unset derived field
// reports the value Encode would write.
func (r *Record) Uint(name string) uint32 {
	if v, ok := r.values[name].(uint32); ok {
		return v
	}
	if f, ok := r.schema.Field(name); ok && f.Kind == KindDerived && f.Compute != nil {
		return f.Compute(r) & widthMask(f.Width)
	}
	return 0
}

// Int returns a scalar sign-extended from its declared width.
func (r *Record) Int(name string) int32 {
	v := r.Uint(name)
	f, _ := r.schema.Field(name)
	switch f.Width {
	case 1:
		return int32(int8(v))
	case 2:
		return int32(int16(v))
	default:
		return int32(v)
	}
}

func (r *Record) Bool(name string) bool {
	return r.Uint(name) != 0
}

func (r *Record) Bytes(name string) []byte {
	v, _ := r.values[name].([]byte)
	return v
}

// Text returns a string field as a Go string.
func (r *Record) Text(name string) string {
	return string(r.Bytes(name))
}

func (r *Record) Uints(name string) []uint32 {
	v, _ := r.values[name].([]uint32)
	return v
}

func (r *Record) Records(name string) []*Record {
	v, _ := r.values[name].([]*Record)
	return v
}

// Struct returns a nested record, or nil when unset.
func (r *Record) Struct(name string) *Record {
	v, _ := r.values[name].(*Record)
	return v
}

// Len is the byte length of a string or the element count of a list.
func (r *Record) Len(name string) int {
	switch v := r.values[name].(type) {
	case []byte:
		return len(v)
	case []uint32:
		return len(v)
	case []*Record:
		return len(v)
	default:
		return 0
	}
}

// Equal compares every named value of two records of the same schema.
// Length and padding fields are not values and are not compared.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.schema != o.schema {
		return false
	}
	for _, f := range r.schema.fields {
		switch f.Kind {
		case KindScalar, KindDerived:
			if r.Uint(f.Name) != o.Uint(f.Name) {
				return false
			}
		case KindString:
			if !bytes.Equal(r.Bytes(f.Name), o.Bytes(f.Name)) {
				return false
			}
		case KindList:
			if f.Elem == nil {
				a, b := r.Uints(f.Name), o.Uints(f.Name)
				if len(a) != len(b) {
					return false
				}
				for i := range a {
					if a[i] != b[i] {
						return false
					}
				}
				continue
			}
			a, b := r.Records(f.Name), o.Records(f.Name)
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if !a[i].Equal(b[i]) {
					return false
				}
			}
		case KindStruct:
			a, b := r.Struct(f.Name), o.Struct(f.Name)
			if a == nil {
				a = f.Elem.New()
			}
			if b == nil {
				b = f.Elem.New()
			}
			if !a.Equal(b) {
				return false
			}
		}
	}
	return true
}

func (r *Record) String() string {
	if r == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(r.schema.name)
	b.WriteByte('{')
	first := true
	for _, f := range r.schema.fields {
		if f.Kind == KindPad || f.Kind == KindLength {
			continue
		}
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(f.Name)
		b.WriteByte('=')
		switch f.Kind {
		case KindScalar, KindDerived:
			if f.Signed {
				fmt.Fprintf(&b, "%d", r.Int(f.Name))
			} else {
				fmt.Fprintf(&b, "%d", r.Uint(f.Name))
			}
		case KindString:
			fmt.Fprintf(&b, "%q", r.Bytes(f.Name))
		case KindList:
			if f.Elem == nil {
				fmt.Fprintf(&b, "%v", r.Uints(f.Name))
			} else {
				fmt.Fprintf(&b, "%v", r.Records(f.Name))
			}
		case KindStruct:
			b.WriteString(r.Struct(f.Name).String())
		}
	}
	b.WriteByte('}')
	return b.String()
}

func normalize(f Field, v any) (any, error) {
	switch f.Kind {
	case KindScalar, KindDerived:
		n, ok := toUint32(v)
		if !ok {
			return nil, fmt.Errorf("%w: %T for %s field", ErrFieldTypeMismatch, v, f.Kind)
		}
		return n & widthMask(f.Width), nil
	case KindString:
		switch s := v.(type) {
		case string:
			return []byte(s), nil
		case []byte:
			out := make([]byte, len(s))
			copy(out, s)
			return out, nil
		}
	case KindList:
		if f.Elem != nil {
			recs, ok := v.([]*Record)
			if !ok {
				break
			}
			for i, rec := range recs {
				if rec == nil || rec.schema != f.Elem {
					return nil, fmt.Errorf("%w: element %d is not %s", ErrSchemaMismatch, i, f.Elem.name)
				}
			}
			return recs, nil
		}
		return toUint32s(v, f.Width)
	case KindStruct:
		rec, ok := v.(*Record)
		if !ok {
			break
		}
		if rec == nil || rec.schema != f.Elem {
			return nil, fmt.Errorf("%w: want %s", ErrSchemaMismatch, f.Elem.name)
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("%w: %s fields are not assignable", ErrFieldTypeMismatch, f.Kind)
	}
	return nil, fmt.Errorf("%w: %T for %s field", ErrFieldTypeMismatch, v, f.Kind)
}

func toUint32(v any) (uint32, bool) {
	switch n := v.(type) {
	case uint8:
		return uint32(n), true
	case uint16:
		return uint32(n), true
	case uint32:
		return n, true
	case uint64:
		return uint32(n), true
	case uint:
		return uint32(n), true
	case int8:
		return uint32(n), true
	case int16:
		return uint32(n), true
	case int32:
		return uint32(n), true
	case int64:
		return uint32(n), true
	case int:
		return uint32(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func toUint32s(v any, width int) (any, error) {
	var out []uint32
	switch s := v.(type) {
	case []uint32:
		out = make([]uint32, len(s))
		copy(out, s)
	case []uint16:
		out = make([]uint32, len(s))
		for i, n := range s {
			out[i] = uint32(n)
		}
	case []uint8:
		out = make([]uint32, len(s))
		for i, n := range s {
			out[i] = uint32(n)
		}
	case []int:
		out = make([]uint32, len(s))
		for i, n := range s {
			out[i] = uint32(n)
		}
	case []int16:
		out = make([]uint32, len(s))
		for i, n := range s {
			out[i] = uint32(n)
		}
	case []int32:
		out = make([]uint32, len(s))
		for i, n := range s {
			out[i] = uint32(n)
		}
	default:
		return nil, fmt.Errorf("%w: %T for scalar list", ErrFieldTypeMismatch, v)
	}
	mask := widthMask(width)
	for i := range out {
		out[i] &= mask
	}
	return out, nil
}
