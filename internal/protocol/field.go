package protocol

import (
	"encoding/binary"
	"fmt"
)

// Kind is the role a field plays within a schema.
type Kind uint8

const (
	KindScalar Kind = iota + 1
	KindDerived
	KindPad
	KindLength
	KindString
	KindList
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindDerived:
		return "derived"
	case KindPad:
		return "pad"
	case KindLength:
		return "length"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field describes one element of a packet schema.
//
// Width applies to scalar, derived and length fields, and to the elements of a
// scalar list. Elem is the nested schema of a struct field or of a list of
// structs. A nil Order inherits the schema's byte order.
type Field struct {
	Name   string
	Kind   Kind
	Width  int
	Signed bool
	Order  binary.ByteOrder

	// Of names the string or list a length field governs.
	Of string
	// Elem is the nested schema for KindStruct and struct lists.
	Elem *Schema

	PadSize int
	PadFunc func(*Record) int

	Compute func(*Record) uint32
}

// WithOrder overrides the schema byte order for this field.
func (f Field) WithOrder(order binary.ByteOrder) Field {
	f.Order = order
	return f
}

func scalar(name string, width int, signed bool) Field {
	return Field{Name: name, Kind: KindScalar, Width: width, Signed: signed}
}

func Card8(name string) Field  { return scalar(name, 1, false) }
func Card16(name string) Field { return scalar(name, 2, false) }
func Card32(name string) Field { return scalar(name, 4, false) }
func Int8(name string) Field   { return scalar(name, 1, true) }
func Int16(name string) Field  { return scalar(name, 2, true) }
func Int32(name string) Field  { return scalar(name, 4, true) }

// Bool is a one byte scalar holding 0 or 1.
func Bool(name string) Field { return scalar(name, 1, false) }

// Derived is computed from sibling values at encode time and read back as a
// plain scalar at decode time.
func Derived(name string, width int, compute func(*Record) uint32) Field {
	return Field{Name: name, Kind: KindDerived, Width: width, Compute: compute}
}

// Const is a derived field with a fixed value, e.g. a request opcode.
func Const(name string, width int, v uint32) Field {
	return Derived(name, width, func(*Record) uint32 { return v })
}

// Pad is n unused zero bytes.
func Pad(n int) Field {
	return Field{Kind: KindPad, PadSize: n}
}

// PadBy is unused bytes whose count depends on sibling values.
func PadBy(fn func(*Record) int) Field {
	return Field{Kind: KindPad, PadFunc: fn}
}

// PadTo4 pads the byte length of the named string or list to a 4-byte boundary.
func PadTo4(of string) Field {
	return PadBy(func(r *Record) int {
		return Pad4(r.Len(of))
	})
}

// Pad4 returns the bytes needed to align n to a multiple of four.
func Pad4(n int) int {
	return (4 - n%4) % 4
}

// Length is a count prefix for the named string (bytes) or list (elements).
func Length(name string, width int, of string) Field {
	return Field{Name: name, Kind: KindLength, Width: width, Of: of}
}

// String is raw bytes sized by a preceding Length field.
func String(name string) Field {
	return Field{Name: name, Kind: KindString}
}

// List repeats a nested schema.
func List(name string, elem *Schema) Field {
	return Field{Name: name, Kind: KindList, Elem: elem}
}

// ScalarList repeats an unsigned scalar of the given width.
func ScalarList(name string, width int) Field {
	return Field{Name: name, Kind: KindList, Width: width}
}

// Struct embeds one nested schema instance.
func Struct(name string, elem *Schema) Field {
	return Field{Name: name, Kind: KindStruct, Elem: elem}
}

func (f Field) padLen(r *Record) int {
	if f.PadFunc != nil {
		return f.PadFunc(r)
	}
	return f.PadSize
}

// fixedSize reports the encoded size of f when it does not depend on values.
func (f Field) fixedSize() (int, bool) {
	switch f.Kind {
	case KindScalar, KindDerived, KindLength:
		return f.Width, true
	case KindPad:
		if f.PadFunc != nil {
			return 0, false
		}
		return f.PadSize, true
	case KindStruct:
		return f.Elem.FixedSize()
	default:
		return 0, false
	}
}

func validWidth(w int) bool {
	return w == 1 || w == 2 || w == 4
}

func widthMask(w int) uint32 {
	switch w {
	case 1:
		return 0xff
	case 2:
		return 0xffff
	default:
		return 0xffffffff
	}
}
