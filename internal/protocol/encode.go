package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encode writes rec to w in schema order.
func Encode(w io.Writer, rec *Record) error {
	buf, err := Marshal(rec)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Marshal returns the wire bytes of rec.
func Marshal(rec *Record) ([]byte, error) {
	return appendRecord(nil, rec)
}

// Size returns the encoded length of rec without encoding it.
func (s *Schema) Size(rec *Record) (int, error) {
	if rec == nil {
		return 0, ErrNilRecord
	}
	if rec.schema != s {
		return 0, fmt.Errorf("%w: %s record sized as %s", ErrSchemaMismatch, rec.schema.name, s.name)
	}
	if rec.err != nil {
		return 0, rec.err
	}
	total := 0
	for _, f := range s.fields {
		switch f.Kind {
		case KindScalar, KindDerived, KindLength:
			total += f.Width
		case KindPad:
			total += f.padLen(rec)
		case KindString:
			total += rec.Len(f.Name)
		case KindList:
			if f.Elem == nil {
				total += f.Width * rec.Len(f.Name)
				continue
			}
			for _, el := range rec.Records(f.Name) {
				n, err := f.Elem.Size(el)
				if err != nil {
					return 0, fieldErr(s, f, err)
				}
				total += n
			}
		case KindStruct:
			nested := rec.Struct(f.Name)
			if nested == nil {
				nested = f.Elem.New()
			}
			n, err := f.Elem.Size(nested)
			if err != nil {
				return 0, fieldErr(s, f, err)
			}
			total += n
		}
	}
	return total, nil
}

func appendRecord(dst []byte, rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}
	if rec.err != nil {
		return nil, rec.err
	}
	s := rec.schema
	for _, f := range s.fields {
		var err error
		switch f.Kind {
		case KindScalar:
			dst = putScalar(dst, f.Order, f.Width, rec.Uint(f.Name))
		case KindDerived:
			dst = putScalar(dst, f.Order, f.Width, f.Compute(rec))
		case KindPad:
			dst = append(dst, make([]byte, f.padLen(rec))...)
		case KindLength:
			n := rec.Len(f.Of)
			if uint64(n) > uint64(widthMask(f.Width)) {
				return nil, fieldErr(s, f, ErrLengthOverflow)
			}
			dst = putScalar(dst, f.Order, f.Width, uint32(n))
		case KindString:
			dst = append(dst, rec.Bytes(f.Name)...)
		case KindList:
			dst, err = appendList(dst, f, rec)
		case KindStruct:
			nested := rec.Struct(f.Name)
			if nested == nil {
				nested = f.Elem.New()
			}
			dst, err = appendRecord(dst, nested)
		}
		if err != nil {
			return nil, fieldErr(s, f, err)
		}
	}
	return dst, nil
}

func appendList(dst []byte, f Field, rec *Record) ([]byte, error) {
	if f.Elem == nil {
		for _, v := range rec.Uints(f.Name) {
			dst = putScalar(dst, f.Order, f.Width, v)
		}
		return dst, nil
	}
	var err error
	for _, el := range rec.Records(f.Name) {
		if dst, err = appendRecord(dst, el); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func putScalar(dst []byte, order binary.ByteOrder, width int, v uint32) []byte {
	var tmp [4]byte
	switch width {
	case 1:
		tmp[0] = byte(v)
	case 2:
		order.PutUint16(tmp[:2], uint16(v))
	default:
		order.PutUint32(tmp[:4], v)
	}
	return append(dst, tmp[:width]...)
}

func getScalar(order binary.ByteOrder, b []byte) uint32 {
	switch len(b) {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(order.Uint16(b))
	default:
		return order.Uint32(b)
	}
}
