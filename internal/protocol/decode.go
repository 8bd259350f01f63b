package protocol

import (
	"errors"
	"fmt"
	"io"
)

// maxGovernedBytes bounds allocations driven by length fields read off the
// wire.
const maxGovernedBytes = 16 << 20

// Decode reads one record of schema s from a stream. Strings and lists must be
// governed by a length field.
func Decode(r io.Reader, s *Schema) (*Record, error) {
	d := &decoder{r: r}
	return d.record(s)
}

// Unmarshal decodes one record of schema s from a framed buffer holding a
// single packet. The buffer end bounds every length-governed read; a string or
// list without a length field takes the rest of the buffer. Trailing bytes
// after the last field are ignored.
func Unmarshal(buf []byte, s *Schema) (*Record, error) {
	d := &decoder{buf: buf, framed: true}
	return d.record(s)
}

type decoder struct {
	r io.Reader

	buf    []byte
	off    int
	framed bool
	// gated counts nested reads sized by a length field; overruns inside one
	// are malformed rather than truncated.
	gated int
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.off
}

func (d *decoder) take(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if d.framed {
		if n > d.remaining() {
			if d.gated > 0 {
				return nil, fmt.Errorf("%w: read of %d bytes past packet boundary", ErrMalformedPacket, n)
			}
			d.off = len(d.buf)
			return nil, ErrTruncatedStream
		}
		b := d.buf[d.off : d.off+n]
		d.off += n
		return b, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedStream
		}
		return nil, err
	}
	return b, nil
}

func (d *decoder) record(s *Schema) (*Record, error) {
	rec := s.New()
	var lengths map[string]int
	for _, f := range s.fields {
		var err error
		switch f.Kind {
		case KindScalar, KindDerived:
			var b []byte
			if b, err = d.take(f.Width); err == nil {
				rec.values[f.Name] = getScalar(f.Order, b)
			}
		case KindPad:
			_, err = d.take(f.padLen(rec))
		case KindLength:
			var b []byte
			if b, err = d.take(f.Width); err == nil {
				if lengths == nil {
					lengths = make(map[string]int)
				}
				lengths[f.Of] = int(getScalar(f.Order, b))
			}
		case KindString:
			err = d.str(rec, f, lengths)
		case KindList:
			err = d.list(rec, f, lengths)
		case KindStruct:
			var nested *Record
			if nested, err = d.record(f.Elem); err == nil {
				rec.values[f.Name] = nested
			}
		}
		if err != nil {
			return nil, fieldErr(s, f, err)
		}
	}
	return rec, nil
}

func (d *decoder) str(rec *Record, f Field, lengths map[string]int) error {
	n, ok := lengths[f.Name]
	if !ok {
		if !d.framed {
			return fmt.Errorf("%w: string has no length field", ErrMalformedPacket)
		}
		n = d.remaining()
	}
	if n > maxGovernedBytes || (d.framed && n > d.remaining()) {
		return fmt.Errorf("%w: string length %d exceeds packet", ErrMalformedPacket, n)
	}
	b, err := d.take(n)
	if err != nil {
		return err
	}
	out := make([]byte, n)
	copy(out, b)
	rec.values[f.Name] = out
	return nil
}

func (d *decoder) list(rec *Record, f Field, lengths map[string]int) error {
	count, ok := lengths[f.Name]
	if !ok {
		if !d.framed {
			return fmt.Errorf("%w: list has no length field", ErrMalformedPacket)
		}
		size := f.Width
		if f.Elem != nil {
			var fixed bool
			if size, fixed = f.Elem.FixedSize(); !fixed || size == 0 {
				return fmt.Errorf("%w: unsized list of variable elements", ErrMalformedPacket)
			}
		}
		count = d.remaining() / size
	}
	if count > maxGovernedBytes {
		return fmt.Errorf("%w: list count %d", ErrMalformedPacket, count)
	}
	if d.framed {
		minSize := f.Width
		if f.Elem != nil {
			minSize, _ = f.Elem.FixedSize()
		}
		if count*minSize > d.remaining() {
			return fmt.Errorf("%w: list of %d elements exceeds packet", ErrMalformedPacket, count)
		}
	}

	d.gated++
	defer func() { d.gated-- }()

	if f.Elem == nil {
		out := make([]uint32, 0, count)
		for i := 0; i < count; i++ {
			b, err := d.take(f.Width)
			if err != nil {
				return err
			}
			out = append(out, getScalar(f.Order, b))
		}
		rec.values[f.Name] = out
		return nil
	}
	out := make([]*Record, 0, min(count, 1024))
	for i := 0; i < count; i++ {
		el, err := d.record(f.Elem)
		if err != nil {
			return err
		}
		out = append(out, el)
	}
	rec.values[f.Name] = out
	return nil
}
