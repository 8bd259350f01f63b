package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedPacket   = errors.New("protocol: malformed packet")
	ErrTruncatedStream   = errors.New("protocol: truncated stream")
	ErrUnknownField      = errors.New("protocol: unknown field")
	ErrFieldTypeMismatch = errors.New("protocol: field type mismatch")
	ErrSchemaMismatch    = errors.New("protocol: nested schema mismatch")
	ErrInvalidSchema     = errors.New("protocol: invalid schema")
	ErrLengthOverflow    = errors.New("protocol: length exceeds prefix width")
	ErrNilRecord         = errors.New("protocol: nil record")
)

// FieldError reports which field of which schema failed to encode or decode.
type FieldError struct {
	Schema string
	Field  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("protocol: %s.%s: %v", e.Schema, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErr(s *Schema, f Field, err error) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		return err
	}
	name := f.Name
	if name == "" {
		name = f.Kind.String()
	}
	return &FieldError{Schema: s.name, Field: name, Err: err}
}
