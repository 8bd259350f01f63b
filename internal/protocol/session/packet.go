package session

import (
	"fmt"

	"github.com/danmuck/xconn/internal/protocol"
	"github.com/danmuck/xconn/internal/protocol/frame"
	"github.com/danmuck/xconn/internal/protocol/schema"
)

// Packet is one server packet: *ServerError, *Reply or *Event.
type Packet interface {
	Kind() frame.Kind
	Sequence() uint16
}

// ServerError is a decoded protocol error. It is returned as a value to the
// caller that issued the offending request and does not end the connection.
type ServerError struct {
	Code        uint8
	Seq         uint16
	BadResource uint32
	MajorOpcode uint8
	MinorOpcode uint16
	Record      *protocol.Record
}

func newServerError(rec *protocol.Record) *ServerError {
	return &ServerError{
		Code:        uint8(rec.Uint("code")),
		Seq:         uint16(rec.Uint("sequence_number")),
		BadResource: rec.Uint("bad_resource_id"),
		MajorOpcode: uint8(rec.Uint("major_opcode")),
		MinorOpcode: uint16(rec.Uint("minor_opcode")),
		Record:      rec,
	}
}

func (e *ServerError) Error() string {
	return fmt.Sprintf(
		"session: X error %s (code=%d) seq=%d major=%d minor=%d resource=0x%x",
		schema.ErrorCodeName(e.Code),
		e.Code,
		e.Seq,
		e.MajorOpcode,
		e.MinorOpcode,
		e.BadResource,
	)
}

func (e *ServerError) Kind() frame.Kind { return frame.KindError }
func (e *ServerError) Sequence() uint16 { return e.Seq }

// Reply is a raw framed reply; decode it with the schema of the request that
// produced it.
type Reply struct {
	Header frame.Header
	Bytes  []byte
}

func (r *Reply) Kind() frame.Kind { return frame.KindReply }
func (r *Reply) Sequence() uint16 { return r.Header.Sequence }

func (r *Reply) Decode(s *protocol.Schema) (*protocol.Record, error) {
	return protocol.Unmarshal(r.Bytes, s)
}

// Event is an asynchronous event. Record is nil when no schema is registered
// for Code; Raw always holds the 32 wire bytes.
type Event struct {
	Code      uint8
	Name      string
	Synthetic bool
	Seq       uint16
	Record    *protocol.Record
	Raw       []byte
}

func (e *Event) Kind() frame.Kind { return frame.KindEvent }
func (e *Event) Sequence() uint16 { return e.Seq }

func (e *Event) String() string {
	if e.Record == nil {
		return fmt.Sprintf("%s raw=% x", e.Name, e.Raw)
	}
	return e.Record.String()
}
