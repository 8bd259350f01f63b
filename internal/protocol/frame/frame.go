package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderLen is the size of every server-to-client packet header. Errors and
// events are exactly one header long; replies may carry trailing words.
const HeaderLen = 32

// Packet type bytes. Every other value (2..127) is an event code.
const (
	TypeError uint8 = 0
	TypeReply uint8 = 1

	// SyntheticBit marks events generated by SendEvent.
	SyntheticBit uint8 = 0x80
)

var (
	ErrReplyTooLarge  = errors.New("frame: reply too large")
	ErrInvalidHeader  = errors.New("frame: invalid header")
	ErrTruncatedReply = errors.New("frame: truncated reply body")
)

type Kind uint8

const (
	KindError Kind = iota
	KindReply
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindReply:
		return "reply"
	default:
		return "event"
	}
}

// Header is the decoded fixed prefix of a server packet.
type Header struct {
	Type      uint8
	Synthetic bool
	// Detail is the error code for errors, a reply-specific byte for replies,
	// and the event detail for events.
	Detail   uint8
	Sequence uint16
	// Length counts the 4-byte words following the header; replies only.
	Length uint32
}

func (h Header) Kind() Kind {
	switch h.Type {
	case TypeError:
		return KindError
	case TypeReply:
		return KindReply
	default:
		return KindEvent
	}
}

// BodyLen is the number of bytes that follow the fixed header.
func (h Header) BodyLen() uint64 {
	if h.Type != TypeReply {
		return 0
	}
	return uint64(h.Length) * 4
}

// Frame is one complete server packet: header plus any reply body.
type Frame struct {
	Header Header
	Bytes  []byte
}

// Limits constrains frame decode memory use.
type Limits struct {
	MaxReplyBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxReplyBytes: 16 * 1024 * 1024,
	}
}

// ReadBody completes a frame whose 32 header bytes have already been read.
// The header slice is retained as the start of Frame.Bytes.
func ReadBody(r io.Reader, header []byte, limits Limits) (Frame, error) {
	h, err := DecodeHeader(header)
	if err != nil {
		return Frame{}, err
	}
	n := h.BodyLen()
	if n > limits.MaxReplyBytes {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrReplyTooLarge, n)
	}
	if n == 0 {
		return Frame{Header: h, Bytes: header}, nil
	}
	buf := make([]byte, HeaderLen+int(n))
	copy(buf, header)
	if _, err := io.ReadFull(r, buf[HeaderLen:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrTruncatedReply
		}
		return Frame{}, err
	}
	return Frame{Header: h, Bytes: buf}, nil
}

// EncodeHeader is the inverse of DecodeHeader. Length is written for replies
// only.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	buf[0] = h.Type & 0x7f
	if h.Synthetic {
		buf[0] |= SyntheticBit
	}
	buf[1] = h.Detail
	binary.LittleEndian.PutUint16(buf[2:4], h.Sequence)
	if h.Type == TypeReply {
		binary.LittleEndian.PutUint32(buf[4:8], h.Length)
	}
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, fmt.Errorf("%w: length %d", ErrInvalidHeader, len(b))
	}
	h := Header{
		Type:      b[0] &^ SyntheticBit,
		Synthetic: b[0]&SyntheticBit != 0,
		Detail:    b[1],
		Sequence:  binary.LittleEndian.Uint16(b[2:4]),
	}
	if h.Type == TypeReply {
		h.Length = binary.LittleEndian.Uint32(b[4:8])
	}
	return h, nil
}
