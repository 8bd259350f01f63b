package schema

import (
	"errors"
	"fmt"

	logs "github.com/danmuck/xconn/internal/logging"
	"github.com/danmuck/xconn/internal/protocol"
)

// Core request opcodes.
const (
	OpCreateWindow           uint8 = 1
	OpChangeWindowAttributes uint8 = 2
	OpDestroyWindow          uint8 = 4
	OpMapWindow              uint8 = 8
	OpUnmapWindow            uint8 = 10
	OpConfigureWindow        uint8 = 12
	OpGetGeometry            uint8 = 14
	OpInternAtom             uint8 = 16
	OpGetAtomName            uint8 = 17
	OpOpenFont               uint8 = 45
	OpListFonts              uint8 = 49
	OpCreatePixmap           uint8 = 53
	OpCreateGC               uint8 = 55
	OpChangeGC               uint8 = 56
	OpClearArea              uint8 = 61
	OpPolyFillRectangle      uint8 = 70
	OpPutImage               uint8 = 72
	OpImageText8             uint8 = 76
	OpCreateColormap         uint8 = 78
	OpQueryExtension         uint8 = 98
	OpNoOperation            uint8 = 127
)

// Window classes.
const (
	CopyFromParent uint32 = 0
	InputOutput    uint32 = 1
	InputOnly      uint32 = 2
)

// Window attribute value-mask bits.
const (
	CWBackPixel   uint32 = 0x0002
	CWBorderPixel uint32 = 0x0008
	CWEventMask   uint32 = 0x0800
	CWColormap    uint32 = 0x2000
)

// Event mask bits.
const (
	KeyPressMask           uint32 = 0x00001
	KeyReleaseMask         uint32 = 0x00002
	ButtonPressMask        uint32 = 0x00004
	ButtonReleaseMask      uint32 = 0x00008
	PointerMotionMask      uint32 = 0x00040
	ExposureMask           uint32 = 0x08000
	StructureNotifyMask    uint32 = 0x20000
	SubstructureNotifyMask uint32 = 0x80000
	PropertyChangeMask     uint32 = 0x400000
)

// Graphics context value-mask bits.
const (
	GCFunction   uint32 = 0x0001
	GCPlaneMask  uint32 = 0x0002
	GCForeground uint32 = 0x0004
	GCBackground uint32 = 0x0008
	GCFont       uint32 = 0x4000
)

// Image formats for PutImage.
const (
	ImageBitmap   uint8 = 0
	ImageXYPixmap uint8 = 1
	ImageZPixmap  uint8 = 2
)

// RequestLengthField is the derived word count every core request carries at
// byte offset 2.
const RequestLengthField = "request_length"

var ErrBadRequestLength = errors.New("schema: request length mismatch")

type ValidationError struct {
	Request string
	Reason  string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("schema: request=%s: %s", e.Request, e.Reason)
}

func (e ValidationError) Unwrap() error {
	return ErrBadRequestLength
}

var requests = map[uint8]*protocol.Schema{
	OpCreateWindow:           CreateWindow,
	OpChangeWindowAttributes: ChangeWindowAttributes,
	OpDestroyWindow:          DestroyWindow,
	OpMapWindow:              MapWindow,
	OpUnmapWindow:            UnmapWindow,
	OpConfigureWindow:        ConfigureWindow,
	OpGetGeometry:            GetGeometry,
	OpInternAtom:             InternAtom,
	OpGetAtomName:            GetAtomName,
	OpOpenFont:               OpenFont,
	OpListFonts:              ListFonts,
	OpCreatePixmap:           CreatePixmap,
	OpCreateGC:               CreateGC,
	OpChangeGC:               ChangeGC,
	OpClearArea:              ClearArea,
	OpPolyFillRectangle:      PolyFillRectangle,
	OpPutImage:               PutImage,
	OpImageText8:             ImageText8,
	OpCreateColormap:         CreateColormap,
	OpQueryExtension:         QueryExtension,
	OpNoOperation:            NoOperation,
}

// Request returns the schema registered for a core opcode.
func Request(opcode uint8) (*protocol.Schema, bool) {
	s, ok := requests[opcode]
	return s, ok
}

// Validate checks encoded request bytes against their record: the request
// must be 4-byte aligned, and a request_length field must count its words.
// Schemas without a request_length field (extension requests built by
// callers) are only checked for alignment.
func Validate(rec *protocol.Record, wire []byte) error {
	name := rec.Schema().Name()
	logs.Debugf("schema.Validate request=%s bytes=%d", name, len(wire))
	if len(wire) == 0 || len(wire)%4 != 0 {
		logs.Errf("schema.Validate unaligned request=%s bytes=%d", name, len(wire))
		return ValidationError{Request: name, Reason: fmt.Sprintf("%d bytes is not 4-byte aligned", len(wire))}
	}
	if _, ok := rec.Schema().Field(RequestLengthField); !ok {
		return nil
	}
	want := uint32(len(wire) / 4)
	got := uint32(wire[2]) | uint32(wire[3])<<8
	if got != want {
		logs.Errf("schema.Validate length mismatch request=%s got=%d want=%d", name, got, want)
		return ValidationError{
			Request: name,
			Reason:  fmt.Sprintf("request_length=%d but %d words encoded", got, want),
		}
	}
	return nil
}

// words is the number of 4-byte units needed to hold n bytes.
func words(n int) uint32 {
	return uint32((n + 3) / 4)
}
