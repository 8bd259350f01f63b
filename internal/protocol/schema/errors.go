package schema

import (
	"fmt"

	"github.com/danmuck/xconn/internal/protocol"
)

// Core protocol error codes.
const (
	ErrorRequest        uint8 = 1
	ErrorValue          uint8 = 2
	ErrorWindow         uint8 = 3
	ErrorPixmap         uint8 = 4
	ErrorAtom           uint8 = 5
	ErrorCursor         uint8 = 6
	ErrorFont           uint8 = 7
	ErrorMatch          uint8 = 8
	ErrorDrawable       uint8 = 9
	ErrorAccess         uint8 = 10
	ErrorAlloc          uint8 = 11
	ErrorColormap       uint8 = 12
	ErrorGContext       uint8 = 13
	ErrorIDChoice       uint8 = 14
	ErrorName           uint8 = 15
	ErrorLength         uint8 = 16
	ErrorImplementation uint8 = 17
)

var errorNames = map[uint8]string{
	ErrorRequest:        "Request",
	ErrorValue:          "Value",
	ErrorWindow:         "Window",
	ErrorPixmap:         "Pixmap",
	ErrorAtom:           "Atom",
	ErrorCursor:         "Cursor",
	ErrorFont:           "Font",
	ErrorMatch:          "Match",
	ErrorDrawable:       "Drawable",
	ErrorAccess:         "Access",
	ErrorAlloc:          "Alloc",
	ErrorColormap:       "Colormap",
	ErrorGContext:       "GContext",
	ErrorIDChoice:       "IDChoice",
	ErrorName:           "Name",
	ErrorLength:         "Length",
	ErrorImplementation: "Implementation",
}

// ErrorCodeName names a core error code; extension codes render numerically.
func ErrorCodeName(code uint8) string {
	if name, ok := errorNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Error(%d)", code)
}

// Error is the 32-byte error packet (type byte 0).
var Error = protocol.MustSchema("Error", le,
	protocol.Card8("error"),
	protocol.Card8("code"),
	protocol.Card16("sequence_number"),
	protocol.Card32("bad_resource_id"),
	protocol.Card16("minor_opcode"),
	protocol.Card8("major_opcode"),
	protocol.Pad(21),
)
