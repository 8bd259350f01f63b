package schema

import (
	"fmt"

	"github.com/danmuck/xconn/internal/protocol"
)

// Core event codes.
const (
	EventKeyPress         uint8 = 2
	EventKeyRelease       uint8 = 3
	EventButtonPress      uint8 = 4
	EventButtonRelease    uint8 = 5
	EventMotionNotify     uint8 = 6
	EventEnterNotify      uint8 = 7
	EventLeaveNotify      uint8 = 8
	EventFocusIn          uint8 = 9
	EventFocusOut         uint8 = 10
	EventKeymapNotify     uint8 = 11
	EventExpose           uint8 = 12
	EventGraphicsExposure uint8 = 13
	EventNoExposure       uint8 = 14
	EventVisibilityNotify uint8 = 15
	EventCreateNotify     uint8 = 16
	EventDestroyNotify    uint8 = 17
	EventUnmapNotify      uint8 = 18
	EventMapNotify        uint8 = 19
	EventMapRequest       uint8 = 20
	EventReparentNotify   uint8 = 21
	EventConfigureNotify  uint8 = 22
	EventConfigureRequest uint8 = 23
	EventGravityNotify    uint8 = 24
	EventResizeRequest    uint8 = 25
	EventCirculateNotify  uint8 = 26
	EventCirculateRequest uint8 = 27
	EventPropertyNotify   uint8 = 28
	EventSelectionClear   uint8 = 29
	EventSelectionRequest uint8 = 30
	EventSelectionNotify  uint8 = 31
	EventColormapNotify   uint8 = 32
	EventClientMessage    uint8 = 33
	EventMappingNotify    uint8 = 34
)

// EventSize is the fixed wire size of every core event.
const EventSize = 32

var eventNames = map[uint8]string{
	EventKeyPress:         "KeyPress",
	EventKeyRelease:       "KeyRelease",
	EventButtonPress:      "ButtonPress",
	EventButtonRelease:    "ButtonRelease",
	EventMotionNotify:     "MotionNotify",
	EventEnterNotify:      "EnterNotify",
	EventLeaveNotify:      "LeaveNotify",
	EventFocusIn:          "FocusIn",
	EventFocusOut:         "FocusOut",
	EventKeymapNotify:     "KeymapNotify",
	EventExpose:           "Expose",
	EventGraphicsExposure: "GraphicsExposure",
	EventNoExposure:       "NoExposure",
	EventVisibilityNotify: "VisibilityNotify",
	EventCreateNotify:     "CreateNotify",
	EventDestroyNotify:    "DestroyNotify",
	EventUnmapNotify:      "UnmapNotify",
	EventMapNotify:        "MapNotify",
	EventMapRequest:       "MapRequest",
	EventReparentNotify:   "ReparentNotify",
	EventConfigureNotify:  "ConfigureNotify",
	EventConfigureRequest: "ConfigureRequest",
	EventGravityNotify:    "GravityNotify",
	EventResizeRequest:    "ResizeRequest",
	EventCirculateNotify:  "CirculateNotify",
	EventCirculateRequest: "CirculateRequest",
	EventPropertyNotify:   "PropertyNotify",
	EventSelectionClear:   "SelectionClear",
	EventSelectionRequest: "SelectionRequest",
	EventSelectionNotify:  "SelectionNotify",
	EventColormapNotify:   "ColormapNotify",
	EventClientMessage:    "ClientMessage",
	EventMappingNotify:    "MappingNotify",
}

// EventName names a core event code; unknown codes render numerically.
func EventName(code uint8) string {
	if name, ok := eventNames[code&0x7f]; ok {
		return name
	}
	return fmt.Sprintf("Event(%d)", code&0x7f)
}

// eventHeader is the code/detail/sequence prefix shared by every core event
// except KeymapNotify.
func eventHeader(detail string) []protocol.Field {
	d := protocol.Pad(1)
	if detail != "" {
		d = protocol.Card8(detail)
	}
	return []protocol.Field{
		protocol.Card8("code"),
		d,
		protocol.Card16("sequence_number"),
	}
}

func event(name, detail string, fields ...protocol.Field) *protocol.Schema {
	return protocol.MustSchema(name, le, append(eventHeader(detail), fields...)...)
}

// input is the body shared by key, button and motion events.
func input(name string) *protocol.Schema {
	return event(name, "detail",
		protocol.Card32("time"),
		protocol.Card32("root"),
		protocol.Card32("event"),
		protocol.Card32("child"),
		protocol.Int16("root_x"),
		protocol.Int16("root_y"),
		protocol.Int16("event_x"),
		protocol.Int16("event_y"),
		protocol.Card16("state"),
		protocol.Bool("same_screen"),
		protocol.Pad(1),
	)
}

func crossing(name string) *protocol.Schema {
	return event(name, "detail",
		protocol.Card32("time"),
		protocol.Card32("root"),
		protocol.Card32("event"),
		protocol.Card32("child"),
		protocol.Int16("root_x"),
		protocol.Int16("root_y"),
		protocol.Int16("event_x"),
		protocol.Int16("event_y"),
		protocol.Card16("state"),
		protocol.Card8("mode"),
		protocol.Card8("same_screen_focus"),
	)
}

func focus(name string) *protocol.Schema {
	return event(name, "detail",
		protocol.Card32("event"),
		protocol.Card8("mode"),
		protocol.Pad(23),
	)
}

var (
	KeyPress      = input("KeyPress")
	KeyRelease    = input("KeyRelease")
	ButtonPress   = input("ButtonPress")
	ButtonRelease = input("ButtonRelease")
	MotionNotify  = input("MotionNotify")
	EnterNotify   = crossing("EnterNotify")
	LeaveNotify   = crossing("LeaveNotify")
	FocusIn       = focus("FocusIn")
	FocusOut      = focus("FocusOut")

	Expose = event("Expose", "",
		protocol.Card32("window"),
		protocol.Card16("x"),
		protocol.Card16("y"),
		protocol.Card16("width"),
		protocol.Card16("height"),
		protocol.Card16("count"),
		protocol.Pad(14),
	)

	NoExposure = event("NoExposure", "",
		protocol.Card32("drawable"),
		protocol.Card16("minor_opcode"),
		protocol.Card8("major_opcode"),
		protocol.Pad(21),
	)

	CreateNotify = event("CreateNotify", "",
		protocol.Card32("parent"),
		protocol.Card32("window"),
		protocol.Int16("x"),
		protocol.Int16("y"),
		protocol.Card16("width"),
		protocol.Card16("height"),
		protocol.Card16("border_width"),
		protocol.Bool("override_redirect"),
		protocol.Pad(9),
	)

	DestroyNotify = event("DestroyNotify", "",
		protocol.Card32("event"),
		protocol.Card32("window"),
		protocol.Pad(20),
	)

	UnmapNotify = event("UnmapNotify", "",
		protocol.Card32("event"),
		protocol.Card32("window"),
		protocol.Bool("from_configure"),
		protocol.Pad(19),
	)

	MapNotify = event("MapNotify", "",
		protocol.Card32("event"),
		protocol.Card32("window"),
		protocol.Bool("override_redirect"),
		protocol.Pad(19),
	)

	MapRequest = event("MapRequest", "",
		protocol.Card32("parent"),
		protocol.Card32("window"),
		protocol.Pad(20),
	)

	ReparentNotify = event("ReparentNotify", "",
		protocol.Card32("event"),
		protocol.Card32("window"),
		protocol.Card32("parent"),
		protocol.Int16("x"),
		protocol.Int16("y"),
		protocol.Bool("override_redirect"),
		protocol.Pad(11),
	)

	ConfigureNotify = event("ConfigureNotify", "",
		protocol.Card32("event"),
		protocol.Card32("window"),
		protocol.Card32("above_sibling"),
		protocol.Int16("x"),
		protocol.Int16("y"),
		protocol.Card16("width"),
		protocol.Card16("height"),
		protocol.Card16("border_width"),
		protocol.Bool("override_redirect"),
		protocol.Pad(5),
	)

	ConfigureRequest = event("ConfigureRequest", "stack_mode",
		protocol.Card32("parent"),
		protocol.Card32("window"),
		protocol.Card32("sibling"),
		protocol.Int16("x"),
		protocol.Int16("y"),
		protocol.Card16("width"),
		protocol.Card16("height"),
		protocol.Card16("border_width"),
		protocol.Card16("value_mask"),
		protocol.Pad(4),
	)

	PropertyNotify = event("PropertyNotify", "",
		protocol.Card32("window"),
		protocol.Card32("atom"),
		protocol.Card32("time"),
		protocol.Card8("state"),
		protocol.Pad(15),
	)

	ClientMessage = event("ClientMessage", "format",
		protocol.Card32("window"),
		protocol.Card32("type"),
		protocol.Card32("data0"),
		protocol.Card32("data1"),
		protocol.Card32("data2"),
		protocol.Card32("data3"),
		protocol.Card32("data4"),
	)

	MappingNotify = event("MappingNotify", "",
		protocol.Card8("request"),
		protocol.Card8("first_keycode"),
		protocol.Card8("count"),
		protocol.Pad(25),
	)
)

var events = map[uint8]*protocol.Schema{
	EventKeyPress:         KeyPress,
	EventKeyRelease:       KeyRelease,
	EventButtonPress:      ButtonPress,
	EventButtonRelease:    ButtonRelease,
	EventMotionNotify:     MotionNotify,
	EventEnterNotify:      EnterNotify,
	EventLeaveNotify:      LeaveNotify,
	EventFocusIn:          FocusIn,
	EventFocusOut:         FocusOut,
	EventExpose:           Expose,
	EventNoExposure:       NoExposure,
	EventCreateNotify:     CreateNotify,
	EventDestroyNotify:    DestroyNotify,
	EventUnmapNotify:      UnmapNotify,
	EventMapNotify:        MapNotify,
	EventMapRequest:       MapRequest,
	EventReparentNotify:   ReparentNotify,
	EventConfigureNotify:  ConfigureNotify,
	EventConfigureRequest: ConfigureRequest,
	EventPropertyNotify:   PropertyNotify,
	EventClientMessage:    ClientMessage,
	EventMappingNotify:    MappingNotify,
}

// Event returns the schema registered for an event code. The synthetic bit
// (0x80) is ignored.
func Event(code uint8) (*protocol.Schema, bool) {
	s, ok := events[code&0x7f]
	return s, ok
}
