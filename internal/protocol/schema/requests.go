package schema

import "github.com/danmuck/xconn/internal/protocol"

// requestLength derives request_length as fixed words plus the 4-byte words
// needed by the named variable field.
func requestLength(fixed uint32, field string, unit int) protocol.Field {
	return protocol.Derived(RequestLengthField, 2, func(r *protocol.Record) uint32 {
		return fixed + words(r.Len(field)*unit)
	})
}

func fixedLength(n uint32) protocol.Field {
	return protocol.Const(RequestLengthField, 2, n)
}

func opcode(op uint8) protocol.Field {
	return protocol.Const("opcode", 1, uint32(op))
}

// GenericReply exposes the common reply header and leaves the rest of the
// frame as an opaque payload.
var GenericReply = protocol.MustSchema("GenericReply", le,
	protocol.Card8("reply"),
	protocol.Card8("data"),
	protocol.Card16("sequence_number"),
	protocol.Card32("reply_length"),
	protocol.String("payload"),
)

var Rectangle = protocol.MustSchema("Rectangle", le,
	protocol.Int16("x"),
	protocol.Int16("y"),
	protocol.Card16("width"),
	protocol.Card16("height"),
)

var CreateWindow = protocol.MustSchema("CreateWindow", le,
	opcode(OpCreateWindow),
	protocol.Card8("depth"),
	requestLength(8, "value_list", 4),
	protocol.Card32("wid"),
	protocol.Card32("parent"),
	protocol.Int16("x"),
	protocol.Int16("y"),
	protocol.Card16("width"),
	protocol.Card16("height"),
	protocol.Card16("border_width"),
	protocol.Card16("class"),
	protocol.Card32("visual"),
	protocol.Card32("value_mask"),
	protocol.ScalarList("value_list", 4),
)

var ChangeWindowAttributes = protocol.MustSchema("ChangeWindowAttributes", le,
	opcode(OpChangeWindowAttributes),
	protocol.Pad(1),
	requestLength(3, "value_list", 4),
	protocol.Card32("window"),
	protocol.Card32("value_mask"),
	protocol.ScalarList("value_list", 4),
)

var DestroyWindow = protocol.MustSchema("DestroyWindow", le,
	opcode(OpDestroyWindow),
	protocol.Pad(1),
	fixedLength(2),
	protocol.Card32("window"),
)

var MapWindow = protocol.MustSchema("MapWindow", le,
	opcode(OpMapWindow),
	protocol.Pad(1),
	fixedLength(2),
	protocol.Card32("window"),
)

var UnmapWindow = protocol.MustSchema("UnmapWindow", le,
	opcode(OpUnmapWindow),
	protocol.Pad(1),
	fixedLength(2),
	protocol.Card32("window"),
)

var ConfigureWindow = protocol.MustSchema("ConfigureWindow", le,
	opcode(OpConfigureWindow),
	protocol.Pad(1),
	requestLength(3, "value_list", 4),
	protocol.Card32("window"),
	protocol.Card16("value_mask"),
	protocol.Pad(2),
	protocol.ScalarList("value_list", 4),
)

var GetGeometry = protocol.MustSchema("GetGeometry", le,
	opcode(OpGetGeometry),
	protocol.Pad(1),
	fixedLength(2),
	protocol.Card32("drawable"),
)

var GetGeometryReply = protocol.MustSchema("GetGeometryReply", le,
	protocol.Card8("reply"),
	protocol.Card8("depth"),
	protocol.Card16("sequence_number"),
	protocol.Card32("reply_length"),
	protocol.Card32("root"),
	protocol.Int16("x"),
	protocol.Int16("y"),
	protocol.Card16("width"),
	protocol.Card16("height"),
	protocol.Card16("border_width"),
	protocol.Pad(10),
)

var InternAtom = protocol.MustSchema("InternAtom", le,
	opcode(OpInternAtom),
	protocol.Bool("only_if_exists"),
	requestLength(2, "name", 1),
	protocol.Length("name_len", 2, "name"),
	protocol.Pad(2),
	protocol.String("name"),
	protocol.PadTo4("name"),
)

var InternAtomReply = protocol.MustSchema("InternAtomReply", le,
	protocol.Card8("reply"),
	protocol.Pad(1),
	protocol.Card16("sequence_number"),
	protocol.Card32("reply_length"),
	protocol.Card32("atom"),
	protocol.Pad(20),
)

var GetAtomName = protocol.MustSchema("GetAtomName", le,
	opcode(OpGetAtomName),
	protocol.Pad(1),
	fixedLength(2),
	protocol.Card32("atom"),
)

var GetAtomNameReply = protocol.MustSchema("GetAtomNameReply", le,
	protocol.Card8("reply"),
	protocol.Pad(1),
	protocol.Card16("sequence_number"),
	protocol.Card32("reply_length"),
	protocol.Length("name_len", 2, "name"),
	protocol.Pad(22),
	protocol.String("name"),
	protocol.PadTo4("name"),
)

var OpenFont = protocol.MustSchema("OpenFont", le,
	opcode(OpOpenFont),
	protocol.Pad(1),
	requestLength(3, "name", 1),
	protocol.Card32("fid"),
	protocol.Length("name_len", 2, "name"),
	protocol.Pad(2),
	protocol.String("name"),
	protocol.PadTo4("name"),
)

var ListFonts = protocol.MustSchema("ListFonts", le,
	opcode(OpListFonts),
	protocol.Pad(1),
	requestLength(2, "pattern", 1),
	protocol.Card16("max_names"),
	protocol.Length("pattern_len", 2, "pattern"),
	protocol.String("pattern"),
	protocol.PadTo4("pattern"),
)

// Str is a one-byte length prefixed name, unpadded, as packed into
// ListFonts replies.
var Str = protocol.MustSchema("Str", le,
	protocol.Length("name_len", 1, "name"),
	protocol.String("name"),
)

var ListFontsReply = protocol.MustSchema("ListFontsReply", le,
	protocol.Card8("reply"),
	protocol.Pad(1),
	protocol.Card16("sequence_number"),
	protocol.Card32("reply_length"),
	protocol.Length("names_len", 2, "names"),
	protocol.Pad(22),
	protocol.List("names", Str),
	protocol.PadBy(func(r *protocol.Record) int {
		n := 0
		for _, s := range r.Records("names") {
			n += 1 + s.Len("name")
		}
		return protocol.Pad4(n)
	}),
)

var CreatePixmap = protocol.MustSchema("CreatePixmap", le,
	opcode(OpCreatePixmap),
	protocol.Card8("depth"),
	fixedLength(4),
	protocol.Card32("pid"),
	protocol.Card32("drawable"),
	protocol.Card16("width"),
	protocol.Card16("height"),
)

var CreateGC = protocol.MustSchema("CreateGC", le,
	opcode(OpCreateGC),
	protocol.Pad(1),
	requestLength(4, "value_list", 4),
	protocol.Card32("cid"),
	protocol.Card32("drawable"),
	protocol.Card32("value_mask"),
	protocol.ScalarList("value_list", 4),
)

var ChangeGC = protocol.MustSchema("ChangeGC", le,
	opcode(OpChangeGC),
	protocol.Pad(1),
	requestLength(3, "value_list", 4),
	protocol.Card32("gc"),
	protocol.Card32("value_mask"),
	protocol.ScalarList("value_list", 4),
)

var ClearArea = protocol.MustSchema("ClearArea", le,
	opcode(OpClearArea),
	protocol.Bool("exposures"),
	fixedLength(4),
	protocol.Card32("window"),
	protocol.Int16("x"),
	protocol.Int16("y"),
	protocol.Card16("width"),
	protocol.Card16("height"),
)

var PolyFillRectangle = protocol.MustSchema("PolyFillRectangle", le,
	opcode(OpPolyFillRectangle),
	protocol.Pad(1),
	requestLength(3, "rectangles", 8),
	protocol.Card32("drawable"),
	protocol.Card32("gc"),
	protocol.List("rectangles", Rectangle),
)

var PutImage = protocol.MustSchema("PutImage", le,
	opcode(OpPutImage),
	protocol.Card8("format"),
	requestLength(6, "data", 1),
	protocol.Card32("drawable"),
	protocol.Card32("gc"),
	protocol.Card16("width"),
	protocol.Card16("height"),
	protocol.Int16("dst_x"),
	protocol.Int16("dst_y"),
	protocol.Card8("left_pad"),
	protocol.Card8("depth"),
	protocol.Pad(2),
	protocol.String("data"),
	protocol.PadTo4("data"),
)

var ImageText8 = protocol.MustSchema("ImageText8", le,
	opcode(OpImageText8),
	protocol.Length("text_len", 1, "text"),
	requestLength(4, "text", 1),
	protocol.Card32("drawable"),
	protocol.Card32("gc"),
	protocol.Int16("x"),
	protocol.Int16("y"),
	protocol.String("text"),
	protocol.PadTo4("text"),
)

var CreateColormap = protocol.MustSchema("CreateColormap", le,
	opcode(OpCreateColormap),
	protocol.Card8("alloc"),
	fixedLength(4),
	protocol.Card32("mid"),
	protocol.Card32("window"),
	protocol.Card32("visual"),
)

var QueryExtension = protocol.MustSchema("QueryExtension", le,
	opcode(OpQueryExtension),
	protocol.Pad(1),
	requestLength(2, "name", 1),
	protocol.Length("name_len", 2, "name"),
	protocol.Pad(2),
	protocol.String("name"),
	protocol.PadTo4("name"),
)

var QueryExtensionReply = protocol.MustSchema("QueryExtensionReply", le,
	protocol.Card8("reply"),
	protocol.Pad(1),
	protocol.Card16("sequence_number"),
	protocol.Card32("reply_length"),
	protocol.Bool("present"),
	protocol.Card8("major_opcode"),
	protocol.Card8("first_event"),
	protocol.Card8("first_error"),
	protocol.Pad(20),
)

var NoOperation = protocol.MustSchema("NoOperation", le,
	opcode(OpNoOperation),
	protocol.Pad(1),
	fixedLength(1),
)
