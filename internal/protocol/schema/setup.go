package schema

import (
	"encoding/binary"

	"github.com/danmuck/xconn/internal/protocol"
)

// Connection setup constants. The client always speaks little-endian.
const (
	ByteOrderLSB  uint8  = 'l'
	ProtocolMajor uint32 = 11
	ProtocolMinor uint32 = 0
)

// Setup status bytes sent by the server in reply to ClientHandshake.
const (
	SetupFailed       uint8 = 0
	SetupSuccess      uint8 = 1
	SetupAuthenticate uint8 = 2
)

var le = binary.LittleEndian

var ClientHandshake = protocol.MustSchema("ClientHandshake", le,
	protocol.Card8("byte_order"),
	protocol.Pad(1),
	protocol.Card16("protocol_major_version"),
	protocol.Card16("protocol_minor_version"),
	protocol.Length("auth_name_len", 2, "auth_name"),
	protocol.Length("auth_data_len", 2, "auth_data"),
	protocol.Pad(2),
	protocol.String("auth_name"),
	protocol.PadTo4("auth_name"),
	protocol.String("auth_data"),
	protocol.PadTo4("auth_data"),
)

// SetupRefused follows a Failed status byte. The reason occupies
// additional_len*4 bytes of which reason_len are meaningful.
var SetupRefused = protocol.MustSchema("SetupRefused", le,
	protocol.Card8("reason_len"),
	protocol.Card16("protocol_major_version"),
	protocol.Card16("protocol_minor_version"),
	protocol.Card16("additional_len"),
)

// SetupAccepted follows a Success status byte; additional_len counts the
// words of ServerInfo that come next.
var SetupAccepted = protocol.MustSchema("SetupAccepted", le,
	protocol.Pad(1),
	protocol.Card16("protocol_major_version"),
	protocol.Card16("protocol_minor_version"),
	protocol.Card16("additional_len"),
)

var Format = protocol.MustSchema("Format", le,
	protocol.Card8("depth"),
	protocol.Card8("bits_per_pixel"),
	protocol.Card8("scanline_pad"),
	protocol.Pad(5),
)

var Visual = protocol.MustSchema("Visual", le,
	protocol.Card32("visual_id"),
	protocol.Card8("class"),
	protocol.Card8("bits_per_rgb_value"),
	protocol.Card16("colormap_entries"),
	protocol.Card32("red_mask"),
	protocol.Card32("green_mask"),
	protocol.Card32("blue_mask"),
	protocol.Pad(4),
)

var Depth = protocol.MustSchema("Depth", le,
	protocol.Card8("depth"),
	protocol.Pad(1),
	protocol.Length("visuals_len", 2, "visuals"),
	protocol.Pad(4),
	protocol.List("visuals", Visual),
)

var Screen = protocol.MustSchema("Screen", le,
	protocol.Card32("root"),
	protocol.Card32("default_colormap"),
	protocol.Card32("white_pixel"),
	protocol.Card32("black_pixel"),
	protocol.Card32("current_input_masks"),
	protocol.Card16("width_in_pixels"),
	protocol.Card16("height_in_pixels"),
	protocol.Card16("width_in_millimeters"),
	protocol.Card16("height_in_millimeters"),
	protocol.Card16("min_installed_maps"),
	protocol.Card16("max_installed_maps"),
	protocol.Card32("root_visual"),
	protocol.Card8("backing_stores"),
	protocol.Bool("save_unders"),
	protocol.Card8("root_depth"),
	protocol.Length("depths_len", 1, "depths"),
	protocol.List("depths", Depth),
)

// ServerInfo is the body of a successful setup reply.
var ServerInfo = protocol.MustSchema("ServerInfo", le,
	protocol.Card32("release_number"),
	protocol.Card32("resource_id_base"),
	protocol.Card32("resource_id_mask"),
	protocol.Card32("motion_buffer_size"),
	protocol.Length("vendor_len", 2, "vendor"),
	protocol.Card16("maximum_request_length"),
	protocol.Length("roots_len", 1, "roots"),
	protocol.Length("pixmap_formats_len", 1, "pixmap_formats"),
	protocol.Card8("image_byte_order"),
	protocol.Card8("bitmap_format_bit_order"),
	protocol.Card8("bitmap_format_scanline_unit"),
	protocol.Card8("bitmap_format_scanline_pad"),
	protocol.Card8("min_keycode"),
	protocol.Card8("max_keycode"),
	protocol.Pad(4),
	protocol.String("vendor"),
	protocol.PadTo4("vendor"),
	protocol.List("pixmap_formats", Format),
	protocol.List("roots", Screen),
)
