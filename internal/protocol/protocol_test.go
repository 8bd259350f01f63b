package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/xconn/internal/testutil/testlog"
)

var (
	testVisual = MustSchema("Visual", binary.LittleEndian,
		Card32("id"),
		Card8("class"),
		Pad(3),
	)
	testDepth = MustSchema("Depth", binary.LittleEndian,
		Card8("depth"),
		Pad(1),
		Length("visuals_len", 2, "visuals"),
		Pad(4),
		List("visuals", testVisual),
	)
	testScreen = MustSchema("Screen", binary.LittleEndian,
		Card32("root"),
		Int16("x"),
		Length("depths_len", 1, "depths"),
		Pad(1),
		List("depths", testDepth),
	)
	testNamed = MustSchema("Named", binary.LittleEndian,
		Card8("kind"),
		Length("name_len", 1, "name"),
		Card16("id"),
		String("name"),
		PadTo4("name"),
		Card32("trailer"),
	)
	testCreate = MustSchema("Create", binary.LittleEndian,
		Const("opcode", 1, 1),
		Card8("depth"),
		Derived("request_length", 2, func(r *Record) uint32 {
			return 8 + uint32(r.Len("value_list"))
		}),
		Card32("wid"),
		Card32("parent"),
		Int16("x"),
		Int16("y"),
		Card16("width"),
		Card16("height"),
		Card16("border_width"),
		Card16("class"),
		Card32("visual"),
		Card32("value_mask"),
		ScalarList("value_list", 4),
	)
)

func sampleScreen() *Record {
	v1 := testVisual.Build("id", 0x21, "class", 4)
	v2 := testVisual.Build("id", 0x22, "class", 5)
	v3 := testVisual.Build("id", 0x23, "class", 4)
	d24 := testDepth.Build("depth", 24, "visuals", []*Record{v1, v2})
	d32 := testDepth.Build("depth", 32, "visuals", []*Record{v3})
	d1 := testDepth.Build("depth", 1, "visuals", []*Record{})
	return testScreen.Build("root", 0x13a, "x", -7, "depths", []*Record{d24, d32, d1})
}

func TestRoundTripNestedSchemas(t *testing.T) {
	testlog.Start(t)
	in := sampleScreen()

	buf, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// 8 screen header + depths: (8+16) + (8+8) + 8
	if len(buf) != 56 {
		t.Fatalf("unexpected encoded length: %d", len(buf))
	}
	if len(buf)%4 != 0 {
		t.Fatalf("encoded length %d not 4-byte aligned", len(buf))
	}
	if n, err := testScreen.Size(in); err != nil || n != len(buf) {
		t.Fatalf("Size=%d err=%v, encoded %d", n, err, len(buf))
	}

	framed, err := Unmarshal(buf, testScreen)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !framed.Equal(in) {
		t.Fatalf("framed round-trip mismatch:\n got=%v\nwant=%v", framed, in)
	}

	streamed, err := Decode(bytes.NewReader(buf), testScreen)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !streamed.Equal(in) {
		t.Fatalf("stream round-trip mismatch:\n got=%v\nwant=%v", streamed, in)
	}
	if got := streamed.Records("depths")[0].Records("visuals")[1].Uint("class"); got != 5 {
		t.Fatalf("nested visual class=%d", got)
	}

	again, err := Marshal(streamed)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if !bytes.Equal(buf, again) {
		t.Fatalf("re-encode mismatch")
	}
}

func TestEncodeDerivedRequestLengthExactBytes(t *testing.T) {
	testlog.Start(t)
	rec := testCreate.Build(
		"depth", 24,
		"wid", 0x00200001,
		"parent", 0x13a,
		"x", 0,
		"y", 0,
		"width", 200,
		"height", 200,
		"border_width", 0,
		"class", 1,
		"visual", 0,
		"value_mask", 0x0802,
		"value_list", []uint32{0xff8844, 0x88004},
	)
	got, err := Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := []byte{
		0x01, 0x18, 0x0a, 0x00,
		0x01, 0x00, 0x20, 0x00,
		0x3a, 0x01, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0xc8, 0x00, 0xc8, 0x00,
		0x00, 0x00, 0x01, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x02, 0x08, 0x00, 0x00,
		0x44, 0x88, 0xff, 0x00,
		0x04, 0x80, 0x08, 0x00,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("bytes mismatch:\n got=% x\nwant=% x", got, want)
	}

	decoded, err := Unmarshal(got, testCreate)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Uint("request_length")*4 != uint32(len(got)) {
		t.Fatalf("request_length=%d for %d bytes", decoded.Uint("request_length"), len(got))
	}
	if decoded.Uint("opcode") != 1 {
		t.Fatalf("opcode=%d", decoded.Uint("opcode"))
	}
	if rec.Uint("request_length") != 10 || rec.Uint("opcode") != 1 {
		t.Fatalf("derived values on the built record: %v", rec)
	}
	if !decoded.Equal(rec) || decoded.String() != rec.String() {
		t.Fatalf("round-trip mismatch:\n got=%v\nwant=%v", decoded, rec)
	}
}

func TestLengthPrefixConsumesExactly(t *testing.T) {
	testlog.Start(t)
	in := testNamed.Build("kind", 3, "id", 0xbeef, "name", "abcde", "trailer", 0xcafef00d)
	buf, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(buf) != 16 {
		t.Fatalf("unexpected length %d", len(buf))
	}

	stream := bytes.NewReader(append(buf, 0x7f))
	out, err := Decode(stream, testNamed)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stream.Len() != 1 {
		t.Fatalf("decoder consumed wrong byte count, %d left", stream.Len())
	}
	if out.Text("name") != "abcde" || out.Uint("trailer") != 0xcafef00d {
		t.Fatalf("unexpected record: %v", out)
	}
	if out.Has("name_len") {
		t.Fatalf("length prefix must not be a record value")
	}
}

func TestDecodeTruncatedStream(t *testing.T) {
	testlog.Start(t)
	buf, err := Marshal(testNamed.Build("name", "abcd"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	_, err = Decode(bytes.NewReader(buf[:3]), testNamed)
	if !errors.Is(err, ErrTruncatedStream) {
		t.Fatalf("expected ErrTruncatedStream, got %v", err)
	}
	_, err = Unmarshal(buf[:len(buf)-1], testNamed)
	if !errors.Is(err, ErrTruncatedStream) {
		t.Fatalf("expected ErrTruncatedStream from framed decode, got %v", err)
	}
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "trailer" {
		t.Fatalf("expected FieldError on trailer, got %v", err)
	}
}

func TestLengthPastFrameIsMalformed(t *testing.T) {
	testlog.Start(t)
	buf, err := Marshal(testNamed.Build("name", "abcd"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	buf[1] = 200

	_, err = Unmarshal(buf, testNamed)
	if !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
	// The same bytes on an open stream just run out.
	_, err = Decode(bytes.NewReader(buf), testNamed)
	if !errors.Is(err, ErrTruncatedStream) {
		t.Fatalf("expected ErrTruncatedStream, got %v", err)
	}

	screen, err := Marshal(sampleScreen())
	if err != nil {
		t.Fatalf("marshal screen: %v", err)
	}
	screen[6] = 9 // depths_len
	_, err = Unmarshal(screen, testScreen)
	if !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket for list count, got %v", err)
	}
}

func TestSignedScalars(t *testing.T) {
	testlog.Start(t)
	rec := testCreate.Build("x", -5, "y", int16(-32768), "width", 1)
	buf, err := Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if buf[12] != 0xfb || buf[13] != 0xff {
		t.Fatalf("x encoded as % x", buf[12:14])
	}
	out, err := Unmarshal(buf, testCreate)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Int("x") != -5 || out.Int("y") != -32768 || out.Int("width") != 1 {
		t.Fatalf("unexpected signed values x=%d y=%d", out.Int("x"), out.Int("y"))
	}
}

func TestFieldByteOrderOverride(t *testing.T) {
	testlog.Start(t)
	s := MustSchema("Mixed", binary.LittleEndian,
		Card16("le"),
		Card16("be").WithOrder(binary.BigEndian),
	)
	buf, err := Marshal(s.Build("le", 0x0102, "be", 0x0102))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(buf, []byte{0x02, 0x01, 0x01, 0x02}) {
		t.Fatalf("unexpected bytes % x", buf)
	}
}

func TestUnmarshalUngovernedTail(t *testing.T) {
	testlog.Start(t)
	s := MustSchema("Tail", binary.LittleEndian,
		Card32("head"),
		ScalarList("values", 2),
	)
	buf := []byte{1, 0, 0, 0, 5, 0, 6, 0, 7, 0}
	out, err := Unmarshal(buf, s)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := out.Uints("values")
	if len(got) != 3 || got[0] != 5 || got[2] != 7 {
		t.Fatalf("unexpected tail %v", got)
	}
	if _, err := Decode(bytes.NewReader(buf), s); !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("stream decode of ungoverned list should be malformed, got %v", err)
	}
}

func TestNewSchemaValidation(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name   string
		fields []Field
	}{
		{name: "length after governed", fields: []Field{String("s"), Length("s_len", 2, "s")}},
		{name: "length without target", fields: []Field{Length("n", 2, "missing")}},
		{name: "duplicate names", fields: []Field{Card8("a"), Card16("a")}},
		{name: "bad width", fields: []Field{scalar("a", 3, false)}},
		{name: "derived without compute", fields: []Field{{Name: "d", Kind: KindDerived, Width: 2}}},
		{name: "two lengths", fields: []Field{Length("a", 1, "s"), Length("b", 1, "s"), String("s")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSchema("Bad", binary.LittleEndian, tc.fields...); !errors.Is(err, ErrInvalidSchema) {
				t.Fatalf("expected ErrInvalidSchema, got %v", err)
			}
		})
	}
}

func TestRecordAssignmentErrorsAreSticky(t *testing.T) {
	testlog.Start(t)
	rec := testNamed.New().Set("nope", 1).Set("kind", 2)
	if !errors.Is(rec.Err(), ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", rec.Err())
	}
	if _, err := Marshal(rec); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("marshal should report sticky error, got %v", err)
	}

	rec = testScreen.New().Set("depths", []*Record{testVisual.New()})
	if !errors.Is(rec.Err(), ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", rec.Err())
	}

	rec = testNamed.New().Set("name", 42)
	if !errors.Is(rec.Err(), ErrFieldTypeMismatch) {
		t.Fatalf("expected ErrFieldTypeMismatch, got %v", rec.Err())
	}
}

func TestLengthOverflow(t *testing.T) {
	testlog.Start(t)
	rec := testNamed.Build("name", bytes.Repeat([]byte{'x'}, 300))
	if _, err := Marshal(rec); !errors.Is(err, ErrLengthOverflow) {
		t.Fatalf("expected ErrLengthOverflow, got %v", err)
	}
}

func TestFixedSize(t *testing.T) {
	testlog.Start(t)
	if n, ok := testVisual.FixedSize(); !ok || n != 8 {
		t.Fatalf("visual fixed size=%d ok=%v", n, ok)
	}
	if _, ok := testDepth.FixedSize(); ok {
		t.Fatalf("depth has a list and is not fixed")
	}
}
