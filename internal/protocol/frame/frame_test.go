package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadBodyReplyWithBody(t *testing.T) {
	h := Header{Type: TypeReply, Detail: 7, Sequence: 42, Length: 2}
	body := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	stream := append(body, 0xee) // next packet

	r := bytes.NewReader(stream)
	out, err := ReadBody(r, EncodeHeader(h), DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Header != h {
		t.Fatalf("header mismatch: got=%+v want=%+v", out.Header, h)
	}
	if out.Header.Kind() != KindReply {
		t.Fatalf("kind=%s", out.Header.Kind())
	}
	if len(out.Bytes) != HeaderLen+8 || !bytes.Equal(out.Bytes[HeaderLen:], body) {
		t.Fatalf("body mismatch: % x", out.Bytes)
	}
	if r.Len() != 1 {
		t.Fatalf("frame over-read, %d bytes left", r.Len())
	}
}

func TestDecodeHeaderClassification(t *testing.T) {
	tests := []struct {
		name string
		b0   byte
		kind Kind
		typ  uint8
		syn  bool
	}{
		{name: "error", b0: 0, kind: KindError, typ: TypeError},
		{name: "reply", b0: 1, kind: KindReply, typ: TypeReply},
		{name: "expose", b0: 12, kind: KindEvent, typ: 12},
		{name: "synthetic client message", b0: 33 | SyntheticBit, kind: KindEvent, typ: 33, syn: true},
		{name: "extension event", b0: 90, kind: KindEvent, typ: 90},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := make([]byte, HeaderLen)
			raw[0] = tc.b0
			raw[4] = 9 // length word is ignored for non-replies
			h, err := DecodeHeader(raw)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if h.Kind() != tc.kind || h.Type != tc.typ || h.Synthetic != tc.syn {
				t.Fatalf("unexpected header %+v", h)
			}
			if tc.kind != KindReply && h.BodyLen() != 0 {
				t.Fatalf("non-reply body len=%d", h.BodyLen())
			}
		})
	}
}

func TestReadBodyEventReadsNothing(t *testing.T) {
	hdr := EncodeHeader(Header{Type: 12, Synthetic: true, Detail: 3, Sequence: 9})
	r := bytes.NewReader([]byte{0xee})
	out, err := ReadBody(r, hdr, DefaultLimits())
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out.Header.Kind() != KindEvent || !out.Header.Synthetic || out.Header.Sequence != 9 {
		t.Fatalf("unexpected header %+v", out.Header)
	}
	if len(out.Bytes) != HeaderLen || r.Len() != 1 {
		t.Fatalf("event frame len=%d left=%d", len(out.Bytes), r.Len())
	}
}

func TestReadBodyRejectsShortHeader(t *testing.T) {
	_, err := ReadBody(bytes.NewReader(nil), []byte{1, 2, 3}, DefaultLimits())
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestReadBodyTruncatedReply(t *testing.T) {
	hdr := EncodeHeader(Header{Type: TypeReply, Length: 4})
	_, err := ReadBody(bytes.NewReader([]byte{1, 2, 3}), hdr, DefaultLimits())
	if !errors.Is(err, ErrTruncatedReply) {
		t.Fatalf("expected ErrTruncatedReply, got %v", err)
	}
}

func TestReadBodyReplyTooLarge(t *testing.T) {
	hdr := EncodeHeader(Header{Type: TypeReply, Length: 1 << 20})
	_, err := ReadBody(bytes.NewReader(nil), hdr, Limits{MaxReplyBytes: 1024})
	if !errors.Is(err, ErrReplyTooLarge) {
		t.Fatalf("expected ErrReplyTooLarge, got %v", err)
	}
}

func TestDecodeHeaderWrongLength(t *testing.T) {
	if _, err := DecodeHeader(make([]byte, 8)); !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}
