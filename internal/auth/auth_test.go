package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/xconn/internal/testutil/testlog"
)

func writeAuthFile(t *testing.T, recs ...Record) string {
	t.Helper()
	var buf bytes.Buffer
	for _, r := range recs {
		b, err := r.Encode()
		if err != nil {
			t.Fatalf("encode record: %v", err)
		}
		buf.Write(b)
	}
	path := filepath.Join(t.TempDir(), ".Xauthority")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write auth file: %v", err)
	}
	return path
}

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLookupLastMatchWins(t *testing.T) {
	testlog.Start(t)
	wildcard := Record{
		Family:  FamilyInternet,
		Address: []byte{127, 0, 0, 1},
		Name:    []byte("MIT-MAGIC-COOKIE-1"),
		Data:    []byte("wildcard-cookie!"),
	}
	specific := Record{
		Family:  FamilyInternet,
		Address: []byte{127, 0, 0, 1},
		Display: []byte("1"),
		Name:    []byte("MIT-MAGIC-COOKIE-1"),
		Data:    []byte("display-1-cookie"),
	}
	s := openStore(t, writeAuthFile(t, wildcard, specific))

	got, err := s.Lookup("localhost", FamilyInternet, 1)
	if err != nil {
		t.Fatalf("lookup display 1: %v", err)
	}
	if got == nil || string(got.Data) != "display-1-cookie" {
		t.Fatalf("display 1 should match the later record, got %+v", got)
	}

	got, err = s.Lookup("localhost", FamilyInternet, 7)
	if err != nil {
		t.Fatalf("lookup display 7: %v", err)
	}
	if got == nil || string(got.Data) != "wildcard-cookie!" {
		t.Fatalf("display 7 should match the wildcard record, got %+v", got)
	}
}

func TestLookupIsRepeatable(t *testing.T) {
	testlog.Start(t)
	s := openStore(t, writeAuthFile(t,
		Record{Family: FamilyLocal, Address: []byte("box"), Display: []byte("0"), Name: []byte("A"), Data: []byte{1}},
		Record{Family: FamilyLocal, Address: []byte("box"), Display: []byte("2"), Name: []byte("B"), Data: []byte{2}},
	))
	for i := 0; i < 3; i++ {
		got, err := s.Lookup("", FamilyLocal, 2)
		if err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
		if got == nil || string(got.Name) != "B" {
			t.Fatalf("lookup %d got %+v", i, got)
		}
	}
	got, err := s.Lookup("", FamilyLocal, 5)
	if err != nil || got != nil {
		t.Fatalf("expected no match, got %+v err=%v", got, err)
	}
	all, err := s.Records()
	if err != nil || len(all) != 2 || all[0].Family != FamilyLocal {
		t.Fatalf("records=%+v err=%v", all, err)
	}
}

func TestLookupIgnoresHostAndFamily(t *testing.T) {
	testlog.Start(t)
	s := openStore(t, writeAuthFile(t,
		Record{Family: FamilyLocal, Address: []byte("box"), Display: []byte("0"), Name: []byte("MIT-MAGIC-COOKIE-1"), Data: []byte("local-cookie")},
	))
	for _, family := range []Family{FamilyLocal, FamilyInternet} {
		got, err := s.Lookup("10.1.2.3", family, 0)
		if err != nil {
			t.Fatalf("lookup family=%s: %v", family, err)
		}
		if got == nil || string(got.Data) != "local-cookie" {
			t.Fatalf("family=%s should still match by display, got %+v", family, got)
		}
	}
}

func TestOpenMissingFile(t *testing.T) {
	testlog.Start(t)
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrAuthFileUnavailable) {
		t.Fatalf("expected ErrAuthFileUnavailable, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
}

func TestLookupTruncatedRecord(t *testing.T) {
	testlog.Start(t)
	path := writeAuthFile(t, Record{Family: FamilyInternet, Display: []byte("0"), Name: []byte("N"), Data: []byte("D")})
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(path, raw[:len(raw)-1], 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	s := openStore(t, path)
	if _, err := s.Lookup("", FamilyInternet, 0); !errors.Is(err, ErrCorruptAuthFile) {
		t.Fatalf("expected ErrCorruptAuthFile, got %v", err)
	}
}

func TestResolveLocalHost(t *testing.T) {
	testlog.Start(t)
	s := openStore(t, writeAuthFile(t))
	s.hostname = func() (string, error) { return "workstation", nil }
	for _, host := range []string{"", "localhost", "127.0.0.1"} {
		if got := s.resolveHost(host); got != "workstation" {
			t.Fatalf("resolveHost(%q)=%q", host, got)
		}
	}
	if got := s.resolveHost("remote.example"); got != "remote.example" {
		t.Fatalf("remote host rewritten to %q", got)
	}
}

func TestRecordEncodeLayout(t *testing.T) {
	testlog.Start(t)
	b, err := Record{Family: FamilyLocal, Address: []byte("ab"), Display: []byte("0"), Name: []byte("N"), Data: []byte{9, 9}}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{
		0x01, 0x00, // family 256
		0x00, 0x02, 'a', 'b',
		0x00, 0x01, '0',
		0x00, 0x01, 'N',
		0x00, 0x02, 9, 9,
	}
	if !bytes.Equal(b, want) {
		t.Fatalf("layout mismatch:\n got=% x\nwant=% x", b, want)
	}
	if FamilyWild.String() != "Wild" || Family(77).String() != "77" {
		t.Fatalf("unexpected family names")
	}
}
