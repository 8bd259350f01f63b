// Package auth reads X authority files.
//
// It only reads: no locking protocol of xauth(1) is reproduced beyond a
// shared advisory lock held while scanning, and nothing is ever written.
package auth

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gofrs/flock"

	logs "github.com/danmuck/xconn/internal/logging"
	"github.com/danmuck/xconn/internal/protocol"
)

var (
	ErrAuthFileUnavailable = errors.New("auth: authority file unavailable")
	ErrCorruptAuthFile     = errors.New("auth: corrupt authority file")
)

// Family is the address family of an authority entry.
type Family uint16

const (
	FamilyInternet      Family = 0
	FamilyDECnet        Family = 1
	FamilyChaos         Family = 2
	FamilyLocalHost     Family = 252
	FamilyKrb5Principal Family = 253
	FamilyNetname       Family = 254
	FamilyLocal         Family = 256
	FamilyWild          Family = 65535
)

func (f Family) String() string {
	switch f {
	case FamilyInternet:
		return "Internet"
	case FamilyDECnet:
		return "DECnet"
	case FamilyChaos:
		return "Chaos"
	case FamilyLocalHost:
		return "LocalHost"
	case FamilyKrb5Principal:
		return "Krb5Principal"
	case FamilyNetname:
		return "Netname"
	case FamilyLocal:
		return "Local"
	case FamilyWild:
		return "Wild"
	default:
		return strconv.Itoa(int(f))
	}
}

// Record is one authority entry.
type Record struct {
	Family  Family
	Address []byte
	Display []byte
	Name    []byte
	Data    []byte
}

// entry is the on-disk layout: every length is big-endian.
var entry = protocol.MustSchema("XauthEntry", binary.BigEndian,
	protocol.Card16("family"),
	protocol.Length("address_len", 2, "address"),
	protocol.String("address"),
	protocol.Length("display_len", 2, "display"),
	protocol.String("display"),
	protocol.Length("name_len", 2, "name"),
	protocol.String("name"),
	protocol.Length("data_len", 2, "data"),
	protocol.String("data"),
)

// Encode returns the on-disk bytes of r.
func (r Record) Encode() ([]byte, error) {
	return protocol.Marshal(entry.Build(
		"family", uint16(r.Family),
		"address", r.Address,
		"display", r.Display,
		"name", r.Name,
		"data", r.Data,
	))
}

// Store is an open authority file. It is not safe for concurrent use.
type Store struct {
	path string
	file *os.File
	r    *bufio.Reader
	lock *flock.Flock

	hostname func() (string, error)
}

// Open opens the authority file at path for reading.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthFileUnavailable, err)
	}
	logs.Debugf("auth.Open path=%s", path)
	return &Store{
		path:     path,
		file:     f,
		r:        bufio.NewReader(f),
		lock:     flock.New(path),
		hostname: os.Hostname,
	}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Lookup scans the remaining entries and returns the last one whose display
// is empty or numerically equal to display. The read position is reset to
// the start of the file afterwards. A nil record with a nil error means no
// entry matched.
//
// host and family are informational: they are resolved for the debug log and
// do not filter entries.
func (s *Store) Lookup(host string, family Family, display int) (*Record, error) {
	host = s.resolveHost(host)
	logs.Debugf("auth.Lookup host=%s family=%s display=%d", host, family, display)

	var match *Record
	err := s.scan(func(rec *Record) {
		if matchDisplay(rec.Display, display) {
			match = rec
		}
	})
	if err != nil {
		return nil, err
	}
	if match == nil {
		logs.Debugf("auth.Lookup no entry for display=%d", display)
		return nil, nil
	}
	logs.Debugf("auth.Lookup matched family=%s name=%s", match.Family, match.Name)
	return match, nil
}

// Records returns every entry in file order.
func (s *Store) Records() ([]Record, error) {
	var out []Record
	err := s.scan(func(rec *Record) {
		out = append(out, *rec)
	})
	return out, err
}

func (s *Store) Close() error {
	return s.file.Close()
}

func (s *Store) scan(fn func(*Record)) (err error) {
	if err := s.lock.RLock(); err != nil {
		logs.Warnf("auth: shared lock on %s failed: %v", s.path, err)
	} else {
		defer s.lock.Unlock()
	}
	defer func() {
		if rerr := s.reset(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	for {
		if _, err := s.r.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %w", ErrAuthFileUnavailable, err)
		}
		rec, err := readRecord(s.r)
		if err != nil {
			return err
		}
		fn(rec)
	}
}

func (s *Store) reset() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthFileUnavailable, err)
	}
	s.r.Reset(s.file)
	return nil
}

func (s *Store) resolveHost(host string) string {
	switch host {
	case "", "localhost", "127.0.0.1":
		name, err := s.hostname()
		if err != nil {
			logs.Warnf("auth: hostname lookup failed: %v", err)
			return host
		}
		return name
	default:
		return host
	}
}

func readRecord(r io.Reader) (*Record, error) {
	rec, err := protocol.Decode(r, entry)
	if err != nil {
		if errors.Is(err, protocol.ErrTruncatedStream) {
			return nil, fmt.Errorf("%w: %w", ErrCorruptAuthFile, err)
		}
		return nil, err
	}
	return &Record{
		Family:  Family(rec.Uint("family")),
		Address: rec.Bytes("address"),
		Display: rec.Bytes("display"),
		Name:    rec.Bytes("name"),
		Data:    rec.Bytes("data"),
	}, nil
}

func matchDisplay(stored []byte, display int) bool {
	if len(stored) == 0 {
		return true
	}
	n, err := strconv.Atoi(string(stored))
	return err == nil && n == display
}
