package session

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/danmuck/xconn/internal/auth"
)

// X11TCPPort is the TCP port of display 0.
const X11TCPPort = 6000

// UnixSocketDir holds the local display sockets X<n>.
var UnixSocketDir = "/tmp/.X11-unix"

var targetPattern = regexp.MustCompile(`^([\w.-]*):(\d+)(?:\.(\d+))?$`)

// Target is a parsed display address host:display[.screen].
type Target struct {
	Host    string
	Display int
	Screen  int

	Network string
	Address string
	Family  auth.Family
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%d.%d", t.Host, t.Display, t.Screen)
}

// ParseTarget parses a display address. An empty host selects the local unix
// socket; any other host selects TCP on 6000+display.
func ParseTarget(s string) (Target, error) {
	m := targetPattern.FindStringSubmatch(s)
	if m == nil {
		return Target{}, fmt.Errorf("%w: %q", ErrBadTarget, s)
	}
	display, err := strconv.Atoi(m[2])
	if err != nil || display > 65535-X11TCPPort {
		return Target{}, fmt.Errorf("%w: display number in %q", ErrBadTarget, s)
	}
	t := Target{Host: m[1], Display: display}
	if m[3] != "" {
		if t.Screen, err = strconv.Atoi(m[3]); err != nil {
			return Target{}, fmt.Errorf("%w: screen number in %q", ErrBadTarget, s)
		}
	}
	if t.Host == "" {
		t.Network = "unix"
		t.Address = filepath.Join(UnixSocketDir, fmt.Sprintf("X%d", display))
		t.Family = auth.FamilyLocal
	} else {
		t.Network = "tcp"
		t.Address = fmt.Sprintf("%s:%d", t.Host, X11TCPPort+display)
		t.Family = auth.FamilyInternet
	}
	return t, nil
}
