package session

import (
	"time"

	"github.com/danmuck/xconn/internal/protocol/frame"
)

// Config defines connection timeouts and limits.
type Config struct {
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	// ReadTimeout bounds NextPacket and the body of a reply once its header
	// has arrived.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// ReplyTimeout bounds the whole wait of one SendSync.
	ReplyTimeout time.Duration
	Limits       frame.Limits

	// AuthorityPath is the Xauthority file Connect reads credentials from;
	// empty sends no credentials.
	AuthorityPath string
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:   5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     15 * time.Second,
		ReplyTimeout:     15 * time.Second,
		Limits:           frame.DefaultLimits(),
	}
}
