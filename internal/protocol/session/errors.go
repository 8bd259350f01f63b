package session

import (
	"errors"
	"fmt"

	"github.com/danmuck/xconn/internal/protocol/schema"
)

var (
	ErrHandshakeRejected      = errors.New("session: handshake rejected")
	ErrAuthenticationRequired = errors.New("session: server requires authentication")
	ErrUnknownHandshakeStatus = errors.New("session: unknown handshake status")
	ErrIDSpaceExhausted       = errors.New("session: resource id space exhausted")
	ErrReplyTimeout           = errors.New("session: timed out waiting for reply")
	ErrConnClosed             = errors.New("session: connection closed")
	ErrNotReady               = errors.New("session: connection not ready")
	ErrBadTarget              = errors.New("session: bad display target")
	ErrNoSuchExtension        = errors.New("session: no such extension")

	// ErrBadRequestLength reports an unaligned request or one whose
	// request_length disagrees with its encoding.
	ErrBadRequestLength = schema.ErrBadRequestLength

	// ErrStopRun may be returned by a Run sink to end the loop cleanly.
	ErrStopRun = errors.New("session: stop run")
)

// TransportError is a failed dial, read or write. The connection is unusable
// afterwards.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("session: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectedError carries the server's reason for refusing the connection.
type RejectedError struct {
	Reason string
	Major  uint16
	Minor  uint16
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("session: handshake rejected (protocol %d.%d): %s", e.Major, e.Minor, e.Reason)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrHandshakeRejected
}
