package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	logs "github.com/danmuck/xconn/internal/logging"
	"github.com/danmuck/xconn/internal/protocol"
	"github.com/danmuck/xconn/internal/protocol/schema"
)

// handshake sends the client setup block and consumes the server's answer.
// HandshakeTimeout and the context deadline both bound the exchange; a
// cancelled context interrupts any blocked read or write.
func (c *Conn) handshake(ctx context.Context) error {
	c.setState(StateHandshaking)

	deadline := deadlineAfter(c.cfg.HandshakeTimeout)
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return c.setupFailure(ctx, "handshake", err)
	}
	defer func() {
		_ = c.conn.SetDeadline(time.Time{})
	}()
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	name, data := c.credentials()
	wire, err := protocol.Marshal(schema.ClientHandshake.Build(
		"byte_order", schema.ByteOrderLSB,
		"protocol_major_version", schema.ProtocolMajor,
		"protocol_minor_version", schema.ProtocolMinor,
		"auth_name", name,
		"auth_data", data,
	))
	if err != nil {
		c.setState(StateFailed)
		return err
	}
	logs.Debugf("session.handshake target=%s auth=%q bytes=%d", c.target, name, len(wire))
	if _, err := c.conn.Write(wire); err != nil {
		return c.setupFailure(ctx, "handshake write", err)
	}

	var status [1]byte
	if _, err := io.ReadFull(c.conn, status[:]); err != nil {
		return c.setupFailure(ctx, "handshake read", err)
	}
	switch status[0] {
	case schema.SetupSuccess:
		return c.accepted(ctx)
	case schema.SetupFailed:
		return c.refused(ctx)
	case schema.SetupAuthenticate:
		c.setState(StateFailed)
		logs.Errf("session.handshake target=%s: server asked for further authentication", c.target)
		return ErrAuthenticationRequired
	default:
		c.setState(StateFailed)
		logs.Errf("session.handshake target=%s: unknown status byte %d", c.target, status[0])
		return fmt.Errorf("%w: %d", ErrUnknownHandshakeStatus, status[0])
	}
}

func (c *Conn) refused(ctx context.Context) error {
	rec, err := protocol.Decode(c.conn, schema.SetupRefused)
	if err != nil {
		return c.setupReadFailure(ctx, err)
	}
	reason := make([]byte, int(rec.Uint("additional_len"))*4)
	if _, err := io.ReadFull(c.conn, reason); err != nil {
		return c.setupReadFailure(ctx, err)
	}
	if n := int(rec.Uint("reason_len")); n < len(reason) {
		reason = reason[:n]
	}
	c.setState(StateFailed)
	rej := &RejectedError{
		Reason: string(reason),
		Major:  uint16(rec.Uint("protocol_major_version")),
		Minor:  uint16(rec.Uint("protocol_minor_version")),
	}
	logs.Errf("session.handshake target=%s rejected: %q", c.target, rej.Reason)
	return rej
}

func (c *Conn) accepted(ctx context.Context) error {
	prefix, err := protocol.Decode(c.conn, schema.SetupAccepted)
	if err != nil {
		return c.setupReadFailure(ctx, err)
	}
	body := make([]byte, int(prefix.Uint("additional_len"))*4)
	if _, err := io.ReadFull(c.conn, body); err != nil {
		return c.setupReadFailure(ctx, err)
	}
	info, err := protocol.Unmarshal(body, schema.ServerInfo)
	if err != nil {
		c.setState(StateFailed)
		logs.Errf("session.handshake target=%s: bad server info: %v", c.target, err)
		return err
	}
	c.info = info
	c.initResourceIDs()
	c.setState(StateReady)
	logs.Infof(
		"session.handshake ready target=%s protocol=%d.%d vendor=%q release=%d screens=%d",
		c.target,
		prefix.Uint("protocol_major_version"),
		prefix.Uint("protocol_minor_version"),
		info.Text("vendor"),
		info.Uint("release_number"),
		len(info.Records("roots")),
	)
	return nil
}

func (c *Conn) credentials() (name, data []byte) {
	if c.auth == nil {
		return nil, nil
	}
	rec, err := c.auth.Lookup(c.target.Host, c.target.Family, c.target.Display)
	if err != nil {
		logs.Warnf("session.handshake credential lookup failed, sending none: %v", err)
		return nil, nil
	}
	if rec == nil {
		logs.Debugf("session.handshake no credentials for target=%s", c.target)
		return nil, nil
	}
	return rec.Name, rec.Data
}

func (c *Conn) setupReadFailure(ctx context.Context, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = fmt.Errorf("%w: setup reply: %v", protocol.ErrTruncatedStream, err)
	}
	if errors.Is(err, protocol.ErrTruncatedStream) || errors.Is(err, protocol.ErrMalformedPacket) {
		c.setState(StateFailed)
		logs.Errf("session.handshake target=%s: %v", c.target, err)
		return err
	}
	return c.setupFailure(ctx, "handshake read", err)
}

func (c *Conn) setupFailure(ctx context.Context, op string, err error) error {
	c.setState(StateFailed)
	if cerr := ctx.Err(); cerr != nil {
		err = cerr
	}
	logs.Errf("session.handshake target=%s %s failed: %v", c.target, op, err)
	return &TransportError{Op: op, Err: err}
}

func handshakeResult(err error) string {
	var te *TransportError
	switch {
	case errors.Is(err, ErrHandshakeRejected):
		return "rejected"
	case errors.Is(err, ErrAuthenticationRequired):
		return "authenticate"
	case errors.Is(err, ErrUnknownHandshakeStatus):
		return "unknown_status"
	case errors.As(err, &te):
		return "transport"
	default:
		return "malformed"
	}
}
