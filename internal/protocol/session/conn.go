package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/danmuck/xconn/internal/auth"
	logs "github.com/danmuck/xconn/internal/logging"
	"github.com/danmuck/xconn/internal/observability"
	"github.com/danmuck/xconn/internal/protocol"
	"github.com/danmuck/xconn/internal/protocol/frame"
	"github.com/danmuck/xconn/internal/protocol/schema"
)

type State uint32

const (
	StateDisconnected State = iota
	StateHandshaking
	StateReady
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// Authority supplies the credentials sent in the handshake.
type Authority interface {
	Lookup(host string, family auth.Family, display int) (*auth.Record, error)
}

type Options struct {
	Config Config
	Target Target
	// Auth may be nil; the handshake then carries empty credentials.
	Auth Authority
}

// Conn is one client connection in the Ready state.
type Conn struct {
	cfg    Config
	target Target
	conn   net.Conn
	auth   Authority

	state atomic.Uint32

	info     *protocol.Record
	nextSeq  uint16
	xidNext  uint64
	xidLimit uint64
	xidShift int

	header  [frame.HeaderLen]byte
	headerN int
	queue   packetQueue

	extensions map[string]extension
	atoms      map[string]uint32
	atomNames  map[uint32]string

	closers       []io.Closer
	transportOnce sync.Once
	transportErr  error
	closeOnce     sync.Once
	closeErr      error
}

// Connect dials the display named by target (host:display[.screen]) and
// completes the handshake. A missing or unreadable authority file is logged
// and the handshake proceeds without credentials.
func Connect(ctx context.Context, target string, cfg Config) (*Conn, error) {
	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	logs.Infof("session.Connect target=%s network=%s address=%s", t, t.Network, t.Address)

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	nc, err := dialer.DialContext(ctx, t.Network, t.Address)
	if err != nil {
		logs.Errf("session.Connect dial failed target=%s: %v", t, err)
		return nil, &TransportError{Op: "dial", Err: err}
	}

	opts := Options{Config: cfg, Target: t}
	var store *auth.Store
	if cfg.AuthorityPath != "" {
		store, err = auth.Open(cfg.AuthorityPath)
		if err != nil {
			logs.Warnf("session.Connect continuing without credentials: %v", err)
		} else {
			opts.Auth = store
		}
	}

	c, err := NewConn(ctx, nc, opts)
	if err != nil {
		cerr := nc.Close()
		if store != nil {
			cerr = multierr.Append(cerr, store.Close())
		}
		if cerr != nil {
			logs.Debugf("session.Connect cleanup: %v", cerr)
		}
		return nil, err
	}
	if store != nil {
		c.closers = append(c.closers, store)
	}
	return c, nil
}

// NewConn runs the handshake over an open transport. On failure the caller
// still owns nc.
func NewConn(ctx context.Context, nc net.Conn, opts Options) (*Conn, error) {
	c := &Conn{
		cfg:        opts.Config,
		target:     opts.Target,
		conn:       nc,
		auth:       opts.Auth,
		nextSeq:    1,
		extensions: make(map[string]extension),
		atoms:      make(map[string]uint32),
		atomNames:  make(map[uint32]string),
	}
	if c.cfg.Limits.MaxReplyBytes == 0 {
		c.cfg.Limits = frame.DefaultLimits()
	}
	if err := c.handshake(ctx); err != nil {
		observability.RecordHandshake(handshakeResult(err))
		return nil, err
	}
	observability.RecordHandshake("success")
	return c, nil
}

func (c *Conn) State() State {
	return State(c.state.Load())
}

func (c *Conn) setState(s State) {
	c.state.Store(uint32(s))
}

func (c *Conn) Target() Target {
	return c.target
}

// ServerInfo is the decoded setup reply (schema.ServerInfo).
func (c *Conn) ServerInfo() *protocol.Record {
	return c.info
}

// Screens returns the server's screens (schema.Screen records).
func (c *Conn) Screens() []*protocol.Record {
	if c.info == nil {
		return nil
	}
	return c.info.Records("roots")
}

// DefaultScreen is the screen named by the target, or the first screen when
// the target names one the server does not have.
func (c *Conn) DefaultScreen() *protocol.Record {
	screens := c.Screens()
	if len(screens) == 0 {
		return nil
	}
	if c.target.Screen < len(screens) {
		return screens[c.target.Screen]
	}
	return screens[0]
}

// NextSequence is the sequence number the next request will consume.
func (c *Conn) NextSequence() uint16 {
	return c.nextSeq
}

// Queued is the number of packets waiting for NextPacket or Run.
func (c *Conn) Queued() int {
	return c.queue.Len()
}

func (c *Conn) ready() error {
	switch s := c.State(); s {
	case StateReady:
		return nil
	case StateClosed:
		return ErrConnClosed
	default:
		return fmt.Errorf("%w: state=%s", ErrNotReady, s)
	}
}

func (c *Conn) initResourceIDs() {
	mask := c.info.Uint("resource_id_mask")
	if mask == 0 {
		return
	}
	c.xidShift = bits.TrailingZeros32(mask)
	c.xidLimit = uint64(mask >> c.xidShift)
}

// AllocateResourceID returns a fresh XID. IDs are never reused; once the
// counter no longer fits under resource_id_mask, ErrIDSpaceExhausted is
// returned for every further call.
func (c *Conn) AllocateResourceID() (uint32, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	mask := c.info.Uint("resource_id_mask")
	if mask == 0 || c.xidNext > c.xidLimit {
		logs.Errf("session.AllocateResourceID exhausted mask=0x%x allocated=%d", mask, c.xidNext)
		return 0, ErrIDSpaceExhausted
	}
	id := uint32(c.xidNext<<c.xidShift)&mask | c.info.Uint("resource_id_base")
	c.xidNext++
	return id, nil
}

// SendRequest encodes and writes one request and returns the sequence number
// it consumed.
func (c *Conn) SendRequest(req *protocol.Record) (uint16, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	name := req.Schema().Name()
	wire, err := protocol.Marshal(req)
	if err != nil {
		return 0, err
	}
	if err := schema.Validate(req, wire); err != nil {
		return 0, err
	}
	if limit := c.info.Uint("maximum_request_length"); limit > 0 && uint32(len(wire)/4) > limit {
		return 0, fmt.Errorf("%w: %s is %d words, server maximum %d", ErrBadRequestLength, name, len(wire)/4, limit)
	}
	if err := c.write(wire); err != nil {
		return 0, err
	}
	seq := c.nextSeq
	c.nextSeq++
	observability.RecordRequest(name)
	logs.Debugf("session.SendRequest request=%s seq=%d bytes=%d", name, seq, len(wire))
	return seq, nil
}

// ReadPacket waits up to timeout (0 blocks) for the next packet on the
// stream, bypassing the queue. It returns nil, nil on timeout or when the
// server closed the stream. Header bytes already read when a timeout hits
// are kept for the next call.
func (c *Conn) ReadPacket(timeout time.Duration) (Packet, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.readPacket(deadlineAfter(timeout))
}

// SendSync sends req and waits for its reply, decoded with reply (a nil
// schema decodes schema.GenericReply). A protocol error for req is returned
// as a *ServerError. Events and unrelated errors read meanwhile are queued
// in arrival order; replies for other sequence numbers are dropped.
// ReplyTimeout bounds the whole wait.
func (c *Conn) SendSync(req *protocol.Record, reply *protocol.Schema) (*protocol.Record, error) {
	start := time.Now()
	seq, err := c.SendRequest(req)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		reply = schema.GenericReply
	}
	name := req.Schema().Name()
	deadline := deadlineAfter(c.cfg.ReplyTimeout)
	for {
		p, err := c.readPacket(deadline)
		if err != nil {
			return nil, err
		}
		if p == nil {
			if c.State() == StateClosed {
				return nil, ErrConnClosed
			}
			logs.Warnf("session.SendSync no reply request=%s seq=%d after %s", name, seq, time.Since(start))
			return nil, fmt.Errorf("%w: %s seq=%d", ErrReplyTimeout, name, seq)
		}
		switch v := p.(type) {
		case *Reply:
			if v.Sequence() != seq {
				observability.RecordReply(false)
				logs.Warnf("session.SendSync dropping stale reply seq=%d waiting=%d", v.Sequence(), seq)
				continue
			}
			observability.RecordReply(true)
			observability.RecordRoundTrip(name, time.Since(start))
			return v.Decode(reply)
		case *ServerError:
			if v.Sequence() == seq {
				observability.RecordRoundTrip(name, time.Since(start))
				logs.Debugf("session.SendSync request=%s failed: %v", name, v)
				return nil, v
			}
		}
		c.queue.Push(p)
	}
}

// NextPacket returns the oldest queued packet, else reads one with
// ReadTimeout. A nil packet with a nil error means nothing arrived.
func (c *Conn) NextPacket() (Packet, error) {
	if p, ok := c.queue.Pop(); ok {
		return p, nil
	}
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.readPacket(deadlineAfter(c.cfg.ReadTimeout))
}

// Run delivers queued packets, then blocks reading the stream and hands every
// packet to sink. It returns nil when the stream closes (including via
// Close) or when sink returns ErrStopRun; any other sink error is returned.
func (c *Conn) Run(sink func(Packet) error) error {
	for {
		p, ok := c.queue.Pop()
		if !ok {
			if c.State() == StateClosed {
				return nil
			}
			if err := c.ready(); err != nil {
				return err
			}
			var err error
			if p, err = c.readPacket(time.Time{}); err != nil {
				return err
			}
			if p == nil {
				return nil
			}
		}
		if err := sink(p); err != nil {
			if errors.Is(err, ErrStopRun) {
				return nil
			}
			return err
		}
	}
}

// Close closes the transport and any authority file opened by Connect. It is
// safe to call more than once and from another goroutine.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		err := c.closeTransport()
		for _, cl := range c.closers {
			err = multierr.Append(err, cl.Close())
		}
		c.closeErr = err
		logs.Debugf("session.Close target=%s", c.target)
	})
	return c.closeErr
}

func (c *Conn) closeTransport() error {
	c.transportOnce.Do(func() {
		c.setState(StateClosed)
		c.transportErr = c.conn.Close()
	})
	return c.transportErr
}

func (c *Conn) write(b []byte) error {
	if err := c.conn.SetWriteDeadline(deadlineAfter(c.cfg.WriteTimeout)); err != nil {
		return c.transportFailure("write", err)
	}
	if _, err := c.conn.Write(b); err != nil {
		return c.transportFailure("write", err)
	}
	return nil
}

func (c *Conn) readPacket(deadline time.Time) (Packet, error) {
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		if c.State() == StateClosed {
			return nil, nil
		}
		return nil, c.transportFailure("read", err)
	}
	for c.headerN < frame.HeaderLen {
		n, err := c.conn.Read(c.header[c.headerN:])
		c.headerN += n
		if err == nil || c.headerN == frame.HeaderLen {
			continue
		}
		switch {
		case c.State() == StateClosed:
			return nil, nil
		case isTimeout(err):
			return nil, nil
		case errors.Is(err, io.EOF):
			if c.headerN > 0 {
				return nil, c.protocolFailure(fmt.Errorf("%w: stream closed inside a packet header", protocol.ErrTruncatedStream))
			}
			logs.Infof("session: server closed the connection target=%s", c.target)
			_ = c.closeTransport()
			return nil, nil
		default:
			return nil, c.transportFailure("read", err)
		}
	}

	hdr := make([]byte, frame.HeaderLen)
	copy(hdr, c.header[:])
	c.headerN = 0

	if hdr[0]&^frame.SyntheticBit == frame.TypeReply {
		if err := c.conn.SetReadDeadline(deadlineAfter(c.cfg.ReadTimeout)); err != nil {
			return nil, c.transportFailure("read", err)
		}
	}
	f, err := frame.ReadBody(c.conn, hdr, c.cfg.Limits)
	if err != nil {
		switch {
		case errors.Is(err, frame.ErrReplyTooLarge):
			return nil, c.protocolFailure(fmt.Errorf("%w: %v", protocol.ErrMalformedPacket, err))
		case errors.Is(err, frame.ErrTruncatedReply), isTimeout(err):
			return nil, c.protocolFailure(fmt.Errorf("%w: reply body: %v", protocol.ErrTruncatedStream, err))
		default:
			return nil, c.transportFailure("read", err)
		}
	}
	return c.dispatch(f)
}

func (c *Conn) dispatch(f frame.Frame) (Packet, error) {
	switch f.Header.Kind() {
	case frame.KindError:
		rec, err := protocol.Unmarshal(f.Bytes, schema.Error)
		if err != nil {
			return nil, c.protocolFailure(err)
		}
		e := newServerError(rec)
		observability.RecordServerError(schema.ErrorCodeName(e.Code))
		logs.Debugf("session: %v", e)
		return e, nil
	case frame.KindReply:
		return &Reply{Header: f.Header, Bytes: f.Bytes}, nil
	default:
		ev := &Event{
			Code:      f.Header.Type,
			Name:      schema.EventName(f.Header.Type),
			Synthetic: f.Header.Synthetic,
			Seq:       f.Header.Sequence,
			Raw:       f.Bytes,
		}
		if s, ok := schema.Event(f.Header.Type); ok {
			rec, err := protocol.Unmarshal(f.Bytes, s)
			if err != nil {
				return nil, c.protocolFailure(err)
			}
			ev.Record = rec
		} else {
			logs.Warnf("session: no schema for event code=%d, delivering raw bytes", f.Header.Type)
		}
		observability.RecordEvent(ev.Name)
		return ev, nil
	}
}

// transportFailure closes the connection after a failed read or write.
func (c *Conn) transportFailure(op string, err error) error {
	logs.Errf("session: %s failed target=%s: %v", op, c.target, err)
	_ = c.closeTransport()
	return &TransportError{Op: op, Err: err}
}

// protocolFailure closes the connection once framing can no longer be
// trusted.
func (c *Conn) protocolFailure(err error) error {
	logs.Errf("session: stream unusable target=%s: %v", c.target, err)
	_ = c.closeTransport()
	return err
}

func deadlineAfter(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
