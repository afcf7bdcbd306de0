// Package smpp provides the transport layer of an SMPP client: a point-to-point
// connection that turns a TCP byte stream into a sequence of PDUs and back.
// Frames are delimited solely by each PDU's own command_length, so PDUs split
// across reads and PDUs coalesced into one read are both handled.
//
// Connection can be driven synchronously with Read and Write, or asynchronously
// with Run, which pumps received PDUs into a callback and drains a send queue.
package smpp

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/smpp/pdu"
)

// ErrInvalidOnPDU is returned by Run when no PDU handler is configured.
var ErrInvalidOnPDU = errors.New("smpp: invalid on pdu callback")

// ErrBufferFull is returned by Send when the send queue is full.
// The receiver is not consuming PDUs fast enough; use SendBlocking to wait instead.
var ErrBufferFull = errors.New("smpp: send buffer full")

// State is the lifecycle state of a Connection.
type State int32

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
	// stateOpening is held while Open dials.
	stateOpening
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case stateOpening:
		return "opening"
	default:
		return "unknown"
	}
}

// aLongTimeAgo is a deadline in the past, used to interrupt a blocked read.
var aLongTimeAgo = time.Unix(1, 0)

// Connection is a TCP connection to an SMSC that exchanges whole PDUs.
//
// One goroutine may Write while another is blocked in Read. Close unblocks a
// pending Read, which then returns ErrConnectionClosed. A closed Connection
// cannot be reopened.
type Connection struct {
	addr   string
	opts   options
	logger Logger

	state   atomic.Int32
	rawConn net.Conn
	reader  *FrameReader

	readMu  sync.Mutex
	writeMu sync.Mutex

	sendMsg chan []byte

	runMu  sync.Mutex
	cancel context.CancelFunc
}

// New returns an unopened Connection to addr ("host:port").
// No resources are held until Open is called.
func New(addr string, opt ...Option) *Connection {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	return &Connection{
		addr:    addr,
		opts:    opts,
		logger:  opts.logger,
		sendMsg: make(chan []byte, opts.bufferSize),
	}
}

// Open connects to the configured address.
func (c *Connection) Open() error {
	return c.OpenContext(context.Background())
}

// OpenContext connects to the configured address, giving up when ctx ends.
//
// Failures are *TransportError values for which IsSetupError is true; errors.Is
// distinguishes ErrUnresolvedHost from ErrUnreachable. Open does not retry.
func (c *Connection) OpenContext(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateUnopened), int32(stateOpening)) {
		if c.State() == StateClosed {
			return ErrConnectionClosed
		}
		return ErrAlreadyOpen
	}

	dialer := net.Dialer{Timeout: c.opts.connectTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		// Back to unopened unless Close ran meanwhile.
		c.state.CompareAndSwap(int32(stateOpening), int32(StateUnopened))
		err = classifyDialError(c.addr, err)
		c.logger.Debug("open failed", "addr", c.addr, "error", err)
		return err
	}

	if tcp, ok := raw.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	c.rawConn = raw
	c.reader = newFrameReader(raw, c.opts)

	if !c.state.CompareAndSwap(int32(stateOpening), int32(StateOpen)) {
		// Closed while dialing.
		_ = raw.Close()
		return ErrConnectionClosed
	}

	c.logger.Info("connection opened", "addr", c.addr, "local_addr", raw.LocalAddr())
	return nil
}

// Write serializes p and writes all of its bytes to the socket.
// It returns once the bytes are handed to the socket, not once the peer has
// processed them. Concurrent writers are serialized.
func (c *Connection) Write(p pdu.PDU) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	if err := c.write(p.Bytes()); err != nil {
		return err
	}

	c.logger.Debug("pdu sent", "addr", c.addr, "pdu", p)
	return nil
}

// Read blocks until one complete PDU has arrived and returns it. PDUs that
// arrived together with an earlier one are returned by later calls, in arrival
// order, before the socket is read again.
//
// Read returns ErrConnectionClosed when the peer ends the stream or the
// connection is closed locally, and a *TransportError when the socket fails.
// There is no built-in timeout; use ReadContext or Close to bound the wait.
func (c *Connection) Read() (pdu.PDU, error) {
	if err := c.checkOpen(); err != nil {
		return pdu.PDU{}, err
	}

	c.readMu.Lock()
	defer c.readMu.Unlock()

	p, err := c.reader.Next()
	if err != nil {
		if c.IsClosed() {
			return pdu.PDU{}, errors.Wrap(ErrConnectionClosed, "closed while reading")
		}
		c.logger.Debug("read error", "addr", c.addr, "error", err)
		return pdu.PDU{}, err
	}

	c.logger.Debug("pdu received", "addr", c.addr, "pdu", p)
	return p, nil
}

// ReadContext is like Read but returns ctx.Err() if ctx ends before a PDU is
// complete. Bytes already received stay buffered for the next read.
func (c *Connection) ReadContext(ctx context.Context) (pdu.PDU, error) {
	if ctx.Done() == nil {
		return c.Read()
	}
	if err := c.checkOpen(); err != nil {
		return pdu.PDU{}, err
	}
	if err := ctx.Err(); err != nil {
		return pdu.PDU{}, err
	}

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = c.rawConn.SetReadDeadline(aLongTimeAgo)
		close(fired)
	})

	p, err := c.Read()

	if !stop() {
		<-fired
		_ = c.rawConn.SetReadDeadline(time.Time{})
		if err != nil && !errors.Is(err, ErrConnectionClosed) {
			return pdu.PDU{}, ctx.Err()
		}
	}
	return p, err
}

// Close releases the socket and discards any partially received PDU.
// It unblocks a pending Read and stops Run. Safe to call multiple times.
func (c *Connection) Close() error {
	prev := State(c.state.Swap(int32(StateClosed)))
	if prev != StateOpen {
		return nil
	}

	c.runMu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.runMu.Unlock()

	err := c.rawConn.Close()

	// A pending Read returns promptly now that the socket is closed.
	c.readMu.Lock()
	c.reader.Reset()
	c.readMu.Unlock()

	c.logger.Info("connection closed", "addr", c.addr)
	return err
}

// State returns the lifecycle state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// IsClosed returns true if the connection has been closed.
func (c *Connection) IsClosed() bool {
	return c.State() == StateClosed
}

// Addr returns the configured target address.
func (c *Connection) Addr() string {
	return c.addr
}

// LocalAddr returns the local socket address, or nil unless the connection is open.
func (c *Connection) LocalAddr() net.Addr {
	if c.State() != StateOpen {
		return nil
	}
	return c.rawConn.LocalAddr()
}

// Run starts the connection's read and write loops and blocks until one of
// them fails or ctx is canceled. Each received PDU is passed to the
// OnPDUOption callback; PDUs queued with Send or SendBlocking are written in
// order. The connection is closed when Run returns.
func (c *Connection) Run(ctx context.Context) error {
	if c.opts.onPDU == nil {
		return ErrInvalidOnPDU
	}
	if err := c.checkOpen(); err != nil {
		return err
	}

	c.logger.Debug("connection running", "addr", c.addr,
		"buffer_size", c.opts.bufferSize,
		"read_size", c.opts.readSize,
		"max_pdu_length", c.opts.maxPDULength)

	c.runMu.Lock()
	ctx, c.cancel = context.WithCancel(ctx)
	c.runMu.Unlock()

	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readLoop(child)
	})

	group.Go(func() error {
		return c.writeLoop(child)
	})

	// Closing the socket is what unblocks readLoop.
	group.Go(func() error {
		<-child.Done()
		_ = c.Close()
		return nil
	})

	err := group.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Info("connection stopped with error", "addr", c.addr, "error", err)
	} else {
		c.logger.Info("connection stopped", "addr", c.addr)
	}

	return err
}

// Send queues p for Run's write loop without blocking.
//
// Returns:
//   - nil: p was queued (not yet sent)
//   - ErrBufferFull: the queue is full, p was NOT queued
//   - ErrConnectionClosed: connection is closed
func (c *Connection) Send(p pdu.PDU) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	select {
	case c.sendMsg <- p.Bytes():
		return nil
	default:
		return ErrBufferFull
	}
}

// SendBlocking queues p for Run's write loop, waiting for queue space until
// ctx is canceled.
func (c *Connection) SendBlocking(ctx context.Context, p pdu.PDU) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	select {
	case c.sendMsg <- p.Bytes():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readLoop reads PDUs and hands them to the handler until the context is
// canceled or an unrecoverable error occurs. Socket failures always stop the
// loop; frame errors are passed to the error callback.
func (c *Connection) readLoop(ctx context.Context) error {
	for {
		p, err := c.Read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isFatal(err) || c.opts.onError(err) == Disconnect {
				return err
			}
			continue
		}

		if err = c.opts.onPDU(p); err != nil {
			return err
		}
	}
}

// writeLoop writes queued PDUs until the context is canceled or a write fails.
func (c *Connection) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-c.sendMsg:
			if err := c.write(data); err != nil {
				return err
			}
		}
	}
}

// write writes data in full, retrying short writes.
func (c *Connection) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for len(data) > 0 {
		n, err := c.rawConn.Write(data)
		data = data[n:]
		if err == nil && n == 0 {
			err = io.ErrShortWrite
		}
		if err != nil {
			if c.IsClosed() || isClosedError(err) {
				return errors.Wrap(ErrConnectionClosed, "closed while writing")
			}
			c.logger.Debug("write error", "addr", c.addr, "error", err)
			return &TransportError{Op: "write", Addr: c.addr, Err: err}
		}
	}
	return nil
}

func (c *Connection) checkOpen() error {
	switch c.State() {
	case StateUnopened, stateOpening:
		return ErrNotOpen
	case StateClosed:
		return ErrConnectionClosed
	}
	return nil
}

// isFatal reports whether a read error leaves the socket unusable.
func isFatal(err error) bool {
	var te *TransportError
	return errors.Is(err, ErrConnectionClosed) || errors.As(err, &te)
}
