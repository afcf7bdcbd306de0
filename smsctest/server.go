// Package smsctest provides an SMSC stub for testing SMPP transports: a
// loopback TCP listener that records every byte it receives and writes
// arbitrary bytes back on demand, including delayed and split writes.
package smsctest

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrNoPeer is returned by Write when no client connected within the wait timeout.
var ErrNoPeer = errors.New("smsctest: no peer connected")

// Logger is the structured logger used by the stub. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Server is an SMSC stub. It accepts any number of connections; Write targets
// the most recently accepted one.
type Server struct {
	listener *net.TCPListener
	logger   Logger
	wait     time.Duration

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	shutdown bool
	conns    []*net.TCPConn
	input    [][]byte
	changed  chan struct{} // closed and replaced whenever conns or input change
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// LoggerOption sets the logger for the server.
func LoggerOption(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WaitOption sets how long Write waits for a client to connect. Default is 5s.
func WaitOption(d time.Duration) ServerOption {
	return func(s *Server) {
		s.wait = d
	}
}

// New creates a stub listening on 127.0.0.1 at the given port; port 0 picks a free one.
// Call Start to begin accepting.
func New(port int, opts ...ServerOption) (*Server, error) {
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "smsctest: listen on %s", addr)
	}

	s := &Server{
		listener: listener,
		logger:   slog.Default(),
		wait:     5 * time.Second,
		changed:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.group, s.ctx = errgroup.WithContext(ctx)

	return s, nil
}

// Start begins accepting connections in the background.
func (s *Server) Start() {
	ctx := s.ctx
	s.group.Go(func() error {
		return s.serve(ctx)
	})

	s.logger.Info("smsc stub started", "addr", s.listener.Addr())
}

// Addr returns the "host:port" the stub listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Port returns the port the stub listens on.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Input returns every chunk received so far, one entry per socket read.
func (s *Server) Input() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(s.input))
	copy(out, s.input)
	return out
}

// Received returns all bytes received so far, concatenated.
func (s *Server) Received() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []byte
	for _, chunk := range s.input {
		out = append(out, chunk...)
	}
	return out
}

// WaitReceived blocks until at least n bytes have been received or ctx ends.
func (s *Server) WaitReceived(ctx context.Context, n int) ([]byte, error) {
	err := s.waitFor(ctx, func() bool {
		total := 0
		for _, chunk := range s.input {
			total += len(chunk)
		}
		return total >= n
	})
	if err != nil {
		return nil, err
	}
	return s.Received(), nil
}

// WaitConn blocks until a client has connected or ctx ends.
func (s *Server) WaitConn(ctx context.Context) error {
	return s.waitFor(ctx, func() bool {
		return len(s.conns) > 0
	})
}

// Write sends b to the most recently accepted client in a single socket write,
// waiting for a client to connect first if necessary.
func (s *Server) Write(b []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.wait)
	defer cancel()

	if err := s.WaitConn(ctx); err != nil {
		return errors.Wrap(ErrNoPeer, err.Error())
	}

	s.mu.Lock()
	conn := s.conns[len(s.conns)-1]
	s.mu.Unlock()

	if _, err := conn.Write(b); err != nil {
		return errors.Wrap(err, "smsctest: write")
	}
	s.logger.Debug("smsc stub wrote", "remote_addr", conn.RemoteAddr(), "bytes", len(b))
	return nil
}

// WriteAfter writes each chunk in its own socket write, sleeping delay before
// each one, in the background. Errors are reported by Close.
func (s *Server) WriteAfter(delay time.Duration, chunks ...[]byte) {
	s.group.Go(func() error {
		for _, chunk := range chunks {
			select {
			case <-time.After(delay):
			case <-s.ctx.Done():
				return nil
			}
			if err := s.Write(chunk); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClosePeer closes every accepted client connection; clients observe end of stream.
func (s *Server) ClosePeer() error {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.notify()
	s.mu.Unlock()

	var first error
	for _, conn := range conns {
		if err := conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close stops the stub, closes all connections and waits for background work.
// It returns the first error of a background WriteAfter, if any.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	_ = s.listener.Close()
	_ = s.ClosePeer()

	s.cancel()
	err := s.group.Wait()
	s.logger.Info("smsc stub stopped", "addr", s.listener.Addr())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serve accepts connections until the listener is closed.
func (s *Server) serve(ctx context.Context) error {
	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			s.mu.Lock()
			isShutdown := s.shutdown
			s.mu.Unlock()

			if isShutdown {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err)
			return err
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		_ = conn.SetNoDelay(true)

		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.notify()
		s.mu.Unlock()

		s.group.Go(func() error {
			s.record(ctx, conn)
			return nil
		})
	}
}

// record stores every chunk read from conn until it fails.
func (s *Server) record(ctx context.Context, conn *net.TCPConn) {
	buf := make([]byte, 4096)
	for ctx.Err() == nil {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			s.mu.Lock()
			s.input = append(s.input, chunk)
			s.notify()
			s.mu.Unlock()
		}
		if err != nil {
			s.logger.Debug("peer read ended", "remote_addr", conn.RemoteAddr(), "error", err)
			return
		}
	}
}

// waitFor blocks until cond, evaluated under s.mu, holds or ctx ends.
func (s *Server) waitFor(ctx context.Context, cond func() bool) error {
	for {
		s.mu.Lock()
		ok := cond()
		changed := s.changed
		s.mu.Unlock()

		if ok {
			return nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// notify wakes waiters. Callers hold s.mu.
func (s *Server) notify() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// FreePort returns a TCP port on 127.0.0.1 that was free at the time of the call.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(0)))
	if err != nil {
		return 0, errors.Wrap(err, "smsctest: allocate port")
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
