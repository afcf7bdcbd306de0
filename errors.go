package smpp

import (
	"context"
	"net"
	"os"

	"github.com/pkg/errors"

	"github.com/Zereker/smpp/pdu"
)

// Errors returned by connection operations.
var (
	// ErrUnresolvedHost is the kind of an open failure caused by name resolution.
	ErrUnresolvedHost = errors.New("smpp: host cannot be resolved")
	// ErrUnreachable is the kind of an open failure where the target refused the
	// connection or could not be reached.
	ErrUnreachable = errors.New("smpp: target unreachable")
	// ErrConnectionClosed is returned when the peer ended the stream before a full
	// PDU arrived, or when the connection was closed locally.
	ErrConnectionClosed = errors.New("smpp: connection closed")
	// ErrNotOpen is returned by Read and Write before Open succeeded.
	ErrNotOpen = errors.New("smpp: connection not open")
	// ErrAlreadyOpen is returned by Open on a connection that is already open.
	ErrAlreadyOpen = errors.New("smpp: connection already open")
	// ErrPDUTooLarge is returned when a peer declares a PDU longer than the configured maximum.
	ErrPDUTooLarge = pdu.ErrPDUTooLarge
)

// TransportError is a socket failure. Op is "open", "read" or "write".
// For open failures Kind is ErrUnresolvedHost or ErrUnreachable, and
// errors.Is matches against it.
type TransportError struct {
	Op   string
	Addr string
	Kind error
	Err  error
}

func (e *TransportError) Error() string {
	s := "smpp: " + e.Op + " " + e.Addr
	if e.Kind != nil {
		s += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying socket error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error.
func (e *TransportError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Setup reports whether the error happened while establishing the connection.
func (e *TransportError) Setup() bool {
	return e.Op == "open"
}

// IsSetupError reports whether err is a connection setup failure. Setup failures
// may be retried with a fresh Connection; any other transport error means the
// session is dead.
func IsSetupError(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Setup()
}

// classifyDialError maps a dial failure onto ErrUnresolvedHost or ErrUnreachable.
func classifyDialError(addr string, err error) error {
	kind := ErrUnreachable

	var dnsErr *net.DNSError
	var addrErr *net.AddrError
	switch {
	case errors.Is(err, context.Canceled):
		return errors.WithMessage(err, "smpp: open "+addr)
	case errors.As(err, &dnsErr), errors.As(err, &addrErr):
		kind = ErrUnresolvedHost
	}

	return &TransportError{Op: "open", Addr: addr, Kind: kind, Err: err}
}

// isClosedError reports whether err comes from using a socket after Close.
func isClosedError(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed)
}
