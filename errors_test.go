package smpp

import (
	"net"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/pkg/errors"
)

func TestTransportError_Is(t *testing.T) {
	cause := syscall.ECONNREFUSED
	err := error(&TransportError{Op: "open", Addr: "127.0.0.1:1", Kind: ErrUnreachable, Err: cause})

	if !errors.Is(err, ErrUnreachable) {
		t.Error("expected errors.Is(err, ErrUnreachable)")
	}
	if errors.Is(err, ErrUnresolvedHost) {
		t.Error("unexpected match with ErrUnresolvedHost")
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Error("expected the cause to be reachable through Unwrap")
	}
	if !IsSetupError(err) {
		t.Error("open failures are setup errors")
	}
	if !strings.Contains(err.Error(), "127.0.0.1:1") {
		t.Errorf("message %q does not name the address", err.Error())
	}
}

func TestTransportError_InSession(t *testing.T) {
	err := errors.Wrap(&TransportError{Op: "write", Addr: "x", Err: syscall.EPIPE}, "session")

	if IsSetupError(err) {
		t.Error("write failures are not setup errors")
	}
	if errors.Is(err, ErrUnreachable) {
		t.Error("in-session errors have no setup kind")
	}
	if IsSetupError(errors.New("other")) {
		t.Error("plain errors are not setup errors")
	}
}

func TestClassifyDialError(t *testing.T) {
	dnsErr := &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{Err: "no such host", Name: "noname.invalid", IsNotFound: true}}
	if err := classifyDialError("noname.invalid:1", dnsErr); !errors.Is(err, ErrUnresolvedHost) {
		t.Errorf("DNS failure classified as %v", err)
	}

	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	if err := classifyDialError("127.0.0.1:1", refused); !errors.Is(err, ErrUnreachable) {
		t.Errorf("refused connection classified as %v", err)
	}

	unreachable := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ENETUNREACH}
	if err := classifyDialError("1.0.0.0:1", unreachable); !errors.Is(err, ErrUnreachable) {
		t.Errorf("unreachable network classified as %v", err)
	}

	timedOut := &net.OpError{Op: "dial", Net: "tcp", Err: os.ErrDeadlineExceeded}
	err := classifyDialError("1.0.0.0:1", timedOut)
	if !errors.Is(err, ErrUnreachable) || !IsSetupError(err) {
		t.Errorf("dial timeout classified as %v", err)
	}
	if errors.Is(err, ErrUnresolvedHost) {
		t.Error("dial timeout is not a resolution failure")
	}
}

func TestIsFatal(t *testing.T) {
	if !isFatal(errors.Wrap(ErrConnectionClosed, "eof")) {
		t.Error("closed connection is fatal")
	}
	if !isFatal(&TransportError{Op: "read"}) {
		t.Error("transport failure is fatal")
	}
	if isFatal(ErrPDUTooLarge) {
		t.Error("oversized PDU is recoverable")
	}
}
