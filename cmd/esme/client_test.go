package main

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/smpp"
	"github.com/Zereker/smpp/internal/config"
	"github.com/Zereker/smpp/pdu"
)

// smsc answers enquire_link and unbind on a single accepted connection and
// records the command ids it received.
type smsc struct {
	listener net.Listener
	mu       sync.Mutex
	received []pdu.CommandID
	nack     bool
}

func startSMSC(t *testing.T, nack bool) *smsc {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &smsc{listener: l, nack: nack}
	go s.serve()
	t.Cleanup(func() { _ = l.Close() })
	return s
}

func (s *smsc) serve() {
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	reader := smpp.NewFrameReader(conn)
	for {
		req, err := reader.Next()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.received = append(s.received, req.CommandID())
		s.mu.Unlock()

		seq := pdu.WithSequence(req.Sequence())
		var resp pdu.PDU
		switch {
		case s.nack:
			resp = pdu.GenericNack(seq, pdu.WithStatus(pdu.StatusSysErr))
		case req.CommandID() == pdu.UnbindID:
			resp = pdu.UnbindResp(seq)
		default:
			resp = pdu.EnquireLinkResp(seq)
		}
		if _, err := conn.Write(resp.Bytes()); err != nil {
			return
		}
		if req.CommandID() == pdu.UnbindID {
			return
		}
	}
}

func (s *smsc) commands() []pdu.CommandID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pdu.CommandID(nil), s.received...)
}

func testConfig(addr string) config.ESME {
	cfg := config.DefaultESME()
	cfg.Addr = addr
	cfg.Interval = 0
	cfg.EnquireLinks = 3
	return cfg
}

func TestClient_Run(t *testing.T) {
	s := startSMSC(t, false)

	c := newClient(testConfig(s.listener.Addr().String()), smpp.NopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.run(ctx))

	assert.Equal(t, []pdu.CommandID{
		pdu.EnquireLinkID, pdu.EnquireLinkID, pdu.EnquireLinkID, pdu.UnbindID,
	}, s.commands())
	assert.True(t, c.conn.IsClosed())
}

func TestClient_Rejected(t *testing.T) {
	s := startSMSC(t, true)

	c := newClient(testConfig(s.listener.Addr().String()), smpp.NopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, pdu.StatusSysErr)
}

func TestClient_Unreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	_ = l.Close()

	c := newClient(testConfig(addr), smpp.NopLogger())
	err = c.run(context.Background())
	assert.ErrorIs(t, err, smpp.ErrUnreachable)
}

func TestClient_AnswersSMSCRequests(t *testing.T) {
	c := newClient(testConfig("127.0.0.1:2775"), smpp.NopLogger())

	// answers are only queued until Run writes them
	require.NoError(t, c.onPDU(pdu.EnquireLink(pdu.WithSequence(7))))
	require.NoError(t, c.onPDU(pdu.New(pdu.CommandID(0x0000_0042), pdu.WithSequence(8))))
	require.NoError(t, c.onPDU(pdu.EnquireLinkResp(pdu.WithSequence(9))))

	resp := <-c.replies
	assert.Equal(t, uint32(9), resp.Sequence())
}
