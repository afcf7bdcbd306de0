package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/smpp"
	"github.com/Zereker/smpp/internal/config"
	"github.com/Zereker/smpp/pdu"
)

type client struct {
	cfg      config.ESME
	logger   smpp.Logger
	conn     *smpp.Connection
	sequence atomic.Uint32
	unbound  atomic.Bool
	replies  chan pdu.PDU
}

func newClient(cfg config.ESME, logger smpp.Logger) *client {
	c := &client{
		cfg:     cfg,
		logger:  logger,
		replies: make(chan pdu.PDU, max(cfg.BufferSize, 1)),
	}
	c.conn = smpp.New(cfg.Addr,
		smpp.LoggerOption(logger),
		smpp.ConnectTimeoutOption(cfg.ConnectTimeout),
		smpp.BufferSizeOption(cfg.BufferSize),
		smpp.MaxPDULengthOption(cfg.MaxPDULength),
		smpp.OnPDUOption(c.onPDU),
	)
	return c
}

// run opens the connection, exchanges enquire_links and unbinds.
func (c *client) run(ctx context.Context) error {
	if err := c.conn.OpenContext(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := c.conn.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		// the SMSC may close first once it has answered unbind
		if c.unbound.Load() && errors.Is(err, smpp.ErrConnectionClosed) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		defer cancel()
		return c.exchange(ctx)
	})

	return group.Wait()
}

func (c *client) exchange(ctx context.Context) error {
	for i := 0; i < c.cfg.EnquireLinks; i++ {
		if i > 0 && c.cfg.Interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.Interval):
			}
		}

		start := time.Now()
		resp, err := c.request(ctx, pdu.EnquireLink(pdu.WithSequence(c.nextSequence())))
		if err != nil {
			return err
		}
		c.logger.Info("enquire_link answered", "status", resp.Status().String(), "rtt", time.Since(start))
	}

	c.unbound.Store(true)
	resp, err := c.request(ctx, pdu.Unbind(pdu.WithSequence(c.nextSequence())))
	if err != nil {
		return err
	}
	c.logger.Info("unbound", "status", resp.Status().String())
	return nil
}

// request sends p and waits for the response with the same sequence number.
func (c *client) request(ctx context.Context, p pdu.PDU) (pdu.PDU, error) {
	if err := c.conn.SendBlocking(ctx, p); err != nil {
		return pdu.PDU{}, err
	}

	for {
		select {
		case <-ctx.Done():
			return pdu.PDU{}, ctx.Err()
		case resp := <-c.replies:
			if resp.Sequence() != p.Sequence() {
				c.logger.Warn("unexpected response", "pdu", resp.String())
				continue
			}
			if resp.CommandID() == pdu.GenericNackID {
				return resp, errors.Wrapf(resp.Status(), "%s rejected", p.CommandID())
			}
			return resp, nil
		}
	}
}

// onPDU answers requests from the SMSC and hands responses to request.
func (c *client) onPDU(p pdu.PDU) error {
	id := p.CommandID()
	if id.IsResponse() {
		select {
		case c.replies <- p:
		default:
			c.logger.Warn("response dropped", "pdu", p.String())
		}
		return nil
	}

	switch id {
	case pdu.EnquireLinkID:
		return c.conn.Send(pdu.EnquireLinkResp(pdu.WithSequence(p.Sequence())))
	case pdu.UnbindID:
		return c.conn.Send(pdu.UnbindResp(pdu.WithSequence(p.Sequence())))
	case pdu.DeliverSMID:
		return c.conn.Send(pdu.New(pdu.DeliverSMRespID, pdu.WithSequence(p.Sequence()), pdu.WithBody([]byte{0})))
	}
	return c.conn.Send(pdu.GenericNack(pdu.WithSequence(p.Sequence()), pdu.WithStatus(pdu.StatusInvCmdID)))
}

func (c *client) nextSequence() uint32 {
	return c.sequence.Add(1)
}
