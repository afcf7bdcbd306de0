package main

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/panjf2000/gnet/v2"
	"go.uber.org/zap"

	"github.com/Zereker/smpp/internal/config"
	"github.com/Zereker/smpp/pdu"
)

// simulator answers SMPP requests on a gnet event loop. Delayed replies run on an ants pool.
type simulator struct {
	gnet.BuiltinEventEngine

	engine    gnet.Engine
	protoAddr string
	cfg       config.Simulator
	responder *responder
	pool      *ants.Pool
	log       *zap.SugaredLogger
}

func newSimulator(cfg config.Simulator, log *zap.SugaredLogger) (*simulator, error) {
	options := ants.Options{
		ExpiryDuration:   time.Minute,
		Nonblocking:      false,
		MaxBlockingTasks: cfg.PoolSize,
		PanicHandler: func(e interface{}) {
			log.Errorf("[%-9s] worker panic: %v", "Pool", e)
		},
	}
	pool, err := ants.NewPool(cfg.PoolSize, ants.WithOptions(options))
	if err != nil {
		return nil, err
	}

	return &simulator{
		protoAddr: "tcp://" + cfg.Listen,
		cfg:       cfg,
		responder: newResponder(cfg.SystemID),
		pool:      pool,
		log:       log,
	}, nil
}

// run blocks until the engine stops.
func (s *simulator) run() error {
	defer s.pool.Release()

	return gnet.Run(s, s.protoAddr,
		gnet.WithMulticore(s.cfg.Multicore),
		gnet.WithTicker(true),
		gnet.WithLogger(s.log),
	)
}

func (s *simulator) stop(ctx context.Context) error {
	return gnet.Stop(ctx, s.protoAddr)
}

func (s *simulator) OnBoot(eng gnet.Engine) gnet.Action {
	s.log.Infof("[%-9s] running simulator on %s with multi-core=%t", "OnBoot", s.protoAddr, s.cfg.Multicore)
	s.engine = eng
	return gnet.None
}

func (s *simulator) OnShutdown(gnet.Engine) {
	s.log.Warnf("[%-9s] shutdown simulator %s", "OnShutdown", s.protoAddr)
}

func (s *simulator) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	s.log.Infof("[%-9s] [%v<->%v] session opened", "OnOpen", c.RemoteAddr(), c.LocalAddr())
	return nil, gnet.None
}

func (s *simulator) OnClose(c gnet.Conn, err error) gnet.Action {
	s.log.Infof("[%-9s] [%v<->%v] session closed, reason=%v", "OnClose", c.RemoteAddr(), c.LocalAddr(), err)
	return gnet.None
}

// OnTraffic answers every complete PDU in the inbound buffer and leaves a partial one for the next call.
func (s *simulator) OnTraffic(c gnet.Conn) gnet.Action {
	for c.InboundBuffered() >= pdu.HeaderLength {
		head, err := c.Peek(pdu.HeaderLength)
		if err != nil {
			return gnet.Close
		}
		header, err := pdu.ParseHeader(head)
		if err != nil {
			return gnet.Close
		}
		if err := header.Validate(s.cfg.MaxPDULength); err != nil {
			s.log.Warnf("[%-9s] [%v] %v, closing session", "OnTraffic", c.RemoteAddr(), err)
			return gnet.Close
		}
		if c.InboundBuffered() < int(header.Length) {
			return gnet.None
		}

		frame, err := c.Next(int(header.Length))
		if err != nil {
			return gnet.Close
		}
		req, err := pdu.Decode(frame)
		if err != nil {
			s.log.Warnf("[%-9s] [%v] %v, closing session", "OnTraffic", c.RemoteAddr(), err)
			return gnet.Close
		}
		s.log.Debugf("[%-9s] <<< %s", "OnTraffic", req)

		rep, ok := s.responder.respond(req)
		if !ok {
			continue
		}
		if action := s.send(c, rep); action != gnet.None {
			return action
		}
	}
	return gnet.None
}

func (s *simulator) OnTick() (time.Duration, gnet.Action) {
	s.log.Infof("[%-9s] %d active sessions", "OnTick", s.engine.CountConnections())
	return 30 * time.Second, gnet.None
}

func (s *simulator) send(c gnet.Conn, rep reply) gnet.Action {
	if s.cfg.ResponseDelay <= 0 {
		if _, err := c.Write(rep.pdu.Bytes()); err != nil {
			s.log.Errorf("[%-9s] >>> %s: %v", "OnTraffic", rep.pdu, err)
			return gnet.Close
		}
		s.log.Debugf("[%-9s] >>> %s", "OnTraffic", rep.pdu)
		if rep.close {
			return gnet.Close
		}
		return gnet.None
	}

	// Delayed replies never close the session; the peer does after unbind_resp.
	err := s.pool.Submit(func() {
		time.Sleep(s.cfg.ResponseDelay)
		if err := c.AsyncWrite(rep.pdu.Bytes(), nil); err != nil {
			s.log.Errorf("[%-9s] >>> %s: %v", "Delayed", rep.pdu, err)
			return
		}
		s.log.Debugf("[%-9s] >>> %s", "Delayed", rep.pdu)
	})
	if err != nil {
		s.log.Errorf("[%-9s] submit delayed reply: %v", "OnTraffic", err)
		return gnet.Close
	}
	return gnet.None
}
