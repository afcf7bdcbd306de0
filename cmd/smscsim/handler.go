package main

import (
	"fmt"
	"sync/atomic"

	"github.com/Zereker/smpp/pdu"
)

// reply is what the simulator sends back for one request.
type reply struct {
	pdu   pdu.PDU
	close bool // close the session after writing
}

type responder struct {
	systemID string
	msgID    atomic.Uint64
}

func newResponder(systemID string) *responder {
	return &responder{systemID: systemID}
}

// respond builds the answer to p. ok is false when p needs no answer.
func (r *responder) respond(p pdu.PDU) (reply, bool) {
	seq := pdu.WithSequence(p.Sequence())

	switch p.CommandID() {
	case pdu.EnquireLinkID:
		return reply{pdu: pdu.EnquireLinkResp(seq)}, true

	case pdu.BindReceiverID, pdu.BindTransmitterID, pdu.BindTransceiverID:
		body := pdu.NewBuffer().AppendCString(r.systemID).Bytes()
		return reply{pdu: pdu.New(p.CommandID().Response(), seq, pdu.WithBody(body))}, true

	case pdu.UnbindID:
		return reply{pdu: pdu.UnbindResp(seq), close: true}, true

	case pdu.SubmitSMID, pdu.DataSMID:
		id := fmt.Sprintf("%016x", r.msgID.Add(1))
		body := pdu.NewBuffer().AppendCString(id).Bytes()
		return reply{pdu: pdu.New(p.CommandID().Response(), seq, pdu.WithBody(body))}, true

	case pdu.CancelSMID, pdu.ReplaceSMID:
		return reply{pdu: pdu.New(p.CommandID().Response(), seq)}, true
	}

	if p.CommandID().IsResponse() {
		return reply{}, false
	}
	return reply{pdu: pdu.GenericNack(seq, pdu.WithStatus(pdu.StatusInvCmdID))}, true
}
