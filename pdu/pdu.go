// Package pdu implements the SMPP PDU header codec and the big-endian byte
// buffer it is built on. Body contents are opaque at this level; decoders for
// specific operations can be registered per command id.
package pdu

import (
	"fmt"

	"github.com/pkg/errors"
)

// PDU is one SMPP message: a fixed header and an opaque body.
// A PDU is a value; it has no setters and its body is never shared with callers.
type PDU struct {
	commandID CommandID
	status    Status
	sequence  uint32
	body      []byte
}

// Option overrides a header field or the body when constructing a PDU.
type Option func(*PDU)

// WithStatus sets command_status.
func WithStatus(s Status) Option {
	return func(p *PDU) {
		p.status = s
	}
}

// WithSequence sets sequence_number.
func WithSequence(seq uint32) Option {
	return func(p *PDU) {
		p.sequence = seq
	}
}

// WithBody sets the body. The bytes are copied.
func WithBody(body []byte) Option {
	return func(p *PDU) {
		p.body = append([]byte(nil), body...)
	}
}

// New returns a PDU with the given command id, status OK, sequence 0 and an empty body.
func New(id CommandID, opts ...Option) PDU {
	p := PDU{commandID: id}
	for _, o := range opts {
		o(&p)
	}
	return p
}

// GenericNack returns a generic_nack PDU. Its body is always empty.
func GenericNack(opts ...Option) PDU {
	return emptyBody(GenericNackID, opts)
}

// EnquireLink returns an enquire_link PDU.
func EnquireLink(opts ...Option) PDU {
	return emptyBody(EnquireLinkID, opts)
}

// EnquireLinkResp returns an enquire_link_resp PDU.
func EnquireLinkResp(opts ...Option) PDU {
	return emptyBody(EnquireLinkRespID, opts)
}

// Unbind returns an unbind PDU.
func Unbind(opts ...Option) PDU {
	return emptyBody(UnbindID, opts)
}

// UnbindResp returns an unbind_resp PDU.
func UnbindResp(opts ...Option) PDU {
	return emptyBody(UnbindRespID, opts)
}

func emptyBody(id CommandID, opts []Option) PDU {
	p := New(id, opts...)
	p.body = nil
	return p
}

// CommandID returns command_id.
func (p PDU) CommandID() CommandID {
	return p.commandID
}

// Status returns command_status.
func (p PDU) Status() Status {
	return p.status
}

// Sequence returns sequence_number.
func (p PDU) Sequence() uint32 {
	return p.sequence
}

// Body returns a copy of the body.
func (p PDU) Body() []byte {
	return append([]byte(nil), p.body...)
}

// Len returns command_length: the header plus the body.
func (p PDU) Len() uint32 {
	return uint32(HeaderLength + len(p.body))
}

// Header returns the header this PDU serializes with.
func (p PDU) Header() Header {
	return Header{
		Length:    p.Len(),
		CommandID: p.commandID,
		Status:    p.status,
		Sequence:  p.sequence,
	}
}

// Bytes serializes the PDU. command_length is always recomputed from the body.
func (p PDU) Bytes() []byte {
	buf := &Buffer{data: make([]byte, 0, p.Len())}
	p.Header().encode(buf)
	buf.AppendBytes(p.body)
	return buf.Bytes()
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p PDU) MarshalBinary() ([]byte, error) {
	return p.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *PDU) UnmarshalBinary(frame []byte) error {
	decoded, err := Decode(frame)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// Decode decodes one complete frame. The body is frame[HeaderLength:command_length];
// bytes past command_length are ignored.
func Decode(frame []byte) (PDU, error) {
	h, err := ParseHeader(frame)
	if err != nil {
		return PDU{}, err
	}
	if err = h.Validate(0); err != nil {
		return PDU{}, err
	}
	if len(frame) < int(h.Length) {
		return PDU{}, errors.Wrapf(ErrUnderflow, "frame has %d bytes, header declares %d", len(frame), h.Length)
	}

	p := PDU{
		commandID: h.CommandID,
		status:    h.Status,
		sequence:  h.Sequence,
	}
	if h.BodyLength() > 0 {
		p.body = append([]byte(nil), frame[HeaderLength:h.Length]...)
	}
	return p, nil
}

func (p PDU) String() string {
	return fmt.Sprintf("%s{status: %s, seq: %d, body: %d bytes}",
		p.commandID, p.status.String(), p.sequence, len(p.body))
}
