package pdu

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrNoBodyDecoder is returned by DecodeBody when no decoder is registered for a command id.
var ErrNoBodyDecoder = errors.New("pdu: no body decoder registered")

// ErrUnexpectedBody is returned when a PDU that must have an empty body carries bytes.
var ErrUnexpectedBody = errors.New("pdu: unexpected body")

// BodyDecoder interprets the body of one command id.
// It receives a Buffer positioned at the start of the body.
type BodyDecoder func(body *Buffer) (any, error)

var (
	decodersMu sync.RWMutex
	decoders   = map[CommandID]BodyDecoder{}
)

func init() {
	for _, id := range []CommandID{
		GenericNackID,
		EnquireLinkID,
		EnquireLinkRespID,
		UnbindID,
		UnbindRespID,
	} {
		decoders[id] = decodeEmpty
	}
}

// RegisterBodyDecoder installs dec for id, replacing any earlier decoder.
func RegisterBodyDecoder(id CommandID, dec BodyDecoder) {
	decodersMu.Lock()
	defer decodersMu.Unlock()
	decoders[id] = dec
}

// DecodeBody runs the decoder registered for the PDU's command id.
func (p PDU) DecodeBody() (any, error) {
	decodersMu.RLock()
	dec, ok := decoders[p.commandID]
	decodersMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrNoBodyDecoder, "command %s", p.commandID)
	}
	return dec(WrapBuffer(p.Body()))
}

func decodeEmpty(body *Buffer) (any, error) {
	if body.Remaining() != 0 {
		return nil, errors.Wrapf(ErrUnexpectedBody, "%d bytes", body.Remaining())
	}
	return nil, nil
}
