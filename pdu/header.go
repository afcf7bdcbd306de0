package pdu

import (
	"fmt"

	"github.com/pkg/errors"
)

// HeaderLength is the size of the fixed PDU header:
// command_length, command_id, command_status and sequence_number, 4 bytes each.
const HeaderLength = 16

// DefaultMaxLength is the default upper bound on command_length accepted from a peer.
const DefaultMaxLength = 64 * 1024

var (
	// ErrMalformedHeader is returned when a header cannot be decoded or declares
	// a length shorter than the header itself.
	ErrMalformedHeader = errors.New("pdu: malformed header")
	// ErrPDUTooLarge is returned when a header declares a length above the accepted maximum.
	ErrPDUTooLarge = errors.New("pdu: length over upper limit")
)

// Header is the decoded fixed header of a PDU.
type Header struct {
	Length    uint32
	CommandID CommandID
	Status    Status
	Sequence  uint32
}

// ParseHeader decodes the first HeaderLength bytes of b. It performs no validation
// of the decoded values; see Header.Validate.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLength {
		return Header{}, errors.Wrapf(ErrMalformedHeader, "got %d bytes, need %d", len(b), HeaderLength)
	}

	buf := WrapBuffer(b[:HeaderLength])
	var h Header
	// The slice is exactly HeaderLength bytes, so these reads cannot underflow.
	h.Length, _ = buf.ReadUint32()
	id, _ := buf.ReadUint32()
	status, _ := buf.ReadUint32()
	h.Sequence, _ = buf.ReadUint32()
	h.CommandID = CommandID(id)
	h.Status = Status(status)
	return h, nil
}

// Validate checks that the declared length covers at least the header and does
// not exceed max. A max of zero disables the upper bound.
func (h Header) Validate(max uint32) error {
	if h.Length < HeaderLength {
		return errors.Wrapf(ErrMalformedHeader, "command_length %d under %d", h.Length, HeaderLength)
	}
	if max > 0 && h.Length > max {
		return errors.Wrapf(ErrPDUTooLarge, "command_length %d over %d", h.Length, max)
	}
	return nil
}

// BodyLength returns the number of body bytes that follow the header.
func (h Header) BodyLength() int {
	if h.Length < HeaderLength {
		return 0
	}
	return int(h.Length) - HeaderLength
}

func (h Header) String() string {
	return fmt.Sprintf("{Length: %d, CommandID: %s, Status: %s, Sequence: %d}",
		h.Length, h.CommandID, h.Status.String(), h.Sequence)
}

func (h Header) encode(buf *Buffer) {
	buf.AppendUint32(h.Length).
		AppendUint32(uint32(h.CommandID)).
		AppendUint32(uint32(h.Status)).
		AppendUint32(h.Sequence)
}
