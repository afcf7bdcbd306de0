package smpp

import (
	"io"
	"net"

	"github.com/pkg/errors"

	"github.com/Zereker/smpp/pdu"
)

// maxEmptyReads is how many consecutive zero-byte reads are tolerated before
// the source is treated as broken.
const maxEmptyReads = 100

// FrameReader reassembles PDUs from a byte stream that may split one PDU across
// many reads or deliver several PDUs in one read. Bytes read past the end of a
// frame are kept for the next call to Next.
//
// A FrameReader is not safe for concurrent use.
type FrameReader struct {
	src   io.Reader
	addr  string
	chunk []byte
	max   uint32

	buf  []byte // received bytes not yet returned as a frame
	skip int    // bytes of an oversized frame still to discard
}

// NewFrameReader returns a FrameReader reading from r.
// ReadSizeOption and MaxPDULengthOption are honoured; other options are ignored.
func NewFrameReader(r io.Reader, opt ...Option) *FrameReader {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)
	return newFrameReader(r, opts)
}

func newFrameReader(r io.Reader, opts options) *FrameReader {
	fr := &FrameReader{
		src:   r,
		chunk: make([]byte, opts.readSize),
		max:   opts.maxPDULength,
	}
	if c, ok := r.(interface{ RemoteAddr() net.Addr }); ok && c.RemoteAddr() != nil {
		fr.addr = c.RemoteAddr().String()
	}
	return fr
}

// Next blocks until one complete PDU has been received and returns it.
//
// It returns ErrConnectionClosed if the stream ends before a frame is complete,
// and a *TransportError if the source fails. A header declaring a length under
// pdu.HeaderLength fails with pdu.ErrMalformedHeader and discards everything
// buffered. A header declaring a length over the maximum fails with
// ErrPDUTooLarge; the oversized frame is skipped so the following call can
// continue with the next frame.
func (f *FrameReader) Next() (pdu.PDU, error) {
	for {
		if f.skip > 0 {
			f.discard()
		}

		if f.skip == 0 && len(f.buf) >= pdu.HeaderLength {
			h, err := pdu.ParseHeader(f.buf)
			if err != nil {
				return pdu.PDU{}, err
			}

			if err = h.Validate(f.max); err != nil {
				if errors.Is(err, pdu.ErrPDUTooLarge) {
					f.skip = int(h.Length)
					f.discard()
				} else {
					f.Reset()
				}
				return pdu.PDU{}, err
			}

			if len(f.buf) >= int(h.Length) {
				p, err := pdu.Decode(f.buf[:h.Length])
				f.consume(int(h.Length))
				return p, err
			}
		}

		if err := f.fill(); err != nil {
			return pdu.PDU{}, err
		}
	}
}

// Buffered returns the number of received bytes not yet returned in a frame.
func (f *FrameReader) Buffered() int {
	return len(f.buf)
}

// Reset discards all buffered bytes.
func (f *FrameReader) Reset() {
	f.buf = f.buf[:0]
	f.skip = 0
}

// fill appends the next chunk from the source to the buffer.
// Data returned together with an error is kept and the error dropped;
// the source reports it again on the next read.
func (f *FrameReader) fill() error {
	for i := 0; i < maxEmptyReads; i++ {
		n, err := f.src.Read(f.chunk)
		if n > 0 {
			f.buf = append(f.buf, f.chunk[:n]...)
			return nil
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return errors.Wrapf(ErrConnectionClosed, "stream ended with %d bytes buffered", len(f.buf))
		default:
			return &TransportError{Op: "read", Addr: f.addr, Err: err}
		}
	}

	return &TransportError{Op: "read", Addr: f.addr, Err: io.ErrNoProgress}
}

// consume drops the first n buffered bytes.
func (f *FrameReader) consume(n int) {
	m := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:m]
}

// discard drops as much of an oversized frame as is buffered.
func (f *FrameReader) discard() {
	n := f.skip
	if n > len(f.buf) {
		n = len(f.buf)
	}
	f.consume(n)
	f.skip -= n
}
