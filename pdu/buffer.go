package pdu

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnderflow is returned when a read asks for more bytes than remain in a Buffer.
var ErrUnderflow = errors.New("pdu: buffer underflow")

// Buffer is a growable byte sequence with a read cursor.
// Integers are written and read big-endian, the SMPP wire order.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer returns an empty Buffer for building outgoing data.
func NewBuffer() *Buffer {
	return &Buffer{data: make([]byte, 0, HeaderLength)}
}

// WrapBuffer returns a Buffer positioned at the start of b.
// The Buffer does not copy b.
func WrapBuffer(b []byte) *Buffer {
	return &Buffer{data: b}
}

// AppendUint8 appends a single byte.
func (b *Buffer) AppendUint8(v uint8) *Buffer {
	b.data = append(b.data, v)
	return b
}

// AppendUint16 appends v as 2 big-endian bytes.
func (b *Buffer) AppendUint16(v uint16) *Buffer {
	b.data = binary.BigEndian.AppendUint16(b.data, v)
	return b
}

// AppendUint32 appends v as 4 big-endian bytes.
func (b *Buffer) AppendUint32(v uint32) *Buffer {
	b.data = binary.BigEndian.AppendUint32(b.data, v)
	return b
}

// AppendInt appends v as a big-endian integer of width bytes (1, 2 or 4).
// Values wider than width are truncated to their low-order bytes.
func (b *Buffer) AppendInt(v uint32, width int) *Buffer {
	switch width {
	case 1:
		return b.AppendUint8(uint8(v))
	case 2:
		return b.AppendUint16(uint16(v))
	case 4:
		return b.AppendUint32(v)
	default:
		panic(fmt.Sprintf("pdu: unsupported integer width %d", width))
	}
}

// AppendBytes appends p verbatim.
func (b *Buffer) AppendBytes(p []byte) *Buffer {
	b.data = append(b.data, p...)
	return b
}

// AppendCString appends s followed by a NUL terminator.
func (b *Buffer) AppendCString(s string) *Buffer {
	b.data = append(b.data, s...)
	b.data = append(b.data, 0)
	return b
}

// Bytes returns the accumulated bytes. It does not move the read cursor.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the logical length of the buffer.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.pos
}

// ReadUint8 reads one byte.
func (b *Buffer) ReadUint8() (uint8, error) {
	p, err := b.next(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// ReadUint16 reads 2 big-endian bytes.
func (b *Buffer) ReadUint16() (uint16, error) {
	p, err := b.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p), nil
}

// ReadUint32 reads 4 big-endian bytes.
func (b *Buffer) ReadUint32() (uint32, error) {
	p, err := b.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

// ReadInt reads a big-endian integer of width bytes (1, 2 or 4).
func (b *Buffer) ReadInt(width int) (uint32, error) {
	switch width {
	case 1:
		v, err := b.ReadUint8()
		return uint32(v), err
	case 2:
		v, err := b.ReadUint16()
		return uint32(v), err
	case 4:
		return b.ReadUint32()
	default:
		return 0, errors.Errorf("pdu: unsupported integer width %d", width)
	}
}

// ReadBytes reads the next n bytes. The returned slice is a copy.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	p, err := b.next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, p)
	return out, nil
}

// ReadCString reads bytes up to and including the next NUL and returns them without it.
func (b *Buffer) ReadCString() (string, error) {
	i := bytes.IndexByte(b.data[b.pos:], 0)
	if i < 0 {
		return "", errors.Wrap(ErrUnderflow, "missing NUL terminator")
	}
	s := string(b.data[b.pos : b.pos+i])
	b.pos += i + 1
	return s, nil
}

// next returns the next n bytes and advances the cursor.
// On underflow the cursor is left untouched.
func (b *Buffer) next(n int) ([]byte, error) {
	if n < 0 || b.Remaining() < n {
		return nil, errors.Wrapf(ErrUnderflow, "need %d bytes, %d remaining", n, b.Remaining())
	}
	p := b.data[b.pos : b.pos+n]
	b.pos += n
	return p, nil
}
