package pdu

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenericNack_Bytes(t *testing.T) {
	p := GenericNack(WithStatus(500), WithSequence(1034234))

	frame := p.Bytes()
	require.Len(t, frame, HeaderLength)
	assert.Equal(t, uint32(HeaderLength), binary.BigEndian.Uint32(frame[0:4]))
	assert.Equal(t, uint32(GenericNackID), binary.BigEndian.Uint32(frame[4:8]))
	assert.Equal(t, uint32(500), binary.BigEndian.Uint32(frame[8:12]))
	assert.Equal(t, uint32(1034234), binary.BigEndian.Uint32(frame[12:16]))
}

func TestGenericNack_IgnoresBody(t *testing.T) {
	p := GenericNack(WithBody([]byte("ignored")))

	assert.Equal(t, uint32(HeaderLength), p.Len())
	assert.Empty(t, p.Body())
}

func TestPDU_RoundTrip(t *testing.T) {
	cases := []PDU{
		GenericNack(),
		GenericNack(WithStatus(StatusInvDLName), WithSequence(123456789)),
		EnquireLink(WithSequence(1)),
		EnquireLinkResp(WithSequence(1)),
		Unbind(WithSequence(0xFFFFFFFF)),
		UnbindResp(WithStatus(StatusSysErr)),
		New(SubmitSMID, WithSequence(42), WithBody([]byte{0x00, 0x01, 0x01, '1', '2', '3', 0x00})),
		New(CommandID(0x00001234), WithStatus(Status(0xDEADBEEF))),
	}

	for _, want := range cases {
		t.Run(want.CommandID().String(), func(t *testing.T) {
			frame := want.Bytes()

			got, err := Decode(frame)
			require.NoError(t, err)

			assert.Equal(t, want.CommandID(), got.CommandID())
			assert.Equal(t, want.Status(), got.Status())
			assert.Equal(t, want.Sequence(), got.Sequence())
			assert.Equal(t, want.Body(), got.Body())
			assert.Equal(t, frame, got.Bytes())
		})
	}
}

func TestPDU_BinaryMarshaler(t *testing.T) {
	want := New(DeliverSMID, WithSequence(7), WithBody([]byte("body")))

	frame, err := want.MarshalBinary()
	require.NoError(t, err)

	var got PDU
	require.NoError(t, got.UnmarshalBinary(frame))
	assert.Equal(t, want, got)
}

func TestPDU_BodyIsCopied(t *testing.T) {
	body := []byte{1, 2, 3}
	p := New(DataSMID, WithBody(body))

	body[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, p.Body())

	out := p.Body()
	out[1] = 9
	assert.Equal(t, []byte{1, 2, 3}, p.Body())
}

func TestPDU_LengthRecomputed(t *testing.T) {
	p := New(SubmitSMID, WithBody(make([]byte, 10)))

	assert.Equal(t, uint32(26), p.Len())
	assert.Equal(t, uint32(26), binary.BigEndian.Uint32(p.Bytes()[0:4]))
}

func TestParseHeader(t *testing.T) {
	frame := NewBuffer().
		AppendUint32(HeaderLength).
		AppendUint32(uint32(GenericNackID)).
		AppendUint32(uint32(StatusInvDLName)).
		AppendUint32(123456789).
		Bytes()

	h, err := ParseHeader(frame)
	require.NoError(t, err)
	assert.Equal(t, Header{
		Length:    HeaderLength,
		CommandID: GenericNackID,
		Status:    StatusInvDLName,
		Sequence:  123456789,
	}, h)
	assert.Equal(t, 0, h.BodyLength())
}

func TestParseHeader_Short(t *testing.T) {
	_, err := ParseHeader(make([]byte, HeaderLength-1))
	assert.True(t, errors.Is(err, ErrMalformedHeader), "got %v", err)
}

func TestHeader_Validate(t *testing.T) {
	assert.NoError(t, Header{Length: HeaderLength}.Validate(0))
	assert.NoError(t, Header{Length: 1 << 30}.Validate(0))
	assert.NoError(t, Header{Length: 100}.Validate(100))

	err := Header{Length: 15}.Validate(0)
	assert.True(t, errors.Is(err, ErrMalformedHeader), "got %v", err)

	err = Header{Length: 101}.Validate(100)
	assert.True(t, errors.Is(err, ErrPDUTooLarge), "got %v", err)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte{0, 0, 0})
	assert.True(t, errors.Is(err, ErrMalformedHeader))

	short := NewBuffer().AppendUint32(8).AppendUint32(0).AppendUint32(0).AppendUint32(0).Bytes()
	_, err = Decode(short)
	assert.True(t, errors.Is(err, ErrMalformedHeader))

	truncated := New(SubmitSMID, WithBody([]byte("abcdef"))).Bytes()[:20]
	_, err = Decode(truncated)
	assert.True(t, errors.Is(err, ErrUnderflow))
}

func TestDecode_IgnoresTrailingBytes(t *testing.T) {
	first := EnquireLink(WithSequence(1)).Bytes()
	second := EnquireLink(WithSequence(2)).Bytes()

	got, err := Decode(append(append([]byte(nil), first...), second...))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.Sequence())
	assert.Equal(t, first, got.Bytes())
}

func TestPDU_String(t *testing.T) {
	p := GenericNack(WithStatus(StatusInvCmdID), WithSequence(3))
	assert.Equal(t, "generic_nack{status: ESME_RINVCMDID, seq: 3, body: 0 bytes}", p.String())
	assert.Equal(t, "enquire_link{status: ESME_ROK, seq: 0, body: 0 bytes}", EnquireLink().String())
	assert.Equal(t, "generic_nack{status: ESME_RINVCMDID, seq: 3, body: 0 bytes}", fmt.Sprint(p))
}

func TestHeader_String(t *testing.T) {
	h := GenericNack(WithStatus(StatusInvCmdID), WithSequence(3)).Header()
	assert.Equal(t, "{Length: 16, CommandID: generic_nack, Status: ESME_RINVCMDID, Sequence: 3}", h.String())
}
