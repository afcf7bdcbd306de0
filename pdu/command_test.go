package pdu

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandID_String(t *testing.T) {
	assert.Equal(t, "generic_nack", GenericNackID.String())
	assert.Equal(t, "submit_sm_resp", SubmitSMRespID.String())
	assert.Equal(t, "command(0x00001234)", CommandID(0x1234).String())
}

func TestCommandID_Response(t *testing.T) {
	assert.Equal(t, BindTransceiverRespID, BindTransceiverID.Response())
	assert.Equal(t, EnquireLinkRespID, EnquireLinkID.Response())
	assert.Equal(t, EnquireLinkRespID, EnquireLinkRespID.Response())
	assert.Equal(t, GenericNackID, GenericNackID.Response())
	assert.Equal(t, OutbindID, OutbindID.Response())

	assert.True(t, GenericNackID.IsResponse())
	assert.False(t, SubmitSMID.IsResponse())
	assert.True(t, SubmitSMID.Known())
	assert.False(t, CommandID(0x1234).Known())
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "ESME_ROK", StatusOK.String())
	assert.Equal(t, "ESME_RINVDLNAME", StatusInvDLName.String())
	assert.Equal(t, "status(0x000001f4)", Status(500).String())

	var err error = StatusThrottled
	assert.EqualError(t, err, "smpp: ESME_RTHROTTLED")
}

func TestDecodeBody_Empty(t *testing.T) {
	v, err := EnquireLink().DecodeBody()
	require.NoError(t, err)
	assert.Nil(t, v)

	withBody, err := Decode(New(UnbindID, WithBody([]byte{1})).Bytes())
	require.NoError(t, err)
	_, err = withBody.DecodeBody()
	assert.True(t, errors.Is(err, ErrUnexpectedBody), "got %v", err)
}

func TestDecodeBody_Registered(t *testing.T) {
	const id = CommandID(0x00010001)
	RegisterBodyDecoder(id, func(body *Buffer) (any, error) {
		return body.ReadCString()
	})

	v, err := New(id, WithBody(NewBuffer().AppendCString("hello").Bytes())).DecodeBody()
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestDecodeBody_Unregistered(t *testing.T) {
	_, err := New(CommandID(0x00020002)).DecodeBody()
	assert.True(t, errors.Is(err, ErrNoBodyDecoder))
}
