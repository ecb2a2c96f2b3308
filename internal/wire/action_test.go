package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeMintRoundTrip(t *testing.T) {
	var recipient Account
	recipient[0] = 0x11

	payload, err := EncodeMint(MintAction{Recipient: recipient, Amount: NewAmount(100)})
	require.NoError(t, err)

	decoded, err := DecodeLogicAction(payload)
	require.NoError(t, err)

	require.Equal(t, KindMint, decoded.Kind)
	require.NotNil(t, decoded.Mint)
	assert.Equal(t, recipient, decoded.Mint.Recipient)
	assert.Equal(t, 0, decoded.Mint.Amount.Cmp(NewAmount(100)))
	assert.Nil(t, decoded.Burn)
	assert.Nil(t, decoded.Transfer)
}

func TestEncodeDecodeTransferRoundTrip(t *testing.T) {
	var sender, recipient Account
	sender[0] = 0x22
	recipient[0] = 0x33

	payload, err := EncodeTransfer(TransferAction{Sender: sender, Recipient: recipient, Amount: NewAmount(5)})
	require.NoError(t, err)

	decoded, err := DecodeLogicAction(payload)
	require.NoError(t, err)
	require.NotNil(t, decoded.Transfer)
	assert.Equal(t, sender, decoded.Transfer.Sender)
	assert.Equal(t, recipient, decoded.Transfer.Recipient)
}

func TestEncodeDecodePermitRoundTrip(t *testing.T) {
	var owner, spender Account
	owner[0] = 0x44
	spender[0] = 0x55

	payload, err := EncodePermit(PermitAction{
		Owner:    owner,
		Spender:  spender,
		Amount:   NewAmount(9),
		PermitID: NewAmount(1),
	})
	require.NoError(t, err)

	decoded, err := DecodeLogicAction(payload)
	require.NoError(t, err)
	require.NotNil(t, decoded.Permit)
	assert.Equal(t, owner, decoded.Permit.Owner)
	assert.Equal(t, spender, decoded.Permit.Spender)
}

func TestDecodeLogicActionRejectsMismatchedVariant(t *testing.T) {
	// Kind says mint but the mint payload is missing: malformed on the wire.
	_, err := DecodeLogicAction([]byte(`{"kind":"mint"}`))
	assert.Error(t, err)
}

func TestDecodeLogicActionRejectsUnknownKind(t *testing.T) {
	_, err := DecodeLogicAction([]byte(`{"kind":"bogus"}`))
	assert.Error(t, err)
}

func TestDecodeLogicActionRejectsGarbage(t *testing.T) {
	_, err := DecodeLogicAction([]byte(`not json`))
	assert.Error(t, err)
}
