package logic

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

func TestVerifyEd25519PermitAcceptsValidSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var owner wire.Account
	copy(owner[:], pub)
	spender := acct(0x02)

	p := wire.PermitAction{
		Owner: owner, Spender: spender,
		Amount: wire.NewAmount(100), PermitID: wire.NewAmount(3),
	}
	sig := ed25519.Sign(priv, PermitMessage(p))
	copy(p.Sig[:], sig)

	assert.True(t, VerifyEd25519Permit(p))
}

func TestVerifyEd25519PermitRejectsTamperedAmount(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var owner wire.Account
	copy(owner[:], pub)
	spender := acct(0x02)

	p := wire.PermitAction{
		Owner: owner, Spender: spender,
		Amount: wire.NewAmount(100), PermitID: wire.NewAmount(3),
	}
	sig := ed25519.Sign(priv, PermitMessage(p))
	copy(p.Sig[:], sig)

	p.Amount = wire.NewAmount(1_000_000)
	assert.False(t, VerifyEd25519Permit(p), "signature must not verify once the signed amount is altered")
}

func TestVerifyEd25519PermitRejectsWrongSigner(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var owner wire.Account
	copy(owner[:], otherPub)

	p := wire.PermitAction{
		Owner: owner, Spender: acct(0x02),
		Amount: wire.NewAmount(10), PermitID: wire.NewAmount(0),
	}
	sig := ed25519.Sign(priv, PermitMessage(p))
	copy(p.Sig[:], sig)

	assert.False(t, VerifyEd25519Permit(p), "signature from a different key than Owner must not verify")
}
