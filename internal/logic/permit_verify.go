package logic

import (
	"crypto/ed25519"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// PermitMessage builds the canonical byte sequence a Permit's signature
// commits to: owner ∥ spender ∥ be256(amount) ∥ be256(permit_id). It is
// exported so an operator's signing client can construct the exact same
// bytes the verifier below checks against.
func PermitMessage(p wire.PermitAction) []byte {
	amount := p.Amount.Bytes32()
	permitID := p.PermitID.Bytes32()

	msg := make([]byte, 0, 32+32+32+32)
	msg = append(msg, p.Owner.Bytes()...)
	msg = append(msg, p.Spender.Bytes()...)
	msg = append(msg, amount[:]...)
	msg = append(msg, permitID[:]...)
	return msg
}

// VerifyEd25519Permit is the default PermitVerifier: it treats the 32-byte
// owner account itself as an ed25519 public key (both are exactly
// ed25519.PublicKeySize) and checks Sig against PermitMessage(p). Signature
// verification is a pure predicate supplied externally; this is one
// concrete, pluggable instance of that predicate, not its definition.
func VerifyEd25519Permit(p wire.PermitAction) bool {
	return ed25519.Verify(ed25519.PublicKey(p.Owner.Bytes()), PermitMessage(p), p.Sig[:])
}
