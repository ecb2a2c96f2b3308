package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionHashDeterministic(t *testing.T) {
	var caller Account
	caller[0] = 0xab

	h1 := TransactionHash(caller, 7)
	h2 := TransactionHash(caller, 7)
	assert.Equal(t, h1, h2, "same (caller, transaction_id) must always hash the same")
}

func TestTransactionHashDistinguishesID(t *testing.T) {
	var caller Account
	caller[0] = 0xab

	h1 := TransactionHash(caller, 7)
	h2 := TransactionHash(caller, 8)
	assert.NotEqual(t, h1, h2)
}

func TestTransactionHashDistinguishesCaller(t *testing.T) {
	var a, b Account
	a[0] = 1
	b[0] = 2

	assert.NotEqual(t, TransactionHash(a, 1), TransactionHash(b, 1))
}

func TestAbortHashDiffersFromSource(t *testing.T) {
	var caller Account
	caller[0] = 0xcd

	h := TransactionHash(caller, 42)
	abort := AbortHash(h)

	assert.NotEqual(t, h, abort, "abort hash must never collide with the transaction hash it compensates")
	assert.Equal(t, abort, AbortHash(h), "abort hash derivation is deterministic")
}
