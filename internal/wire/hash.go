package wire

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// abortSuffix is appended to a transaction hash to derive its abort hash.
// See AbortHash.
const abortSuffix = "abort"

// TransactionHash computes the canonical transaction_hash for a
// (caller, transaction_id) pair:
//
//	H(caller_bytes ∥ be64(transaction_id))
//
// where H is blake2b-256. This is the single global identity of a
// transaction across the gateway, the logic coordinator, and every storage
// shard it touches.
func TransactionHash(caller Account, transactionID uint64) Hash {
	var buf [40]byte
	copy(buf[:32], caller[:])
	binary.BigEndian.PutUint64(buf[32:], transactionID)
	return Hash(blake2b.Sum256(buf[:]))
}

// AbortHash derives the distinct hash used to compensate a successful
// Decrease step whose partner Increase step failed:
//
//	H(transaction_hash ∥ "abort")
//
// Using a distinct hash (rather than h itself) means the storage shard
// treats the compensating increase as a brand new idempotent mutation,
// never as a replay of the original decrease.
func AbortHash(h Hash) Hash {
	buf := make([]byte, 32+len(abortSuffix))
	copy(buf, h[:])
	copy(buf[32:], abortSuffix)
	return Hash(blake2b.Sum256(buf))
}
