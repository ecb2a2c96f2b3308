// Package storageshard implements the leaf tier of the ledger: a single
// Storage Shard owning balances, allowances and permit nonces for the
// accounts whose bucket key was assigned to it.
//
// A shard never initiates outbound requests; it only answers primitive
// mutations and queries sent by the Logic Coordinator that created it, and
// every mutation is idempotent on its transaction_hash (see Shard's
// processed field).
package storageshard
