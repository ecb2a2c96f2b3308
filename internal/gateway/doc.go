// Package gateway implements the Main Gateway: the sole externally-facing
// actor. It owns per-caller transaction identity (transaction_hash =
// H(caller ∥ be64(transaction_id))), the top-level idempotence table, and a
// delayed self-Clear that bounds that table's size. Every mutating request
// is forwarded, unmodified but for the derived hash, to the Logic
// Coordinator; the gateway itself holds no balance state.
package gateway
