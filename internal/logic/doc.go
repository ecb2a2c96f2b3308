// Package logic implements the middle tier of the ledger: the Logic
// Coordinator. It owns the shard directory, spawns Storage Shards on
// demand, decodes the five user-level actions (mint, burn, transfer,
// approve, permit) and drives them to completion through the durable
// continuation machinery in continuation.go and protocol.go.
package logic
