// Package wire defines the shared types, hashing, and bucketing rules used
// by all three actor tiers of the sharded fungible-token ledger: the Main
// Gateway, the Logic Coordinator, and the Storage Shards.
//
// # Overview
//
// Every inter-actor message in this system is a JSON-encoded HTTP request,
// and every reply is a small closed set of outcomes. This package is the one
// place that shape is defined, so that the gateway, the logic coordinator,
// and every storage shard agree on it byte-for-byte.
//
// # Actor messages
//
//	┌──────────┐  GatewayAction   ┌──────────┐  LogicAction (payload)  ┌───────┐
//	│  Caller  │ ───────────────▶ │ Gateway  │ ──────────────────────▶ │ Logic │
//	└──────────┘  GatewayEvent    └──────────┘  LogicEvent             └───────┘
//	                                                                        │
//	                                                              ShardAction/Event
//	                                                                        ▼
//	                                                                  ┌──────────┐
//	                                                                  │  Shard   │
//	                                                                  └──────────┘
//
// The Logic Coordinator speaks ShardAction/ShardEvent to one or two Storage
// Shards per user action.
//
// # Identity
//
// An account is an opaque 32-byte value (Account). A transaction's global
// identity across all three tiers is a 32-byte digest (Hash) derived from
// the caller and a caller-assigned transaction id; see TransactionHash and
// AbortHash.
package wire
