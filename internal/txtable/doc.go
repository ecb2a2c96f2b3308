// Package txtable implements the idempotence table shared by the gateway
// and the logic coordinator: a map from transaction_hash to a terminal
// outcome, with "not yet seen" and "in progress" states in between.
//
// Both tiers use exactly the same state shape, so the table is defined once
// here and embedded by internal/gateway and internal/logic.
package txtable
