package wire

import (
	"encoding/json"
	"fmt"
)

// ShardActionKind tags the closed set of primitive mutations (and the two
// queries) a Storage Shard accepts. Every mutating variant carries the
// transaction hash it is keyed by.
type ShardActionKind string

const (
	ShardGetBalance       ShardActionKind = "get_balance"
	ShardIncreaseBalance  ShardActionKind = "increase_balance"
	ShardDecreaseBalance  ShardActionKind = "decrease_balance"
	ShardApprove          ShardActionKind = "approve"
	ShardTransfer         ShardActionKind = "transfer"
	ShardGetPermitID      ShardActionKind = "get_permit_id"
	ShardIncrementPermitID ShardActionKind = "increment_permit_id"
)

// GetBalanceAction is a read-only ShardAction (GetPermitIDAction is the
// other); it carries no transaction hash and leaves no idempotence record.
type GetBalanceAction struct {
	Account Account `json:"account"`
}

// IncreaseBalanceAction credits account unconditionally (saturating).
type IncreaseBalanceAction struct {
	Hash    Hash    `json:"hash"`
	Account Account `json:"account"`
	Amount  Amount  `json:"amount"`
}

// DecreaseBalanceAction debits account, either directly (MsgSource==Account)
// or by drawing down the MsgSource's allowance over Account.
type DecreaseBalanceAction struct {
	Hash      Hash    `json:"hash"`
	MsgSource Account `json:"msg_source"`
	Account   Account `json:"account"`
	Amount    Amount  `json:"amount"`
}

// ShardApproveAction sets (absolute assignment) the allowance Spender may draw
// from Owner's balance. Valid only when MsgSource == Owner.
type ShardApproveAction struct {
	Hash      Hash    `json:"hash"`
	MsgSource Account `json:"msg_source"`
	Owner     Account `json:"owner"`
	Spender   Account `json:"spender"`
	Amount    Amount  `json:"amount"`
}

// ShardTransferAction is the shard-local fast path used only when both endpoints
// of a transfer live on the same shard; atomically equivalent to a Decrease
// immediately followed by an Increase sharing the same Hash.
type ShardTransferAction struct {
	Hash      Hash    `json:"hash"`
	MsgSource Account `json:"msg_source"`
	Sender    Account `json:"sender"`
	Recipient Account `json:"recipient"`
	Amount    Amount  `json:"amount"`
}

// GetPermitIDAction is the one read-only permit-nonce query.
type GetPermitIDAction struct {
	Account Account `json:"account"`
}

// IncrementPermitIDAction is a compare-and-set on an account's permit nonce:
// applies only if the shard's current nonce equals Expected.
type IncrementPermitIDAction struct {
	Hash     Hash    `json:"hash"`
	Account  Account `json:"account"`
	Expected Amount  `json:"expected"`
}

// ShardAction is the closed, tagged payload sent from the Logic Coordinator
// to a Storage Shard. Exactly one pointer field matching Kind is non-nil.
type ShardAction struct {
	Kind             ShardActionKind          `json:"kind"`
	GetBalance       *GetBalanceAction        `json:"get_balance,omitempty"`
	IncreaseBalance  *IncreaseBalanceAction   `json:"increase_balance,omitempty"`
	DecreaseBalance  *DecreaseBalanceAction   `json:"decrease_balance,omitempty"`
	Approve          *ShardApproveAction      `json:"approve,omitempty"`
	Transfer         *ShardTransferAction     `json:"transfer,omitempty"`
	GetPermitID      *GetPermitIDAction       `json:"get_permit_id,omitempty"`
	IncrementPermitID *IncrementPermitIDAction `json:"increment_permit_id,omitempty"`
}

func EncodeShardGetBalance(a GetBalanceAction) ShardAction {
	return ShardAction{Kind: ShardGetBalance, GetBalance: &a}
}

func EncodeShardIncreaseBalance(a IncreaseBalanceAction) ShardAction {
	return ShardAction{Kind: ShardIncreaseBalance, IncreaseBalance: &a}
}

func EncodeShardDecreaseBalance(a DecreaseBalanceAction) ShardAction {
	return ShardAction{Kind: ShardDecreaseBalance, DecreaseBalance: &a}
}

func EncodeShardApprove(a ShardApproveAction) ShardAction {
	return ShardAction{Kind: ShardApprove, Approve: &a}
}

func EncodeShardTransfer(a ShardTransferAction) ShardAction {
	return ShardAction{Kind: ShardTransfer, Transfer: &a}
}

func EncodeShardGetPermitID(a GetPermitIDAction) ShardAction {
	return ShardAction{Kind: ShardGetPermitID, GetPermitID: &a}
}

func EncodeShardIncrementPermitID(a IncrementPermitIDAction) ShardAction {
	return ShardAction{Kind: ShardIncrementPermitID, IncrementPermitID: &a}
}

// DecodeShardAction parses and validates a ShardAction's wire bytes.
func DecodeShardAction(payload []byte) (ShardAction, error) {
	var a ShardAction
	if err := json.Unmarshal(payload, &a); err != nil {
		return ShardAction{}, fmt.Errorf("decode shard action: %w", err)
	}
	switch a.Kind {
	case ShardGetBalance:
		if a.GetBalance == nil {
			return ShardAction{}, fmt.Errorf("shard action %q: missing payload", a.Kind)
		}
	case ShardIncreaseBalance:
		if a.IncreaseBalance == nil {
			return ShardAction{}, fmt.Errorf("shard action %q: missing payload", a.Kind)
		}
	case ShardDecreaseBalance:
		if a.DecreaseBalance == nil {
			return ShardAction{}, fmt.Errorf("shard action %q: missing payload", a.Kind)
		}
	case ShardApprove:
		if a.Approve == nil {
			return ShardAction{}, fmt.Errorf("shard action %q: missing payload", a.Kind)
		}
	case ShardTransfer:
		if a.Transfer == nil {
			return ShardAction{}, fmt.Errorf("shard action %q: missing payload", a.Kind)
		}
	case ShardGetPermitID:
		if a.GetPermitID == nil {
			return ShardAction{}, fmt.Errorf("shard action %q: missing payload", a.Kind)
		}
	case ShardIncrementPermitID:
		if a.IncrementPermitID == nil {
			return ShardAction{}, fmt.Errorf("shard action %q: missing payload", a.Kind)
		}
	default:
		return ShardAction{}, fmt.Errorf("unknown shard action kind %q", a.Kind)
	}
	return a, nil
}
