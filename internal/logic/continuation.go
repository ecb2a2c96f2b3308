package logic

import (
	"sync"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// StepState is a continuation step's position in its private state machine.
// Decrease additionally reaches Aborted; Increase never does.
type StepState int

const (
	StepReady StepState = iota
	StepRunning
	StepSucceeded
	StepFailed
	StepAborted
)

func (s StepState) String() string {
	switch s {
	case StepRunning:
		return "running"
	case StepSucceeded:
		return "succeeded"
	case StepFailed:
		return "failed"
	case StepAborted:
		return "aborted"
	default:
		return "ready"
	}
}

// Continuation is the durable record of an in-flight two-shard transfer (or
// the value-moving half of a Permit): a Decrease against the sender shard
// paired with an Increase against the recipient shard. It survives host
// interruption between the two outbound shard calls: re-entering the
// protocol with the same transaction_hash finds this record and resumes
// from whichever step state was last durably written.
type Continuation struct {
	mu sync.Mutex

	MsgSource      wire.Account
	Sender         wire.Account
	Recipient      wire.Account
	Amount         wire.Amount
	SenderShard    string
	RecipientShard string

	DecreaseState StepState
	IncreaseState StepState
}

// SetDecreaseState durably records the Decrease step's new state.
func (c *Continuation) SetDecreaseState(s StepState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DecreaseState = s
}

// SetIncreaseState durably records the Increase step's new state.
func (c *Continuation) SetIncreaseState(s StepState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.IncreaseState = s
}

// States returns both step states under one lock, for callers that need a
// consistent snapshot before deciding what to do next.
func (c *Continuation) States() (decrease, increase StepState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.DecreaseState, c.IncreaseState
}

// ContinuationTable maps transaction_hash to its Continuation, scoped to
// one Logic Coordinator instance. Entries are created once and reused by
// every retry of the same transaction_hash; they are never removed (the
// gateway's delayed Clear bounds only the gateway's own transaction table,
// not this one or the coordinator's).
type ContinuationTable struct {
	mu      sync.Mutex
	entries map[wire.Hash]*Continuation
}

// NewContinuationTable returns an empty table.
func NewContinuationTable() *ContinuationTable {
	return &ContinuationTable{entries: make(map[wire.Hash]*Continuation)}
}

// GetOrCreate returns the existing continuation for h, or creates and
// stores a fresh Ready/Ready one seeded from the supplied fields. The seed
// is only used on first creation; a resumed transaction always gets back
// the continuation it previously wrote.
func (t *ContinuationTable) GetOrCreate(h wire.Hash, msgSource, sender, recipient wire.Account, amount wire.Amount) *Continuation {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.entries[h]; ok {
		return c
	}
	c := &Continuation{
		MsgSource: msgSource,
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	}
	t.entries[h] = c
	return c
}
