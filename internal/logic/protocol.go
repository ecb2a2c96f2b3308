package logic

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/txtable"
	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// PermitVerifier checks a Permit action's off-chain signature against
// (owner, spender, amount, permit_id). Signature verification is treated
// as an external pure predicate; the Engine never inspects PermitAction.Sig
// itself (VerifyEd25519Permit is one verifier that does).
type PermitVerifier func(p wire.PermitAction) bool

// Engine is the Logic Coordinator's protocol driver: it owns the shard
// directory, the transfer continuation table, and this coordinator's own
// idempotence table, and runs one of the five action sub-protocols per
// decoded LogicAction.
type Engine struct {
	LogicID       wire.Account
	Dir           *ShardDirectory
	Transactions  *txtable.Table
	Continuations *ContinuationTable
	VerifySig     PermitVerifier
}

// NewEngine constructs an Engine. verifySig may be nil, in which case every
// Permit is treated as having a valid signature (useful for tests); a
// production wiring must supply a real verifier.
func NewEngine(logicID wire.Account, dir *ShardDirectory, verifySig PermitVerifier) *Engine {
	return &Engine{
		LogicID:       logicID,
		Dir:           dir,
		Transactions:  txtable.New(),
		Continuations: NewContinuationTable(),
		VerifySig:     verifySig,
	}
}

// Execute is the Logic Coordinator's Message operation: it consults the
// idempotence table, decodes payload into a LogicAction on first sight, and
// runs the matching sub-protocol. A non-nil error from a sub-protocol means
// the call should be retried (host-induced interruption or a downstream
// fault) and the transaction is left InProgress; a payload that fails to
// decode is also returned as an error, before anything is recorded. The
// caller must not treat an error as a terminal Err event.
func (e *Engine) Execute(ctx context.Context, h wire.Hash, caller wire.Account, payload []byte) (wire.Event, error) {
	switch e.Transactions.Get(h) {
	case txtable.Success:
		return wire.Ok(), nil
	case txtable.Failure:
		return wire.Err(), nil
	}

	action, err := wire.DecodeLogicAction(payload)
	if err != nil {
		return wire.Event{}, fmt.Errorf("decode logic action: %w", err)
	}

	e.Transactions.MarkInProgress(h)

	var ok bool
	switch action.Kind {
	case wire.KindMint:
		ok, err = e.runMint(ctx, h, *action.Mint)
	case wire.KindBurn:
		ok, err = e.runBurn(ctx, h, *action.Burn)
	case wire.KindApprove:
		ok, err = e.runApprove(ctx, h, caller, *action.Approve)
	case wire.KindTransfer:
		ok, err = e.runTransfer(ctx, h, caller, action.Transfer.Sender, action.Transfer.Recipient, action.Transfer.Amount)
	case wire.KindPermit:
		ok, err = e.runPermit(ctx, h, *action.Permit)
	default:
		return wire.Event{}, fmt.Errorf("unhandled logic action kind %q", action.Kind)
	}
	if err != nil {
		return wire.Event{}, err
	}

	e.Transactions.Finish(h, ok)
	if ok {
		return wire.Ok(), nil
	}
	return wire.Err(), nil
}

// sendShardAction posts action to addr and reports whether the shard
// answered Ok. A 4xx rejection (wrapping wire.ErrRejected) is a terminal,
// permanent refusal and is surfaced as (false, nil); any other transport
// error is propagated unmodified, meaning "retry later", never a business
// failure.
func (e *Engine) sendShardAction(ctx context.Context, addr string, action wire.ShardAction) (bool, error) {
	var event wire.Event
	if err := wire.PostJSON(ctx, addr+"/message", &e.LogicID, action, &event); err != nil {
		if errors.Is(err, wire.ErrRejected) {
			return false, nil
		}
		return false, fmt.Errorf("shard %s: %w", addr, err)
	}
	return event.IsOk(), nil
}

// runMint credits recipient unconditionally: a single-shard sub-protocol.
func (e *Engine) runMint(ctx context.Context, h wire.Hash, m wire.MintAction) (bool, error) {
	addr, err := e.Dir.AddressFor(ctx, m.Recipient)
	if err != nil {
		return false, err
	}
	return e.sendShardAction(ctx, addr, wire.EncodeShardIncreaseBalance(wire.IncreaseBalanceAction{
		Hash: h, Account: m.Recipient, Amount: m.Amount,
	}))
}

// runBurn debits sender directly, with no counterpart credit anywhere:
// realized as a Decrease against the sender's own shard only.
func (e *Engine) runBurn(ctx context.Context, h wire.Hash, b wire.BurnAction) (bool, error) {
	addr, err := e.Dir.AddressFor(ctx, b.Sender)
	if err != nil {
		return false, err
	}
	return e.sendShardAction(ctx, addr, wire.EncodeShardDecreaseBalance(wire.DecreaseBalanceAction{
		Hash: h, MsgSource: b.Sender, Account: b.Sender, Amount: b.Amount,
	}))
}

// runApprove sets caller's allowance for spender: a single-shard
// sub-protocol against caller's own shard.
func (e *Engine) runApprove(ctx context.Context, h wire.Hash, caller wire.Account, a wire.ApproveAction) (bool, error) {
	addr, err := e.Dir.AddressFor(ctx, caller)
	if err != nil {
		return false, err
	}
	return e.sendShardAction(ctx, addr, wire.EncodeShardApprove(wire.ShardApproveAction{
		Hash: h, MsgSource: caller, Owner: caller, Spender: a.Spender, Amount: a.Amount,
	}))
}

// resolveShards resolves sender's and recipient's shard addresses
// concurrently and fails if either lookup fails. ShardDirectory.AddressFor
// holds the directory lock across a spawn, so two lookups that both need a
// new shard still spawn one after the other.
func (e *Engine) resolveShards(ctx context.Context, sender, recipient wire.Account) (senderAddr, recipientAddr string, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr, err := e.Dir.AddressFor(gctx, sender)
		senderAddr = addr
		return err
	})
	g.Go(func() error {
		addr, err := e.Dir.AddressFor(gctx, recipient)
		recipientAddr = addr
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return senderAddr, recipientAddr, nil
}

// runTransfer is the two-shard sub-protocol: Decrease the sender, then
// Increase the recipient, compensating with an Abort if the Increase
// fails. It is driven by a durable Continuation so a retry after
// interruption resumes from whichever step last durably completed.
//
// Always Decrease before Increase across two shards. When both accounts
// live on one shard (including sender == recipient) the shard-local
// Transfer applies both halves under h, with the shard's insufficient-funds
// check still the authoritative gate; for sender == recipient the net effect
// is a no-op.
func (e *Engine) runTransfer(ctx context.Context, h wire.Hash, msgSource, sender, recipient wire.Account, amount wire.Amount) (bool, error) {
	senderAddr, recipientAddr, err := e.resolveShards(ctx, sender, recipient)
	if err != nil {
		return false, err
	}

	cont := e.Continuations.GetOrCreate(h, msgSource, sender, recipient, amount)
	if cont.SenderShard == "" {
		cont.SenderShard = senderAddr
	}
	if cont.RecipientShard == "" {
		cont.RecipientShard = recipientAddr
	}

	if cont.SenderShard == cont.RecipientShard {
		// A separate Increase under h on this shard would replay the
		// Decrease's record instead of crediting the recipient.
		ok, err := e.sendShardAction(ctx, cont.SenderShard, wire.EncodeShardTransfer(wire.ShardTransferAction{
			Hash: h, MsgSource: msgSource, Sender: sender, Recipient: recipient, Amount: amount,
		}))
		if err == nil && ok {
			cont.SetDecreaseState(StepSucceeded)
			cont.SetIncreaseState(StepSucceeded)
		} else if err == nil {
			cont.SetDecreaseState(StepFailed)
		}
		return ok, err
	}

	decState, incState := cont.States()

	if decState == StepFailed {
		return false, nil
	}

	if decState != StepSucceeded {
		cont.SetDecreaseState(StepRunning)
		ok, err := e.sendShardAction(ctx, cont.SenderShard, wire.EncodeShardDecreaseBalance(wire.DecreaseBalanceAction{
			Hash: h, MsgSource: msgSource, Account: sender, Amount: amount,
		}))
		if err != nil {
			return false, err
		}
		if !ok {
			cont.SetDecreaseState(StepFailed)
			return false, nil
		}
		cont.SetDecreaseState(StepSucceeded)
	}

	if incState == StepSucceeded {
		return true, nil
	}

	cont.SetIncreaseState(StepRunning)
	ok, err := e.sendShardAction(ctx, cont.RecipientShard, wire.EncodeShardIncreaseBalance(wire.IncreaseBalanceAction{
		Hash: h, Account: recipient, Amount: amount,
	}))
	if err != nil {
		return false, err
	}
	if ok {
		cont.SetIncreaseState(StepSucceeded)
		return true, nil
	}
	cont.SetIncreaseState(StepFailed)

	// Compensate: the sender was already debited, so credit it back under a
	// distinct abort hash. This is a fresh idempotent mutation at the
	// shard, never a replay of the original Decrease.
	abortOK, err := e.sendShardAction(ctx, cont.SenderShard, wire.EncodeShardIncreaseBalance(wire.IncreaseBalanceAction{
		Hash: wire.AbortHash(h), Account: sender, Amount: amount,
	}))
	if err != nil {
		// Leave the transaction InProgress; the retry will re-attempt the
		// abort. Never reply Ok while the abort is unresolved.
		return false, err
	}
	if !abortOK {
		// IncreaseBalance only ever records Ok or replays a prior Ok; a
		// false result here means the shard itself rejected the call (e.g.
		// unauthorized caller), a configuration fault. It is returned as an
		// error, so the transaction stays InProgress and never replies Ok.
		return false, fmt.Errorf("abort of %s was rejected by shard %s", h, cont.SenderShard)
	}
	cont.SetDecreaseState(StepAborted)
	return false, nil
}

// runPermit verifies the off-chain signature, consumes owner's permit
// nonce via a compare-and-set, then moves the value with the same
// two-shard Transfer sub-protocol used for ordinary transfers.
//
// The Decrease half runs with msg_source=owner, the direct-debit path, not
// msg_source=spender. A permit is a standalone authorization: the
// signature check plus the permit_id compare-and-set above already prove
// the owner authorized this exact (spender, amount, permit_id) tuple, so
// requiring a separate pre-existing allowances[owner][spender] entry (the
// only thing msg_source=spender would gate on at the shard) would make
// Permit unusable without first calling Approve, defeating its purpose as
// an independent, allowance-free authorization channel.
func (e *Engine) runPermit(ctx context.Context, h wire.Hash, p wire.PermitAction) (bool, error) {
	if e.VerifySig != nil && !e.VerifySig(p) {
		return false, nil
	}

	ownerAddr, err := e.Dir.AddressFor(ctx, p.Owner)
	if err != nil {
		return false, err
	}

	// The nonce compare-and-set is keyed by H(h ∥ "permit"), not h: the
	// transfer below debits the owner's shard under h, and a shared key
	// would make that debit a replay of this record.
	nonceHash := wire.Hash(blake2b.Sum256(append(h[:], "permit"...)))
	incOK, err := e.sendShardAction(ctx, ownerAddr, wire.EncodeShardIncrementPermitID(wire.IncrementPermitIDAction{
		Hash: nonceHash, Account: p.Owner, Expected: p.PermitID,
	}))
	if err != nil {
		return false, err
	}
	if !incOK {
		return false, nil
	}

	return e.runTransfer(ctx, h, p.Owner, p.Owner, p.Spender, p.Amount)
}
