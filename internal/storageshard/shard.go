package storageshard

import (
	"errors"
	"sync"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// ErrUnauthorized is returned when a mutating call arrives from an account
// other than the shard's ft_logic_id. This is a protocol-level fault, not a
// business Err event: the caller gets a fatal reject, and the idempotence
// table is left untouched.
var ErrUnauthorized = errors.New("storageshard: caller is not the owning logic coordinator")

// Shard is a single Storage Shard's in-memory state: balances, allowances,
// permit nonces, and the per-transaction idempotence record. All accesses
// go through Shard's exported methods, which hold mu for the duration of
// the mutation.
type Shard struct {
	mu sync.RWMutex

	// logicID is the account identity of the Logic Coordinator that
	// created this shard; set once at construction and never changed.
	logicID wire.Account

	balances  map[wire.Account]wire.Amount
	allowances map[wire.Account]map[wire.Account]wire.Amount
	permitNonce map[wire.Account]wire.Amount

	// processed maps transaction_hash to the recorded outcome of the
	// mutation it identifies: true means Succeeded, false means Failed.
	// Absence means "not yet seen". Entries are never removed; the
	// idempotence window for a shard is unbounded.
	processed map[wire.Hash]bool
}

// New creates an empty shard owned by logicID.
func New(logicID wire.Account) *Shard {
	return &Shard{
		logicID:     logicID,
		balances:    make(map[wire.Account]wire.Amount),
		allowances:  make(map[wire.Account]map[wire.Account]wire.Amount),
		permitNonce: make(map[wire.Account]wire.Amount),
		processed:   make(map[wire.Hash]bool),
	}
}

// LogicID returns the account identity this shard accepts mutations from.
func (s *Shard) LogicID() wire.Account {
	return s.logicID
}

func (s *Shard) authorize(caller wire.Account) error {
	if caller != s.logicID {
		return ErrUnauthorized
	}
	return nil
}

// replay returns the recorded outcome for h and true if h has already been
// seen. Callers use this to make every mutating method idempotent.
func (s *Shard) replay(h wire.Hash) (ok bool, seen bool) {
	ok, seen = s.processed[h]
	return
}

// GetBalance returns account's balance, or zero if never credited. Like
// GetPermitID, it is a read and leaves no idempotence record.
func (s *Shard) GetBalance(account wire.Account) wire.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[account]
}

// GetPermitID returns account's current permit nonce, or zero if unset.
func (s *Shard) GetPermitID(account wire.Account) wire.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permitNonce[account]
}

// IncreaseBalance credits account by amount unconditionally (saturating),
// keyed by h. Replaying a known h returns its recorded outcome without
// touching any balance.
func (s *Shard) IncreaseBalance(caller wire.Account, h wire.Hash, account wire.Account, amount wire.Amount) (bool, error) {
	if err := s.authorize(caller); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, seen := s.replay(h); seen {
		return ok, nil
	}

	s.balances[account] = s.balances[account].SaturatingAdd(amount)
	s.processed[h] = true
	return true, nil
}

// DecreaseBalance debits account by amount, either directly (msgSource ==
// account) or by drawing down msgSource's allowance over account. Fails,
// recording Failure, if the balance (and allowance, for the indirect path)
// is insufficient.
func (s *Shard) DecreaseBalance(caller wire.Account, h wire.Hash, msgSource, account wire.Account, amount wire.Amount) (bool, error) {
	if err := s.authorize(caller); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, seen := s.replay(h); seen {
		return ok, nil
	}

	balance := s.balances[account]
	if balance.Cmp(amount) < 0 {
		s.processed[h] = false
		return false, nil
	}

	if msgSource == account {
		diff, _ := balance.CheckedSub(amount)
		s.balances[account] = diff
		s.processed[h] = true
		return true, nil
	}

	allowed, ok := s.allowances[account][msgSource]
	if !ok || allowed.Cmp(amount) < 0 {
		s.processed[h] = false
		return false, nil
	}

	diff, _ := balance.CheckedSub(amount)
	s.balances[account] = diff
	newAllowed, _ := allowed.CheckedSub(amount)
	s.allowances[account][msgSource] = newAllowed
	s.processed[h] = true
	return true, nil
}

// Approve sets (absolute assignment, not additive) the allowance spender may
// draw from owner's balance. Valid only when msgSource == owner.
func (s *Shard) Approve(caller wire.Account, h wire.Hash, msgSource, owner, spender wire.Account, amount wire.Amount) (bool, error) {
	if err := s.authorize(caller); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, seen := s.replay(h); seen {
		return ok, nil
	}

	if msgSource != owner {
		s.processed[h] = false
		return false, nil
	}

	if s.allowances[owner] == nil {
		s.allowances[owner] = make(map[wire.Account]wire.Amount)
	}
	s.allowances[owner][spender] = amount
	s.processed[h] = true
	return true, nil
}

// Transfer is the shard-local fast path for a transfer whose sender and
// recipient both live on this shard: atomically equivalent to Decrease
// followed by Increase sharing the same h.
func (s *Shard) Transfer(caller wire.Account, h wire.Hash, msgSource, sender, recipient wire.Account, amount wire.Amount) (bool, error) {
	if err := s.authorize(caller); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, seen := s.replay(h); seen {
		return ok, nil
	}

	balance := s.balances[sender]
	if balance.Cmp(amount) < 0 {
		s.processed[h] = false
		return false, nil
	}

	if msgSource != sender {
		allowed, ok := s.allowances[sender][msgSource]
		if !ok || allowed.Cmp(amount) < 0 {
			s.processed[h] = false
			return false, nil
		}
		newAllowed, _ := allowed.CheckedSub(amount)
		s.allowances[sender][msgSource] = newAllowed
	}

	diff, _ := balance.CheckedSub(amount)
	s.balances[sender] = diff
	s.balances[recipient] = s.balances[recipient].SaturatingAdd(amount)
	s.processed[h] = true
	return true, nil
}

// IncrementPermitID is a compare-and-set on account's permit nonce: applies
// only if the shard's current nonce equals expected.
func (s *Shard) IncrementPermitID(caller wire.Account, h wire.Hash, account wire.Account, expected wire.Amount) (bool, error) {
	if err := s.authorize(caller); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, seen := s.replay(h); seen {
		return ok, nil
	}

	current := s.permitNonce[account]
	if current.Cmp(expected) != 0 {
		s.processed[h] = false
		return false, nil
	}

	s.permitNonce[account] = current.SaturatingAdd(wire.NewAmount(1))
	s.processed[h] = true
	return true, nil
}
