package wire

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

// Account is an opaque 32-byte account identifier. Equality is by bytes.
//
// Example:
//
//	var a Account
//	copy(a[:], someBytes)
type Account [32]byte

// String returns the lowercase hex encoding of the account, e.g. for logging.
func (a Account) String() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns the account's raw 32 bytes.
func (a Account) Bytes() []byte {
	return a[:]
}

// BucketKey returns the first lowercase hex digit of the account's byte
// encoding, the input to the Logic Coordinator's shard directory. There are
// exactly 16 possible buckets; this is an intentional, fixed addressing
// scheme and must never be widened.
func (a Account) BucketKey() byte {
	return hex.EncodeToString(a[:1])[0]
}

// AccountFromHex parses a hex-encoded account, accepting either 64 hex
// characters (32 bytes) with or without a leading "0x".
func AccountFromHex(s string) (Account, error) {
	var a Account
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("decode account hex: %w", err)
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("account must be %d bytes, got %d", len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Hash is the 32-byte global identity of a transaction (transaction_hash) or
// of its derived abort hash. See TransactionHash and AbortHash.
type Hash [32]byte

// String returns the lowercase hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Amount is a saturating-non-negative token quantity, wide enough to hold a
// u128 ledger balance. Arithmetic goes through SaturatingAdd/CheckedSub
// rather than the embedded uint256.Int's raw (wrapping) Add/Sub so overflow
// and underflow are always handled explicitly at the call site.
type Amount struct {
	v uint256.Int
}

// NewAmount constructs an Amount from a uint64 quantity.
func NewAmount(n uint64) Amount {
	return Amount{v: *uint256.NewInt(n)}
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp compares two amounts the way uint256.Int.Cmp does: -1, 0, or 1.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// SaturatingAdd returns a+b, clamped to the maximum representable value on
// overflow instead of wrapping.
func (a Amount) SaturatingAdd(b Amount) Amount {
	var sum uint256.Int
	_, overflow := sum.AddOverflow(&a.v, &b.v)
	if overflow {
		return Amount{v: *uint256.NewInt(0).Not(uint256.NewInt(0))}
	}
	return Amount{v: sum}
}

// CheckedSub returns a-b and true if a >= b, otherwise the zero value and
// false. Shard balance/allowance decreases must use this: a balance must
// never go negative.
func (a Amount) CheckedSub(b Amount) (Amount, bool) {
	if a.Cmp(b) < 0 {
		return Amount{}, false
	}
	var diff uint256.Int
	diff.Sub(&a.v, &b.v)
	return Amount{v: diff}, true
}

// String renders the amount in decimal, the form used in JSON wire payloads.
func (a Amount) String() string {
	return a.v.Dec()
}

// Bytes32 returns the amount's big-endian 32-byte representation, the form
// used when an amount is folded into a signed message (see
// internal/logic's permit message encoding).
func (a Amount) Bytes32() [32]byte {
	return a.v.Bytes32()
}

// MarshalJSON encodes the amount as a decimal string, avoiding precision
// loss for values outside the safe-integer range of JSON numbers.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.Dec() + `"`), nil
}

// UnmarshalJSON decodes an amount from a decimal or 0x-hex JSON string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	var v *uint256.Int
	var err error
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		v, err = uint256.FromHex(s)
	} else {
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return fmt.Errorf("decode amount %q: %w", s, err)
	}
	a.v = *v
	return nil
}
