package wire

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountBucketKey(t *testing.T) {
	_, err := AccountFromHex("a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c")
	require.Error(t, err, "65 hex chars must not parse as 32 bytes")

	acc, err := AccountFromHex("a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2")
	require.NoError(t, err)
	assert.Equal(t, byte('a'), acc.BucketKey())

	acc2, err := AccountFromHex("0x" + "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2")
	require.NoError(t, err)
	assert.Equal(t, acc, acc2, "0x prefix must not change the decoded account")
}

func TestAccountFromHexRejectsGarbage(t *testing.T) {
	_, err := AccountFromHex("not-hex")
	assert.Error(t, err)
}

func TestHashZero(t *testing.T) {
	var h Hash
	assert.True(t, h.IsZero())

	h[0] = 1
	assert.False(t, h.IsZero())
}

func TestAmountSaturatingAdd(t *testing.T) {
	a := NewAmount(10)
	b := NewAmount(5)
	assert.Equal(t, 0, a.SaturatingAdd(b).Cmp(NewAmount(15)))

	max := maxAmount()
	assert.Equal(t, 0, max.SaturatingAdd(NewAmount(1)).Cmp(max), "overflow must clamp, not wrap")
}

func TestAmountCheckedSub(t *testing.T) {
	a := NewAmount(10)
	b := NewAmount(4)

	diff, ok := a.CheckedSub(b)
	require.True(t, ok)
	assert.Equal(t, 0, diff.Cmp(NewAmount(6)))

	_, ok = b.CheckedSub(a)
	assert.False(t, ok, "subtracting a larger amount must fail, never go negative")
}

func TestAmountJSONRoundTrip(t *testing.T) {
	a := NewAmount(123456789)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"123456789"`, string(data))

	var decoded Amount
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 0, a.Cmp(decoded))
}

func TestAmountJSONRoundTripZero(t *testing.T) {
	a := NewAmount(0)
	data, err := json.Marshal(a)
	require.NoError(t, err)

	var decoded Amount
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.IsZero())
}

func maxAmount() Amount {
	return Amount{v: *uint256.NewInt(0).Not(uint256.NewInt(0))}
}
