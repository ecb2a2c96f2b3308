package storageshard

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

func TestServerIncreaseThenDecreaseBalance(t *testing.T) {
	logic := acct(1)
	alice := acct(2)
	sh := New(logic)
	srv := httptest.NewServer(NewServer(sh, nil))
	defer srv.Close()

	action := wire.EncodeShardIncreaseBalance(wire.IncreaseBalanceAction{
		Hash:    wire.Hash{1},
		Account: alice,
		Amount:  wire.NewAmount(100),
	})
	var event wire.Event
	err := wire.PostJSON(context.Background(), srv.URL+"/message", &logic, action, &event)
	require.NoError(t, err)
	assert.True(t, event.IsOk())

	var balance wire.Event
	err = wire.GetJSON(context.Background(), srv.URL+"/balance/"+alice.String(), &balance)
	require.NoError(t, err)
	assert.Equal(t, 0, balance.Balance.Cmp(wire.NewAmount(100)))
}

func TestServerRejectsUnauthorizedCaller(t *testing.T) {
	logic := acct(1)
	impostor := acct(9)
	sh := New(logic)
	srv := httptest.NewServer(NewServer(sh, nil))
	defer srv.Close()

	action := wire.EncodeShardIncreaseBalance(wire.IncreaseBalanceAction{
		Hash:    wire.Hash{1},
		Account: acct(2),
		Amount:  wire.NewAmount(10),
	})
	err := wire.PostJSON(context.Background(), srv.URL+"/message", &impostor, action, nil)
	assert.Error(t, err)
}

func TestServerMissingCallerHeaderRejected(t *testing.T) {
	logic := acct(1)
	sh := New(logic)
	srv := httptest.NewServer(NewServer(sh, nil))
	defer srv.Close()

	action := wire.EncodeShardIncreaseBalance(wire.IncreaseBalanceAction{
		Hash:    wire.Hash{1},
		Account: acct(2),
		Amount:  wire.NewAmount(10),
	})
	err := wire.PostJSON(context.Background(), srv.URL+"/message", nil, action, nil)
	assert.Error(t, err)
}
