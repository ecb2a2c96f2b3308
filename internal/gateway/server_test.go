package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

func acct(b byte) wire.Account {
	var a wire.Account
	a[0] = b
	return a
}

func newTestGateway(t *testing.T) (*httptest.Server, *Server, *InProcessLogicSpawner) {
	t.Helper()
	logicID := acct(0xaa)
	spawner := &InProcessLogicSpawner{LogicID: logicID}
	t.Cleanup(spawner.Close)

	logicAddr, err := spawner.Spawn(context.Background(), "")
	require.NoError(t, err)

	admin := acct(0x99)
	gw := NewServer(logicAddr, logicID, admin, spawner, 50*time.Millisecond, nil)
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)
	return srv, gw, spawner
}

func postMessage(t *testing.T, ctx context.Context, srv *httptest.Server, caller wire.Account, txID uint64, payload []byte) wire.Event {
	t.Helper()
	var event wire.Event
	require.NoError(t, wire.PostJSON(ctx, srv.URL+"/message", nil, messageRequest{
		Caller:        caller,
		TransactionID: txID,
		Payload:       json.RawMessage(payload),
	}, &event))
	return event
}

func TestGatewayMessageForwardsToLogicAndRecordsTerminal(t *testing.T) {
	srv, _, _ := newTestGateway(t)
	ctx := context.Background()
	recipient := acct(0x01)

	payload, err := wire.EncodeMint(wire.MintAction{Recipient: recipient, Amount: wire.NewAmount(100)})
	require.NoError(t, err)

	event := postMessage(t, ctx, srv, recipient, 1, payload)
	assert.True(t, event.IsOk())

	var bal wire.Event
	require.NoError(t, wire.GetJSON(ctx, srv.URL+"/balance/"+recipient.String(), &bal))
	assert.Equal(t, 0, bal.Balance.Cmp(wire.NewAmount(100)))
}

func TestGatewayMessageReplaysTerminalWithoutReforwarding(t *testing.T) {
	srv, gw, _ := newTestGateway(t)
	ctx := context.Background()
	recipient := acct(0x02)

	payload, err := wire.EncodeMint(wire.MintAction{Recipient: recipient, Amount: wire.NewAmount(10)})
	require.NoError(t, err)

	first := postMessage(t, ctx, srv, recipient, 1, payload)
	require.True(t, first.IsOk())

	h := hashFor(recipient, 1)
	require.NotEqual(t, 0, gw.transactions.Len())

	second := postMessage(t, ctx, srv, recipient, 1, payload)
	assert.True(t, second.IsOk())

	var bal wire.Event
	require.NoError(t, wire.GetJSON(ctx, srv.URL+"/balance/"+recipient.String(), &bal))
	assert.Equal(t, 0, bal.Balance.Cmp(wire.NewAmount(10)), "replay must not double-mint")
	_ = h
}

func TestGatewayClearEventuallyRemovesTerminalEntry(t *testing.T) {
	srv, gw, _ := newTestGateway(t)
	ctx := context.Background()
	recipient := acct(0x03)

	payload, err := wire.EncodeMint(wire.MintAction{Recipient: recipient, Amount: wire.NewAmount(5)})
	require.NoError(t, err)
	postMessage(t, ctx, srv, recipient, 1, payload)

	h := hashFor(recipient, 1)
	assert.NotEqual(t, 0, gw.transactions.Len())

	assert.Eventually(t, func() bool {
		return gw.transactions.Get(h).String() == "absent"
	}, time.Second, 10*time.Millisecond)
}

func postUpdateLogicContract(ctx context.Context, srv *httptest.Server, caller wire.Account, storageCode string) error {
	return wire.PostJSON(ctx, srv.URL+"/update-logic-contract", nil, updateLogicContractRequest{
		Caller:      caller,
		StorageCode: storageCode,
	}, nil)
}

func TestGatewayUpdateLogicContractRequiresAdmin(t *testing.T) {
	srv, _, _ := newTestGateway(t)
	ctx := context.Background()

	err := postUpdateLogicContract(ctx, srv, acct(0x01), "new-code")
	assert.Error(t, err)
}

func TestGatewayUpdateLogicContractSwapsTarget(t *testing.T) {
	srv, gw, _ := newTestGateway(t)
	ctx := context.Background()

	gw.mu.RLock()
	oldAddr := gw.logicAddr
	gw.mu.RUnlock()

	require.NoError(t, postUpdateLogicContract(ctx, srv, acct(0x99), "new-code"))

	gw.mu.RLock()
	newAddr := gw.logicAddr
	gw.mu.RUnlock()
	assert.NotEqual(t, oldAddr, newAddr)
}
