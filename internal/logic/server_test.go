package logic

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

type testMessageRequest struct {
	Hash    wire.Hash       `json:"hash"`
	Caller  wire.Account    `json:"caller"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T) (*httptest.Server, *Engine) {
	t.Helper()
	e, _ := newTestEngine(t)
	srv := httptest.NewServer(NewServer(e, nil))
	t.Cleanup(srv.Close)
	return srv, e
}

func TestLogicServerMintThenBalanceRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	recipient := acct(0x61)
	h := wire.TransactionHash(recipient, 1)

	payload, err := wire.EncodeMint(wire.MintAction{Recipient: recipient, Amount: wire.NewAmount(42)})
	require.NoError(t, err)

	var event wire.Event
	require.NoError(t, wire.PostJSON(ctx, srv.URL+"/message", nil, testMessageRequest{
		Hash: h, Caller: recipient, Payload: payload,
	}, &event))
	assert.True(t, event.IsOk())

	var bal wire.Event
	require.NoError(t, wire.GetJSON(ctx, srv.URL+"/balance/"+recipient.String(), &bal))
	assert.Equal(t, 0, bal.Balance.Cmp(wire.NewAmount(42)))
}

func TestLogicServerUnsupportedAdminOpsReply501(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	err := wire.PostJSON(ctx, srv.URL+"/update-storage-code-hash", nil, struct{}{}, nil)
	assert.ErrorContains(t, err, "http 501")

	err = wire.PostJSON(ctx, srv.URL+"/migrate-storages", nil, struct{}{}, nil)
	assert.ErrorContains(t, err, "http 501")
}

func TestLogicServerStoragesListsAssignedBuckets(t *testing.T) {
	srv, e := newTestServer(t)
	ctx := context.Background()

	_, err := e.Dir.AddressFor(ctx, acct(0x01))
	require.NoError(t, err)
	_, err = e.Dir.AddressFor(ctx, acct(0xa0))
	require.NoError(t, err)

	var out struct {
		Buckets []byte `json:"buckets"`
	}
	require.NoError(t, wire.GetJSON(ctx, srv.URL+"/storages", &out))
	assert.Len(t, out.Buckets, 2)
}
