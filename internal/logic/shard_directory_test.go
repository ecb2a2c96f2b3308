package logic

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

func TestShardDirectoryLazySpawnAndMemoize(t *testing.T) {
	spawner := &InProcessSpawner{}
	defer spawner.Close()

	dir := NewShardDirectory(spawner, wire.Account{1})

	var a wire.Account
	a[0] = 0xab

	addr1, err := dir.AddressFor(context.Background(), a)
	require.NoError(t, err)
	addr2, err := dir.AddressFor(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, addr1, addr2, "the same bucket must always resolve to the same shard")
	assert.Len(t, spawner.servers, 1, "resolving the same bucket twice must spawn exactly once")
}

func TestShardDirectoryDistinctBucketsGetDistinctShards(t *testing.T) {
	spawner := &InProcessSpawner{}
	defer spawner.Close()

	dir := NewShardDirectory(spawner, wire.Account{1})

	var a, b wire.Account
	a[0] = 0x0a
	b[0] = 0xb0

	addrA, err := dir.AddressFor(context.Background(), a)
	require.NoError(t, err)
	addrB, err := dir.AddressFor(context.Background(), b)
	require.NoError(t, err)

	assert.NotEqual(t, addrA, addrB)
	assert.Len(t, dir.Buckets(), 2)
}

func TestShardDirectoryConcurrentResolutionSpawnsOnce(t *testing.T) {
	spawner := &InProcessSpawner{}
	defer spawner.Close()

	dir := NewShardDirectory(spawner, wire.Account{1})
	var a wire.Account
	a[0] = 0xcc

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := dir.AddressFor(context.Background(), a)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, spawner.servers, 1)
}
