package logic

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// ShardSpawner instantiates a new Storage Shard program and returns the
// address it can be reached at. Production implementations fork a real
// process (see cmd/storage); tests substitute an in-process HTTP server.
// Spawn must be idempotent-friendly: the directory only ever calls it once
// per bucket, memoizing the result, so Spawn itself need not deduplicate.
type ShardSpawner interface {
	Spawn(ctx context.Context, logicID wire.Account) (addr string, id uuid.UUID, err error)
}

// shardEntry is the directory's immutable record for one bucket, once set.
type shardEntry struct {
	id   uuid.UUID
	addr string
}

// ShardDirectory maps a bucket key (one of 16 values, the first hex digit
// of an account) to the Storage Shard instance that owns it. Entries are
// created lazily on first reference and never removed or reassigned: the
// same account always maps to the same shard for the lifetime of this
// Logic Coordinator instance.
type ShardDirectory struct {
	mu      sync.Mutex
	spawner ShardSpawner
	logicID wire.Account
	entries map[byte]shardEntry
}

// NewShardDirectory returns an empty directory. logicID is this Logic
// Coordinator's own account identity, passed to every shard it spawns so
// the shard can authorize this coordinator as its caller.
func NewShardDirectory(spawner ShardSpawner, logicID wire.Account) *ShardDirectory {
	return &ShardDirectory{
		spawner: spawner,
		logicID: logicID,
		entries: make(map[byte]shardEntry),
	}
}

// AddressFor returns the address of the shard owning account, spawning a
// new shard on first reference to its bucket. Concurrent calls for the
// same never-before-seen bucket are serialized by mu so exactly one spawn
// happens per bucket; a call resumed after host interruption simply
// observes the memoized entry and never spawns twice.
func (d *ShardDirectory) AddressFor(ctx context.Context, account wire.Account) (string, error) {
	bucket := account.BucketKey()

	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.entries[bucket]; ok {
		return entry.addr, nil
	}

	addr, id, err := d.spawner.Spawn(ctx, d.logicID)
	if err != nil {
		return "", fmt.Errorf("spawn shard for bucket %q: %w", bucket, err)
	}
	d.entries[bucket] = shardEntry{id: id, addr: addr}
	return addr, nil
}

// Buckets returns the bucket keys that already have an assigned shard, for
// the Storages() introspection endpoint. Sorted so two calls against an
// unchanged directory always agree on order.
func (d *ShardDirectory) Buckets() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	buckets := make([]byte, 0, len(d.entries))
	for b := range d.entries {
		buckets = append(buckets, b)
	}
	slices.Sort(buckets)
	return buckets
}
