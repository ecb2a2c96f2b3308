package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http/httptest"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/logic"
	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// LogicSpawner instantiates a fresh Logic Coordinator bound to storageCode
// and returns the address it can be reached at, the gateway-tier analogue
// of logic.ShardSpawner. UpdateLogicContract calls this exactly once per
// invocation; unlike shard resolution there is no memoization, since a new
// logic coordinator is the whole point of the call.
type LogicSpawner interface {
	Spawn(ctx context.Context, storageCode string) (addr string, err error)
}

// ProcessLogicSpawner launches a real cmd/logic binary, the production
// LogicSpawner.
type ProcessLogicSpawner struct {
	BinaryPath string
	Log        *logrus.Entry
}

func (p *ProcessLogicSpawner) Spawn(ctx context.Context, storageCode string) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("reserve logic coordinator port: %w", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	// The new coordinator's own account identity is derived from its
	// address by the same newLogicIdentity used after Spawn returns (see
	// handleUpdateLogicContract), so the two computations agree without
	// this spawner needing to report the identity back through the
	// LogicSpawner interface.
	logicID := newLogicIdentity("http://" + addr)

	cmd := exec.CommandContext(ctx, p.BinaryPath,
		"--listen", addr,
		"--logic-id", logicID.String(),
		"--storage-code", storageCode)
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start logic coordinator process: %w", err)
	}

	if err := waitHealthy(ctx, "http://"+addr); err != nil {
		_ = cmd.Process.Kill()
		return "", fmt.Errorf("logic coordinator did not become healthy: %w", err)
	}
	if p.Log != nil {
		p.Log.WithField("addr", addr).Info("spawned logic coordinator")
	}
	return "http://" + addr, nil
}

func waitHealthy(ctx context.Context, baseURL string) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var out struct {
			Buckets []byte `json:"buckets"`
		}
		if err := wire.GetJSON(ctx, baseURL+"/storages", &out); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return fmt.Errorf("timed out waiting for %s", baseURL)
}

// InProcessLogicSpawner backs the new Logic Coordinator with an
// httptest.Server wrapping a real logic.Server, for tests and the
// integration suite. Each spawned coordinator gets its own fresh
// logic.InProcessSpawner for shards.
type InProcessLogicSpawner struct {
	LogicID wire.Account

	logicServers []*httptest.Server
	shardSpawner *logic.InProcessSpawner
}

func (p *InProcessLogicSpawner) Spawn(_ context.Context, _ string) (string, error) {
	if p.shardSpawner == nil {
		p.shardSpawner = &logic.InProcessSpawner{}
	}
	dir := logic.NewShardDirectory(p.shardSpawner, p.LogicID)
	engine := logic.NewEngine(p.LogicID, dir, nil)
	srv := httptest.NewServer(logic.NewServer(engine, nil))
	p.logicServers = append(p.logicServers, srv)
	return srv.URL, nil
}

// Close shuts down every logic coordinator and shard server this spawner
// created.
func (p *InProcessLogicSpawner) Close() {
	for _, s := range p.logicServers {
		s.Close()
	}
	if p.shardSpawner != nil {
		p.shardSpawner.Close()
	}
}
