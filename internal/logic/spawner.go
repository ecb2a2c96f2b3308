package logic

import (
	"context"
	"fmt"
	"net"
	"net/http/httptest"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/storageshard"
	"github.com/gear-foundation/dapps-sharded-fungible-token/internal/wire"
)

// ProcessSpawner launches a real cmd/storage binary per shard, the
// production ShardSpawner. Each shard gets its own OS process and its own
// listen address, picked from an available loopback port. Instantiating a
// new Storage Shard program is a single suspension point for the caller: it
// blocks until the process's health endpoint answers.
type ProcessSpawner struct {
	// BinaryPath is the path to the compiled cmd/storage executable.
	BinaryPath string
	// Log receives one entry per spawned shard.
	Log *logrus.Entry
}

func (p *ProcessSpawner) Spawn(ctx context.Context, logicID wire.Account) (string, uuid.UUID, error) {
	id := uuid.New()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("reserve shard port: %w", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cmd := exec.CommandContext(ctx,
		p.BinaryPath,
		"--listen", addr,
		"--logic-id", logicID.String(),
		"--shard-id", id.String(),
	)
	if err := cmd.Start(); err != nil {
		return "", uuid.Nil, fmt.Errorf("start shard process: %w", err)
	}

	if err := waitHealthy(ctx, "http://"+addr); err != nil {
		_ = cmd.Process.Kill()
		return "", uuid.Nil, fmt.Errorf("shard %s did not become healthy: %w", id, err)
	}

	if p.Log != nil {
		p.Log.WithFields(logrus.Fields{"shard_id": id, "addr": addr}).Info("spawned storage shard")
	}
	return "http://" + addr, id, nil
}

func waitHealthy(ctx context.Context, baseURL string) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var event wire.Event
		if err := wire.GetJSON(ctx, baseURL+"/balance/"+wire.Account{}.String(), &event); err == nil {
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

// InProcessSpawner backs every shard with an httptest.Server wrapping a
// real storageshard.Server, avoiding a real OS process fork. Used by
// internal/logic's own tests and by the integration tests in test/.
type InProcessSpawner struct {
	servers []*httptest.Server
}

func (p *InProcessSpawner) Spawn(_ context.Context, logicID wire.Account) (string, uuid.UUID, error) {
	sh := storageshard.New(logicID)
	srv := httptest.NewServer(storageshard.NewServer(sh, nil))
	p.servers = append(p.servers, srv)
	return srv.URL, uuid.New(), nil
}

// Close shuts down every shard server this spawner created.
func (p *InProcessSpawner) Close() {
	for _, s := range p.servers {
		s.Close()
	}
}
