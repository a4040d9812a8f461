package core

import (
	"context"
	"testing"
	"time"

	"github.com/udovin/peerreview/internal/config"
	"github.com/udovin/peerreview/internal/db"
	"github.com/udovin/peerreview/internal/migrations"
	"github.com/udovin/peerreview/internal/models"
)

var testCfg = config.Config{
	DB: config.DB{
		Options: config.SQLiteOptions{Path: ":memory:"},
	},
}

func TestNewCore(t *testing.T) {
	c, err := NewCore(testCfg)
	if err != nil {
		t.Fatal("Error:", err)
	}
	c.SetupAllStores()
	if err := db.ApplyMigrations(context.Background(), c.DB, migrations.Prefix, migrations.Schema); err != nil {
		t.Fatal("Error:", err)
	}
	if c.Executor != nil {
		t.Fatal("Executor should not be configured")
	}
	if err := c.Start(); err != nil {
		t.Fatal("Error:", err)
	}
	defer c.Stop()
	// Check that we can not start core twice.
	if err := c.Start(); err == nil {
		t.Fatal("Expected error")
	}
	// Check that we can stop core twice without no side effects.
	c.Stop()
}

func TestNewCore_Failure(t *testing.T) {
	var cfg config.Config
	if _, err := NewCore(cfg); err == nil {
		t.Fatal("Expected error while creating core")
	}
}

func TestCoreExecutor(t *testing.T) {
	cfg := testCfg
	cfg.Executor = &config.Executor{Endpoint: "http://localhost:4343"}
	c, err := NewCore(cfg)
	if err != nil {
		t.Fatal("Error:", err)
	}
	defer func() { _ = c.DB.Close() }()
	if c.Executor == nil {
		t.Fatal("Executor should be configured")
	}
}

func TestCoreWrapTx(t *testing.T) {
	c, err := NewCore(testCfg)
	if err != nil {
		t.Fatal("Error:", err)
	}
	c.SetupAllStores()
	ctx := context.Background()
	if err := db.ApplyMigrations(ctx, c.DB, migrations.Prefix, migrations.Schema); err != nil {
		t.Fatal("Error:", err)
	}
	if err := c.WrapTx(ctx, func(ctx context.Context) error {
		if db.GetTx(ctx) == nil {
			t.Fatal("Expected transaction in context")
		}
		solution := models.Solution{ProblemID: 1, AuthorID: 2}
		return c.Solutions.Create(ctx, &solution)
	}); err != nil {
		t.Fatal("Error:", err)
	}
	solutions, err := c.Solutions.FindByProblem(ctx, 1)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(solutions) != 1 {
		t.Fatalf("Expected 1 solution, got %d", len(solutions))
	}
}

func TestCoreStartTask(t *testing.T) {
	c, err := NewCore(testCfg)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if err := c.Start(); err != nil {
		t.Fatal("Error:", err)
	}
	started := make(chan struct{})
	finished := make(chan struct{})
	c.StartTask("test", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(finished)
	})
	<-started
	c.Stop()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Task should be finished after stop")
	}
}
