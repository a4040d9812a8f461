// Package core contains shared resources of review service.
package core

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/udovin/gosql"

	"github.com/udovin/peerreview/internal/config"
	"github.com/udovin/peerreview/internal/db"
	"github.com/udovin/peerreview/internal/executor"
	"github.com/udovin/peerreview/internal/models"
	"github.com/udovin/peerreview/internal/pkg/logs"
)

// Core manages all available resources.
type Core struct {
	// Config contains config.
	Config config.Config
	// Solutions contains solution store.
	Solutions *models.SolutionStore
	// ReferenceSolutions contains reference solution store.
	ReferenceSolutions *models.ReferenceSolutionStore
	// Assignments contains assignment store.
	Assignments *models.AssignmentStore
	// Handles contains handle store.
	Handles *models.HandleStore
	// Phases contains phase store.
	Phases *models.PhaseStore
	// Executor contains client of code execution service.
	Executor executor.Client
	//
	context context.Context
	cancel  context.CancelFunc
	waiter  sync.WaitGroup
	// DB stores database connection.
	DB *gosql.DB
	// logger contains logger.
	logger *logs.Logger
}

// NewCore creates core instance from config.
func NewCore(cfg config.Config) (*Core, error) {
	conn, err := cfg.DB.Create()
	if err != nil {
		return nil, err
	}
	c := Core{
		Config: cfg,
		DB:     conn,
		logger: logs.NewLogger(logLevel(cfg.LogLevel)),
	}
	if cfg.Executor != nil {
		c.Executor = executor.NewLimitedClient(
			executor.NewHTTPClient(cfg.Executor.Endpoint),
			cfg.Executor.GetMaxConcurrency(),
			cfg.Executor.RateLimit,
		)
	}
	return &c, nil
}

// Logger returns logger instance.
func (c *Core) Logger() *logs.Logger {
	return c.logger
}

// SetupAllStores prepares all stores.
func (c *Core) SetupAllStores() {
	c.Solutions = models.NewSolutionStore(c.DB, "review_solution")
	c.ReferenceSolutions = models.NewReferenceSolutionStore(c.DB, "review_reference_solution")
	c.Assignments = models.NewAssignmentStore(c.DB, "review_assignment")
	c.Handles = models.NewHandleStore(c.DB, "review_handle")
	c.Phases = models.NewPhaseStore(c.DB, "review_phase")
}

// Start starts application.
func (c *Core) Start() error {
	if c.cancel != nil {
		return fmt.Errorf("core already started")
	}
	c.Logger().Debug("Starting core")
	c.context, c.cancel = context.WithCancel(context.Background())
	c.Logger().Debug("Core started")
	return nil
}

// Stop stops all tasks and waits for their completion.
func (c *Core) Stop() {
	if c.cancel == nil {
		return
	}
	c.Logger().Debug("Stopping core")
	defer c.Logger().Debug("Core stopped")
	c.cancel()
	c.waiter.Wait()
	c.context, c.cancel = nil, nil
}

// Context returns context of running core.
func (c *Core) Context() context.Context {
	return c.context
}

// WrapTx runs function with transaction.
func (c *Core) WrapTx(
	ctx context.Context, fn func(ctx context.Context) error,
	options ...gosql.BeginTxOption,
) (err error) {
	return gosql.WrapTx(ctx, c.DB, func(tx *sql.Tx) error {
		return fn(db.WithTx(ctx, tx))
	}, options...)
}

// StartTask starts task in new goroutine.
//
// Task context is canceled when core stops.
func (c *Core) StartTask(name string, task func(ctx context.Context)) {
	c.Logger().Info("Start task", logs.Any("task", name))
	c.waiter.Add(1)
	go func() {
		defer c.waiter.Done()
		defer c.Logger().Info("Task finished", logs.Any("task", name))
		task(c.context)
	}()
}
