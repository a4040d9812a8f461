package managers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/udovin/peerreview/internal/config"
	"github.com/udovin/peerreview/internal/core"
	"github.com/udovin/peerreview/internal/db"
	"github.com/udovin/peerreview/internal/executor"
	"github.com/udovin/peerreview/internal/migrations"
	"github.com/udovin/peerreview/internal/models"
)

type testClock struct {
	mutex sync.Mutex
	now   time.Time
}

func (c *testClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *testClock) Add(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
}

type testExecutor struct {
	mutex sync.Mutex
	calls int
	run   func(input string) (string, error)
}

func (e *testExecutor) Run(
	ctx context.Context, reference models.ReferenceSolution,
	input string, timeout time.Duration,
) (string, error) {
	e.mutex.Lock()
	e.calls++
	run := e.run
	e.mutex.Unlock()
	return run(input)
}

func (e *testExecutor) Calls() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.calls
}

// sumOutputs emulates reference solution that sums numbers of list.
func sumOutputs(input string) (string, error) {
	switch input {
	case "[1,2,3]":
		return "6\n", nil
	case "X":
		return "0\n", nil
	case "crash":
		return "", &executor.Error{Kind: executor.RuntimeError}
	}
	return "", &executor.Error{Kind: executor.CompileError}
}

type testEnv struct {
	core       *core.Core
	clock      *testClock
	executor   *testExecutor
	phases     *PhaseController
	anonymizer *Anonymizer
	queue      *QueueManager
	votes      *VoteValidator
}

const (
	testReviewer = 900010
	testProblem  = 5
)

var testAuthors = []int64{900011, 900012, 900013}

func testSetup(tb testing.TB) *testEnv {
	cfg := config.Config{
		DB: config.DB{
			Options: config.SQLiteOptions{Path: ":memory:"},
		},
		Review: config.Review{
			HandleKey:       "test-key",
			ExecutorRetries: 2,
			RetryBackoff:    config.Duration(time.Millisecond),
		},
	}
	c, err := core.NewCore(cfg)
	if err != nil {
		tb.Fatal("Error:", err)
	}
	tb.Cleanup(func() { _ = c.DB.Close() })
	c.SetupAllStores()
	if err := db.ApplyMigrations(
		context.Background(), c.DB, migrations.Prefix, migrations.Schema,
	); err != nil {
		tb.Fatal("Error:", err)
	}
	env := testEnv{
		core:     c,
		clock:    &testClock{now: time.Unix(1700000000, 0)},
		executor: &testExecutor{run: sumOutputs},
	}
	c.Executor = env.executor
	env.phases = NewPhaseController(c)
	env.phases.now = env.clock.Now
	env.anonymizer = NewAnonymizer(c, env.phases)
	env.queue = NewQueueManager(c, env.anonymizer)
	env.queue.now = env.clock.Now
	env.votes = NewVoteValidator(c, env.phases, env.queue)
	env.votes.now = env.clock.Now
	return &env
}

// seed creates problem with reference solution, solutions of test authors
// and assigns all of them to test reviewer.
func (e *testEnv) seed(tb testing.TB) []int64 {
	ctx := context.Background()
	reference := models.ReferenceSolution{
		ProblemID:  testProblem,
		Language:   "python",
		Content:    "print(sum(eval(input())))",
		OutputRule: "trim",
	}
	if err := e.queue.CreateReferenceSolution(ctx, &reference); err != nil {
		tb.Fatal("Error:", err)
	}
	var ids []int64
	for i, author := range testAuthors {
		solution := models.Solution{
			ProblemID:  testProblem,
			AuthorID:   author,
			Language:   "go",
			Content:    "package main // solution " + string(rune('A'+i)),
			CreateTime: e.clock.Now().Unix(),
		}
		if err := e.queue.CreateSolution(ctx, &solution); err != nil {
			tb.Fatal("Error:", err)
		}
		assignment, err := e.queue.CreateAssignment(ctx, testReviewer, solution.ID)
		if err != nil {
			tb.Fatal("Error:", err)
		}
		ids = append(ids, assignment.ID)
	}
	return ids
}

func (e *testEnv) openPhase(tb testing.TB) {
	if _, err := e.phases.OpenPhase(
		context.Background(), e.clock.Now().Add(time.Hour),
	); err != nil {
		tb.Fatal("Error:", err)
	}
}

func (e *testEnv) pendingIDs(tb testing.TB, reviewerID int64) []int64 {
	tb.Helper()
	pending, err := e.queue.PendingAssignments(context.Background(), reviewerID)
	if err != nil {
		tb.Fatal("Error:", err)
	}
	ids := []int64{}
	for _, item := range pending {
		ids = append(ids, item.AssignmentID)
	}
	return ids
}

func expectIDs(tb testing.TB, ids []int64, expected ...int64) {
	tb.Helper()
	if len(ids) != len(expected) {
		tb.Fatalf("Expected %v, got %v", expected, ids)
	}
	for i := range ids {
		if ids[i] != expected[i] {
			tb.Fatalf("Expected %v, got %v", expected, ids)
		}
	}
}

func expectResult(tb testing.TB, result VoteResult, err error, reason Reason) {
	tb.Helper()
	if err != nil {
		tb.Fatal("Error:", err)
	}
	if result.Reason != reason {
		tb.Fatalf("Expected %q, got %q", reason, result.Reason)
	}
	if result.Accepted != (reason == Accepted) {
		tb.Fatalf("Unexpected accepted flag: %+v", result)
	}
	if result.Message == "" {
		tb.Fatal("Result should have message")
	}
}
