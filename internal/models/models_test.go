package models

import (
	"context"
	"testing"
	"time"

	"github.com/udovin/gosql"

	"github.com/udovin/peerreview/internal/config"
	"github.com/udovin/peerreview/internal/db"
	"github.com/udovin/peerreview/internal/migrations"
)

func testSetupDB(tb testing.TB) *gosql.DB {
	cfg := config.DB{Options: config.SQLiteOptions{Path: ":memory:"}}
	conn, err := cfg.Create()
	if err != nil {
		tb.Fatal("Error:", err)
	}
	tb.Cleanup(func() { _ = conn.Close() })
	if err := db.ApplyMigrations(
		context.Background(), conn, migrations.Prefix, migrations.Schema,
	); err != nil {
		tb.Fatal("Error:", err)
	}
	return conn
}

func TestSolutionStore(t *testing.T) {
	conn := testSetupDB(t)
	store := NewSolutionStore(conn, "review_solution")
	ctx := context.Background()
	for _, s := range []Solution{
		{ProblemID: 1, AuthorID: 10, Language: "go", Content: "a"},
		{ProblemID: 2, AuthorID: 10, Language: "cpp", Content: "b"},
		{ProblemID: 1, AuthorID: 11, Language: "python", Content: "c"},
	} {
		solution := s
		if err := store.Create(ctx, &solution); err != nil {
			t.Fatal("Error:", err)
		}
		if solution.ID == 0 {
			t.Fatal("Solution ID should be set")
		}
	}
	solutions, err := store.FindByProblem(ctx, 1)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(solutions) != 2 || solutions[0].Content != "a" || solutions[1].Content != "c" {
		t.Fatalf("Unexpected solutions: %+v", solutions)
	}
	solutions, err = store.FindByAuthor(ctx, 10)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(solutions) != 2 {
		t.Fatalf("Expected 2 solutions, got %d", len(solutions))
	}
	solution, err := store.Get(ctx, solutions[1].ID)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if solution.Language != "cpp" {
		t.Fatalf("Expected %q, got %q", "cpp", solution.Language)
	}
	if _, err := store.Get(ctx, 100); !IsNotFound(err) {
		t.Fatalf("Expected not found error, got %v", err)
	}
}

func TestReferenceSolutionStore(t *testing.T) {
	conn := testSetupDB(t)
	store := NewReferenceSolutionStore(conn, "review_reference_solution")
	ctx := context.Background()
	reference := ReferenceSolution{ProblemID: 5, Language: "go", OutputRule: "trim"}
	if err := store.Create(ctx, &reference); err != nil {
		t.Fatal("Error:", err)
	}
	duplicate := ReferenceSolution{ProblemID: 5, Language: "cpp"}
	if err := store.Create(ctx, &duplicate); err == nil {
		t.Fatal("Expected error for second reference solution of problem")
	}
	found, err := store.GetByProblem(ctx, 5)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if found != reference {
		t.Fatalf("Expected %+v, got %+v", reference, found)
	}
	if _, err := store.GetByProblem(ctx, 6); !IsNotFound(err) {
		t.Fatalf("Expected not found error, got %v", err)
	}
}

func TestAssignmentStore(t *testing.T) {
	conn := testSetupDB(t)
	store := NewAssignmentStore(conn, "review_assignment")
	ctx := context.Background()
	var ids []int64
	for _, solutionID := range []int64{3, 1, 2} {
		assignment := Assignment{
			ReviewerID: 7,
			SolutionID: solutionID,
			Status:     PendingAssignment,
		}
		if err := store.Create(ctx, &assignment); err != nil {
			t.Fatal("Error:", err)
		}
		ids = append(ids, assignment.ID)
	}
	duplicate := Assignment{ReviewerID: 7, SolutionID: 3, Status: PendingAssignment}
	if err := store.Create(ctx, &duplicate); err == nil {
		t.Fatal("Expected error for duplicate pair")
	}
	vote := IncorrectVote{
		TestCase: TestCase{Input: "1 2", ExpectedOutput: "3"},
		Note:     "overflow",
	}
	now := time.Unix(1700000000, 0)
	if ok, err := store.Complete(ctx, ids[1], 8, vote, now); err != nil {
		t.Fatal("Error:", err)
	} else if ok {
		t.Fatal("Foreign reviewer should not complete assignment")
	}
	if ok, err := store.Complete(ctx, ids[1], 7, vote, now); err != nil {
		t.Fatal("Error:", err)
	} else if !ok {
		t.Fatal("Assignment should be completed")
	}
	if ok, err := store.Complete(ctx, ids[1], 7, SkipVote{}, now); err != nil {
		t.Fatal("Error:", err)
	} else if ok {
		t.Fatal("Assignment should not be completed twice")
	}
	assignment, err := store.Get(ctx, ids[1])
	if err != nil {
		t.Fatal("Error:", err)
	}
	if assignment.Status != CompletedAssignment {
		t.Fatalf("Expected %v, got %v", CompletedAssignment, assignment.Status)
	}
	if assignment.CompleteTime != now.Unix() {
		t.Fatalf("Expected %d, got %d", now.Unix(), assignment.CompleteTime)
	}
	if assignment.Vote() != vote {
		t.Fatalf("Expected %+v, got %+v", vote, assignment.Vote())
	}
	pending, err := store.FindPendingByReviewer(ctx, 7)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(pending) != 2 || pending[0].ID != ids[0] || pending[1].ID != ids[2] {
		t.Fatalf("Unexpected pending assignments: %+v", pending)
	}
	all, err := store.FindByReviewer(ctx, 7)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 assignments, got %d", len(all))
	}
	bySolution, err := store.FindBySolution(ctx, 2)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(bySolution) != 1 || bySolution[0].ID != ids[2] {
		t.Fatalf("Unexpected assignments: %+v", bySolution)
	}
}

func TestAssignmentVote(t *testing.T) {
	if (Assignment{}).Vote() != nil {
		t.Fatal("Pending assignment should not have vote")
	}
	a := Assignment{VoteKind: CorrectVoteKind, Note: "ok"}
	if a.Vote() != (CorrectVote{Note: "ok"}) {
		t.Fatalf("Unexpected vote: %+v", a.Vote())
	}
	a = Assignment{VoteKind: SkipVoteKind}
	if a.Vote() != (SkipVote{}) {
		t.Fatalf("Unexpected vote: %+v", a.Vote())
	}
}

func TestVoteKindText(t *testing.T) {
	for _, kind := range []VoteKind{CorrectVoteKind, IncorrectVoteKind, SkipVoteKind} {
		data, err := kind.MarshalText()
		if err != nil {
			t.Fatal("Error:", err)
		}
		var parsed VoteKind
		if err := parsed.UnmarshalText(data); err != nil {
			t.Fatal("Error:", err)
		}
		if parsed != kind {
			t.Fatalf("Expected %v, got %v", kind, parsed)
		}
	}
	var kind VoteKind
	if err := kind.UnmarshalText([]byte("maybe")); err == nil {
		t.Fatal("Expected error for unknown vote")
	}
	if s := VoteKind(42).String(); s != "VoteKind(42)" {
		t.Fatalf("Unexpected string: %q", s)
	}
}

func TestPhaseStore(t *testing.T) {
	conn := testSetupDB(t)
	store := NewPhaseStore(conn, "review_phase")
	ctx := context.Background()
	if _, err := store.Latest(ctx); !IsNotFound(err) {
		t.Fatalf("Expected not found error, got %v", err)
	}
	now := time.Unix(1700000000, 0)
	for i := 0; i < 2; i++ {
		phase := Phase{
			OpenTime: now.Unix(),
			Deadline: now.Add(time.Duration(i+1) * time.Hour).Unix(),
			Salt:     "salt",
		}
		if err := store.Create(ctx, &phase); err != nil {
			t.Fatal("Error:", err)
		}
	}
	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if latest.Deadline != now.Add(2*time.Hour).Unix() {
		t.Fatalf("Unexpected latest phase: %+v", latest)
	}
	if !latest.IsOpenAt(now) {
		t.Fatal("Phase should be open")
	}
	if latest.IsOpenAt(now.Add(2 * time.Hour)) {
		t.Fatal("Phase should be closed at deadline")
	}
}

func TestHandleStore(t *testing.T) {
	conn := testSetupDB(t)
	store := NewHandleStore(conn, "review_handle")
	ctx := context.Background()
	handle := Handle{PhaseID: 1, ReviewerID: 2, AuthorID: 3, Handle: "Candidate ABCDEFGH"}
	if err := store.Create(ctx, &handle); err != nil {
		t.Fatal("Error:", err)
	}
	duplicate := handle
	if err := store.Create(ctx, &duplicate); err == nil {
		t.Fatal("Expected error for duplicate handle")
	}
	handles, err := store.FindByPhase(ctx, 1)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(handles) != 1 || handles[0] != handle {
		t.Fatalf("Unexpected handles: %+v", handles)
	}
	handles, err = store.FindByPhase(ctx, 2)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(handles) != 0 {
		t.Fatalf("Unexpected handles: %+v", handles)
	}
}
