package models

import (
	"context"
	"fmt"
	"time"

	"github.com/udovin/gosql"
)

// AssignmentStatus represents status of assignment.
type AssignmentStatus int

const (
	// PendingAssignment means that assignment waits for vote.
	PendingAssignment AssignmentStatus = 1
	// CompletedAssignment means that vote was accepted.
	CompletedAssignment AssignmentStatus = 2
)

// String returns string representation.
func (s AssignmentStatus) String() string {
	switch s {
	case PendingAssignment:
		return "pending"
	case CompletedAssignment:
		return "completed"
	default:
		return fmt.Sprintf("AssignmentStatus(%d)", s)
	}
}

func (s AssignmentStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Assignment represents pairing of reviewer with solution.
//
// Vote is stored inside assignment, so attaching vote and completing
// assignment is a single update.
type Assignment struct {
	baseObject
	// ReviewerID contains ID of reviewer.
	ReviewerID int64 `db:"reviewer_id"`
	// SolutionID contains ID of reviewed solution.
	SolutionID int64 `db:"solution_id"`
	// Status contains status of assignment.
	Status AssignmentStatus `db:"status"`
	// VoteKind contains kind of accepted vote.
	VoteKind VoteKind `db:"vote"`
	// TestInput contains input of confirmed counterexample.
	TestInput string `db:"test_input"`
	// TestOutput contains expected output of confirmed counterexample.
	TestOutput string `db:"test_output"`
	// Note contains comment of reviewer.
	Note string `db:"note"`
	// CreateTime contains time of assignment creation.
	CreateTime int64 `db:"create_time"`
	// CompleteTime contains time of vote acceptance.
	CompleteTime int64 `db:"complete_time"`
}

// Vote returns accepted vote or nil.
func (o Assignment) Vote() Vote {
	switch o.VoteKind {
	case CorrectVoteKind:
		return CorrectVote{Note: o.Note}
	case SkipVoteKind:
		return SkipVote{Note: o.Note}
	case IncorrectVoteKind:
		return IncorrectVote{
			TestCase: TestCase{
				Input:          o.TestInput,
				ExpectedOutput: o.TestOutput,
			},
			Note: o.Note,
		}
	default:
		return nil
	}
}

// AssignmentStore represents store for assignments.
type AssignmentStore struct {
	baseStore[Assignment, *Assignment]
}

// FindByReviewer returns assignments of reviewer in creation order.
func (s *AssignmentStore) FindByReviewer(
	ctx context.Context, reviewerID int64,
) ([]Assignment, error) {
	return s.find(ctx, gosql.Column("reviewer_id").Equal(reviewerID))
}

// FindPendingByReviewer returns pending assignments of reviewer
// in creation order.
func (s *AssignmentStore) FindPendingByReviewer(
	ctx context.Context, reviewerID int64,
) ([]Assignment, error) {
	return s.find(ctx, gosql.Column("reviewer_id").Equal(reviewerID).
		And(gosql.Column("status").Equal(PendingAssignment)))
}

// FindBySolution returns assignments of solution.
func (s *AssignmentStore) FindBySolution(
	ctx context.Context, solutionID int64,
) ([]Assignment, error) {
	return s.find(ctx, gosql.Column("solution_id").Equal(solutionID))
}

// Complete attaches vote to pending assignment of reviewer.
//
// Returns false when assignment is not pending anymore or belongs
// to another reviewer.
func (s *AssignmentStore) Complete(
	ctx context.Context, id, reviewerID int64, vote Vote, now time.Time,
) (bool, error) {
	var input, output string
	if v, ok := vote.(IncorrectVote); ok {
		input, output = v.TestCase.Input, v.TestCase.ExpectedOutput
	}
	count, err := s.objects.UpdateWhere(
		ctx,
		gosql.Column("id").Equal(id).
			And(gosql.Column("reviewer_id").Equal(reviewerID)).
			And(gosql.Column("status").Equal(PendingAssignment)),
		[]string{"status", "vote", "test_input", "test_output", "note", "complete_time"},
		[]any{CompletedAssignment, vote.Kind(), input, output, vote.VoteNote(), now.Unix()},
	)
	if err != nil {
		return false, err
	}
	return count == 1, nil
}

// NewAssignmentStore creates a new instance of AssignmentStore.
func NewAssignmentStore(db *gosql.DB, table string) *AssignmentStore {
	return &AssignmentStore{baseStore: makeBaseStore[Assignment, *Assignment](db, table)}
}
