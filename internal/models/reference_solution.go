package models

import (
	"context"

	"github.com/udovin/gosql"
)

// ReferenceSolution represents trusted solution of problem.
//
// Reference solutions are never exposed to reviewers.
type ReferenceSolution struct {
	baseObject
	// ProblemID contains ID of problem. There is at most one reference
	// solution per problem.
	ProblemID int64 `db:"problem_id"`
	// Language contains name of programming language.
	Language string `db:"language"`
	// Content contains source code.
	Content string `db:"content"`
	// OutputRule contains name of rule for output comparison.
	OutputRule string `db:"output_rule"`
}

// ReferenceSolutionStore represents store for reference solutions.
type ReferenceSolutionStore struct {
	baseStore[ReferenceSolution, *ReferenceSolution]
}

// GetByProblem returns reference solution of problem or sql.ErrNoRows.
func (s *ReferenceSolutionStore) GetByProblem(
	ctx context.Context, problemID int64,
) (ReferenceSolution, error) {
	return s.objects.FindObject(ctx, gosql.Column("problem_id").Equal(problemID))
}

// NewReferenceSolutionStore creates a new instance of ReferenceSolutionStore.
func NewReferenceSolutionStore(db *gosql.DB, table string) *ReferenceSolutionStore {
	return &ReferenceSolutionStore{
		baseStore: makeBaseStore[ReferenceSolution, *ReferenceSolution](db, table),
	}
}
