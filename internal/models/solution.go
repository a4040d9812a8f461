package models

import (
	"context"

	"github.com/udovin/gosql"
)

// Solution represents submitted solution of participant.
//
// Solutions are read-only while voting phase is open.
type Solution struct {
	baseObject
	// ProblemID contains ID of solved problem.
	ProblemID int64 `db:"problem_id"`
	// AuthorID contains ID of participant that submitted solution.
	AuthorID int64 `db:"author_id"`
	// Language contains name of programming language.
	Language string `db:"language"`
	// Content contains source code.
	Content string `db:"content"`
	// CreateTime contains time of submission.
	CreateTime int64 `db:"create_time"`
}

// SolutionStore represents store for solutions.
type SolutionStore struct {
	baseStore[Solution, *Solution]
}

// FindByProblem returns solutions of specified problem.
func (s *SolutionStore) FindByProblem(ctx context.Context, problemID int64) ([]Solution, error) {
	return s.find(ctx, gosql.Column("problem_id").Equal(problemID))
}

// FindByAuthor returns solutions of specified author.
func (s *SolutionStore) FindByAuthor(ctx context.Context, authorID int64) ([]Solution, error) {
	return s.find(ctx, gosql.Column("author_id").Equal(authorID))
}

// NewSolutionStore creates a new instance of SolutionStore.
func NewSolutionStore(db *gosql.DB, table string) *SolutionStore {
	return &SolutionStore{baseStore: makeBaseStore[Solution, *Solution](db, table)}
}
