package models

import (
	"context"

	"github.com/udovin/gosql"
)

// Handle represents pseudonym of author shown to reviewer.
type Handle struct {
	baseObject
	// PhaseID contains ID of phase where handle is valid.
	PhaseID int64 `db:"phase_id"`
	// ReviewerID contains ID of reviewer.
	ReviewerID int64 `db:"reviewer_id"`
	// AuthorID contains ID of hidden author.
	AuthorID int64 `db:"author_id"`
	// Handle contains pseudonym.
	Handle string `db:"handle"`
}

// HandleStore represents store for handles.
type HandleStore struct {
	baseStore[Handle, *Handle]
}

// FindByPhase returns handles of specified phase.
func (s *HandleStore) FindByPhase(ctx context.Context, phaseID int64) ([]Handle, error) {
	return s.find(ctx, gosql.Column("phase_id").Equal(phaseID))
}

// NewHandleStore creates a new instance of HandleStore.
func NewHandleStore(db *gosql.DB, table string) *HandleStore {
	return &HandleStore{baseStore: makeBaseStore[Handle, *Handle](db, table)}
}
