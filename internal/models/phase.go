package models

import (
	"context"
	"database/sql"
	"time"

	"github.com/udovin/gosql"
)

// Phase represents instance of voting phase.
type Phase struct {
	baseObject
	// OpenTime contains time when phase was opened.
	OpenTime int64 `db:"open_time"`
	// Deadline contains time after which phase is closed.
	Deadline int64 `db:"deadline"`
	// Salt contains secret of phase used for pseudonyms.
	Salt string `db:"salt"`
}

// IsOpenAt returns true if phase accepts votes at specified time.
func (o Phase) IsOpenAt(now time.Time) bool {
	return now.Unix() < o.Deadline
}

// PhaseStore represents store for phases.
type PhaseStore struct {
	baseStore[Phase, *Phase]
}

// Latest returns the most recently opened phase or sql.ErrNoRows.
func (s *PhaseStore) Latest(ctx context.Context) (Phase, error) {
	phases, err := s.All(ctx)
	if err != nil {
		return Phase{}, err
	}
	if len(phases) == 0 {
		return Phase{}, sql.ErrNoRows
	}
	return phases[len(phases)-1], nil
}

// CloseEarly moves deadline of phase to specified time if it is earlier.
//
// Returns false if phase was already closed at that time.
func (s *PhaseStore) CloseEarly(ctx context.Context, id int64, now time.Time) (bool, error) {
	count, err := s.objects.UpdateWhere(
		ctx,
		gosql.Column("id").Equal(id).And(gosql.Column("deadline").GreaterEqual(now.Unix()+1)),
		[]string{"deadline"},
		[]any{now.Unix()},
	)
	if err != nil {
		return false, err
	}
	return count == 1, nil
}

// NewPhaseStore creates a new instance of PhaseStore.
func NewPhaseStore(db *gosql.DB, table string) *PhaseStore {
	return &PhaseStore{baseStore: makeBaseStore[Phase, *Phase](db, table)}
}
