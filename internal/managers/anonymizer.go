package managers

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/udovin/algo/btree"
	"golang.org/x/crypto/blake2b"

	"github.com/udovin/peerreview/internal/core"
	"github.com/udovin/peerreview/internal/models"
)

// ErrNotFound means that requested object does not exist or is not
// visible for requester.
var ErrNotFound = errors.New("not found")

const handlePrefix = "Candidate "

type handlePair struct {
	ReviewerID int64
	AuthorID   int64
}

func lessHandlePair(lhs, rhs handlePair) bool {
	if lhs.ReviewerID != rhs.ReviewerID {
		return lhs.ReviewerID < rhs.ReviewerID
	}
	return lhs.AuthorID < rhs.AuthorID
}

// Anonymizer maps (reviewer, author) pairs to pseudonyms.
//
// Pseudonym is a keyed hash of pair, so it is stable during phase and
// does not reveal author without server key and secret salt of phase.
// Mapping is recorded for bookkeeping and is never returned to reviewers.
type Anonymizer struct {
	assignments *models.AssignmentStore
	solutions   *models.SolutionStore
	handles     *models.HandleStore
	phases      *PhaseController
	key         string
	mutex       sync.Mutex
	phaseID     int64
	loaded      bool
	cache       btree.Map[handlePair, string]
}

// NewAnonymizer creates a new instance of Anonymizer.
//
// When handle key is not configured, random key is generated. Handles that
// were already recorded stay stable, new ones differ between restarts.
func NewAnonymizer(core *core.Core, phases *PhaseController) *Anonymizer {
	key := core.Config.Review.HandleKey
	if key == "" {
		key = randomHandleKey()
		core.Logger().Warn("Handle key is not configured, using random key")
	}
	return &Anonymizer{
		assignments: core.Assignments,
		solutions:   core.Solutions,
		handles:     core.Handles,
		phases:      phases,
		key:         key,
	}
}

// HandleFor returns pseudonym of author for reviewer.
//
// Returns ErrNotFound when reviewer has no assignments or author has
// no solutions.
func (m *Anonymizer) HandleFor(ctx context.Context, reviewerID, authorID int64) (string, error) {
	phase, _ := m.phases.Current()
	pair := handlePair{ReviewerID: reviewerID, AuthorID: authorID}
	handle, ok, loaded := m.cached(phase.ID, pair)
	if ok {
		return handle, nil
	}
	if !loaded {
		if err := m.load(ctx, phase.ID); err != nil {
			return "", err
		}
		if handle, ok, _ := m.cached(phase.ID, pair); ok {
			return handle, nil
		}
	}
	assignments, err := m.assignments.FindByReviewer(ctx, reviewerID)
	if err != nil {
		return "", err
	}
	if len(assignments) == 0 {
		return "", ErrNotFound
	}
	solutions, err := m.solutions.FindByAuthor(ctx, authorID)
	if err != nil {
		return "", err
	}
	if len(solutions) == 0 {
		return "", ErrNotFound
	}
	handle = deriveHandle(m.key, phase.Salt, reviewerID, authorID)
	record := models.Handle{
		PhaseID:    phase.ID,
		ReviewerID: reviewerID,
		AuthorID:   authorID,
		Handle:     handle,
	}
	if err := m.handles.Create(ctx, &record); err != nil {
		// Pair could be recorded concurrently.
		if err := m.load(ctx, phase.ID); err != nil {
			return "", err
		}
		recorded, ok, _ := m.cached(phase.ID, pair)
		if !ok {
			return "", err
		}
		return recorded, nil
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.loaded && m.phaseID == phase.ID {
		m.cache.Set(pair, handle)
	}
	return handle, nil
}

// cached returns handle from cache and reports whether cache contains
// handles of specified phase.
func (m *Anonymizer) cached(phaseID int64, pair handlePair) (string, bool, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.loaded || m.phaseID != phaseID {
		return "", false, false
	}
	handle, ok := m.cache.Get(pair)
	return handle, ok, true
}

func (m *Anonymizer) load(ctx context.Context, phaseID int64) error {
	handles, err := m.handles.FindByPhase(ctx, phaseID)
	if err != nil {
		return err
	}
	cache := btree.NewMap[handlePair, string](lessHandlePair)
	for _, handle := range handles {
		cache.Set(handlePair{
			ReviewerID: handle.ReviewerID,
			AuthorID:   handle.AuthorID,
		}, handle.Handle)
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	// Phases only grow, so older snapshot should not replace newer one.
	if m.loaded && m.phaseID > phaseID {
		return nil
	}
	m.cache, m.phaseID, m.loaded = cache, phaseID, true
	return nil
}

func randomHandleKey() string {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return hex.EncodeToString(key)
}

func deriveHandle(key, salt string, reviewerID, authorID int64) string {
	macKey := blake2b.Sum256([]byte(key + "\x00" + salt))
	mac, err := blake2b.New256(macKey[:])
	if err != nil {
		panic(err)
	}
	var pair [16]byte
	binary.BigEndian.PutUint64(pair[:8], uint64(reviewerID))
	binary.BigEndian.PutUint64(pair[8:], uint64(authorID))
	_, _ = mac.Write(pair[:])
	return handlePrefix + base32.StdEncoding.EncodeToString(mac.Sum(nil))[:8]
}
