package managers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/udovin/peerreview/internal/core"
	"github.com/udovin/peerreview/internal/models"
	"github.com/udovin/peerreview/internal/pkg/logs"
)

var (
	// ErrPhaseOpen means that phase cannot be opened while another one is open.
	ErrPhaseOpen = errors.New("review phase is already open")
	// ErrPhaseClosed means that there is no open phase.
	ErrPhaseClosed = errors.New("review phase is closed")
	// ErrInvalidDeadline means that deadline is not in the future.
	ErrInvalidDeadline = errors.New("deadline should be in the future")
)

// PhaseStatus represents public state of current phase.
type PhaseStatus struct {
	// PhaseID contains ID of current phase or zero.
	PhaseID int64
	// Open is true if phase accepts votes.
	Open bool
	// OpenTime contains time when phase was opened.
	OpenTime time.Time
	// Deadline contains time when phase closes.
	Deadline time.Time
	// Remaining contains time left before deadline.
	Remaining time.Duration
}

// PhaseController tracks deadline of current review phase.
//
// Once deadline passes phase is closed permanently. New phase instance
// has to be opened explicitly.
type PhaseController struct {
	phases *models.PhaseStore
	logger *logs.Logger
	now    func() time.Time
	mutex  sync.RWMutex
	phase  models.Phase
	exists bool
}

// NewPhaseController creates a new instance of PhaseController.
func NewPhaseController(core *core.Core) *PhaseController {
	return &PhaseController{
		phases: core.Phases,
		logger: core.Logger(),
		now:    time.Now,
	}
}

// Sync loads the most recent phase from store.
func (c *PhaseController) Sync(ctx context.Context) error {
	phase, err := c.phases.Latest(ctx)
	if err != nil {
		if models.IsNotFound(err) {
			return nil
		}
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	// Phase could be opened after it was read.
	if c.exists && phase.ID < c.phase.ID {
		return nil
	}
	c.phase, c.exists = phase, true
	return nil
}

// OpenPhase opens new phase instance with specified deadline.
func (c *PhaseController) OpenPhase(
	ctx context.Context, deadline time.Time,
) (models.Phase, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := c.now()
	if c.exists && c.phase.IsOpenAt(now) {
		return models.Phase{}, ErrPhaseOpen
	}
	if deadline.Unix() <= now.Unix() {
		return models.Phase{}, ErrInvalidDeadline
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return models.Phase{}, err
	}
	phase := models.Phase{
		OpenTime: now.Unix(),
		Deadline: deadline.Unix(),
		Salt:     hex.EncodeToString(salt),
	}
	if err := c.phases.Create(ctx, &phase); err != nil {
		return models.Phase{}, err
	}
	c.phase, c.exists = phase, true
	c.logger.Info(
		"Review phase opened",
		logs.Any("phase_id", phase.ID),
		logs.Any("deadline", deadline.UTC().Format(time.RFC3339)),
	)
	return phase, nil
}

// ClosePhase closes current phase before its deadline.
func (c *PhaseController) ClosePhase(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := c.now()
	if !c.exists || !c.phase.IsOpenAt(now) {
		return ErrPhaseClosed
	}
	ok, err := c.phases.CloseEarly(ctx, c.phase.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPhaseClosed
	}
	c.phase.Deadline = now.Unix()
	c.logger.Info("Review phase closed early", logs.Any("phase_id", c.phase.ID))
	return nil
}

// IsOpen returns true if current phase accepts votes.
func (c *PhaseController) IsOpen() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.exists && c.phase.IsOpenAt(c.now())
}

// IsOpenAt reloads current phase from store and returns true if it
// accepts votes at specified time.
func (c *PhaseController) IsOpenAt(ctx context.Context, now time.Time) (bool, error) {
	phase, ok := c.Current()
	if !ok {
		return false, nil
	}
	stored, err := c.phases.Get(ctx, phase.ID)
	if err != nil {
		return false, err
	}
	return stored.IsOpenAt(now), nil
}

// Current returns current phase.
func (c *PhaseController) Current() (models.Phase, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.phase, c.exists
}

// Status returns status of current phase.
func (c *PhaseController) Status() PhaseStatus {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if !c.exists {
		return PhaseStatus{}
	}
	now := c.now()
	status := PhaseStatus{
		PhaseID:  c.phase.ID,
		Open:     c.phase.IsOpenAt(now),
		OpenTime: time.Unix(c.phase.OpenTime, 0),
		Deadline: time.Unix(c.phase.Deadline, 0),
	}
	if status.Open {
		status.Remaining = status.Deadline.Sub(now)
	}
	return status
}

// Watch periodically syncs phase with store and logs closure of phases.
func (c *PhaseController) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var closedID int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil {
				if ctx.Err() == nil {
					c.logger.Warn("Cannot sync review phase", err)
				}
				continue
			}
			phase, ok := c.Current()
			if ok && phase.ID != closedID && !c.IsOpen() {
				closedID = phase.ID
				c.logger.Info("Review phase is closed", logs.Any("phase_id", phase.ID))
			}
		}
	}
}
