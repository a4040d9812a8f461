package managers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/udovin/peerreview/internal/config"
	"github.com/udovin/peerreview/internal/core"
	"github.com/udovin/peerreview/internal/executor"
	"github.com/udovin/peerreview/internal/models"
	"github.com/udovin/peerreview/internal/pkg/logs"
	"github.com/udovin/peerreview/internal/pkg/outputs"
)

// Reason represents machine-readable outcome of vote submission.
type Reason string

const (
	// Accepted means that vote was attached and assignment is completed.
	Accepted Reason = "accepted"
	// PhaseClosed means that review phase does not accept votes.
	PhaseClosed Reason = "phase_closed"
	// AlreadyReviewed means that assignment is missing or not pending.
	AlreadyReviewed Reason = "already_reviewed"
	// MissingTestCase means that incorrect vote has no complete test case.
	MissingTestCase Reason = "missing_test_case"
	// ValidationFailed means that reference solution produced no output.
	ValidationFailed Reason = "validation_failed"
	// InvalidCounterexample means that expected output differs from
	// output of reference solution.
	InvalidCounterexample Reason = "invalid_counterexample"
)

var reasonMessages = map[Reason]string{
	Accepted:              "vote accepted",
	PhaseClosed:           "review phase is closed",
	AlreadyReviewed:       "assignment is not pending",
	MissingTestCase:       "incorrect vote requires test case with input and expected output",
	ValidationFailed:      "execution of the reference solution failed",
	InvalidCounterexample: "the submitted expected output does not match the reference solution",
}

// Message returns human-readable description of reason.
func (r Reason) Message() string {
	return reasonMessages[r]
}

// Retryable returns true if reviewer may resubmit vote for assignment.
func (r Reason) Retryable() bool {
	switch r {
	case MissingTestCase, ValidationFailed, InvalidCounterexample:
		return true
	default:
		return false
	}
}

// VoteResult represents result of vote submission.
type VoteResult struct {
	Accepted     bool
	AssignmentID int64
	Reason       Reason
	Message      string
}

func acceptVote(assignmentID int64) VoteResult {
	return VoteResult{
		Accepted:     true,
		AssignmentID: assignmentID,
		Reason:       Accepted,
		Message:      Accepted.Message(),
	}
}

func rejectVote(assignmentID int64, reason Reason) VoteResult {
	return VoteResult{
		AssignmentID: assignmentID,
		Reason:       reason,
		Message:      reason.Message(),
	}
}

// VoteValidator validates votes and completes assignments.
type VoteValidator struct {
	core        *core.Core
	phases      *PhaseController
	queue       *QueueManager
	assignments *models.AssignmentStore
	executor    executor.Client
	logger      *logs.Logger
	timeout     time.Duration
	retries     int
	backoff     time.Duration
	now         func() time.Time
}

// NewVoteValidator creates a new instance of VoteValidator.
func NewVoteValidator(
	core *core.Core, phases *PhaseController, queue *QueueManager,
) *VoteValidator {
	v := VoteValidator{
		core:        core,
		phases:      phases,
		queue:       queue,
		assignments: core.Assignments,
		executor:    core.Executor,
		logger:      core.Logger(),
		retries:     core.Config.Review.ExecutorRetries,
		backoff:     core.Config.Review.GetRetryBackoff(),
		now:         time.Now,
	}
	executorConfig := config.Executor{}
	if core.Config.Executor != nil {
		executorConfig = *core.Config.Executor
	}
	v.timeout = executorConfig.GetTimeout()
	return &v
}

// PhaseRejection returns rejection of any vote for assignment when
// phase does not accept votes.
func (v *VoteValidator) PhaseRejection(assignmentID int64) (VoteResult, bool) {
	if v.phases.IsOpen() {
		return VoteResult{}, false
	}
	return rejectVote(assignmentID, PhaseClosed), true
}

// SubmitVote validates vote of reviewer and attaches it to assignment.
//
// Rejections are reported in result. Error is returned only when
// vote cannot be processed at all.
func (v *VoteValidator) SubmitVote(
	ctx context.Context, reviewerID, assignmentID int64, vote models.Vote,
) (VoteResult, error) {
	if vote == nil {
		return VoteResult{}, fmt.Errorf("vote is required")
	}
	if !v.phases.IsOpen() {
		return rejectVote(assignmentID, PhaseClosed), nil
	}
	assignment, err := v.assignments.Get(ctx, assignmentID)
	if err != nil {
		if models.IsNotFound(err) {
			return rejectVote(assignmentID, AlreadyReviewed), nil
		}
		return VoteResult{}, err
	}
	if assignment.ReviewerID != reviewerID ||
		assignment.Status != models.PendingAssignment {
		return rejectVote(assignmentID, AlreadyReviewed), nil
	}
	if incorrect, ok := vote.(models.IncorrectVote); ok {
		if reason, ok := v.checkCounterexample(ctx, assignment, incorrect.TestCase); !ok {
			return rejectVote(assignmentID, reason), nil
		}
	}
	// Phase could be closed while reference solution was running,
	// so deadline is checked in the same transaction with commit.
	now := v.now()
	var open, completed bool
	if err := v.core.WrapTx(ctx, func(ctx context.Context) error {
		var err error
		open, err = v.phases.IsOpenAt(ctx, now)
		if err != nil || !open {
			return err
		}
		completed, err = v.assignments.Complete(ctx, assignmentID, reviewerID, vote, now)
		return err
	}); err != nil {
		return VoteResult{}, err
	}
	if !open {
		return rejectVote(assignmentID, PhaseClosed), nil
	}
	if !completed {
		return rejectVote(assignmentID, AlreadyReviewed), nil
	}
	v.logger.Info(
		"Vote accepted",
		logs.Any("assignment_id", assignmentID),
		logs.Any("reviewer_id", reviewerID),
		logs.Any("vote", vote.Kind().String()),
	)
	return acceptVote(assignmentID), nil
}

func (v *VoteValidator) checkCounterexample(
	ctx context.Context, assignment models.Assignment, test models.TestCase,
) (Reason, bool) {
	if test.Input == "" || test.ExpectedOutput == "" {
		return MissingTestCase, false
	}
	logger := v.logger.With(logs.Any("assignment_id", assignment.ID))
	reference, err := v.queue.ReferenceSolutionFor(ctx, assignment.ID)
	if err != nil {
		logger.Error("Cannot get reference solution", err)
		return ValidationFailed, false
	}
	output, err := v.runReference(ctx, reference, test.Input)
	if !v.phases.IsOpen() {
		return PhaseClosed, false
	}
	if err != nil {
		logger.Warn("Reference solution failed", err)
		return ValidationFailed, false
	}
	rule, err := outputs.ParseRule(reference.OutputRule)
	if err != nil {
		logger.Error("Invalid output rule", err)
		return ValidationFailed, false
	}
	if !rule.Equal(test.ExpectedOutput, output) {
		return InvalidCounterexample, false
	}
	return "", true
}

// runReference runs reference solution and retries when execution
// service is unavailable.
func (v *VoteValidator) runReference(
	ctx context.Context, reference models.ReferenceSolution, input string,
) (string, error) {
	if v.executor == nil {
		return "", &executor.Error{
			Kind: executor.Unavailable,
			Err:  errors.New("executor is not configured"),
		}
	}
	backoff := v.backoff
	for attempt := 0; ; attempt++ {
		output, err := v.executor.Run(ctx, reference, input, v.timeout)
		if err == nil || !executor.IsUnavailable(err) || attempt >= v.retries {
			return output, err
		}
		v.logger.Debug(
			"Execution service is unavailable",
			logs.Any("attempt", attempt+1),
			logs.Any("backoff", backoff),
			err,
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
