package managers

import (
	"context"
	"time"

	"github.com/udovin/peerreview/internal/core"
	"github.com/udovin/peerreview/internal/models"
)

// SolutionView represents part of solution visible to reviewer.
type SolutionView struct {
	Language string
	Content  string
}

// PendingAssignment represents anonymized assignment in reviewer queue.
type PendingAssignment struct {
	AssignmentID int64
	Handle       string
	Solution     SolutionView
	SubmittedAt  time.Time
}

// AssignmentDetail represents anonymized assignment with its state.
type AssignmentDetail struct {
	PendingAssignment
	Status models.AssignmentStatus
	// Vote contains own vote of reviewer if assignment is completed.
	Vote models.Vote
}

// QueueManager provides review queues of reviewers.
//
// Queue is derived from persistent status of assignments, so it never
// needs separate invalidation.
type QueueManager struct {
	core        *core.Core
	assignments *models.AssignmentStore
	solutions   *models.SolutionStore
	references  *models.ReferenceSolutionStore
	anonymizer  *Anonymizer
	now         func() time.Time
}

// NewQueueManager creates a new instance of QueueManager.
func NewQueueManager(core *core.Core, anonymizer *Anonymizer) *QueueManager {
	return &QueueManager{
		core:        core,
		assignments: core.Assignments,
		solutions:   core.Solutions,
		references:  core.ReferenceSolutions,
		anonymizer:  anonymizer,
		now:         time.Now,
	}
}

// PendingAssignments returns pending assignments of reviewer in order
// of their creation.
func (m *QueueManager) PendingAssignments(
	ctx context.Context, reviewerID int64,
) ([]PendingAssignment, error) {
	assignments, err := m.assignments.FindPendingByReviewer(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	result := make([]PendingAssignment, 0, len(assignments))
	for _, assignment := range assignments {
		view, err := m.makeView(ctx, assignment)
		if err != nil {
			return nil, err
		}
		result = append(result, view)
	}
	return result, nil
}

// CompletedCount returns amount of completed assignments of reviewer.
func (m *QueueManager) CompletedCount(ctx context.Context, reviewerID int64) (int, error) {
	assignments, err := m.assignments.FindByReviewer(ctx, reviewerID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, assignment := range assignments {
		if assignment.Status == models.CompletedAssignment {
			count++
		}
	}
	return count, nil
}

// AssignmentDetail returns assignment of reviewer.
func (m *QueueManager) AssignmentDetail(
	ctx context.Context, reviewerID, assignmentID int64,
) (AssignmentDetail, error) {
	assignment, err := m.getOwnAssignment(ctx, reviewerID, assignmentID)
	if err != nil {
		return AssignmentDetail{}, err
	}
	view, err := m.makeView(ctx, assignment)
	if err != nil {
		return AssignmentDetail{}, err
	}
	return AssignmentDetail{
		PendingAssignment: view,
		Status:            assignment.Status,
		Vote:              assignment.Vote(),
	}, nil
}

// ReferenceSolutionFor returns reference solution for problem
// of assigned solution.
func (m *QueueManager) ReferenceSolutionFor(
	ctx context.Context, assignmentID int64,
) (models.ReferenceSolution, error) {
	solution, err := m.assignedSolution(ctx, assignmentID)
	if err != nil {
		return models.ReferenceSolution{}, err
	}
	reference, err := m.references.GetByProblem(ctx, solution.ProblemID)
	if err != nil {
		if models.IsNotFound(err) {
			return models.ReferenceSolution{}, ErrNotFound
		}
		return models.ReferenceSolution{}, err
	}
	return reference, nil
}

// SolutionAuthorFor returns author of assigned solution.
func (m *QueueManager) SolutionAuthorFor(ctx context.Context, assignmentID int64) (int64, error) {
	solution, err := m.assignedSolution(ctx, assignmentID)
	if err != nil {
		return 0, err
	}
	return solution.AuthorID, nil
}

// ResolveAuthor returns author of solution.
func (m *QueueManager) ResolveAuthor(ctx context.Context, solutionID int64) (int64, error) {
	solution, err := m.solutions.Get(ctx, solutionID)
	if err != nil {
		if models.IsNotFound(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return solution.AuthorID, nil
}

// ReviewerOf returns reviewer of assignment.
func (m *QueueManager) ReviewerOf(ctx context.Context, assignmentID int64) (int64, error) {
	assignment, err := m.assignments.Get(ctx, assignmentID)
	if err != nil {
		if models.IsNotFound(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return assignment.ReviewerID, nil
}

func (m *QueueManager) getOwnAssignment(
	ctx context.Context, reviewerID, assignmentID int64,
) (models.Assignment, error) {
	assignment, err := m.assignments.Get(ctx, assignmentID)
	if err != nil {
		if models.IsNotFound(err) {
			return models.Assignment{}, ErrNotFound
		}
		return models.Assignment{}, err
	}
	// Foreign assignments are indistinguishable from missing ones.
	if assignment.ReviewerID != reviewerID {
		return models.Assignment{}, ErrNotFound
	}
	return assignment, nil
}

func (m *QueueManager) assignedSolution(
	ctx context.Context, assignmentID int64,
) (models.Solution, error) {
	assignment, err := m.assignments.Get(ctx, assignmentID)
	if err != nil {
		if models.IsNotFound(err) {
			return models.Solution{}, ErrNotFound
		}
		return models.Solution{}, err
	}
	solution, err := m.solutions.Get(ctx, assignment.SolutionID)
	if err != nil {
		if models.IsNotFound(err) {
			return models.Solution{}, ErrNotFound
		}
		return models.Solution{}, err
	}
	return solution, nil
}

func (m *QueueManager) makeView(
	ctx context.Context, assignment models.Assignment,
) (PendingAssignment, error) {
	solution, err := m.solutions.Get(ctx, assignment.SolutionID)
	if err != nil {
		return PendingAssignment{}, err
	}
	handle, err := m.anonymizer.HandleFor(ctx, assignment.ReviewerID, solution.AuthorID)
	if err != nil {
		return PendingAssignment{}, err
	}
	return PendingAssignment{
		AssignmentID: assignment.ID,
		Handle:       handle,
		Solution: SolutionView{
			Language: solution.Language,
			Content:  solution.Content,
		},
		SubmittedAt: time.Unix(solution.CreateTime, 0),
	}, nil
}
