package managers

import (
	"context"
	"errors"

	"golang.org/x/exp/slices"

	"github.com/udovin/peerreview/internal/models"
	"github.com/udovin/peerreview/internal/pkg/outputs"
)

var (
	// ErrSelfReview means that reviewer is author of solution.
	ErrSelfReview = errors.New("reviewer cannot review own solution")
	// ErrAssignmentExists means that reviewer already has solution assigned.
	ErrAssignmentExists = errors.New("assignment already exists")
)

// CreateSolution registers solution of participant.
func (m *QueueManager) CreateSolution(
	ctx context.Context, solution *models.Solution,
) error {
	if solution.CreateTime == 0 {
		solution.CreateTime = m.now().Unix()
	}
	return m.solutions.Create(ctx, solution)
}

// CreateReferenceSolution registers reference solution of problem.
func (m *QueueManager) CreateReferenceSolution(
	ctx context.Context, reference *models.ReferenceSolution,
) error {
	rule, err := outputs.ParseRule(reference.OutputRule)
	if err != nil {
		return err
	}
	reference.OutputRule = string(rule)
	return m.references.Create(ctx, reference)
}

// CreateAssignment assigns solution to reviewer.
func (m *QueueManager) CreateAssignment(
	ctx context.Context, reviewerID, solutionID int64,
) (models.Assignment, error) {
	solution, err := m.solutions.Get(ctx, solutionID)
	if err != nil {
		if models.IsNotFound(err) {
			return models.Assignment{}, ErrNotFound
		}
		return models.Assignment{}, err
	}
	if solution.AuthorID == reviewerID {
		return models.Assignment{}, ErrSelfReview
	}
	if exists, err := m.hasAssignment(ctx, reviewerID, solutionID); err != nil {
		return models.Assignment{}, err
	} else if exists {
		return models.Assignment{}, ErrAssignmentExists
	}
	assignment := models.Assignment{
		ReviewerID: reviewerID,
		SolutionID: solutionID,
		Status:     models.PendingAssignment,
		CreateTime: m.now().Unix(),
	}
	if err := m.assignments.Create(ctx, &assignment); err != nil {
		// Same pair could be assigned concurrently.
		if exists, checkErr := m.hasAssignment(ctx, reviewerID, solutionID); checkErr == nil && exists {
			return models.Assignment{}, ErrAssignmentExists
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (m *QueueManager) hasAssignment(
	ctx context.Context, reviewerID, solutionID int64,
) (bool, error) {
	assignments, err := m.assignments.FindBySolution(ctx, solutionID)
	if err != nil {
		return false, err
	}
	for _, assignment := range assignments {
		if assignment.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

// AssignReviews distributes solutions of problem among their authors.
//
// Every author gets up to perReviewer solutions of the same problem written
// by other authors. Solutions are taken round-robin starting after own
// solution, so every solution gets a similar amount of reviewers. Existing
// pairs are kept and count towards the limit.
func (m *QueueManager) AssignReviews(
	ctx context.Context, problemID int64, perReviewer int,
) ([]models.Assignment, error) {
	if perReviewer <= 0 {
		perReviewer = m.core.Config.Review.GetReviewsPerSolver()
	}
	var created []models.Assignment
	if err := m.core.WrapTx(ctx, func(ctx context.Context) error {
		solutions, err := m.solutions.FindByProblem(ctx, problemID)
		if err != nil {
			return err
		}
		existing := map[reviewPlan]struct{}{}
		assigned := map[int64]int{}
		for _, solution := range solutions {
			assignments, err := m.assignments.FindBySolution(ctx, solution.ID)
			if err != nil {
				return err
			}
			for _, assignment := range assignments {
				existing[reviewPlan{
					ReviewerID: assignment.ReviewerID,
					SolutionID: solution.ID,
				}] = struct{}{}
				assigned[assignment.ReviewerID]++
			}
		}
		now := m.now().Unix()
		for _, plan := range planReviews(solutions, perReviewer) {
			if _, ok := existing[plan]; ok {
				continue
			}
			if assigned[plan.ReviewerID] >= perReviewer {
				continue
			}
			assignment := models.Assignment{
				ReviewerID: plan.ReviewerID,
				SolutionID: plan.SolutionID,
				Status:     models.PendingAssignment,
				CreateTime: now,
			}
			if err := m.assignments.Create(ctx, &assignment); err != nil {
				return err
			}
			assigned[plan.ReviewerID]++
			created = append(created, assignment)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return created, nil
}

type reviewPlan struct {
	ReviewerID int64
	SolutionID int64
}

// planReviews returns candidate pairs in order of preference.
func planReviews(solutions []models.Solution, perReviewer int) []reviewPlan {
	solutions = slices.Clone(solutions)
	slices.SortFunc(solutions, func(a, b models.Solution) bool {
		return a.ID < b.ID
	})
	var plans []reviewPlan
	seen := map[int64]struct{}{}
	for i, own := range solutions {
		if _, ok := seen[own.AuthorID]; ok {
			continue
		}
		seen[own.AuthorID] = struct{}{}
		count := 0
		for j := 1; j < len(solutions) && count < perReviewer; j++ {
			solution := solutions[(i+j)%len(solutions)]
			if solution.AuthorID == own.AuthorID {
				continue
			}
			plans = append(plans, reviewPlan{
				ReviewerID: own.AuthorID,
				SolutionID: solution.ID,
			})
			count++
		}
	}
	return plans
}
