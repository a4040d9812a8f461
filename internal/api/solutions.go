package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/udovin/peerreview/internal/managers"
	"github.com/udovin/peerreview/internal/models"
	"github.com/udovin/peerreview/internal/pkg/outputs"
)

func (v *View) registerSocketSolutionHandlers(g *echo.Group) {
	g.POST("/v0/solutions", v.createSolution)
	g.POST("/v0/reference-solutions", v.createReferenceSolution)
	g.POST("/v0/assignments", v.createAssignment)
	g.POST("/v0/problems/:problem/assign", v.assignReviews)
}

// Solution represents solution of participant.
type Solution struct {
	ID         int64  `json:"id"`
	ProblemID  int64  `json:"problem_id"`
	AuthorID   int64  `json:"author_id"`
	Language   string `json:"language"`
	Content    string `json:"content,omitempty"`
	CreateTime int64  `json:"create_time"`
}

// CreateSolutionForm represents form for solution registration.
type CreateSolutionForm struct {
	ProblemID  int64  `json:"problem_id"`
	AuthorID   int64  `json:"author_id"`
	Language   string `json:"language"`
	Content    string `json:"content"`
	CreateTime int64  `json:"create_time,omitempty"`
}

func (f CreateSolutionForm) Update(solution *models.Solution) error {
	errors := errorFields{}
	if f.ProblemID <= 0 {
		errors["problem_id"] = errorField{Message: "Problem ID is required."}
	}
	if f.AuthorID <= 0 {
		errors["author_id"] = errorField{Message: "Author ID is required."}
	}
	if f.Content == "" {
		errors["content"] = errorField{Message: "Content is required."}
	}
	if len(errors) > 0 {
		return errorResponse{
			Code:          http.StatusBadRequest,
			Message:       "Form has invalid fields.",
			InvalidFields: errors,
		}
	}
	solution.ProblemID = f.ProblemID
	solution.AuthorID = f.AuthorID
	solution.Language = f.Language
	solution.Content = f.Content
	solution.CreateTime = f.CreateTime
	return nil
}

func (v *View) createSolution(c echo.Context) error {
	var form CreateSolutionForm
	if err := bindForm(c, &form); err != nil {
		return err
	}
	var solution models.Solution
	if err := form.Update(&solution); err != nil {
		return err
	}
	if err := v.queue.CreateSolution(getContext(c), &solution); err != nil {
		c.Logger().Error(err)
		return err
	}
	return c.JSON(http.StatusCreated, Solution{
		ID:         solution.ID,
		ProblemID:  solution.ProblemID,
		AuthorID:   solution.AuthorID,
		Language:   solution.Language,
		CreateTime: solution.CreateTime,
	})
}

// ReferenceSolution represents reference solution of problem.
type ReferenceSolution struct {
	ID         int64  `json:"id"`
	ProblemID  int64  `json:"problem_id"`
	Language   string `json:"language"`
	OutputRule string `json:"output_rule"`
}

// CreateReferenceSolutionForm represents form for reference solution.
type CreateReferenceSolutionForm struct {
	ProblemID  int64  `json:"problem_id"`
	Language   string `json:"language"`
	Content    string `json:"content"`
	OutputRule string `json:"output_rule,omitempty"`
}

func (f CreateReferenceSolutionForm) Update(reference *models.ReferenceSolution) error {
	errors := errorFields{}
	if f.ProblemID <= 0 {
		errors["problem_id"] = errorField{Message: "Problem ID is required."}
	}
	if f.Content == "" {
		errors["content"] = errorField{Message: "Content is required."}
	}
	if _, err := outputs.ParseRule(f.OutputRule); err != nil {
		errors["output_rule"] = errorField{
			Message: "Output rule should be one of: exact, trim, tokens.",
		}
	}
	if len(errors) > 0 {
		return errorResponse{
			Code:          http.StatusBadRequest,
			Message:       "Form has invalid fields.",
			InvalidFields: errors,
		}
	}
	reference.ProblemID = f.ProblemID
	reference.Language = f.Language
	reference.Content = f.Content
	reference.OutputRule = f.OutputRule
	return nil
}

func (v *View) createReferenceSolution(c echo.Context) error {
	var form CreateReferenceSolutionForm
	if err := bindForm(c, &form); err != nil {
		return err
	}
	var reference models.ReferenceSolution
	if err := form.Update(&reference); err != nil {
		return err
	}
	ctx := getContext(c)
	if _, err := v.core.ReferenceSolutions.GetByProblem(ctx, reference.ProblemID); err == nil {
		return errorResponse{
			Code:    http.StatusConflict,
			Message: "Problem already has reference solution.",
		}
	} else if !models.IsNotFound(err) {
		c.Logger().Error(err)
		return err
	}
	if err := v.queue.CreateReferenceSolution(ctx, &reference); err != nil {
		c.Logger().Error(err)
		return err
	}
	return c.JSON(http.StatusCreated, ReferenceSolution{
		ID:         reference.ID,
		ProblemID:  reference.ProblemID,
		Language:   reference.Language,
		OutputRule: reference.OutputRule,
	})
}

// Assignment represents pairing of reviewer with solution.
type Assignment struct {
	ID         int64  `json:"id"`
	ReviewerID int64  `json:"reviewer_id"`
	SolutionID int64  `json:"solution_id"`
	Status     string `json:"status"`
	CreateTime int64  `json:"create_time"`
}

// Assignments represents list of assignments.
type Assignments struct {
	Assignments []Assignment `json:"assignments"`
}

func makeAssignment(assignment models.Assignment) Assignment {
	return Assignment{
		ID:         assignment.ID,
		ReviewerID: assignment.ReviewerID,
		SolutionID: assignment.SolutionID,
		Status:     assignment.Status.String(),
		CreateTime: assignment.CreateTime,
	}
}

// CreateAssignmentForm represents form for manual assignment.
type CreateAssignmentForm struct {
	ReviewerID int64 `json:"reviewer_id"`
	SolutionID int64 `json:"solution_id"`
}

func (v *View) createAssignment(c echo.Context) error {
	var form CreateAssignmentForm
	if err := bindForm(c, &form); err != nil {
		return err
	}
	if form.ReviewerID <= 0 {
		return errorResponse{
			Code:    http.StatusBadRequest,
			Message: "Form has invalid fields.",
			InvalidFields: errorFields{
				"reviewer_id": errorField{Message: "Reviewer ID is required."},
			},
		}
	}
	assignment, err := v.queue.CreateAssignment(
		getContext(c), form.ReviewerID, form.SolutionID,
	)
	if err != nil {
		switch {
		case errors.Is(err, managers.ErrNotFound):
			return errorResponse{
				Code:    http.StatusNotFound,
				Message: "Solution not found.",
			}
		case errors.Is(err, managers.ErrSelfReview):
			return errorResponse{
				Code:    http.StatusBadRequest,
				Message: "Reviewer cannot review own solution.",
			}
		case errors.Is(err, managers.ErrAssignmentExists):
			return errorResponse{
				Code:    http.StatusConflict,
				Message: "Assignment already exists.",
			}
		}
		c.Logger().Error(err)
		return err
	}
	return c.JSON(http.StatusCreated, makeAssignment(assignment))
}

// AssignReviewsForm represents form for automatic assignment.
type AssignReviewsForm struct {
	// PerReviewer contains amount of reviews per participant.
	PerReviewer int `json:"per_reviewer,omitempty"`
}

func (v *View) assignReviews(c echo.Context) error {
	problemID, err := parseIDParam(c, "problem")
	if err != nil {
		return err
	}
	var form AssignReviewsForm
	if err := bindForm(c, &form); err != nil {
		return err
	}
	assignments, err := v.queue.AssignReviews(getContext(c), problemID, form.PerReviewer)
	if err != nil {
		c.Logger().Error(err)
		return err
	}
	resp := Assignments{
		Assignments: make([]Assignment, 0, len(assignments)),
	}
	for _, assignment := range assignments {
		resp.Assignments = append(resp.Assignments, makeAssignment(assignment))
	}
	return c.JSON(http.StatusOK, resp)
}
