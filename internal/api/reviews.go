package api

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/udovin/peerreview/internal/managers"
	"github.com/udovin/peerreview/internal/models"
)

func (v *View) registerReviewHandlers(g *echo.Group) {
	g.GET(
		"/v0/reviews", v.observeReviews,
		v.extractAuth(v.reviewerAuth),
	)
	g.GET(
		"/v0/reviews/:assignment", v.observeReview,
		v.extractAuth(v.reviewerAuth),
	)
	g.POST(
		"/v0/reviews/:assignment/vote", v.submitVote,
		v.extractAuth(v.reviewerAuth),
	)
}

// ReviewSolution represents solution visible to reviewer.
type ReviewSolution struct {
	Language string `json:"language"`
	Content  string `json:"content"`
}

// Vote represents vote of reviewer.
type Vote struct {
	Kind     string           `json:"vote"`
	TestCase *models.TestCase `json:"test_case,omitempty"`
	Note     string           `json:"note,omitempty"`
}

// Review represents anonymized assignment.
type Review struct {
	ID         int64          `json:"id"`
	Handle     string         `json:"handle"`
	Solution   ReviewSolution `json:"solution"`
	SubmitTime int64          `json:"submit_time"`
	Status     string         `json:"status,omitempty"`
	Vote       *Vote          `json:"vote,omitempty"`
}

// Reviews represents review queue of reviewer.
type Reviews struct {
	Reviews   []Review `json:"reviews"`
	Completed int      `json:"completed"`
}

func makeReview(assignment managers.PendingAssignment) Review {
	return Review{
		ID:     assignment.AssignmentID,
		Handle: assignment.Handle,
		Solution: ReviewSolution{
			Language: assignment.Solution.Language,
			Content:  assignment.Solution.Content,
		},
		SubmitTime: assignment.SubmittedAt.Unix(),
	}
}

func makeVote(vote models.Vote) *Vote {
	if vote == nil {
		return nil
	}
	resp := Vote{
		Kind: vote.Kind().String(),
		Note: vote.VoteNote(),
	}
	if incorrect, ok := vote.(models.IncorrectVote); ok {
		test := incorrect.TestCase
		resp.TestCase = &test
	}
	return &resp
}

func (v *View) observeReviews(c echo.Context) error {
	reviewerID := getReviewerID(c)
	ctx := getContext(c)
	pending, err := v.queue.PendingAssignments(ctx, reviewerID)
	if err != nil {
		c.Logger().Error(err)
		return err
	}
	completed, err := v.queue.CompletedCount(ctx, reviewerID)
	if err != nil {
		c.Logger().Error(err)
		return err
	}
	resp := Reviews{
		Reviews:   make([]Review, 0, len(pending)),
		Completed: completed,
	}
	for _, assignment := range pending {
		resp.Reviews = append(resp.Reviews, makeReview(assignment))
	}
	return c.JSON(http.StatusOK, resp)
}

func (v *View) observeReview(c echo.Context) error {
	assignmentID, err := parseIDParam(c, "assignment")
	if err != nil {
		return err
	}
	detail, err := v.queue.AssignmentDetail(
		getContext(c), getReviewerID(c), assignmentID,
	)
	if err != nil {
		if errors.Is(err, managers.ErrNotFound) {
			return errorResponse{
				Code:    http.StatusNotFound,
				Message: "Review not found.",
			}
		}
		c.Logger().Error(err)
		return err
	}
	resp := makeReview(detail.PendingAssignment)
	resp.Status = detail.Status.String()
	resp.Vote = makeVote(detail.Vote)
	return c.JSON(http.StatusOK, resp)
}

const maxNoteLength = 500

// SubmitVoteForm represents form for vote submission.
type SubmitVoteForm struct {
	Vote     string           `json:"vote"`
	TestCase *models.TestCase `json:"test_case,omitempty"`
	Note     string           `json:"note,omitempty"`
}

func (f SubmitVoteForm) Update(vote *models.Vote) error {
	errors := errorFields{}
	var kind models.VoteKind
	if err := kind.UnmarshalText([]byte(f.Vote)); err != nil {
		errors["vote"] = errorField{
			Message: "Vote should be one of: correct, incorrect, skip.",
		}
	}
	if utf8.RuneCountInString(f.Note) > maxNoteLength {
		errors["note"] = errorField{
			Message: "Note is too long.",
		}
	}
	if len(errors) > 0 {
		return errorResponse{
			Code:          http.StatusBadRequest,
			Message:       "Form has invalid fields.",
			InvalidFields: errors,
		}
	}
	switch kind {
	case models.CorrectVoteKind:
		*vote = models.CorrectVote{Note: f.Note}
	case models.SkipVoteKind:
		*vote = models.SkipVote{Note: f.Note}
	case models.IncorrectVoteKind:
		incorrect := models.IncorrectVote{Note: f.Note}
		if f.TestCase != nil {
			incorrect.TestCase = *f.TestCase
		}
		*vote = incorrect
	}
	return nil
}

// VoteResult represents result of vote submission.
type VoteResult struct {
	Accepted     bool   `json:"accepted"`
	AssignmentID int64  `json:"assignment_id"`
	Reason       string `json:"reason"`
	Message      string `json:"message"`
	Retryable    bool   `json:"retryable,omitempty"`
}

var reasonStatusCodes = map[managers.Reason]int{
	managers.Accepted:              http.StatusOK,
	managers.PhaseClosed:           http.StatusForbidden,
	managers.AlreadyReviewed:       http.StatusConflict,
	managers.MissingTestCase:       http.StatusBadRequest,
	managers.ValidationFailed:      http.StatusBadGateway,
	managers.InvalidCounterexample: http.StatusUnprocessableEntity,
}

func (v *View) submitVote(c echo.Context) error {
	assignmentID, err := parseIDParam(c, "assignment")
	// Closed phase rejects any payload.
	if result, ok := v.votes.PhaseRejection(assignmentID); ok {
		return writeVoteResult(c, result)
	}
	if err != nil {
		return err
	}
	var form SubmitVoteForm
	if err := bindForm(c, &form); err != nil {
		return err
	}
	var vote models.Vote
	if err := form.Update(&vote); err != nil {
		return err
	}
	result, err := v.votes.SubmitVote(
		getContext(c), getReviewerID(c), assignmentID, vote,
	)
	if err != nil {
		c.Logger().Error(err)
		return err
	}
	return writeVoteResult(c, result)
}

func writeVoteResult(c echo.Context, result managers.VoteResult) error {
	code, ok := reasonStatusCodes[result.Reason]
	if !ok {
		code = http.StatusInternalServerError
	}
	return c.JSON(code, VoteResult{
		Accepted:     result.Accepted,
		AssignmentID: result.AssignmentID,
		Reason:       string(result.Reason),
		Message:      result.Message,
		Retryable:    result.Reason.Retryable(),
	})
}
