package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Client represents client for review API.
type Client struct {
	endpoint string
	client   http.Client
	Headers  map[string]string
}

type ClientOption func(*Client)

// WithReviewer sets reviewer that performs requests.
func WithReviewer(id int64) ClientOption {
	return func(c *Client) {
		c.Headers[reviewerHeader] = strconv.FormatInt(id, 10)
	}
}

func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.client.Transport = transport
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// NewClient returns new API client.
func NewClient(endpoint string, options ...ClientOption) *Client {
	c := Client{
		endpoint: endpoint,
		client: http.Client{
			Timeout: 5 * time.Second,
		},
		Headers: map[string]string{},
	}
	for _, option := range options {
		option(&c)
	}
	return &c
}

func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.getURL("/ping"), nil,
	)
	if err != nil {
		return err
	}
	_, err = c.doRequest(req, http.StatusOK, nil)
	return err
}

func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.getURL("/health"), nil,
	)
	if err != nil {
		return err
	}
	_, err = c.doRequest(req, http.StatusOK, nil)
	return err
}

func (c *Client) ObserveReviews(ctx context.Context) (Reviews, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.getURL("/v0/reviews"), nil,
	)
	if err != nil {
		return Reviews{}, err
	}
	var respData Reviews
	_, err = c.doRequest(req, http.StatusOK, &respData)
	return respData, err
}

func (c *Client) ObserveReview(ctx context.Context, id int64) (Review, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.getURL("/v0/reviews/%d", id), nil,
	)
	if err != nil {
		return Review{}, err
	}
	var respData Review
	_, err = c.doRequest(req, http.StatusOK, &respData)
	return respData, err
}

// SubmitVote submits vote for assignment.
//
// Rejected votes are returned as result without error.
func (c *Client) SubmitVote(
	ctx context.Context, id int64, form SubmitVoteForm,
) (VoteResult, error) {
	data, err := json.Marshal(form)
	if err != nil {
		return VoteResult{}, err
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.getURL("/v0/reviews/%d/vote", id),
		bytes.NewReader(data),
	)
	if err != nil {
		return VoteResult{}, err
	}
	var respData VoteResult
	_, err = c.doRequest(req, http.StatusOK, &respData)
	var resp *errorResponse
	if errors.As(err, &resp) && resp.Reason != "" {
		return VoteResult{
			AssignmentID: id,
			Reason:       resp.Reason,
			Message:      resp.Message,
			Retryable:    resp.Retryable,
		}, nil
	}
	return respData, err
}

func (c *Client) ObservePhase(ctx context.Context) (Phase, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.getURL("/v0/phase"), nil,
	)
	if err != nil {
		return Phase{}, err
	}
	var respData Phase
	_, err = c.doRequest(req, http.StatusOK, &respData)
	return respData, err
}

func (c *Client) OpenPhase(ctx context.Context, form OpenPhaseForm) (Phase, error) {
	var respData Phase
	err := c.doJSON(ctx, http.MethodPost, "/v0/phase", form, http.StatusCreated, &respData)
	return respData, err
}

func (c *Client) ClosePhase(ctx context.Context) (Phase, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodDelete, c.getURL("/v0/phase"), nil,
	)
	if err != nil {
		return Phase{}, err
	}
	var respData Phase
	_, err = c.doRequest(req, http.StatusOK, &respData)
	return respData, err
}

func (c *Client) CreateSolution(
	ctx context.Context, form CreateSolutionForm,
) (Solution, error) {
	var respData Solution
	err := c.doJSON(ctx, http.MethodPost, "/v0/solutions", form, http.StatusCreated, &respData)
	return respData, err
}

func (c *Client) CreateReferenceSolution(
	ctx context.Context, form CreateReferenceSolutionForm,
) (ReferenceSolution, error) {
	var respData ReferenceSolution
	err := c.doJSON(
		ctx, http.MethodPost, "/v0/reference-solutions", form,
		http.StatusCreated, &respData,
	)
	return respData, err
}

func (c *Client) CreateAssignment(
	ctx context.Context, form CreateAssignmentForm,
) (Assignment, error) {
	var respData Assignment
	err := c.doJSON(ctx, http.MethodPost, "/v0/assignments", form, http.StatusCreated, &respData)
	return respData, err
}

func (c *Client) AssignReviews(
	ctx context.Context, problemID int64, form AssignReviewsForm,
) (Assignments, error) {
	var respData Assignments
	err := c.doJSON(
		ctx, http.MethodPost, fmt.Sprintf("/v0/problems/%d/assign", problemID),
		form, http.StatusOK, &respData,
	)
	return respData, err
}

func (c *Client) getURL(path string, args ...any) string {
	return c.endpoint + fmt.Sprintf(path, args...)
}

func (c *Client) doJSON(
	ctx context.Context, method, path string, form any, code int, respData any,
) error {
	data, err := json.Marshal(form)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(
		ctx, method, c.getURL("%s", path), bytes.NewReader(data),
	)
	if err != nil {
		return err
	}
	_, err = c.doRequest(req, code, respData)
	return err
}

func (c *Client) doRequest(req *http.Request, code int, respData any) (*http.Response, error) {
	if len(req.Header.Get("Content-Type")) == 0 {
		req.Header.Add("Content-Type", "application/json")
	}
	for key, value := range c.Headers {
		req.Header.Add(key, value)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != code {
		var respData errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
			return nil, errorWithCode{
				Err:  err,
				Code: resp.StatusCode,
			}
		}
		respData.Code = resp.StatusCode
		return nil, &respData
	}
	if respData != nil {
		return nil, json.NewDecoder(resp.Body).Decode(respData)
	}
	return resp, nil
}

type errorWithCode struct {
	Err  error
	Code int
}

func (r errorWithCode) Error() string {
	return r.Err.Error()
}

func (r errorWithCode) Unwrap() error {
	return r.Err
}

func (r errorWithCode) StatusCode() int {
	return r.Code
}
