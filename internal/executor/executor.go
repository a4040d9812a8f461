// Package executor implements client of code execution service that runs
// reference solutions on reviewer supplied input.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/udovin/peerreview/internal/models"
)

// ErrorKind represents kind of execution failure.
type ErrorKind string

const (
	// CompileError means that reference solution cannot be compiled.
	CompileError ErrorKind = "compile_error"
	// RuntimeError means that reference solution crashed.
	RuntimeError ErrorKind = "runtime_error"
	// Timeout means that reference solution exceeded time limit.
	Timeout ErrorKind = "timeout"
	// Unavailable means that execution service cannot be reached.
	Unavailable ErrorKind = "unavailable"
)

// Error represents execution failure.
//
// Execution failure is never an output mismatch.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Error returns error message.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("executor %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("executor %s", e.Kind)
}

// Unwrap returns wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnavailable returns true if error means that service is unavailable.
func IsUnavailable(err error) bool {
	var execErr *Error
	return errors.As(err, &execErr) && execErr.Kind == Unavailable
}

// Client represents client of code execution service.
type Client interface {
	// Run runs reference solution on input and returns its standard output.
	//
	// Failures are reported as *Error.
	Run(
		ctx context.Context, reference models.ReferenceSolution,
		input string, timeout time.Duration,
	) (string, error)
}

// HTTPClient represents client of code execution service over HTTP.
type HTTPClient struct {
	endpoint string
	client   http.Client
	headers  map[string]string
}

// ClientOption represents option of HTTPClient.
type ClientOption func(*HTTPClient)

// WithHeader adds header to every request.
func WithHeader(key, value string) ClientOption {
	return func(c *HTTPClient) {
		c.headers[key] = value
	}
}

// NewHTTPClient returns new client of execution service.
func NewHTTPClient(endpoint string, options ...ClientOption) *HTTPClient {
	c := HTTPClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		headers:  map[string]string{},
	}
	for _, option := range options {
		option(&c)
	}
	return &c
}

type runRequest struct {
	ReferenceSolutionID int64  `json:"reference_solution_id"`
	Language            string `json:"language"`
	Source              string `json:"source"`
	Input               string `json:"input"`
	TimeoutMS           int64  `json:"timeout_ms"`
}

type runResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// Run runs reference solution using execution service.
//
// The call does not outlive specified timeout. Client does not retry.
func (c *HTTPClient) Run(
	ctx context.Context, reference models.ReferenceSolution,
	input string, timeout time.Duration,
) (string, error) {
	data, err := json.Marshal(runRequest{
		ReferenceSolutionID: reference.ID,
		Language:            reference.Language,
		Source:              reference.Content,
		Input:               input,
		TimeoutMS:           timeout.Milliseconds(),
	})
	if err != nil {
		return "", err
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(
		runCtx, http.MethodPost, c.endpoint+"/v0/run", bytes.NewReader(data),
	)
	if err != nil {
		return "", &Error{Kind: Unavailable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", &Error{Kind: Timeout, Err: err}
		}
		return "", &Error{Kind: Unavailable, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Kind: Unavailable,
			Err:  fmt.Errorf("unexpected status: %d", resp.StatusCode),
		}
	}
	var respData runResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", &Error{Kind: Timeout, Err: err}
		}
		return "", &Error{Kind: Unavailable, Err: err}
	}
	switch kind := ErrorKind(respData.Error); kind {
	case "":
		return respData.Output, nil
	case CompileError, RuntimeError, Timeout:
		return "", &Error{Kind: kind}
	default:
		return "", &Error{
			Kind: Unavailable,
			Err:  fmt.Errorf("unknown error: %q", respData.Error),
		}
	}
}

var _ Client = (*HTTPClient)(nil)
