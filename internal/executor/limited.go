package executor

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/udovin/peerreview/internal/models"
)

// LimitedClient bounds amount of outstanding runs and rate of runs.
type LimitedClient struct {
	client  Client
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// NewLimitedClient wraps client with limits.
//
// Non-positive runsPerSecond disables rate limit.
func NewLimitedClient(
	client Client, maxConcurrency int64, runsPerSecond float64,
) *LimitedClient {
	c := LimitedClient{
		client: client,
		sem:    semaphore.NewWeighted(maxConcurrency),
	}
	if runsPerSecond > 0 {
		burst := int(math.Ceil(runsPerSecond))
		c.limiter = rate.NewLimiter(rate.Limit(runsPerSecond), burst)
	}
	return &c
}

// Run waits for free slot and runs reference solution.
func (c *LimitedClient) Run(
	ctx context.Context, reference models.ReferenceSolution,
	input string, timeout time.Duration,
) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", &Error{Kind: Unavailable, Err: err}
	}
	defer c.sem.Release(1)
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &Error{Kind: Unavailable, Err: err}
		}
	}
	return c.client.Run(ctx, reference, input, timeout)
}

var _ Client = (*LimitedClient)(nil)
