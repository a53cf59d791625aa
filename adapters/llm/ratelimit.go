package llm

import (
	"context"
	"math"

	"excelinsights/ports"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to the wrapped client. Callers block until a
// token is available or their context ends.
type RateLimited struct {
	next    ports.LLMClient
	limiter *rate.Limiter
}

func NewRateLimited(next ports.LLMClient, requestsPerSecond float64) *RateLimited {
	burst := int(math.Ceil(requestsPerSecond))
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (c *RateLimited) Model() string { return c.next.Model() }

func (c *RateLimited) ChatCompletion(ctx context.Context, req ports.ChatRequest) (*ports.LLMResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.ChatCompletion(ctx, req)
}
