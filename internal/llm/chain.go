package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"helder/internal/logger"
)

// ErrChainExhausted is returned when every provider in the chain failed.
var ErrChainExhausted = errors.New("all providers in chain failed")

// ProviderUsage holds per-provider attempt counters.
type ProviderUsage struct {
	Calls     int64         `json:"calls"`
	Successes int64         `json:"successes"`
	Failures  int64         `json:"failures"`
	TotalTime time.Duration `json:"total_time"`
}

type providerStats struct {
	calls     atomic.Int64
	successes atomic.Int64
	failures  atomic.Int64
	timeNanos atomic.Int64
}

// Chain tries providers in order until one produces a usable result.
// A provider failure never propagates to the caller; only exhaustion does.
type Chain struct {
	providers      []Provider
	attemptTimeout time.Duration
	limiter        *rate.Limiter
	stats          map[string]*providerStats
}

// ChainOptions configures a Chain.
type ChainOptions struct {
	AttemptTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
}

// NewChain creates a provider chain. The provider order is the fallback
// order; the first provider is always tried first.
func NewChain(providers []Provider, opts ChainOptions) *Chain {
	timeout := opts.AttemptTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	stats := make(map[string]*providerStats, len(providers))
	for _, p := range providers {
		stats[p.Name()] = &providerStats{}
	}

	return &Chain{
		providers:      providers,
		attemptTimeout: timeout,
		limiter:        limiter,
		stats:          stats,
	}
}

// Providers returns the names of the configured providers in chain order.
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

type attemptResult struct {
	text string
	err  error
}

// Execute runs the chain for one prompt. Each provider gets exactly one
// attempt bounded by the attempt timeout; there are no per-provider
// retries. The optional validate function rejects responses that parse
// but are unusable, which counts as a failed attempt. On success it
// returns the response text and the name of the provider that produced
// it.
func (c *Chain) Execute(ctx context.Context, task Task, prompt string, validate func(string) error) (string, string, error) {
	if len(c.providers) == 0 {
		return "", "", ErrChainExhausted
	}

	for _, provider := range c.providers {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", "", err
			}
		}

		stats := c.stats[provider.Name()]
		stats.calls.Add(1)
		started := time.Now()

		text, err := c.attempt(ctx, provider, task, prompt)
		stats.timeNanos.Add(int64(time.Since(started)))
		if err == nil && validate != nil {
			err = validate(text)
		}
		if err != nil {
			stats.failures.Add(1)
			logger.Debug("Provider attempt failed",
				"provider", provider.Name(),
				"task", string(task),
				"error", err)
			continue
		}

		stats.successes.Add(1)
		return text, provider.Name(), nil
	}

	return "", "", ErrChainExhausted
}

// attempt runs a single provider call under the hard attempt timeout.
// The call runs in its own goroutine so a provider that ignores ctx
// cannot stall the chain past the deadline.
func (c *Chain) attempt(ctx context.Context, provider Provider, task Task, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		text, err := provider.Generate(attemptCtx, task, prompt)
		done <- attemptResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", &AttemptError{Provider: provider.Name(), Task: task, Err: res.err}
		}
		return res.text, nil
	case <-attemptCtx.Done():
		return "", &AttemptError{Provider: provider.Name(), Task: task, Err: attemptCtx.Err()}
	}
}

// Usage returns a snapshot of per-provider attempt counters.
func (c *Chain) Usage() map[string]ProviderUsage {
	usage := make(map[string]ProviderUsage, len(c.stats))
	for name, s := range c.stats {
		usage[name] = ProviderUsage{
			Calls:     s.calls.Load(),
			Successes: s.successes.Load(),
			Failures:  s.failures.Load(),
			TotalTime: time.Duration(s.timeNanos.Load()),
		}
	}
	return usage
}
