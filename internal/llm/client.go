package llm

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/constants"
	"github.com/kapu/cashier-dialog-gen/internal/util"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

// Client wraps a Provider with the 429 retry discipline, the pause between
// metered calls and a circuit breaker for dead upstreams.
type Client struct {
	provider Provider
	delay    time.Duration
	breaker  *util.CircuitBreaker
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	logger   *zap.Logger
}

type ClientOption func(*Client)

// WithObserver reports outcomes and waits to o.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) { c.observer = o }
}

// WithCircuitBreaker replaces the default breaker. nil disables it.
func WithCircuitBreaker(cb *util.CircuitBreaker) ClientOption {
	return func(c *Client) { c.breaker = cb }
}

// WithSleep replaces the wait function. Tests use it to skip real sleeps.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient builds a completion client. delayAfterCall applies only to
// rate-limited providers.
func NewClient(provider Provider, delayAfterCall time.Duration, logger *zap.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		provider: provider,
		delay:    delayAfterCall,
		breaker: util.NewCircuitBreaker(
			provider.Name(),
			constants.CircuitBreakerConfig.FailureThreshold,
			constants.CircuitBreakerConfig.ResetTimeout,
			logger,
		),
		sleep:  sleepContext,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the wrapped backend.
func (c *Client) Provider() Provider { return c.provider }

// Complete sends req and returns the trimmed reply.
//
// A 429 is retried up to req.MaxRetries times after the wait the body asks for.
// When retries run out a *errors.RateLimitError is returned. Every other
// failure ends the call immediately.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	name := c.provider.Name()
	maxRetries := max(req.MaxRetries, 0)

	for attempt := 0; ; attempt++ {
		if c.breaker != nil && !c.breaker.CanExecute() {
			return "", errors.NewServiceError("completion endpoint unavailable (circuit open)", name, "complete", nil)
		}

		started := c.now()
		text, err := c.provider.Chat(ctx, req)
		elapsed := c.now().Sub(started)

		if err == nil {
			if c.breaker != nil {
				c.breaker.RecordSuccess()
			}
			c.observe(name, OutcomeOK, elapsed)
			c.logger.Debug("Completion received",
				zap.String("provider", name),
				zap.Int("attempt", attempt),
				zap.Int("length", len(text)),
				zap.Duration("elapsed", elapsed),
			)
			if c.provider.RateLimited() && c.delay > 0 {
				if err := c.sleep(ctx, c.delay); err != nil {
					return "", err
				}
			}
			return strings.TrimSpace(text), nil
		}

		var apiErr *errors.APIError
		if stderrors.As(err, &apiErr) && apiErr.IsRateLimited() {
			c.observe(name, OutcomeRateLimited, elapsed)
			daily := IsDailyQuota(apiErr.Body)
			wait := RetryAfter(apiErr.Body)

			if attempt >= maxRetries {
				rlErr := errors.NewRateLimitError(name, daily, wait, apiErr)
				c.logger.Error("Rate limit retries exhausted",
					zap.String("provider", name),
					zap.Bool("daily", daily),
					zap.Int("attempts", attempt+1),
				)
				return "", rlErr
			}

			kind := "per-minute"
			if daily {
				kind = "daily"
			}
			c.logger.Warn("Rate limited, waiting",
				zap.String("provider", name),
				zap.String("kind", kind),
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", maxRetries),
			)
			if c.observer != nil {
				c.observer.ObserveRateLimit(name, daily, wait)
			}
			if err := c.sleep(ctx, wait); err != nil {
				return "", err
			}
			continue
		}

		c.observe(name, OutcomeError, elapsed)
		if c.breaker != nil && ctx.Err() == nil {
			c.breaker.RecordFailure()
		}
		c.logger.Error("Completion failed",
			zap.String("provider", name),
			zap.Error(err),
		)
		return "", err
	}
}

func (c *Client) observe(provider, outcome string, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveCompletion(provider, outcome, elapsed)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
