package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/cv-ranker/internal/config"
	"alfredoptarigan/cv-ranker/internal/logger"
)

// RetryPolicy retries an external call with capped exponential backoff.
// Only errors accepted by Retryable are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int
	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps every wait.
	MaxBackoff time.Duration
	// Multiplier grows the wait between consecutive retries.
	Multiplier float64
	// CallTimeout bounds a single attempt. Zero disables the per-call deadline.
	CallTimeout time.Duration
	// Retryable decides which errors are worth another attempt.
	Retryable func(error) bool
	// OnRetry is called before each wait with the error that caused it.
	OnRetry func(op string, attempt int, err error)

	Logger *zap.Logger
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		CallTimeout:    60 * time.Second,
		Retryable:      IsTransient,
	}
}

func NewRetryPolicy(cfg config.RetryConfig, log *zap.Logger) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: cfg.InitialDelay,
		MaxBackoff:     cfg.MaxDelay,
		Multiplier:     cfg.Multiplier,
		CallTimeout:    cfg.CallTimeout,
		Logger:         log,
	}
	p.ApplyDefaults()
	return p
}

// ApplyDefaults sets default values for unset fields.
func (p *RetryPolicy) ApplyDefaults() {
	defaults := DefaultRetryPolicy()

	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.InitialBackoff < 0 {
		p.InitialBackoff = defaults.InitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = defaults.Multiplier
	}
	if p.Retryable == nil {
		p.Retryable = defaults.Retryable
	}
	p.Logger = logger.OrNop(p.Logger)
}

// Backoff returns the wait before the given retry (1 for the first retry).
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if retry < 1 {
		return 0
	}

	d := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(retry-1))
	if d > float64(p.MaxBackoff) || math.IsInf(d, 0) {
		return p.MaxBackoff
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempt ceiling is reached.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	p.ApplyDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := p.call(ctx, op, fn)
		if err == nil {
			if attempt > 1 {
				p.Logger.Info("provider call recovered after retries",
					zap.String("op", op),
					zap.Int("attempts", attempt),
				)
			}
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s canceled: %w", op, ctxErr)
		}

		lastErr = err
		if !p.Retryable(err) {
			p.Logger.Debug("provider error is not retryable",
				zap.String("op", op),
				zap.String("kind", string(ErrorKindOf(err))),
				zap.Error(err),
			)
			return err
		}

		if attempt == p.MaxAttempts {
			break
		}

		wait := p.Backoff(attempt)
		p.Logger.Warn("retrying provider call after transient error",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if p.OnRetry != nil {
			p.OnRetry(op, attempt, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s canceled: %w", op, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s: %w after %d attempts: %w", op, ErrRetriesExhausted, p.MaxAttempts, lastErr)
}

func (p RetryPolicy) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if p.CallTimeout <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.CallTimeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		var perr *ProviderError
		if !errors.As(err, &perr) || perr.Kind == KindUnknown {
			err = &ProviderError{Op: op, Kind: KindTimeout, Err: err}
		}
	}
	return err
}
