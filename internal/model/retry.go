package model

import (
	"context"
	"errors"
	"time"
)

// #region constants

const maxRetries = 2 // max 2 retries = 3 total attempts

// #endregion constants

// #region retrier

// Retrier wraps a Generator with bounded retry and backoff for transient
// upstream failures. Permanent failures surface immediately.
type Retrier struct {
	inner   Generator
	backoff time.Duration
}

// NewRetrier wraps gen. backoff is the delay before the first retry and
// doubles per attempt; zero disables the wait (useful in tests).
func NewRetrier(gen Generator, backoff time.Duration) *Retrier {
	return &Retrier{inner: gen, backoff: backoff}
}

// Generate retries transient upstream failures up to the fixed bound.
func (r *Retrier) Generate(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	wait := r.backoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 && wait > 0 {
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var ue *UpstreamError
		if !errors.As(err, &ue) || !ue.Transient {
			return Response{}, err
		}
	}
	return Response{}, lastErr
}

// #endregion retrier
