package llm

import (
	"context"
	"time"
)

type retrying struct {
	next     Completer
	attempts int
	backoff  time.Duration
}

// WithRetry wraps c so that rate-limit and availability failures are retried
// up to attempts times in total, sleeping backoff*n before attempt n+1.
// attempts <= 1 returns c unchanged.
func WithRetry(c Completer, attempts int, backoff time.Duration) Completer {
	if attempts <= 1 {
		return c
	}
	return &retrying{next: c, attempts: attempts, backoff: backoff}
}

func (r *retrying) Complete(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, err := r.next.Complete(ctx, req)
		if err == nil || !Retryable(err) {
			return resp, err
		}
		lastErr = err
		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
	return Response{}, lastErr
}
