// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// transient failures. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxAttempts = 3

// Transient reports whether an HTTP status code is worth retrying:
// 429 (Too Many Requests) and any 5xx. Other statuses, including the
// remaining 4xx family, are permanent failures.
func Transient(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// DoWithRetry executes an HTTP request, retrying transient failures with
// exponential backoff. Network errors and Transient status codes are
// retried; any other status is returned to the caller on the first attempt.
// The delay before attempt n is RetryBaseDelay * 2^(n-1).
//
// When maxAttempts is 0 the default (3) is used. Before each retry the
// previous response body is drained and closed. If the context is cancelled
// during a backoff wait the function returns ctx.Err(). When all attempts
// fail the last error is returned wrapped with the attempt count; a final
// transient response is returned as-is so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxAttempts int) (*http.Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err == nil && !Transient(resp.StatusCode) {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Host)
			if attempt >= maxAttempts {
				// Exhausted — hand back the transient response as-is.
				return resp, nil
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				slog.Warn("rate limited", "host", req.URL.Host, "attempt", attempt)
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if attempt >= maxAttempts {
			return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
		}

		backoff := time.Duration(math.Pow(2, float64(attempt-1))) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
