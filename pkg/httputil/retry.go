package httputil

import (
	"context"
	"fmt"
	"net/http"
	"time"

	merrors "github.com/matzehuels/masonry/pkg/errors"
)

// MaxDelay caps the backoff between attempts.
const MaxDelay = 5 * time.Second

// IsRetryable reports whether err carries a temporary error code
// (network, timeout or rate limit).
func IsRetryable(err error) bool {
	return err != nil && merrors.GetCode(err).Temporary()
}

// Retry calls fn up to attempts times. Retryable failures wait delay,
// doubling up to MaxDelay, before the next call; any other error is
// returned at once. A cancelled ctx ends the wait with ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	for i := 1; ; i++ {
		err := fn()
		if err == nil || !IsRetryable(err) || i == attempts {
			return err
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay = min(2*delay, MaxDelay)
	}
}

// StatusError maps a non-2xx status to a coded error, or nil for 2xx.
// msg is the server's message; the status text is used when it is empty.
func StatusError(status int, msg string) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return merrors.New(statusCode(status), "%s", fmt.Sprintf("status %d: %s", status, msg))
}

func statusCode(status int) merrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return merrors.ErrCodeUnauthorized
	case http.StatusForbidden:
		return merrors.ErrCodeForbidden
	case http.StatusNotFound:
		return merrors.ErrCodeNotFound
	case http.StatusTooManyRequests:
		return merrors.ErrCodeRateLimited
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return merrors.ErrCodeTimeout
	}
	if status >= 500 {
		return merrors.ErrCodeNetwork
	}
	return merrors.ErrCodeInvalidInput
}
