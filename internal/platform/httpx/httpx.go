// Package httpx holds the outbound HTTP helpers shared by the OpenAI and
// uploader clients: status errors, retry classification and backoff.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusError is a non-2xx response from an outbound call.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s http %d", e.Service, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// StatusCodeOf returns the status carried anywhere in err's chain, or 0.
func StatusCodeOf(err error) int {
	var sc interface{ HTTPStatusCode() int }
	if errors.As(err, &sc) {
		return sc.HTTPStatusCode()
	}
	return 0
}

// IsRetryableError reports whether a failed call is worth repeating:
// timeouts, 408, 429 and 5xx. Cancellation never is.
func IsRetryableError(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	switch code := StatusCodeOf(err); {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	default:
		return code >= 500 && code <= 599
	}
}

// RetryAfterDuration honours a Retry-After header in seconds or HTTP-date
// form, falling back to fallback and never exceeding limit.
func RetryAfterDuration(resp *http.Response, fallback, limit time.Duration) time.Duration {
	d := fallback
	if resp != nil {
		ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			d = time.Duration(secs) * time.Second
		} else if at, err := http.ParseTime(ra); err == nil {
			if until := time.Until(at); until > 0 {
				d = until
			}
		}
	}
	if limit > 0 && d > limit {
		d = limit
	}
	return d
}

// JitterSleep spreads base uniformly over [0.8*base, 1.2*base].
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	spread := float64(base) * 0.4
	return time.Duration(float64(base)*0.8 + rand.Float64()*spread)
}

// Snippet reads at most n bytes of r for error messages.
func Snippet(r io.Reader, n int64) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, n))
	return strings.TrimSpace(string(b))
}
