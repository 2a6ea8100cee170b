package throttle

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// NewRoundTripper returns an http.RoundTripper that holds each request
// until the token bucket described by cfg admits it. logFn is resolved
// per request so the logger can be swapped after construction; a nil
// logger disables the wait logging.
func NewRoundTripper(cfg Config, logFn func() *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if next == nil {
		next = http.DefaultTransport
	}
	if logFn == nil {
		logFn = func() *slog.Logger { return nil }
	}

	t := &throttle{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cfg:     cfg,
		next:    next,
		logFn:   logFn,
	}

	return t, nil
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	if t.limiter.Allow() {
		return t.next.RoundTrip(r)
	}

	logger := t.logFn()
	if logger != nil {
		logger.Info("dispatch throttled", "rate", t.cfg.RPS, "burst", t.cfg.Burst, "url", r.URL.Redacted())
	}

	start := time.Now()
	err := t.limiter.Wait(ctx)
	waited := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("%w after %s: %w", ErrWaitingFailed, waited.Round(time.Millisecond), err)
	}

	if logger != nil {
		logger.Info("dispatch released", "waited", waited.String())
	}

	if err := ctx.Err(); err != nil { // the wait may have used up the deadline
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}
