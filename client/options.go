package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/openrest/restaurants-go/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	factory           TransportFactory
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	headers           http.Header
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
	tracer            trace.Tracer
}

// usesDefaultTransport reports whether any option only the built-in
// net/http transport understands was set.
func (o *options) usesDefaultTransport() bool {
	return o.client != nil || o.rt != nil || o.throttle != nil || o.noFollowRedirects
}

// WithTransportFactory injects the constructor of the [Transport] used
// for each dispatch. It can't be combined with WithHTTPClient,
// WithRoundTripper, WithThrottle or WithNoFollowRedirects.
func WithTransportFactory(f TransportFactory) Option {
	return func(o *options) error {
		if f == nil {
			return errors.New("transport factory must not be nil")
		}
		o.factory = f
		return nil
	}
}

// WithHTTPClient uses a copy of hc as the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("http client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithRoundTripper sets the [http.RoundTripper] under the default transport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("round tripper must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithTimeout sets how long a dispatch waits for its response before it
// completes with [CodeTimeout]. Zero disables the dispatch timer.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		o.timeout = &d
		return nil
	}
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(header string) Option {
	return func(o *options) error {
		o.userAgent = header
		return nil
	}
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string][]string) Option {
	return func(o *options) error {
		if o.headers == nil {
			o.headers = make(http.Header, len(headers))
		}
		for k, v := range headers {
			for _, element := range v {
				o.headers.Add(k, element)
			}
		}
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting of outgoing requests.
// Time spent waiting for a token counts against the dispatch timeout.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		cfg := throttle.Config{RPS: rps, Burst: burst}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("throttle: %w", err)
		}
		o.throttle = &cfg
		return nil
	}
}

// WithNoFollowRedirects prevents the default transport from following redirects.
// A redirect response is then reported as a protocol error.
func WithNoFollowRedirects() Option {
	return func(o *options) error {
		o.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects the [slog.Logger] used by transport plumbing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTracer starts a client span around every dispatch.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}
