package client

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openrest/restaurants-go/client/throttle"
)

// Transport sends a single HTTP request and returns its response.
// Implementations must abort the call once the request context is
// cancelled; *http.Client satisfies Transport.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// TransportFunc adapts an ordinary function to [Transport].
type TransportFunc func(req *http.Request) (*http.Response, error)

// Do calls f(req).
func (f TransportFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// TransportFactory returns the Transport used for one dispatch.
// It is called once per request.
type TransportFactory func() Transport

// defaultTransport builds the net/http transport used when no
// TransportFactory is configured.
func defaultTransport(opts *options, logFn func() *slog.Logger) (*http.Client, error) {
	hc := &http.Client{}
	if opts.client != nil {
		cpy := *opts.client
		hc = &cpy
	}

	if opts.noFollowRedirects {
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var rt http.RoundTripper
	switch {
	case opts.rt != nil:
		rt = opts.rt
	case hc.Transport != nil:
		rt = hc.Transport
	default:
		rt = http.DefaultTransport
	}

	if opts.throttle != nil {
		throttled, err := throttle.NewRoundTripper(*opts.throttle, logFn, rt)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		rt = throttled
	}
	hc.Transport = rt

	return hc, nil
}
