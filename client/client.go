package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/openrest/restaurants-go/client/throttle"
)

// DefaultTimeout bounds a dispatch when WithTimeout is not given.
const DefaultTimeout = 10 * time.Second

// Client dispatches requests to a single API endpoint. It holds only
// immutable configuration and is safe for concurrent use.
type Client struct {
	apiURL    *url.URL
	timeout   time.Duration
	factory   TransportFactory
	userAgent string
	headers   http.Header
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Build creates a Client for apiURL, which must be an absolute http or https URL.
func Build(apiURL string, optFns ...Option) (*Client, error) {
	u, err := parseAPIURL(apiURL)
	if err != nil {
		return nil, err
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		apiURL:    u,
		timeout:   DefaultTimeout,
		userAgent: opts.userAgent,
		headers:   opts.headers,
		logger:    slog.Default(),
		tracer:    noop.NewTracerProvider().Tracer(""),
	}

	if opts.timeout != nil {
		client.timeout = *opts.timeout
	}
	if opts.logger != nil {
		client.logger = opts.logger
	}
	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	switch {
	case opts.factory != nil && opts.usesDefaultTransport():
		return nil, errors.New("transport factory can't be combined with default transport options")
	case opts.factory != nil:
		client.factory = opts.factory
	default:
		hc, err := defaultTransport(&opts, func() *slog.Logger { return client.logger })
		if err != nil {
			return nil, err
		}
		client.factory = func() Transport { return hc }
	}

	return client, nil
}

// Request dispatches request and returns immediately. callback is invoked
// exactly once, from another goroutine, with the normalized result.
func (c *Client) Request(ctx context.Context, request any, callback func(Result)) {
	d := newDispatch(callback)
	go c.dispatch(ctx, request, d)
}

// Do dispatches request and returns the in-flight [Dispatch].
func (c *Client) Do(ctx context.Context, request any) *Dispatch {
	d := newDispatch(nil)
	go c.dispatch(ctx, request, d)
	return d
}

// URL returns the endpoint requests are sent to.
func (c *Client) URL() string {
	return c.apiURL.String()
}

// dispatch races the transport call against the dispatch timer and
// completes d with whichever finishes first.
func (c *Client) dispatch(ctx context.Context, request any, d *Dispatch) {
	ctx, span := c.tracer.Start(ctx, "restaurants.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("url.full", c.apiURL.String())),
	)
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.timeout > 0 {
		timer := time.AfterFunc(c.timeout, func() {
			res := failure(CodeTimeout, fmt.Sprintf("no response from %s within %s", c.apiURL.Host, c.timeout))
			if d.resolve(res) {
				cancel()
				d.notify()
			}
		})
		defer timer.Stop()
	}

	if d.resolve(c.roundTrip(ctx, request)) {
		d.notify()
	}

	res, _ := d.Result()
	if res.OK() {
		span.SetAttributes(attribute.String("restaurants.result", "ok"))
		return
	}
	span.SetAttributes(attribute.String("restaurants.result", res.Error))
	span.SetStatus(codes.Error, res.ErrorMessage)
}

// roundTrip performs the transport call and interprets its outcome.
func (c *Client) roundTrip(ctx context.Context, request any) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = failure(CodeNetworkDown, fmt.Sprintf("transport panic: %v", rec))
		}
	}()

	req, err := c.newRequest(ctx, request)
	if err != nil {
		return failure(CodeProtocol, err.Error())
	}

	t := c.factory()
	if t == nil {
		return failure(CodeNetworkDown, "no transport available")
	}

	resp, err := t.Do(req)
	if err != nil {
		return transportFailure(fmt.Errorf("sending request: %w", err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		_ = resp.Body.Close()
	}()

	return interpret(resp)
}

// newRequest wraps payload in the request envelope and builds the POST.
func (c *Client) newRequest(ctx context.Context, payload any) (*http.Request, error) {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(requestEnvelope{Request: payload}); err != nil {
		return nil, fmt.Errorf("encoding request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL.String(), &body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for k, v := range c.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	return req, nil
}

// interpret turns a received response into a Result. A well-formed
// error envelope wins over the status code; anything else outside 2xx
// is a protocol error.
func interpret(resp *http.Response) Result {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return transportFailure(fmt.Errorf("reading response body: %w", err))
	}
	if len(body) > maxBodySize {
		return failure(CodeProtocol, fmt.Sprintf("response body exceeds %d bytes", maxBodySize))
	}

	env, decodeErr := decodeEnvelope(body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && env.Error != "" {
			return failure(env.Error, env.Description)
		}

		statusErr := &UnexpectedStatusError{
			StatusCode: resp.StatusCode,
			Body:       snippet(body),
			Err:        ErrUnexpectedStatusCode,
		}
		return failure(CodeProtocol, statusErr.Error())
	}

	if decodeErr != nil {
		return failure(CodeProtocol, fmt.Sprintf("decoding response body: %v", decodeErr))
	}

	if env.Error != "" {
		return failure(env.Error, env.Description)
	}

	return success(env.Value)
}

// transportFailure classifies an error raised before a complete
// response was read.
func transportFailure(err error) Result {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, throttle.ErrWaitingFailed) && !errors.Is(err, context.Canceled), // the limiter refuses waits past the deadline
		errors.As(err, &netErr) && netErr.Timeout():
		return failure(CodeTimeout, err.Error())
	}

	return failure(CodeNetworkDown, err.Error())
}

func parseAPIURL(apiURL string) (*url.URL, error) {
	if apiURL == "" {
		return nil, errors.New("api url must not be empty")
	}

	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api url %q has no host", apiURL)
	}

	return u, nil
}
