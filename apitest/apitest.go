// Package apitest provides a deterministic restaurants API backend for
// tests and local runs.
//
// Stub the response for a request payload, then point a client at the
// server:
//
//	srv := apitest.New()
//	defer srv.Close()
//
//	srv.RequestFor(map[string]any{"type": "get_restaurant"}).Returns(restaurant)
//	c, err := client.Build(srv.URL())
//
// Requests are matched on their canonical JSON payload. A request with
// no stub is answered with the application error [CodeNoStub]. GET
// /healthz reports how many stubs and calls the backend holds.
package apitest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openrest/restaurants-go/internal/web"
	"github.com/openrest/restaurants-go/internal/web/errs"
	"github.com/openrest/restaurants-go/internal/web/middleware"
	"github.com/openrest/restaurants-go/internal/web/mux"
)

// CodeNoStub is returned for requests nothing was stubbed for.
const CodeNoStub = "no_stub"

// HealthPath answers GET requests with the backend's stub and call counts.
const HealthPath = "/healthz"

// malformedBody is served for stubs set with ProtocolErrors.
const malformedBody = "<html><body>502 Bad Gateway</body></html>"

var errNullRequest = errors.New("request must not be null")

type responseKind int

const (
	kindValue responseKind = iota
	kindError
	kindMalformed
	kindStatus
)

type response struct {
	kind        responseKind
	value       any
	code        string
	description string
	status      int
	delay       time.Duration
}

// Call is a request received by the backend.
type Call struct {
	RequestID string
	Request   json.RawMessage
}

// Backend is the stubbed API as an http.Handler.
type Backend struct {
	app  *mux.App
	path string

	mu    sync.Mutex
	stubs map[string]response
	calls []Call
}

// envelope is the body every client request must carry.
type envelope struct {
	Request json.RawMessage `json:"request" validate:"required"`
}

// NewBackend creates a Backend serving the API on the configured path.
func NewBackend(optFns ...Option) *Backend {
	opts := options{
		path:   "/",
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range optFns {
		opt(&opts)
	}

	muxOpts := []mux.Option{
		mux.WithLogger(opts.logger),
		mux.WithMiddleware(
			middleware.Logger(opts.logger),
			middleware.Errors(opts.logger),
			middleware.Panics(),
		),
	}
	if opts.tracer != nil {
		muxOpts = append(muxOpts, mux.WithTracer(opts.tracer))
	}
	app := mux.New(muxOpts...)

	b := &Backend{
		app:   app,
		path:  opts.path,
		stubs: make(map[string]response),
	}

	app.Post(opts.path, b.handle)
	app.Get(HealthPath, b.health)

	return b
}

// ServeHTTP implements http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.app.ServeHTTP(w, r)
}

// RequestFor starts stubbing the response to request.
func (b *Backend) RequestFor(request any) *Stub {
	key, err := canonicalize(request)
	if err != nil {
		panic(fmt.Sprintf("apitest: request can't be stubbed: %v", err))
	}

	return &Stub{backend: b, key: key}
}

// Reset drops every stub and recorded call.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.stubs)
	b.calls = nil
}

// Calls returns the requests received so far, oldest first.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.calls)
}

func (b *Backend) set(key string, resp response) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stubs[key] = resp
}

func (b *Backend) lookup(key string) (response, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	resp, ok := b.stubs[key]
	return resp, ok
}

func (b *Backend) record(call Call) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, call)
}

func (b *Backend) handle(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var env envelope
	if err := web.Decode(r, &env); err != nil {
		if errs.GetFieldErrors(err) != nil {
			return err
		}
		return errs.New(http.StatusBadRequest, errs.CodeInvalidRequest, err)
	}
	if string(env.Request) == "null" {
		return errs.NewFieldsError("request", errNullRequest)
	}

	key, err := canonicalize(env.Request)
	if err != nil {
		return errs.New(http.StatusBadRequest, errs.CodeInvalidRequest, err)
	}

	b.record(Call{RequestID: mux.GetValues(ctx).RequestID, Request: json.RawMessage(key)})

	ctx, span := mux.AddSpan(ctx, "apitest.stub", attribute.String("apitest.request", key))
	defer span.End()

	resp, ok := b.lookup(key)
	span.SetAttributes(attribute.Bool("apitest.stubbed", ok))
	if !ok {
		return errs.New(http.StatusNotFound, CodeNoStub, fmt.Errorf("no response stubbed for request %s", key))
	}

	if resp.delay > 0 {
		timer := time.NewTimer(resp.delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil
		}
	}

	switch resp.kind {
	case kindError:
		return web.RespondJSON(ctx, w, http.StatusOK, errs.Error{Code: resp.code, Description: resp.description})
	case kindMalformed:
		return web.RespondRaw(ctx, w, http.StatusOK, "text/html", []byte(malformedBody))
	case kindStatus:
		return web.RespondRaw(ctx, w, resp.status, "", nil)
	default:
		return web.RespondJSON(ctx, w, http.StatusOK, struct {
			Value any `json:"value"`
		}{Value: resp.value})
	}
}

func (b *Backend) health(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
	b.mu.Lock()
	status := struct {
		Status string `json:"status"`
		Stubs  int    `json:"stubs"`
		Calls  int    `json:"calls"`
	}{Status: "ok", Stubs: len(b.stubs), Calls: len(b.calls)}
	b.mu.Unlock()

	return web.RespondJSON(ctx, w, http.StatusOK, status)
}

// canonicalize renders v as JSON with object keys sorted, so equal
// payloads map to the same stub regardless of field order.
func canonicalize(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("decoding request: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	return string(canonical), nil
}

// ————————————————————————————————————————————————————————————————————

// Stub configures the response to one request payload. The last call wins.
type Stub struct {
	backend *Backend
	key     string
}

// Returns answers with {"value": value}.
func (s *Stub) Returns(value any) {
	s.backend.set(s.key, response{kind: kindValue, value: value})
}

// ReturnsAfter answers with {"value": value} once delay has passed.
func (s *Stub) ReturnsAfter(value any, delay time.Duration) {
	s.backend.set(s.key, response{kind: kindValue, value: value, delay: delay})
}

// Errors answers with {"error": code, "description": description}.
func (s *Stub) Errors(code, description string) {
	s.backend.set(s.key, response{kind: kindError, code: code, description: description})
}

// ProtocolErrors answers with a body that is not JSON.
func (s *Stub) ProtocolErrors() {
	s.backend.set(s.key, response{kind: kindMalformed})
}

// Status answers with an empty body and the given status code.
func (s *Stub) Status(code int) {
	s.backend.set(s.key, response{kind: kindStatus, status: code})
}

// ————————————————————————————————————————————————————————————————————

// Server is a Backend listening on a local port.
type Server struct {
	*Backend
	srv *httptest.Server
}

// New starts a Server. Call Close when done.
func New(optFns ...Option) *Server {
	b := NewBackend(optFns...)

	return &Server{
		Backend: b,
		srv:     httptest.NewServer(b),
	}
}

// URL returns the API url to build clients with, including the path
// set with [WithPath].
func (s *Server) URL() string {
	return strings.TrimSuffix(s.srv.URL, "/") + s.path
}

// Close shuts the server down, interrupting delayed stubs.
func (s *Server) Close() {
	s.srv.CloseClientConnections()
	s.srv.Close()
}

// ————————————————————————————————————————————————————————————————————

// Option configures a Backend.
type Option func(*options)

type options struct {
	path   string
	logger *slog.Logger
	tracer trace.Tracer
}

// WithPath serves the API on path instead of "/".
func WithPath(path string) Option {
	return func(o *options) {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		o.path = path
	}
}

// WithTracer starts a server span for every call and a child span
// around the stub lookup. The default tracer is a no-op.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithLogger logs every call. The default discards logs.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
