package apitest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/openrest/restaurants-go/apitest"
	"github.com/openrest/restaurants-go/client"
)

type getRestaurant struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type restaurant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func post(t *testing.T, url, body string) (int, string, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-1")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	return resp.StatusCode, resp.Header.Get("Content-Type"), string(b)
}

func TestServer_Responses(t *testing.T) {
	req := getRestaurant{Type: "get_restaurant", ID: "42"}

	tests := map[string]struct {
		stub      func(*apitest.Stub)
		expStatus int
		expType   string
		expBody   string
	}{
		"value": {
			stub:      func(s *apitest.Stub) { s.Returns(restaurant{ID: "42", Name: "Pizza Place"}) },
			expStatus: http.StatusOK,
			expType:   "application/json",
			expBody:   `{"value":{"id":"42","name":"Pizza Place"}}`,
		},
		"null value": {
			stub:      func(s *apitest.Stub) { s.Returns(nil) },
			expStatus: http.StatusOK,
			expType:   "application/json",
			expBody:   `{"value":null}`,
		},
		"application error": {
			stub:      func(s *apitest.Stub) { s.Errors("not_found", "no such restaurant") },
			expStatus: http.StatusOK,
			expType:   "application/json",
			expBody:   `{"error":"not_found","description":"no such restaurant"}`,
		},
		"malformed": {
			stub:      func(s *apitest.Stub) { s.ProtocolErrors() },
			expStatus: http.StatusOK,
			expType:   "text/html",
			expBody:   "<html><body>502 Bad Gateway</body></html>",
		},
		"status": {
			stub:      func(s *apitest.Stub) { s.Status(http.StatusServiceUnavailable) },
			expStatus: http.StatusServiceUnavailable,
			expBody:   "",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			srv := apitest.New()
			defer srv.Close()

			tc.stub(srv.RequestFor(req))

			status, contentType, body := post(t, srv.URL(), `{"request":{"id":"42","type":"get_restaurant"}}`)

			if status != tc.expStatus {
				t.Errorf("status = %d, want %d", status, tc.expStatus)
			}
			if tc.expType != "" && contentType != tc.expType {
				t.Errorf("Content-Type = %q, want %q", contentType, tc.expType)
			}
			if body != tc.expBody {
				t.Errorf("body = %s, want %s", body, tc.expBody)
			}
		})
	}
}

func TestServer_NoStub(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	status, _, body := post(t, srv.URL(), `{"request":{"type":"unknown"}}`)

	if status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", status, http.StatusNotFound)
	}

	var env map[string]string
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("body should be the error envelope: %v", err)
	}
	if env["error"] != apitest.CodeNoStub {
		t.Errorf("error = %q, want %q", env["error"], apitest.CodeNoStub)
	}
	if !strings.Contains(env["description"], `{"type":"unknown"}`) {
		t.Errorf("description should quote the request, got %q", env["description"])
	}
}

func TestServer_InvalidEnvelope(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	tests := map[string]struct {
		body      string
		expStatus int
	}{
		"missing request": {body: `{}`, expStatus: http.StatusUnprocessableEntity},
		"null request":    {body: `{"request":null}`, expStatus: http.StatusUnprocessableEntity},
		"unknown field":   {body: `{"request":1,"extra":1}`, expStatus: http.StatusBadRequest},
		"not json":        {body: `request`, expStatus: http.StatusBadRequest},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			status, _, body := post(t, srv.URL(), tc.body)

			if status != tc.expStatus {
				t.Errorf("status = %d, want %d", status, tc.expStatus)
			}
			if !strings.Contains(body, `"error":"invalid_request"`) {
				t.Errorf("body = %s, want invalid_request envelope", body)
			}
		})
	}
}

func TestServer_CallsAndReset(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	srv.RequestFor(map[string]any{"type": "ping"}).Returns("pong")

	post(t, srv.URL(), `{"request":{"type":"ping"}}`)
	post(t, srv.URL(), `{"request":{"type":"other"}}`)

	want := []apitest.Call{
		{RequestID: "req-1", Request: json.RawMessage(`{"type":"ping"}`)},
		{RequestID: "req-1", Request: json.RawMessage(`{"type":"other"}`)},
	}
	if diff := cmp.Diff(want, srv.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	srv.Reset()

	if got := len(srv.Calls()); got != 0 {
		t.Errorf("calls after reset = %d, want 0", got)
	}

	status, _, _ := post(t, srv.URL(), `{"request":{"type":"ping"}}`)
	if status != http.StatusNotFound {
		t.Errorf("status after reset = %d, want %d", status, http.StatusNotFound)
	}
}

func TestServer_LastStubWins(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	srv.RequestFor("ping").Returns("first")
	srv.RequestFor("ping").Returns("second")

	_, _, body := post(t, srv.URL(), `{"request":"ping"}`)
	if body != `{"value":"second"}` {
		t.Errorf("body = %s, want %s", body, `{"value":"second"}`)
	}
}

func TestServer_ReturnsAfter(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	delay := 50 * time.Millisecond
	srv.RequestFor("slow").ReturnsAfter("done", delay)

	start := time.Now()
	_, _, body := post(t, srv.URL(), `{"request":"slow"}`)

	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("response came after %v, want at least %v", elapsed, delay)
	}
	if body != `{"value":"done"}` {
		t.Errorf("body = %s, want %s", body, `{"value":"done"}`)
	}
}

func TestServer_WithPath(t *testing.T) {
	tests := map[string]struct {
		path   string
		expURL string
	}{
		"default":        {path: "", expURL: "/"},
		"absolute":       {path: "/api/v1", expURL: "/api/v1"},
		"missing slash":  {path: "v1", expURL: "/v1"},
		"trailing slash": {path: "/v1/", expURL: "/v1/"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var opts []apitest.Option
			if tc.path != "" {
				opts = append(opts, apitest.WithPath(tc.path))
			}
			srv := apitest.New(opts...)
			defer srv.Close()

			if !strings.HasSuffix(srv.URL(), tc.expURL) || !strings.HasPrefix(srv.URL(), "http://") {
				t.Fatalf("URL() = %q, want it to end in %q", srv.URL(), tc.expURL)
			}

			srv.RequestFor("ping").Returns("pong")

			c, err := client.Build(srv.URL())
			if err != nil {
				t.Fatalf("Build: %v", err)
			}

			res, err := c.Do(t.Context(), "ping").Wait(t.Context())
			if err != nil {
				t.Fatalf("Wait: %v", err)
			}
			if string(res.Value) != `"pong"` {
				t.Errorf("result = %v, want value \"pong\"", res)
			}
		})
	}
}

func TestServer_Health(t *testing.T) {
	srv := apitest.New(apitest.WithPath("/api"))
	defer srv.Close()

	srv.RequestFor("ping").Returns("pong")
	post(t, srv.URL(), `{"request":"ping"}`)

	resp, err := http.Get(strings.TrimSuffix(srv.URL(), "/api") + apitest.HealthPath)
	if err != nil {
		t.Fatalf("GET %s: %v", apitest.HealthPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"status":"ok","stubs":1,"calls":1}`; string(b) != want {
		t.Errorf("body = %s, want %s", b, want)
	}
}

// spanRecorder records the names of the spans started through it.
type spanRecorder struct {
	noop.Tracer

	mu    sync.Mutex
	names []string
}

func (r *spanRecorder) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()

	return r.Tracer.Start(ctx, name, opts...)
}

func (r *spanRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.names)
}

func TestServer_WithTracer(t *testing.T) {
	tracer := &spanRecorder{}

	srv := apitest.New(apitest.WithTracer(tracer))
	defer srv.Close()

	srv.RequestFor("ping").Returns("pong")
	post(t, srv.URL(), `{"request":"ping"}`)

	want := []string{"mux.handler", "apitest.stub"}
	if diff := cmp.Diff(want, tracer.Names()); diff != "" {
		t.Errorf("spans mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestFor_Unencodable(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("exp panic for a request that can't be encoded")
		}
	}()

	srv.RequestFor(make(chan int))
}
