// Package restytransport sends restaurants client dispatches through a
// resty client.
package restytransport

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/openrest/restaurants-go/client"
)

// Transport adapts a resty.Client to client.Transport.
type Transport struct {
	client *resty.Client
}

// New creates a Transport over a fresh resty client. A zero timeout
// leaves the dispatch timer as the only bound.
func New(timeout time.Duration) *Transport {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}

	return &Transport{client: c}
}

// NewFromClient wraps an existing resty client.
func NewFromClient(c *resty.Client) *Transport {
	return &Transport{client: c}
}

// Factory returns a client.TransportFactory handing out t for every dispatch.
func Factory(t *Transport) client.TransportFactory {
	return func() client.Transport { return t }
}

// Do sends req through resty and returns the unparsed response. The
// caller owns the response body.
func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		_ = req.Body.Close()
		body = b
	}

	r := t.client.R().
		SetContext(req.Context()).
		SetDoNotParseResponse(true)

	for k, vs := range req.Header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	if body != nil {
		r.SetBody(body)
	}

	resp, err := r.Execute(req.Method, req.URL.String())
	if err != nil {
		return nil, err
	}

	return resp.RawResponse, nil
}
