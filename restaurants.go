// Package restaurants exposes the restaurants API client builder.
package restaurants

import (
	"github.com/openrest/restaurants-go/client"
)

// NewClient instantiates a new *client.Client sending requests to apiURL.
// If not specified, the default http.Client and http.Transport are used.
func NewClient(apiURL string, opts ...client.Option) (*client.Client, error) {
	return client.Build(apiURL, opts...)
}
