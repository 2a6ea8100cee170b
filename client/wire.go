package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const contentTypeJSON = "application/json"

// HeaderRequestID carries the per-dispatch correlation id.
const HeaderRequestID = "X-Request-ID"

// requestEnvelope is the body of every outgoing request.
type requestEnvelope struct {
	Request any `json:"request"`
}

// responseEnvelope is the interpreted body of a response: either
// Error (with an optional Description) or Value.
type responseEnvelope struct {
	Value       json.RawMessage
	Error       string
	Description string
}

var errNoValueOrError = errors.New("response carries neither value nor error")

// decodeEnvelope parses body into a responseEnvelope. The body must be a
// JSON object holding a non-empty string "error" or a "value" key.
func decodeEnvelope(body []byte) (responseEnvelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return responseEnvelope{}, err
	}
	if fields == nil {
		return responseEnvelope{}, errors.New("response body is not a JSON object")
	}

	var env responseEnvelope
	if raw, ok := fields["error"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &env.Error); err != nil {
			return responseEnvelope{}, fmt.Errorf("error field: %w", err)
		}

		if raw, ok := fields["description"]; ok && !isNull(raw) {
			if err := json.Unmarshal(raw, &env.Description); err != nil {
				return responseEnvelope{}, fmt.Errorf("description field: %w", err)
			}
		}

		if env.Error != "" {
			return env, nil
		}
	}

	raw, ok := fields["value"]
	if !ok {
		return responseEnvelope{}, errNoValueOrError
	}
	env.Value = raw

	return env, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// snippet trims body for quoting in a diagnostic.
func snippet(body []byte) string {
	if len(body) > maxDiagBodySize {
		body = body[:maxDiagBodySize]
	}

	return strings.TrimSpace(string(body))
}
