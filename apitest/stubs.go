package apitest

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

var errEmptyStub = errors.New("stub has no request")

// StubDef describes one stub in a stubs file. Exactly one of Value,
// Error, Malformed or Status applies; Value is used when the others are
// unset.
type StubDef struct {
	Request   any           `yaml:"request"`
	Value     any           `yaml:"value"`
	Error     *ErrorDef     `yaml:"error"`
	Malformed bool          `yaml:"malformed"`
	Status    int           `yaml:"status"`
	Delay     time.Duration `yaml:"delay"`
}

// ErrorDef is an application error answer.
type ErrorDef struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
}

// LoadStubs reads a YAML list of [StubDef] from r and installs them.
// Nothing is installed if any definition is invalid.
//
//	- request: {type: get_restaurant, id: "42"}
//	  value: {id: "42", name: Pizza Place}
//	  delay: 50ms
//	- request: {type: get_restaurant, id: "0"}
//	  error: {code: not_found, description: no such restaurant}
func (b *Backend) LoadStubs(r io.Reader) (int, error) {
	var defs []StubDef
	if err := yaml.NewDecoder(r).Decode(&defs); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("decoding stubs: %w", err)
	}

	keys := make([]string, len(defs))
	resps := make([]response, len(defs))
	for i, def := range defs {
		if def.Request == nil {
			return 0, fmt.Errorf("stub %d: %w", i, errEmptyStub)
		}

		key, err := canonicalize(def.Request)
		if err != nil {
			return 0, fmt.Errorf("stub %d: %w", i, err)
		}

		resp, err := def.response()
		if err != nil {
			return 0, fmt.Errorf("stub %d: %w", i, err)
		}

		keys[i] = key
		resps[i] = resp
	}

	for i := range keys {
		b.set(keys[i], resps[i])
	}

	return len(defs), nil
}

func (d StubDef) response() (response, error) {
	switch {
	case d.Delay < 0:
		return response{}, fmt.Errorf("negative delay %s", d.Delay)
	case d.Error != nil:
		if d.Error.Code == "" {
			return response{}, errors.New("error stub has no code")
		}
		return response{kind: kindError, code: d.Error.Code, description: d.Error.Description, delay: d.Delay}, nil
	case d.Malformed:
		return response{kind: kindMalformed, delay: d.Delay}, nil
	case d.Status != 0:
		if d.Status < 100 || d.Status > 999 {
			return response{}, fmt.Errorf("invalid status %d", d.Status)
		}
		return response{kind: kindStatus, status: d.Status, delay: d.Delay}, nil
	default:
		if _, err := canonicalize(d.Value); err != nil {
			return response{}, fmt.Errorf("value: %w", err)
		}
		return response{kind: kindValue, value: d.Value, delay: d.Delay}, nil
	}
}
