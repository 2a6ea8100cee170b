package client

import (
	"errors"
	"fmt"
	"net/http"
)

// maxBodySize caps the amount of response body read for a single
// dispatch. A larger body is reported as a protocol error.
const maxBodySize = 4 << 20 // 4MB

// maxDiagBodySize caps how much of an unexpected body is quoted
// in a protocol diagnostic.
const maxDiagBodySize = 512

// Result codes produced by the dispatcher itself. Any other non-empty
// code was supplied by the server.
const (
	CodeTimeout     = "timeout"
	CodeNetworkDown = "network_down"
	CodeProtocol    = "protocol"
)

var (
	// ErrTimeout is matched by a [ResultError] with [CodeTimeout].
	ErrTimeout = errors.New("request timed out")
	// ErrNetworkDown is matched by a [ResultError] with [CodeNetworkDown].
	ErrNetworkDown = errors.New("network down")
	// ErrProtocol is matched by a [ResultError] with [CodeProtocol].
	ErrProtocol = errors.New("protocol error")
	// ErrApplication is matched by a [ResultError] carrying a server supplied code.
	ErrApplication = errors.New("application error")
)

// ErrNotDispatched is returned by [Dispatch.Wait] on a Dispatch that
// did not come from [Client.Do].
var ErrNotDispatched = errors.New("dispatch not started")

// ResultError is the error form of a failed [Result].
type ResultError struct {
	Code    string
	Message string
	Err     error
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ResultError) Unwrap() error {
	return e.Err
}

// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// UnexpectedStatusError describes a non-2xx response whose body could
// not be read as an error envelope.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v: %d %s", e.Err, e.StatusCode, http.StatusText(e.StatusCode))
	}

	return fmt.Sprintf("%v: %d %s, body: %s", e.Err, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

// sentinelFor maps a result code onto the sentinel matched by its ResultError.
func sentinelFor(code string) error {
	switch code {
	case CodeTimeout:
		return ErrTimeout
	case CodeNetworkDown:
		return ErrNetworkDown
	case CodeProtocol:
		return ErrProtocol
	default:
		return ErrApplication
	}
}
