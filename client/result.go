package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Result is the normalized outcome of a single dispatch. A Result carries
// either Value, or Error together with a non-empty ErrorMessage.
type Result struct {
	Value        json.RawMessage `json:"value,omitempty"`
	Error        string          `json:"error,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

func success(value json.RawMessage) Result {
	return Result{Value: value}
}

func failure(code, message string) Result {
	if message == "" {
		message = fmt.Sprintf("request failed with code %q", code)
	}

	return Result{Error: code, ErrorMessage: message}
}

// OK reports whether the dispatch succeeded.
func (r Result) OK() bool {
	return r.Error == ""
}

// Err returns nil on success, or a *ResultError matching one of
// ErrTimeout, ErrNetworkDown, ErrProtocol or ErrApplication.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}

	return &ResultError{
		Code:    r.Error,
		Message: r.ErrorMessage,
		Err:     sentinelFor(r.Error),
	}
}

// Decode unmarshals the success value into dest, which must be a pointer.
// A failed Result returns its Err.
func (r Result) Decode(dest any) error {
	if err := r.Err(); err != nil {
		return err
	}

	if len(r.Value) == 0 {
		return errors.New("result carries no value")
	}

	if err := json.Unmarshal(r.Value, dest); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}

	return nil
}

// String renders the Result in its wire shape.
func (r Result) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("{%q: %q}", "errorMessage", err.Error())
	}

	return string(b)
}

// ————————————————————————————————————————————————————————————————————

// Dispatch is one in-flight request. It is completed exactly once, by
// whichever of the response and the timeout arrives first; every later
// completion attempt is ignored.
//
// A Dispatch is only obtained from [Client.Do]. The zero value is never
// completed: Done returns a nil channel and Wait fails with
// [ErrNotDispatched].
type Dispatch struct {
	once     sync.Once
	done     chan struct{}
	result   Result
	callback func(Result)
}

func newDispatch(callback func(Result)) *Dispatch {
	return &Dispatch{
		done:     make(chan struct{}),
		callback: callback,
	}
}

// resolve records res if d is still open and reports whether it did.
func (d *Dispatch) resolve(res Result) bool {
	var won bool
	d.once.Do(func() {
		d.result = res
		won = true
		close(d.done)
	})

	return won
}

// notify hands the recorded result to the callback. Only the
// goroutine that won resolve calls it.
func (d *Dispatch) notify() {
	if d.callback != nil {
		d.callback(d.result)
	}
}

// Done returns a channel that is closed once the dispatch completes.
func (d *Dispatch) Done() <-chan struct{} { return d.done }

// Result returns the result and true once the dispatch completed,
// or a zero Result and false while it is still in flight.
func (d *Dispatch) Result() (Result, bool) {
	select {
	case <-d.done:
		return d.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the dispatch completes or ctx ends. Ending ctx
// does not cancel the dispatch.
func (d *Dispatch) Wait(ctx context.Context) (Result, error) {
	if d.done == nil {
		return Result{}, ErrNotDispatched
	}

	select {
	case <-d.done:
		return d.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
