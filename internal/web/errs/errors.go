// Package errs defines the errors handlers return and the error
// envelope they are rendered as.
package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// Codes used by the server stack itself.
const (
	CodeInvalidRequest = "invalid_request"
	CodeInternal       = "internal"
)

// Error is a handler failure. It is rendered as the API error
// envelope {"error": Code, "description": Description} with Status.
type Error struct {
	Status      int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"description"`
	FuncName    string `json:"-"`
	FileName    string `json:"-"`
	InnerErr    bool   `json:"-"`
}

// New constructs an error with the given status and application code.
func New(status int, code string, err error) *Error {
	pc, filename, line, _ := runtime.Caller(1)

	return &Error{
		Status:      status,
		Code:        code,
		Description: err.Error(),
		FuncName:    runtime.FuncForPC(pc).Name(),
		FileName:    fmt.Sprintf("%s:%d", filename, line),
	}
}

// NewInternal creates an error whose description is not intended
// to be seen by callers.
func NewInternal(err error) *Error {
	pc, filename, line, _ := runtime.Caller(1)

	return &Error{
		Status:      http.StatusInternalServerError,
		Code:        CodeInternal,
		Description: err.Error(),
		FuncName:    runtime.FuncForPC(pc).Name(),
		FileName:    fmt.Sprintf("%s:%d", filename, line),
		InnerErr:    true,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// IsInternal returns true if the error is internal.
func (e *Error) IsInternal() bool {
	return e.InnerErr
}

// /////////////////////////////////////////////////////////////////////////////////////////////

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors represents a collection of field errors.
type FieldErrors []FieldError

// NewFieldsError creates a fields error.
func NewFieldsError(field string, err error) error {
	return FieldErrors{
		{
			Field: field,
			Err:   err.Error(),
		},
	}
}

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	d, err := json.Marshal(fe)
	if err != nil {
		return err.Error()
	}
	return string(d)
}

// Fields returns the fields that failed validation
func (fe FieldErrors) Fields() map[string]string {
	m := make(map[string]string, len(fe))
	for _, fld := range fe {
		m[fld.Field] = fld.Err
	}
	return m
}

// GetFieldErrors returns the FieldErrors in err's chain, or nil.
func GetFieldErrors(err error) FieldErrors {
	var fe FieldErrors
	if !errors.As(err, &fe) {
		return nil
	}
	return fe
}
