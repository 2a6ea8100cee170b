package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openrest/restaurants-go/internal/web/errs"
	"github.com/openrest/restaurants-go/internal/web/middleware"
)

func TestErrors(t *testing.T) {
	tests := map[string]struct {
		handlerErr error
		expStatus  int
		expBody    map[string]string
	}{
		"app error": {
			handlerErr: errs.New(http.StatusNotFound, "not_found", fmt.Errorf("no such restaurant")),
			expStatus:  http.StatusNotFound,
			expBody:    map[string]string{"error": "not_found", "description": "no such restaurant"},
		},
		"internal error is obscured": {
			handlerErr: errs.NewInternal(fmt.Errorf("secret db error")),
			expStatus:  http.StatusInternalServerError,
			expBody:    map[string]string{"error": errs.CodeInternal, "description": http.StatusText(http.StatusInternalServerError)},
		},
		"plain error is obscured": {
			handlerErr: fmt.Errorf("unexpected failure"),
			expStatus:  http.StatusInternalServerError,
			expBody:    map[string]string{"error": errs.CodeInternal, "description": http.StatusText(http.StatusInternalServerError)},
		},
		"field errors": {
			handlerErr: errs.NewFieldsError("request", fmt.Errorf("request is a required field")),
			expStatus:  http.StatusUnprocessableEntity,
			expBody: map[string]string{
				"error":       errs.CodeInvalidRequest,
				"description": `[{"field":"request","error":"request is a required field"}]`,
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mw := middleware.Errors(slog.New(slog.DiscardHandler))
			handler := mw(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				return tc.handlerErr
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", nil)

			if err := handler(r.Context(), w, r); err != nil {
				t.Fatalf("unexpected error from middleware: %v", err)
			}

			if w.Code != tc.expStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.expStatus)
			}

			var got map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("body should be the error envelope: %v", err)
			}
			if diff := cmp.Diff(tc.expBody, got); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrors_NoError(t *testing.T) {
	mw := middleware.Errors(slog.New(slog.DiscardHandler))
	handler := mw(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		w.WriteHeader(http.StatusOK)
		return nil
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	if err := handler(r.Context(), w, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("body = %q, want empty", w.Body.String())
	}
}

func TestErrors_LogsFields(t *testing.T) {
	var buf bytes.Buffer
	mw := middleware.Errors(slog.New(slog.NewJSONHandler(&buf, nil)))
	handler := mw(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.NewFieldsError("request", fmt.Errorf("request must not be null"))
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)

	if err := handler(r.Context(), w, r); err != nil {
		t.Fatalf("unexpected error from middleware: %v", err)
	}

	if want := `"fields":{"request":"request must not be null"}`; !strings.Contains(buf.String(), want) {
		t.Errorf("log = %s, want it to contain %s", buf.String(), want)
	}
}
