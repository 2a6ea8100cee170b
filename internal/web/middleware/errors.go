package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path"

	"github.com/openrest/restaurants-go/internal/web"
	"github.com/openrest/restaurants-go/internal/web/errs"
	"github.com/openrest/restaurants-go/internal/web/mux"
)

// Errors renders errors coming out of the call chain as the API error envelope.
func Errors(log *slog.Logger) mux.Middleware {
	m := func(handler mux.Handler) mux.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			reqLog := log.With("trace_id", mux.GetValues(ctx).TraceID)

			if fieldErrs := errs.GetFieldErrors(err); fieldErrs != nil {
				reqLog.Info("invalid request", "fields", fieldErrs.Fields())
				return web.RespondError(ctx, w, &errs.Error{
					Status:      http.StatusUnprocessableEntity,
					Code:        errs.CodeInvalidRequest,
					Description: fieldErrs.Error(),
				})
			}

			var appErr *errs.Error
			if !errors.As(err, &appErr) { // obscure errors that escaped the handler
				appErr = errs.NewInternal(err)
			}

			reqLog.Error(err.Error(), "source_err_file", path.Base(appErr.FileName), "source_err_func", path.Base(appErr.FuncName))

			if appErr.IsInternal() {
				appErr.Description = http.StatusText(appErr.Status)
			}

			return web.RespondError(ctx, w, appErr)
		}

		return h
	}

	return m
}
