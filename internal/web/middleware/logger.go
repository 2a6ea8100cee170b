package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/openrest/restaurants-go/internal/web/mux"
)

// Logger logs the start and completion of every call.
func Logger(log *slog.Logger) mux.Middleware {
	m := func(handler mux.Handler) mux.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			v := mux.GetValues(ctx)
			reqLog := log.With("trace_id", v.TraceID, "request_id", v.RequestID)

			reqLog.Info("request started", "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)

			err := handler(ctx, w, r)

			reqLog.Info("request completed", "method", r.Method, "path", r.URL.Path, "statusCode", v.StatusCode, "since", time.Since(v.Now).String())

			return err
		}

		return h
	}

	return m
}
