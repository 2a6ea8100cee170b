package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/openrest/restaurants-go/internal/web/errs"
	"github.com/openrest/restaurants-go/internal/web/mux"
)

// ContentTypeJSON is the media type of every API body.
const ContentTypeJSON = "application/json"

// RespondJSON to an HTTP request, setting the status code and body if any.
func RespondJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) error {
	if statusCode == http.StatusNoContent {
		mux.SetStatusCode(ctx, statusCode)
		w.WriteHeader(statusCode)
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return RespondRaw(ctx, w, statusCode, ContentTypeJSON, jsonData)
}

// RespondRaw writes body verbatim with the given content type.
func RespondRaw(ctx context.Context, w http.ResponseWriter, statusCode int, contentType string, body []byte) error {
	mux.SetStatusCode(ctx, statusCode)

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(statusCode)

	if _, err := w.Write(body); err != nil {
		return err
	}

	return nil
}

// RespondError writes err as the API error envelope using its status.
func RespondError(ctx context.Context, w http.ResponseWriter, err *errs.Error) error {
	return RespondJSON(ctx, w, err.Status, err)
}
