// Package responses writes the JSON envelopes every handler returns:
// {"data": ...} on success and {"error": {"code", "message", "details"}} on
// failure.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type Envelope struct {
	Data any `json:"data"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError maps err onto its code's status and envelope. Errors without a
// code become INTERNAL_ERROR with a generic message. Client errors are logged
// at warn level, server errors at error level with Postgres diagnostics.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("error response without cause")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	code := typed.Code()

	body := ErrorBody{Code: string(code), Message: code.PublicMessage()}
	if code.ExposesMessage() && typed.Message() != "" {
		body.Message = typed.Message()
	}
	if code.ExposesDetails() {
		body.Details = typed.Details()
	}

	status := code.HTTPStatus()
	if logg != nil {
		fields := pkgerrors.LogFields(err)
		fields["status"] = status
		if d, ok := typed.Details().(map[string]any); ok {
			for _, key := range []string{"product_id", "order_id", "from", "to"} {
				if v, ok := d[key]; ok {
					fields[key] = v
				}
			}
		}
		lctx := logg.WithFields(ctx, fields)
		if status >= http.StatusInternalServerError {
			logg.Error(lctx, "request failed", err)
		} else {
			logg.Warn(lctx, "request rejected")
		}
	}

	writeJSON(w, status, ErrorEnvelope{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure can only mean the client went away.
	_ = json.NewEncoder(w).Encode(payload)
}
