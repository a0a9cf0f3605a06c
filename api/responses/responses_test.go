package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var env ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error
}

func TestWriteSuccessStatusWrapsData(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"order_number": "ORD-000123"})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	var env Envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.(map[string]any)["order_number"] != "ORD-000123" {
		t.Fatalf("unexpected data %v", env.Data)
	}
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	WriteNoContent(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("expected empty 204, got %d %q", w.Code, w.Body.String())
	}
}

func TestWriteErrorMapsDomainCodes(t *testing.T) {
	cases := []struct {
		err         *pkgerrors.Error
		status      int
		withDetails bool
	}{
		{pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").WithDetails(map[string]any{"field": "quantity"}), http.StatusBadRequest, true},
		{pkgerrors.New(pkgerrors.CodeNotFound, "order not found"), http.StatusNotFound, false},
		{pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock for Widget").WithDetails(map[string]any{"available": 1}), http.StatusConflict, true},
		{pkgerrors.New(pkgerrors.CodeInvalidState, "order items are locked").WithDetails(map[string]any{"status": "shipped"}), http.StatusConflict, true},
		{pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move delivered order to processing").WithDetails(map[string]any{"from": "delivered", "to": "processing"}), http.StatusUnprocessableEntity, true},
		{pkgerrors.New(pkgerrors.CodeConflict, "address already default").WithDetails(map[string]any{"hidden": true}), http.StatusConflict, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.err.Code()), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, tc.err)

			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			body := decodeError(t, w)
			if body.Code != string(tc.err.Code()) || body.Message != tc.err.Message() {
				t.Fatalf("unexpected body %+v", body)
			}
			if (body.Details != nil) != tc.withDetails {
				t.Fatalf("details presence mismatch: %v", body.Details)
			}
		})
	}
}

func TestWriteErrorHidesInternalCause(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("pq: relation \"orders\" does not exist"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeError(t, w)
	if body.Code != string(pkgerrors.CodeInternal) || body.Message != "internal server error" || body.Details != nil {
		t.Fatalf("internal error leaked: %+v", body)
	}
}

func TestWriteErrorLogLevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: &buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
	if !bytes.Contains(buf.Bytes(), []byte(`"level":"warn"`)) {
		t.Fatalf("client error should log at warn: %s", buf.String())
	}

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("boom"))
	if !bytes.Contains(buf.Bytes(), []byte(`"level":"error"`)) || !bytes.Contains(buf.Bytes(), []byte(`"status":500`)) {
		t.Fatalf("server error should log at error: %s", buf.String())
	}
}
