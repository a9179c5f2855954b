package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/veldmarket/farmcart-backend/api/responses"
	"github.com/veldmarket/farmcart-backend/internal/reconciliation"
	pkgerrors "github.com/veldmarket/farmcart-backend/pkg/errors"
	"github.com/veldmarket/farmcart-backend/pkg/logger"
)

type reconciliationService interface {
	HandleCallback(ctx context.Context, fields map[string]string) (*reconciliation.Result, error)
}

// Callback receives the gateway's return/webhook call and drives
// reconciliation. The payload is an opaque key-value bag: form-encoded on
// real gateway posts, JSON on internal retries.
func Callback(svc reconciliationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		fields, err := decodeFields(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode callback payload"))
			return
		}

		result, err := svc.HandleCallback(ctx, fields)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusOK
		if result.LedgerDegraded {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, newCallbackResponse(result))
	}
}

func decodeFields(r *http.Request) (map[string]string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		fields := map[string]string{}
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			return nil, fmt.Errorf("parse json body: %w", err)
		}
		return fields, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form body: %w", err)
	}
	fields := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	// Return-URL flows deliver the gateway fields as query parameters.
	for key, values := range r.URL.Query() {
		if _, ok := fields[key]; !ok && len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields, nil
}

type callbackResponse struct {
	Replayed       bool   `json:"replayed"`
	LedgerDegraded bool   `json:"ledger_degraded,omitempty"`
	CartClear      string `json:"cart_clear,omitempty"`
	Summary        any    `json:"summary"`
}

func newCallbackResponse(result *reconciliation.Result) callbackResponse {
	return callbackResponse{
		Replayed:       result.Replayed,
		LedgerDegraded: result.LedgerDegraded,
		CartClear:      string(result.ClearOutcome),
		Summary:        result.Projection,
	}
}
