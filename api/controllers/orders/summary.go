package orders

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veldmarket/farmcart-backend/api/responses"
	"github.com/veldmarket/farmcart-backend/internal/summary"
	pkgerrors "github.com/veldmarket/farmcart-backend/pkg/errors"
	"github.com/veldmarket/farmcart-backend/pkg/logger"
)

const buyerHeader = "X-FC-Buyer"

type summaryService interface {
	GetSummary(ctx context.Context, orderID, buyerID uuid.UUID) (*summary.Projection, error)
}

// Summary re-derives the confirmation screen for an order the buyer owns.
func Summary(svc summaryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "summary service unavailable"))
			return
		}

		buyerID, err := uuid.Parse(r.Header.Get(buyerHeader))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "buyer identity required"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		projection, err := svc.GetSummary(ctx, orderID, buyerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, projection)
	}
}
