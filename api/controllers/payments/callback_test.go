package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldmarket/farmcart-backend/internal/cart"
	"github.com/veldmarket/farmcart-backend/internal/reconciliation"
	"github.com/veldmarket/farmcart-backend/internal/summary"
	pkgerrors "github.com/veldmarket/farmcart-backend/pkg/errors"
	"github.com/veldmarket/farmcart-backend/pkg/logger"
)

type fakeReconciliation struct {
	gotFields map[string]string
	result    *reconciliation.Result
	err       error
}

func (f *fakeReconciliation) HandleCallback(ctx context.Context, fields map[string]string) (*reconciliation.Result, error) {
	f.gotFields = fields
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestCallbackFormEncoded(t *testing.T) {
	svc := &fakeReconciliation{result: &reconciliation.Result{
		Projection:   &summary.Projection{DisplayTotalCents: 25500},
		ClearOutcome: cart.ClearOutcomeSelective,
	}}
	handler := Callback(svc, testLogger())

	form := url.Values{}
	form.Set("m_payment_id", "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	form.Set("pf_payment_id", "1089250")
	form.Set("amount_gross", "255.00")

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1089250", svc.gotFields["pf_payment_id"])
	assert.Equal(t, "255.00", svc.gotFields["amount_gross"])

	var body struct {
		Data struct {
			Replayed  bool   `json:"replayed"`
			CartClear string `json:"cart_clear"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Data.Replayed)
	assert.Equal(t, "selective", body.Data.CartClear)
}

func TestCallbackJSONBody(t *testing.T) {
	svc := &fakeReconciliation{result: &reconciliation.Result{Projection: &summary.Projection{}}}
	handler := Callback(svc, testLogger())

	payload := `{"order_id":"abc","transaction_id":"txn-1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", svc.gotFields["order_id"])
	assert.Equal(t, "txn-1", svc.gotFields["transaction_id"])
}

func TestCallbackQueryParamsOnReturnURL(t *testing.T) {
	svc := &fakeReconciliation{result: &reconciliation.Result{Projection: &summary.Projection{}}}
	handler := Callback(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback?m_payment_id=ref-1&amount_gross=220.00", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ref-1", svc.gotFields["m_payment_id"])
}

func TestCallbackMissingOrderReference(t *testing.T) {
	svc := &fakeReconciliation{err: pkgerrors.New(pkgerrors.CodeMissingOrderRef, "callback carries no order reference")}
	handler := Callback(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", strings.NewReader("pf_payment_id=1089250"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "MISSING_ORDER_REFERENCE", body.Error.Code)
}

func TestCallbackLedgerDegradedReturnsAccepted(t *testing.T) {
	svc := &fakeReconciliation{result: &reconciliation.Result{
		Projection:     &summary.Projection{},
		LedgerDegraded: true,
	}}
	handler := Callback(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", strings.NewReader("m_payment_id=ref"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestCallbackNilService(t *testing.T) {
	handler := Callback(nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
