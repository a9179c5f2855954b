package payments

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/veldmarket/farmcart-backend/pkg/errors"
	"github.com/veldmarket/farmcart-backend/pkg/types"
)

// Gateways disagree about where the order reference lives, and return-URL
// flows often omit the async-only fields entirely. Aliases are checked in
// order; the first non-empty value wins.
var (
	orderRefAliases = []string{"m_payment_id", "custom_str1", "order_id"}
	txnIDAliases    = []string{"pf_payment_id", "transaction_id"}
)

const grossAmountField = "amount_gross"

// GatewayCallback is the typed view of an inbound gateway callback. Fields the
// parser does not recognize stay in Metadata verbatim for the audit trail.
type GatewayCallback struct {
	OrderRef   string
	TxnID      *string
	GrossCents *int
	Metadata   types.JSONMap
}

// HasTxnID reports whether the gateway supplied a transaction id. Without one
// the callback is degraded: the order may still confirm but no ledger entry
// can be keyed.
func (c *GatewayCallback) HasTxnID() bool {
	return c != nil && c.TxnID != nil && *c.TxnID != ""
}

// ParseCallback resolves the aliased fields of a raw gateway callback into a
// typed value. A callback with no resolvable order reference is fatal.
func ParseCallback(fields map[string]string) (*GatewayCallback, error) {
	cb := &GatewayCallback{Metadata: types.JSONMap{}}
	for key, value := range fields {
		cb.Metadata[key] = value
	}

	for _, alias := range orderRefAliases {
		if ref := strings.TrimSpace(fields[alias]); ref != "" {
			cb.OrderRef = ref
			break
		}
	}
	if cb.OrderRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingOrderRef, "callback carries no order reference").
			WithDetails(map[string]any{"checked_fields": orderRefAliases})
	}

	for _, alias := range txnIDAliases {
		if txn := strings.TrimSpace(fields[alias]); txn != "" {
			cb.TxnID = &txn
			break
		}
	}

	if raw := strings.TrimSpace(fields[grossAmountField]); raw != "" {
		gross, err := decimal.NewFromString(raw)
		if err == nil && !gross.IsNegative() {
			cents := int(gross.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
			cb.GrossCents = &cents
		}
		// Unparseable amounts are kept in metadata only; the internal
		// ledger total is authoritative when the gateway figure is junk.
	}

	return cb, nil
}
