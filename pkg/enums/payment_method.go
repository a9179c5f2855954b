package enums

import "fmt"

// PaymentMethod identifies how the buyer paid for an order.
type PaymentMethod string

const (
	PaymentMethodGateway     PaymentMethod = "gateway"
	PaymentMethodEFT         PaymentMethod = "eft"
	PaymentMethodCashOnDelivery  PaymentMethod = "cash_on_delivery"
	PaymentMethodUnconfirmed PaymentMethod = "unconfirmed"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodGateway,
	PaymentMethodEFT,
	PaymentMethodCashOnDelivery,
	PaymentMethodUnconfirmed,
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
