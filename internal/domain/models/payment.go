package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates the accepted payment channels.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "Cash"
	PaymentRTGS PaymentMethod = "RTGS"
)

// ParsePaymentMethod matches raw input against the supported methods, ignoring case.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cash":
		return PaymentCash, nil
	case "rtgs":
		return PaymentRTGS, nil
	default:
		return "", fmt.Errorf("unsupported payment method %q", raw)
	}
}

// PurchasePayment is one payment made to a farmer against a lot.
type PurchasePayment struct {
	ID          string          `json:"id" bson:"_id"`
	LotID       string          `json:"lot_id" bson:"lot_id"`
	Amount      decimal.Decimal `json:"amount" bson:"amount"`
	PaymentDate time.Time       `json:"payment_date" bson:"payment_date"`
	Method      PaymentMethod   `json:"method" bson:"method"`
	Reference   string          `json:"reference,omitempty" bson:"reference,omitempty"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
}

// SalesPayment is one payment received from a customer against a sales order.
type SalesPayment struct {
	ID          string          `json:"id" bson:"_id"`
	OrderID     string          `json:"order_id" bson:"order_id"`
	Amount      decimal.Decimal `json:"amount" bson:"amount"`
	PaymentDate time.Time       `json:"payment_date" bson:"payment_date"`
	Method      PaymentMethod   `json:"method" bson:"method"`
	Reference   string          `json:"reference,omitempty" bson:"reference,omitempty"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
}

// SumPurchasePayments totals the amounts of the given payments.
func SumPurchasePayments(payments []PurchasePayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// SumSalesPayments totals the amounts of the given payments.
func SumSalesPayments(payments []SalesPayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
