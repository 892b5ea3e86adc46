package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// RecordPaymentInput is one payment against a lot (purchase side) or a
// sales order (sales side). A zero payment date means today.
type RecordPaymentInput struct {
	ParentID    string          `json:"parent_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
}

func (in RecordPaymentInput) validate(parentField string) (models.PaymentMethod, error) {
	if in.ParentID == "" {
		return "", invalid(parentField, "is required")
	}
	if !in.Amount.IsPositive() {
		return "", fmt.Errorf("%w: got %s", ErrInvalidAmount, in.Amount)
	}
	method, err := models.ParsePaymentMethod(in.Method)
	if err != nil {
		return "", invalid("method", err.Error())
	}
	return method, nil
}

// RecordPurchasePayment appends a payment made to the farmer of a lot.
func (s *Service) RecordPurchasePayment(ctx context.Context, in RecordPaymentInput) (payment models.PurchasePayment, err error) {
	defer func() { s.observe("record_purchase_payment", err) }()

	method, err := in.validate("lot_id")
	if err != nil {
		return models.PurchasePayment{}, err
	}

	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetLot(ctx, in.ParentID); err != nil {
			return unknownReference(err, "lot_id")
		}
		payment = models.PurchasePayment{
			ID:          s.newID(),
			LotID:       in.ParentID,
			Amount:      in.Amount,
			PaymentDate: s.dateOrToday(in.PaymentDate),
			Method:      method,
			Reference:   strings.TrimSpace(in.Reference),
			CreatedAt:   s.timestamp(),
		}
		if err := tx.CreatePurchasePayment(ctx, payment); err != nil {
			return fmt.Errorf("create purchase payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.PurchasePayment{}, err
	}

	s.logger.Info("purchase payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("lot_id", payment.LotID),
		zap.String("amount", payment.Amount.String()),
		zap.String("method", string(payment.Method)))
	return payment, nil
}

// RecordSalesPayment appends a payment received against a sales order.
func (s *Service) RecordSalesPayment(ctx context.Context, in RecordPaymentInput) (payment models.SalesPayment, err error) {
	defer func() { s.observe("record_sales_payment", err) }()

	method, err := in.validate("order_id")
	if err != nil {
		return models.SalesPayment{}, err
	}

	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetSalesOrder(ctx, in.ParentID); err != nil {
			return unknownReference(err, "order_id")
		}
		payment = models.SalesPayment{
			ID:          s.newID(),
			OrderID:     in.ParentID,
			Amount:      in.Amount,
			PaymentDate: s.dateOrToday(in.PaymentDate),
			Method:      method,
			Reference:   strings.TrimSpace(in.Reference),
			CreatedAt:   s.timestamp(),
		}
		if err := tx.CreateSalesPayment(ctx, payment); err != nil {
			return fmt.Errorf("create sales payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.SalesPayment{}, err
	}

	s.logger.Info("sales payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("order_id", payment.OrderID),
		zap.String("amount", payment.Amount.String()),
		zap.String("method", string(payment.Method)))
	return payment, nil
}

// PurchasePayments lists the payments made against a lot, or every purchase
// payment when lotID is empty.
func (s *Service) PurchasePayments(ctx context.Context, lotID string) ([]models.PurchasePayment, error) {
	if lotID != "" {
		if _, err := s.store.GetLot(ctx, lotID); err != nil {
			return nil, err
		}
	}
	return s.store.ListPurchasePayments(ctx, lotID)
}

// SalesPayments lists the payments received against an order, or every sales
// payment when orderID is empty.
func (s *Service) SalesPayments(ctx context.Context, orderID string) ([]models.SalesPayment, error) {
	if orderID != "" {
		if _, err := s.store.GetSalesOrder(ctx, orderID); err != nil {
			return nil, err
		}
	}
	return s.store.ListSalesPayments(ctx, orderID)
}

// GetOrderBalance derives what the customer still owes on one order. The
// realized value is used unless basis names another valuation.
func (s *Service) GetOrderBalance(ctx context.Context, orderID string, basis models.ValueBasis) (models.OrderBalance, error) {
	if basis == "" {
		basis = models.BasisRealized
	}
	order, err := s.store.GetSalesOrder(ctx, orderID)
	if err != nil {
		return models.OrderBalance{}, err
	}
	value, err := s.GetOrderValue(ctx, orderID)
	if err != nil {
		return models.OrderBalance{}, err
	}
	payments, err := s.store.ListSalesPayments(ctx, orderID)
	if err != nil {
		return models.OrderBalance{}, fmt.Errorf("list sales payments: %w", err)
	}
	paid := models.SumSalesPayments(payments)
	amount := value.For(basis)
	return models.OrderBalance{
		OrderID:    order.ID,
		OrderDate:  order.OrderDate,
		OrderValue: amount,
		TotalPaid:  paid,
		BalanceDue: amount.Sub(paid),
	}, nil
}
