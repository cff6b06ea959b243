package workflow

import (
	"context"

	"github.com/farmdirect/marketplace_backend/config"
	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RecordPaymentInput struct {
	OrderId int             `json:"order_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	Method  string          `json:"method"`
}

// RecordPayment charges the provider and stores the outcome. The
// provider call runs first, outside any transaction; the transaction
// then records only the locally-known result. A succeeded charge that
// covers the order total confirms the order in the same transaction.
func RecordPayment(db *gorm.DB, ctx context.Context, provider PaymentProvider, input *RecordPaymentInput) (*models.Payment, error) {
	logger := config.GetLogger()

	order, err := models.GetOrder(db, ctx, input.OrderId)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, &utils.InvalidTransitionError{
			Entity: "order",
			From:   string(order.Status),
			To:     "payment",
		}
	}
	if input.Amount.Sign() <= 0 {
		return nil, utils.NewValidationError("amount", "amount must be positive")
	}
	if err := models.ValidateTotals(order); err != nil {
		return nil, err
	}

	// succeeded payments may never sum past the order total
	paid, err := models.PaidAmount(db, ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if input.Amount.GreaterThan(order.Total.Sub(paid)) {
		return nil, utils.NewValidationError("amount", "amount exceeds the outstanding balance")
	}

	// network call outside the transaction and outside any lock
	result, err := provider.Charge(ctx, input.Amount, input.Method)
	if err != nil {
		wrapped := &utils.ExternalServiceError{Service: provider.Name(), Err: err}
		config.LogError(logger, "workflow", "RecordPayment", "provider charge failed", map[string]interface{}{
			"order_id": input.OrderId,
		}, wrapped)
		// record the attempt so an external job can reconcile it
		payment, recordErr := recordPaymentOutcome(db, ctx, order, input.Amount, provider.Name(), &ChargeResult{
			Status:  models.PaymentStatusFailed,
			Message: wrapped.Error(),
		})
		if recordErr != nil {
			return nil, recordErr
		}
		return payment, wrapped
	}

	return recordPaymentOutcome(db, ctx, order, input.Amount, provider.Name(), result)
}

func recordPaymentOutcome(db *gorm.DB, ctx context.Context, order *models.Order, amount decimal.Decimal, providerName string, result *ChargeResult) (*models.Payment, error) {
	var payment *models.Payment
	err := withOrderLock(db, ctx, order.ID, func() error {
		// webhook retries replay the same provider reference; report the
		// existing row instead of double-recording
		if result.Reference != "" {
			existing, err := models.GetPaymentByProviderRef(db, ctx, providerName, result.Reference)
			if err == nil {
				payment = existing
				return nil
			}
			if err != utils.ErrorRecordNotFound {
				return err
			}
		}

		tx := db.Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
			}
		}()

		created, err := models.CreatePaymentTx(tx.WithContext(ctx), &models.NewPayment{
			OrderId:       order.ID,
			Amount:        amount,
			Provider:      providerName,
			ProviderRef:   result.Reference,
			Status:        result.Status,
			FailureReason: result.Message,
		})
		if err != nil {
			tx.Rollback()
			// the unique (provider, provider_ref) index backstops a replay
			// that slipped past the read above
			if models.IsDuplicateKeyError(err) && result.Reference != "" {
				existing, dupErr := models.GetPaymentByProviderRef(db, ctx, providerName, result.Reference)
				if dupErr == nil {
					payment = existing
					return nil
				}
			}
			return err
		}

		if result.Status == models.PaymentStatusSucceeded {
			if err := confirmIfPaidTx(tx, ctx, order.ID); err != nil {
				tx.Rollback()
				return err
			}
		}

		if err := tx.Commit().Error; err != nil {
			return err
		}
		payment = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// confirmIfPaidTx moves a PENDING order to CONFIRMED once succeeded
// payments cover the total. Called with the per-order lock held; an
// already-confirmed order is a no-op.
func confirmIfPaidTx(tx *gorm.DB, ctx context.Context, orderId int) error {
	var order models.Order
	if err := tx.WithContext(ctx).Where("id = ?", orderId).First(&order).Error; err != nil {
		return err
	}
	if order.Status != models.OrderStatusPending {
		return nil
	}

	paid, err := models.PaidAmount(tx, ctx, orderId)
	if err != nil {
		return err
	}
	if paid.LessThan(order.Total) {
		return nil
	}

	if _, err := models.TransitionOrderStatusTx(tx, ctx, orderId, models.OrderStatusConfirmed, "Payment received"); err != nil {
		return err
	}
	return models.EmitEventTx(tx.WithContext(ctx), &models.NotificationEvent{
		EventType:     models.NotificationTypeOrderUpdate,
		UserId:        order.ConsumerId,
		AggregateType: "order",
		AggregateId:   orderId,
		Payload: map[string]interface{}{
			"order_number": order.OrderNumber,
			"status":       models.OrderStatusConfirmed,
		},
	})
}

// ConfirmOrder re-evaluates confirmation for an order, used by webhook
// retries and reconciliation jobs. Duplicate calls are no-ops.
func ConfirmOrder(db *gorm.DB, ctx context.Context, orderId int) (*models.Order, error) {
	err := withOrderLock(db, ctx, orderId, func() error {
		tx := db.Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
			}
		}()
		if err := confirmIfPaidTx(tx, ctx, orderId); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit().Error
	})
	if err != nil {
		return nil, err
	}
	return models.GetOrder(db, ctx, orderId)
}

// RefundOrder refunds every succeeded payment and moves the order to
// REFUNDED. Provider calls run first; the transition commits only what
// the provider confirmed.
func RefundOrder(db *gorm.DB, ctx context.Context, provider PaymentProvider, orderId int) (*models.Order, error) {
	logger := config.GetLogger()

	order, err := models.GetOrder(db, ctx, orderId)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(models.OrderStatusRefunded) {
		return nil, &utils.InvalidTransitionError{
			Entity: "order",
			From:   string(order.Status),
			To:     string(models.OrderStatusRefunded),
		}
	}

	refunded := make([]int, 0, len(order.Payments))
	for _, p := range order.Payments {
		if p.Status != models.PaymentStatusSucceeded || p.ProviderRef == nil {
			continue
		}
		if _, err := provider.Refund(ctx, *p.ProviderRef); err != nil {
			wrapped := &utils.ExternalServiceError{Service: provider.Name(), Err: err}
			config.LogError(logger, "workflow", "RefundOrder", "provider refund failed", map[string]interface{}{
				"order_id":   orderId,
				"payment_id": p.ID,
			}, wrapped)
			return nil, wrapped
		}
		refunded = append(refunded, p.ID)
	}

	err = withOrderLock(db, ctx, orderId, func() error {
		tx := db.Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
			}
		}()
		if len(refunded) > 0 {
			if err := tx.WithContext(ctx).Model(&models.Payment{}).
				Where("id IN ?", refunded).
				Update("status", models.PaymentStatusRefunded).Error; err != nil {
				tx.Rollback()
				return err
			}
		}
		if _, err := models.TransitionOrderStatusTx(tx, ctx, orderId, models.OrderStatusRefunded, "Order refunded"); err != nil {
			tx.Rollback()
			return err
		}
		if err := models.EmitEventTx(tx.WithContext(ctx), &models.NotificationEvent{
			EventType:     models.NotificationTypeOrderUpdate,
			UserId:        order.ConsumerId,
			AggregateType: "order",
			AggregateId:   orderId,
			Payload: map[string]interface{}{
				"order_number": order.OrderNumber,
				"status":       models.OrderStatusRefunded,
			},
		}); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit().Error
	})
	if err != nil {
		return nil, err
	}
	return models.GetOrder(db, ctx, orderId)
}
