package models

import (
	"context"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment records one charge attempt against an order. Provider calls
// happen outside database transactions; only their outcome is stored.
type Payment struct {
	ID            int             `gorm:"primary_key" json:"id"`
	OrderId       int             `gorm:"index;not null" json:"order_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4)" json:"amount"`
	Status        PaymentStatus   `gorm:"type:enum('PENDING','SUCCEEDED','FAILED','REFUNDED');default:'PENDING'" json:"status"`
	Provider      string          `gorm:"size:32;uniqueIndex:idx_provider_ref" json:"provider"`
	ProviderRef   *string         `gorm:"size:128;uniqueIndex:idx_provider_ref" json:"provider_ref"`
	FailureReason string          `gorm:"size:255" json:"failure_reason"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	OrderId       int             `json:"order_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Provider      string          `json:"provider"`
	ProviderRef   string          `json:"provider_ref"`
	Status        PaymentStatus   `json:"status"`
	FailureReason string          `json:"failure_reason"`
}

func CreatePaymentTx(tx *gorm.DB, input *NewPayment) (*Payment, error) {
	payment := Payment{
		OrderId:       input.OrderId,
		Amount:        input.Amount,
		Status:        input.Status,
		Provider:      input.Provider,
		FailureReason: input.FailureReason,
	}
	if input.ProviderRef != "" {
		payment.ProviderRef = &input.ProviderRef
	}
	if payment.Status == "" {
		payment.Status = PaymentStatusPending
	}
	if err := tx.Create(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// PaidAmount sums the succeeded payments of an order.
func PaidAmount(tx *gorm.DB, ctx context.Context, orderId int) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := tx.WithContext(ctx).Model(&Payment{}).
		Where("order_id = ? AND status = ?", orderId, PaymentStatusSucceeded).
		Select("SUM(amount)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// GetPaymentByProviderRef looks up a payment by the provider's charge
// reference. Used to make webhook retries idempotent.
func GetPaymentByProviderRef(db *gorm.DB, ctx context.Context, provider, providerRef string) (*Payment, error) {
	var payment Payment
	err := db.WithContext(ctx).
		Where("provider = ? AND provider_ref = ?", provider, providerRef).
		First(&payment).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListOrderPayments returns all charge attempts for an order, oldest
// first.
func ListOrderPayments(db *gorm.DB, ctx context.Context, orderId int) ([]*Payment, error) {
	var payments []*Payment
	err := db.WithContext(ctx).
		Where("order_id = ?", orderId).
		Order("id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
