package models

import (
	"context"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	"gorm.io/gorm"
)

// Fulfillment is the per-farm physical completion unit of an order.
// An order spanning several farms carries one fulfillment per farm,
// each progressing independently through the branch fixed by its
// delivery type.
type Fulfillment struct {
	ID                  int               `gorm:"primary_key" json:"id"`
	OrderId             int               `gorm:"uniqueIndex:idx_order_farm;not null" json:"order_id"`
	FarmId              int               `gorm:"uniqueIndex:idx_order_farm;not null" json:"farm_id"`
	Farm                *Farm             `json:"farm,omitempty"`
	DeliveryOptionId    int               `gorm:"not null" json:"delivery_option_id"`
	DeliveryType        DeliveryType      `gorm:"type:enum('PICKUP','LOCAL_DELIVERY','SHIPPING')" json:"delivery_type"`
	Status              FulfillmentStatus `gorm:"type:enum('PREPARING','IN_TRANSIT','READY_FOR_PICKUP','DELIVERED','COMPLETED');default:'PREPARING'" json:"status"`
	Carrier             string            `gorm:"size:64" json:"carrier"`
	TrackingNumber      string            `gorm:"size:128" json:"tracking_number"`
	EstimatedDeliveryAt *time.Time        `json:"estimated_delivery_at"`
	CreatedAt           time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type UpdateFulfillmentTracking struct {
	Carrier             *string    `json:"carrier"`
	TrackingNumber      *string    `json:"tracking_number"`
	EstimatedDeliveryAt *time.Time `json:"estimated_delivery_at"`
}

// GetFulfillment fetches a fulfillment by id.
func GetFulfillment(db *gorm.DB, ctx context.Context, id int) (*Fulfillment, error) {
	return utils.FetchModel[Fulfillment](db, ctx, id, "Farm")
}

// AdvanceFulfillmentTx moves a fulfillment one step forward inside the
// caller's transaction, enforcing the branch sequence. The row is
// locked so concurrent advances serialize. A request for the current
// status is a no-op; everything else off the sequence is an
// InvalidTransitionError with no partial mutation.
func AdvanceFulfillmentTx(tx *gorm.DB, ctx context.Context, fulfillmentId int, next FulfillmentStatus) (*Fulfillment, error) {
	var fulfillment Fulfillment
	err := tx.WithContext(ctx).
		Clauses(forUpdateClause()).
		Where("id = ?", fulfillmentId).
		First(&fulfillment).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	if fulfillment.Status == next {
		return &fulfillment, nil
	}
	if !fulfillment.Status.CanTransitionTo(next, fulfillment.DeliveryType) {
		return nil, &utils.InvalidTransitionError{
			Entity: "fulfillment",
			From:   string(fulfillment.Status),
			To:     string(next),
		}
	}

	// a fulfillment cannot finish for an order that was never confirmed
	if next.IsTerminal() {
		var order Order
		if err := tx.WithContext(ctx).Select("status").Where("id = ?", fulfillment.OrderId).First(&order).Error; err != nil {
			return nil, err
		}
		if order.Status.Stage() < OrderStatusConfirmed.Stage() {
			return nil, &utils.InvalidTransitionError{
				Entity: "fulfillment",
				From:   string(fulfillment.Status),
				To:     string(next),
			}
		}
	}

	fulfillment.Status = next
	if err := tx.WithContext(ctx).Model(&Fulfillment{}).Where("id = ?", fulfillmentId).
		Update("status", next).Error; err != nil {
		return nil, err
	}
	return &fulfillment, nil
}

// AggregateOrderStatus is the order status implied by a set of
// fulfillments: the least-advanced one wins, so the order is never
// reported further along than its slowest farm. Pure.
func AggregateOrderStatus(fulfillments []Fulfillment) (OrderStatus, bool) {
	if len(fulfillments) == 0 {
		return "", false
	}
	min := fulfillments[0]
	for _, f := range fulfillments[1:] {
		if f.Status.OrderStage() < min.Status.OrderStage() {
			min = f
		}
	}
	return min.Status.OrderStatusAt(), true
}

// RecomputeOrderStatusTx re-derives the owning order's status from its
// fulfillments inside the caller's transaction. Orders that have not
// been confirmed, or that already ended in CANCELLED/REFUNDED, are
// left alone.
func RecomputeOrderStatusTx(tx *gorm.DB, ctx context.Context, orderId int) (*Order, error) {
	var fulfillments []Fulfillment
	if err := tx.WithContext(ctx).Where("order_id = ?", orderId).Find(&fulfillments).Error; err != nil {
		return nil, err
	}

	var order Order
	if err := tx.WithContext(ctx).Where("id = ?", orderId).First(&order).Error; err != nil {
		return nil, err
	}
	if order.Status == OrderStatusCancelled || order.Status == OrderStatusRefunded {
		return &order, nil
	}
	if order.Status.Stage() < OrderStatusConfirmed.Stage() {
		return &order, nil
	}

	next, ok := AggregateOrderStatus(fulfillments)
	if !ok || next == order.Status {
		return &order, nil
	}
	if !order.Status.CanTransitionTo(next) {
		// fulfillments lag behind a manually advanced order; keep it
		return &order, nil
	}
	return TransitionOrderStatusTx(tx, ctx, orderId, next, "Fulfillment progress")
}

// HasDispatchedFulfillment reports whether any fulfillment of the order
// has left PREPARING. Plain cancellation is only allowed before then.
func HasDispatchedFulfillment(tx *gorm.DB, ctx context.Context, orderId int) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&Fulfillment{}).
		Where("order_id = ? AND status <> ?", orderId, FulfillmentStatusPreparing).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetFulfillmentTracking updates carrier metadata without touching the
// status machine.
func SetFulfillmentTracking(db *gorm.DB, ctx context.Context, id int, input *UpdateFulfillmentTracking) (*Fulfillment, error) {
	fulfillment, err := utils.FetchModel[Fulfillment](db, ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if input.Carrier != nil {
		updates["carrier"] = *input.Carrier
	}
	if input.TrackingNumber != nil {
		updates["tracking_number"] = *input.TrackingNumber
	}
	if input.EstimatedDeliveryAt != nil {
		updates["estimated_delivery_at"] = *input.EstimatedDeliveryAt
	}
	if len(updates) == 0 {
		return fulfillment, nil
	}
	err = db.WithContext(ctx).Model(&Fulfillment{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Fulfillment](db, ctx, id)
}

// ListOrderFulfillments returns an order's fulfillments ordered by farm.
func ListOrderFulfillments(db *gorm.DB, ctx context.Context, orderId int) ([]Fulfillment, error) {
	var fulfillments []Fulfillment
	err := db.WithContext(ctx).
		Preload("Farm").
		Where("order_id = ?", orderId).
		Order("farm_id ASC").
		Find(&fulfillments).Error
	if err != nil {
		return nil, err
	}
	return fulfillments, nil
}
