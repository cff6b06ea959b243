package workflow

import (
	"context"

	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/utils"
	"gorm.io/gorm"
)

// AdvanceFulfillment moves one fulfillment forward and re-derives the
// owning order's aggregate status, all in one transaction. The order
// is reported at the least-advanced of its fulfillments, so a
// multi-farm order only reads DELIVERED once every farm has finished.
func AdvanceFulfillment(db *gorm.DB, ctx context.Context, fulfillmentId int, next models.FulfillmentStatus) (*models.Fulfillment, error) {
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	fulfillment, err := models.AdvanceFulfillmentTx(tx, ctx, fulfillmentId, next)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	order, err := models.RecomputeOrderStatusTx(tx, ctx, fulfillment.OrderId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := models.EmitEventTx(tx.WithContext(ctx), &models.NotificationEvent{
		EventType:     models.NotificationTypeFulfillmentUpdate,
		UserId:        order.ConsumerId,
		AggregateType: "fulfillment",
		AggregateId:   fulfillment.ID,
		Payload: map[string]interface{}{
			"order_number": order.OrderNumber,
			"farm_id":      fulfillment.FarmId,
			"status":       fulfillment.Status,
			"order_status": order.Status,
		},
	}); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return fulfillment, nil
}

// CancelOrder performs a plain cancellation. A confirmed order can
// only be cancelled while every fulfillment is still PREPARING; once
// anything has dispatched the refund path is the only way out. Returns
// the stock consumed at placement through offsetting ledger entries.
func CancelOrder(db *gorm.DB, ctx context.Context, orderId int, note string) (*models.Order, error) {
	userId := utils.GetUserId(ctx)

	var order *models.Order
	err := withOrderLock(db, ctx, orderId, func() error {
		tx := db.Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
			}
		}()

		current, err := models.GetOrder(tx, ctx, orderId)
		if err != nil {
			tx.Rollback()
			return err
		}
		if !current.Status.CanTransitionTo(models.OrderStatusCancelled) {
			tx.Rollback()
			return &utils.InvalidTransitionError{
				Entity: "order",
				From:   string(current.Status),
				To:     string(models.OrderStatusCancelled),
			}
		}
		dispatched, err := models.HasDispatchedFulfillment(tx, ctx, orderId)
		if err != nil {
			tx.Rollback()
			return err
		}
		if dispatched {
			tx.Rollback()
			return &utils.InvalidTransitionError{
				Entity: "order",
				From:   string(current.Status),
				To:     string(models.OrderStatusCancelled),
			}
		}

		// restock through the ledger, never by editing the cache
		for _, item := range current.Items {
			_, err := models.RecordAdjustment(tx, ctx, &models.NewInventoryAdjustment{
				ProductId:      item.ProductId,
				QuantityChange: item.Quantity,
				AdjustmentType: models.InventoryAdjustmentTypeRestock,
				CreatedById:    userId,
				Note:           "Order cancelled",
			}, nil)
			if err != nil {
				tx.Rollback()
				return err
			}
		}

		order, err = models.TransitionOrderStatusTx(tx, ctx, orderId, models.OrderStatusCancelled, note)
		if err != nil {
			tx.Rollback()
			return err
		}

		if err := models.EmitEventTx(tx.WithContext(ctx), &models.NotificationEvent{
			EventType:     models.NotificationTypeOrderUpdate,
			UserId:        current.ConsumerId,
			AggregateType: "order",
			AggregateId:   orderId,
			Payload: map[string]interface{}{
				"order_number": current.OrderNumber,
				"status":       models.OrderStatusCancelled,
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
	return order, nil
}
