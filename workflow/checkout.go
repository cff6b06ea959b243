package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/farmdirect/marketplace_backend/config"
	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PlaceOrderInput struct {
	DeliveryAddress string     `json:"delivery_address" binding:"required"`
	DeliveryDate    *time.Time `json:"delivery_date"`
	Note            string     `json:"note"`
}

// PlaceOrder converts the current user's cart into an order: prices
// are re-snapshotted from the live catalog, stock is consumed through
// the adjustment ledger, one fulfillment is created per farm, and the
// cart is cleared. Everything commits atomically; stock checks run
// under per-product locks so concurrent checkouts cannot oversell.
func PlaceOrder(db *gorm.DB, ctx context.Context, input *PlaceOrderInput) (*models.Order, error) {
	logger := config.GetLogger()

	if input.DeliveryAddress == "" {
		return nil, utils.NewValidationError("delivery_address", "delivery address is required")
	}

	cart, err := models.GetCart(db, ctx)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, utils.NewValidationError("cart", "cart is empty")
	}

	productIds := make([]int, 0, len(cart.Items))
	for _, item := range cart.Items {
		productIds = append(productIds, item.ProductId)
	}

	var order *models.Order
	err = WithProductStockLocks(ctx, productIds, func() error {
		order, err = placeOrderLocked(db, ctx, cart, input)
		return err
	})
	if err != nil {
		config.LogError(logger, "workflow", "PlaceOrder", "checkout failed", map[string]interface{}{
			"cart_id": cart.ID,
		}, err)
		return nil, err
	}
	return order, nil
}

func placeOrderLocked(db *gorm.DB, ctx context.Context, cart *models.Cart, input *PlaceOrderInput) (*models.Order, error) {
	userId := utils.GetUserId(ctx)
	policy := models.BackorderPolicy{Allow: config.AllowBackorders()}

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// re-snapshot each line against the live catalog; ascending product
	// order keeps row-lock acquisition deadlock-free across checkouts
	sort.Slice(cart.Items, func(i, j int) bool {
		return cart.Items[i].ProductId < cart.Items[j].ProductId
	})
	items := make([]models.OrderItem, 0, len(cart.Items))
	optionByFarm := map[int]map[int]*models.DeliveryOption{}
	farmSubtotals := map[int]decimal.Decimal{}
	for _, cartItem := range cart.Items {
		product, err := utils.FetchModel[models.Product](tx, ctx, cartItem.ProductId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if !product.IsSellable() {
			tx.Rollback()
			return nil, utils.NewValidationError("cart", fmt.Sprintf("product %s is no longer available", product.Name))
		}
		if cartItem.Quantity < product.MinOrderQuantity ||
			(product.MaxOrderQuantity > 0 && cartItem.Quantity > product.MaxOrderQuantity) {
			tx.Rollback()
			return nil, utils.NewValidationError("cart", fmt.Sprintf("quantity for %s is outside the allowed range", product.Name))
		}

		option, err := models.GetDeliveryOptionForFarm(tx, ctx, product.FarmId, cartItem.DeliveryOptionId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if _, ok := optionByFarm[product.FarmId]; !ok {
			optionByFarm[product.FarmId] = map[int]*models.DeliveryOption{}
		}
		optionByFarm[product.FarmId][option.ID] = option

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(cartItem.Quantity)))
		items = append(items, models.OrderItem{
			ProductId:        product.ID,
			FarmId:           product.FarmId,
			DeliveryOptionId: option.ID,
			ProductName:      product.Name,
			Unit:             product.Unit,
			UnitPrice:        product.Price,
			Quantity:         cartItem.Quantity,
			LineTotal:        lineTotal,
			LeadTimeDays:     product.LeadTimeDays,
		})
		farmSubtotals[product.FarmId] = farmSubtotals[product.FarmId].Add(lineTotal)

		// consume stock through the ledger
		_, err = models.RecordAdjustment(tx, ctx, &models.NewInventoryAdjustment{
			ProductId:      product.ID,
			QuantityChange: -cartItem.Quantity,
			AdjustmentType: models.InventoryAdjustmentTypeSale,
			CreatedById:    userId,
			Note:           "Order placement",
		}, policy)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// minimum order amount per farm, then shipping as the sum of each
	// chosen delivery option's fee
	shippingFee := decimal.Zero
	for farmId, subtotal := range farmSubtotals {
		farm, err := utils.FetchModel[models.Farm](tx, ctx, farmId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if subtotal.LessThan(farm.MinOrderAmount) {
			tx.Rollback()
			return nil, utils.NewValidationError("cart", fmt.Sprintf("items from %s are below its minimum order amount", farm.Name))
		}
		for _, option := range optionByFarm[farmId] {
			shippingFee = shippingFee.Add(option.Fee)
			if option.MinimumOrder.IsPositive() && subtotal.LessThan(option.MinimumOrder) {
				tx.Rollback()
				return nil, utils.NewValidationError("cart", fmt.Sprintf("items from %s are below the delivery option minimum", farm.Name))
			}
		}
	}

	totals := models.ComputeTotals(items, shippingFee, decimal.Zero)
	order := models.Order{
		ConsumerId:      userId,
		Status:          models.OrderStatusPending,
		DeliveryAddress: input.DeliveryAddress,
		DeliveryDate:    input.DeliveryDate,
		Subtotal:        totals.Subtotal,
		ShippingFee:     totals.ShippingFee,
		PlatformFee:     totals.PlatformFee,
		Tax:             totals.Tax,
		Discount:        totals.Discount,
		Total:           totals.Total,
		Note:            input.Note,
		Items:           items,
	}
	if err := models.CreateOrderTx(tx.WithContext(ctx), &order); err != nil {
		tx.Rollback()
		return nil, err
	}

	// one fulfillment per farm; branch fixed by the farm's first chosen
	// delivery option (one option per farm per order is the UI contract,
	// extra options only add their fee)
	for farmId, options := range optionByFarm {
		var chosen *models.DeliveryOption
		for _, option := range options {
			if chosen == nil || option.ID < chosen.ID {
				chosen = option
			}
		}
		fulfillment := models.Fulfillment{
			OrderId:          order.ID,
			FarmId:           farmId,
			DeliveryOptionId: chosen.ID,
			DeliveryType:     chosen.Type,
			Status:           models.FulfillmentStatusPreparing,
		}
		if err := tx.WithContext(ctx).Create(&fulfillment).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		order.Fulfillments = append(order.Fulfillments, fulfillment)
	}

	event := models.NotificationEvent{
		EventType:     models.NotificationTypeOrderUpdate,
		UserId:        userId,
		AggregateType: "order",
		AggregateId:   order.ID,
		Payload: map[string]interface{}{
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"total":        order.Total.String(),
		},
	}
	if err := models.EmitEventTx(tx.WithContext(ctx), &event); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := models.ClearCart(tx, ctx, cart.ID); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &order, nil
}
