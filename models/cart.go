package models

import (
	"context"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart holds a consumer's draft purchase. One cart per user; items
// from multiple farms may coexist and every farm's items become a
// separate fulfillment at checkout.
type Cart struct {
	ID        int        `gorm:"primary_key" json:"id"`
	UserId    int        `gorm:"uniqueIndex;not null" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartId" json:"items"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// CartItem mirrors OrderItem but stays mutable. The price columns are
// a display snapshot; checkout re-reads the live product price.
type CartItem struct {
	ID               int             `gorm:"primary_key" json:"id"`
	CartId           int             `gorm:"uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductId        int             `gorm:"uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Product          *Product        `json:"product,omitempty"`
	FarmId           int             `gorm:"index;not null" json:"farm_id"`
	DeliveryOptionId int             `gorm:"not null" json:"delivery_option_id"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(20,4)" json:"unit_price"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(20,4)" json:"line_total"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCartItem struct {
	ProductId        int `json:"product_id" binding:"required"`
	DeliveryOptionId int `json:"delivery_option_id" binding:"required"`
	Quantity         int `json:"quantity" binding:"required"`
}

// GetCart fetches the current user's cart with items and products.
func GetCart(db *gorm.DB, ctx context.Context) (*Cart, error) {
	userId := utils.GetUserId(ctx)
	var cart Cart
	err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("cart_items.id ASC") }).
		Preload("Items.Product").
		Where("user_id = ?", userId).
		First(&cart).Error
	if err == gorm.ErrRecordNotFound {
		// carts are created at signup, but tolerate older accounts
		cart = Cart{UserId: userId}
		if err := db.WithContext(ctx).Create(&cart).Error; err != nil {
			return nil, err
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func validateCartQuantity(product *Product, quantity int) error {
	if !product.IsSellable() {
		return utils.NewValidationError("product_id", "product is not available for purchase")
	}
	if quantity < product.MinOrderQuantity {
		return utils.NewValidationError("quantity", "quantity is below the product minimum")
	}
	if product.MaxOrderQuantity > 0 && quantity > product.MaxOrderQuantity {
		return utils.NewValidationError("quantity", "quantity exceeds the product maximum")
	}
	return nil
}

// AddCartItem adds a product to the cart or, if it is already there,
// replaces the quantity and delivery option. The delivery option must
// be one the product's farm actually offers.
func AddCartItem(db *gorm.DB, ctx context.Context, input *NewCartItem) (*Cart, error) {
	product, err := utils.FetchModel[Product](db, ctx, input.ProductId)
	if err != nil {
		return nil, err
	}
	if err := validateCartQuantity(product, input.Quantity); err != nil {
		return nil, err
	}
	if _, err := GetDeliveryOptionForFarm(db, ctx, product.FarmId, input.DeliveryOptionId); err != nil {
		return nil, err
	}

	cart, err := GetCart(db, ctx)
	if err != nil {
		return nil, err
	}

	lineTotal := product.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var item CartItem
	err = tx.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cart.ID, input.ProductId).
		First(&item).Error
	switch err {
	case nil:
		item.Quantity = input.Quantity
		item.DeliveryOptionId = input.DeliveryOptionId
		item.UnitPrice = product.Price
		item.LineTotal = lineTotal
		if err := tx.WithContext(ctx).Save(&item).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	case gorm.ErrRecordNotFound:
		item = CartItem{
			CartId:           cart.ID,
			ProductId:        input.ProductId,
			FarmId:           product.FarmId,
			DeliveryOptionId: input.DeliveryOptionId,
			Quantity:         input.Quantity,
			UnitPrice:        product.Price,
			LineTotal:        lineTotal,
		}
		if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	default:
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetCart(db, ctx)
}

// RemoveCartItem deletes one product from the cart. Removing a product
// that is not in the cart is a no-op.
func RemoveCartItem(db *gorm.DB, ctx context.Context, productId int) (*Cart, error) {
	cart, err := GetCart(db, ctx)
	if err != nil {
		return nil, err
	}
	err = db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cart.ID, productId).
		Delete(&CartItem{}).Error
	if err != nil {
		return nil, err
	}
	return GetCart(db, ctx)
}

// ClearCart empties the cart. Used after checkout and exposed to the
// user directly.
func ClearCart(tx *gorm.DB, ctx context.Context, cartId int) error {
	return tx.WithContext(ctx).
		Where("cart_id = ?", cartId).
		Delete(&CartItem{}).Error
}

// ItemsByFarm groups cart items by the owning farm. Checkout creates
// one fulfillment per farm.
func (c *Cart) ItemsByFarm() map[int][]CartItem {
	grouped := map[int][]CartItem{}
	for _, item := range c.Items {
		grouped[item.FarmId] = append(grouped[item.FarmId], item)
	}
	return grouped
}
