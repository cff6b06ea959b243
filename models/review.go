package models

import (
	"context"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	"gorm.io/gorm"
)

// Review is a consumer rating of a farm or a product. A review may
// reference the order it came from; the verified-purchase flag is
// derived from the reviewer's completed orders either way.
type Review struct {
	ID               int       `gorm:"primary_key" json:"id"`
	ConsumerId       int       `gorm:"index;not null" json:"consumer_id"`
	FarmId           *int      `gorm:"index" json:"farm_id"`
	ProductId        *int      `gorm:"index" json:"product_id"`
	OrderId          *int      `gorm:"index" json:"order_id"`
	Rating           int       `gorm:"not null" json:"rating"`
	Title            string    `gorm:"size:255" json:"title"`
	Comment          string    `gorm:"size:2000" json:"comment"`
	VerifiedPurchase bool      `gorm:"not null;default:false" json:"verified_purchase"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewReview struct {
	FarmId    *int   `json:"farm_id"`
	ProductId *int   `json:"product_id"`
	OrderId   *int   `json:"order_id"`
	Rating    int    `json:"rating" binding:"required"`
	Title     string `json:"title"`
	Comment   string `json:"comment"`
}

// CreateReview stores a review of a farm or a product. When an order is
// referenced it must belong to the reviewer, be finished, and contain
// the review target.
func CreateReview(db *gorm.DB, ctx context.Context, input *NewReview) (*Review, error) {
	userId := utils.GetUserId(ctx)
	if input.Rating < 1 || input.Rating > 5 {
		return nil, utils.NewValidationError("rating", "rating must be between 1 and 5")
	}
	if (input.FarmId == nil) == (input.ProductId == nil) {
		return nil, utils.NewValidationError("target", "exactly one of farm_id or product_id is required")
	}
	if input.FarmId != nil {
		if err := utils.ValidateResourceId[Farm](db, ctx, *input.FarmId); err != nil {
			return nil, err
		}
	}
	if input.ProductId != nil {
		if err := utils.ValidateResourceId[Product](db, ctx, *input.ProductId); err != nil {
			return nil, err
		}
	}

	if input.OrderId != nil {
		order, err := GetOrder(db, ctx, *input.OrderId)
		if err != nil {
			return nil, err
		}
		if order.ConsumerId != userId {
			return nil, utils.NewValidationError("order_id", "order does not belong to the reviewer")
		}
		if order.Status != OrderStatusDelivered && order.Status != OrderStatusCompleted {
			return nil, utils.NewValidationError("order_id", "order has not been completed")
		}
		if !orderContainsTarget(order, input.FarmId, input.ProductId) {
			return nil, utils.NewValidationError("order_id", "order does not contain the review target")
		}
	}

	// one review per consumer per target; MySQL unique indexes cannot
	// enforce this across the nullable farm/product columns
	dup := db.WithContext(ctx).Model(&Review{}).Where("consumer_id = ?", userId)
	if input.FarmId != nil {
		dup = dup.Where("farm_id = ?", *input.FarmId)
	} else {
		dup = dup.Where("product_id = ?", *input.ProductId)
	}
	var existing int64
	if err := dup.Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, utils.NewValidationError("target", "already reviewed")
	}

	verified, err := hasCompletedPurchase(db, ctx, userId, input.FarmId, input.ProductId)
	if err != nil {
		return nil, err
	}

	review := Review{
		ConsumerId:       userId,
		FarmId:           input.FarmId,
		ProductId:        input.ProductId,
		OrderId:          input.OrderId,
		Rating:           input.Rating,
		Title:            input.Title,
		Comment:          input.Comment,
		VerifiedPurchase: verified,
	}
	if err := db.WithContext(ctx).Create(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func orderContainsTarget(order *Order, farmId, productId *int) bool {
	for _, item := range order.Items {
		if farmId != nil && item.FarmId == *farmId {
			return true
		}
		if productId != nil && item.ProductId == *productId {
			return true
		}
	}
	return false
}

// hasCompletedPurchase reports whether the consumer has a finished
// order containing the farm or product under review.
func hasCompletedPurchase(db *gorm.DB, ctx context.Context, userId int, farmId, productId *int) (bool, error) {
	query := db.WithContext(ctx).Model(&OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.consumer_id = ? AND orders.status IN ?", userId,
			[]OrderStatus{OrderStatusDelivered, OrderStatusCompleted})
	if farmId != nil {
		query = query.Where("order_items.farm_id = ?", *farmId)
	}
	if productId != nil {
		query = query.Where("order_items.product_id = ?", *productId)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListFarmReviews returns a farm's reviews, newest first.
func ListFarmReviews(db *gorm.DB, ctx context.Context, farmId int) ([]*Review, error) {
	var reviews []*Review
	err := db.WithContext(ctx).
		Where("farm_id = ?", farmId).
		Order("id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// ListProductReviews returns a product's reviews, newest first.
func ListProductReviews(db *gorm.DB, ctx context.Context, productId int) ([]*Review, error) {
	var reviews []*Review
	err := db.WithContext(ctx).
		Where("product_id = ?", productId).
		Order("id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// FarmAverageRating computes the mean rating, 0 when unreviewed.
func FarmAverageRating(db *gorm.DB, ctx context.Context, farmId int) (float64, error) {
	var avg *float64
	err := db.WithContext(ctx).Model(&Review{}).
		Where("farm_id = ?", farmId).
		Select("AVG(rating)").
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}
