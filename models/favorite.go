package models

import (
	"context"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	"gorm.io/gorm"
)

// FavoriteFarm bookmarks a farm for a consumer.
type FavoriteFarm struct {
	ID        int       `gorm:"primary_key" json:"id"`
	UserId    int       `gorm:"uniqueIndex:idx_user_farm;not null" json:"user_id"`
	FarmId    int       `gorm:"uniqueIndex:idx_user_farm;not null" json:"farm_id"`
	Farm      *Farm     `json:"farm,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AddFavoriteFarm bookmarks a farm. Re-adding an existing favorite is
// a no-op.
func AddFavoriteFarm(db *gorm.DB, ctx context.Context, farmId int) error {
	userId := utils.GetUserId(ctx)
	if err := utils.ValidateResourceId[Farm](db, ctx, farmId); err != nil {
		return err
	}
	favorite := FavoriteFarm{UserId: userId, FarmId: farmId}
	err := db.WithContext(ctx).Create(&favorite).Error
	if err != nil && !IsDuplicateKeyError(err) {
		return err
	}
	return nil
}

func RemoveFavoriteFarm(db *gorm.DB, ctx context.Context, farmId int) error {
	userId := utils.GetUserId(ctx)
	return db.WithContext(ctx).
		Where("user_id = ? AND farm_id = ?", userId, farmId).
		Delete(&FavoriteFarm{}).Error
}

// ListFavoriteFarms returns the current user's bookmarked farms.
func ListFavoriteFarms(db *gorm.DB, ctx context.Context) ([]*FavoriteFarm, error) {
	userId := utils.GetUserId(ctx)
	var favorites []*FavoriteFarm
	err := db.WithContext(ctx).
		Preload("Farm").
		Where("user_id = ?", userId).
		Order("id DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, err
	}
	return favorites, nil
}

// FavoriteProduct bookmarks a product for a consumer.
type FavoriteProduct struct {
	ID        int       `gorm:"primary_key" json:"id"`
	UserId    int       `gorm:"uniqueIndex:idx_user_product;not null" json:"user_id"`
	ProductId int       `gorm:"uniqueIndex:idx_user_product;not null" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AddFavoriteProduct bookmarks a product. Re-adding an existing
// favorite is a no-op.
func AddFavoriteProduct(db *gorm.DB, ctx context.Context, productId int) error {
	userId := utils.GetUserId(ctx)
	if err := utils.ValidateResourceId[Product](db, ctx, productId); err != nil {
		return err
	}
	favorite := FavoriteProduct{UserId: userId, ProductId: productId}
	err := db.WithContext(ctx).Create(&favorite).Error
	if err != nil && !IsDuplicateKeyError(err) {
		return err
	}
	return nil
}

func RemoveFavoriteProduct(db *gorm.DB, ctx context.Context, productId int) error {
	userId := utils.GetUserId(ctx)
	return db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userId, productId).
		Delete(&FavoriteProduct{}).Error
}

// ListFavoriteProducts returns the current user's bookmarked products.
func ListFavoriteProducts(db *gorm.DB, ctx context.Context) ([]*FavoriteProduct, error) {
	userId := utils.GetUserId(ctx)
	var favorites []*FavoriteProduct
	err := db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userId).
		Order("id DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, err
	}
	return favorites, nil
}
