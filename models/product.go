package models

import (
	"context"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID               int             `gorm:"primary_key" json:"id"`
	FarmId           int             `gorm:"index;not null" json:"farm_id" binding:"required"`
	Name             string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Slug             string          `gorm:"size:120;not null;uniqueIndex" json:"slug"`
	Sku              string          `gorm:"size:64" json:"sku"`
	Description      string          `gorm:"type:text" json:"description"`
	Price            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price" binding:"required"`
	Unit             string          `gorm:"size:50;not null" json:"unit" binding:"required"`
	MinOrderQuantity int             `gorm:"not null;default:1" json:"min_order_quantity"`
	MaxOrderQuantity int             `gorm:"default:0" json:"max_order_quantity"`
	// StockCacheQty is a cache of the running adjustment sum, refreshed
	// inside the same transaction as every RecordAdjustment. The ledger
	// is the source of truth; never write this column directly.
	StockCacheQty int             `gorm:"not null;default:0" json:"stock_quantity"`
	LeadTimeDays  int             `gorm:"default:0" json:"lead_time_days"`
	Organic       *bool           `gorm:"not null;default:false" json:"organic"`
	Seasonality   string          `gorm:"size:100" json:"seasonality"`
	Category      ProductCategory `gorm:"type:enum('VEGETABLES','FRUITS','HERBS','EGGS','DAIRY','MEAT','PANTRY','OTHER');not null;default:'OTHER'" json:"category"`
	Status        ProductStatus   `gorm:"type:enum('DRAFT','ACTIVE','ARCHIVED');not null;default:'DRAFT'" json:"status"`
	Tags          string          `gorm:"size:255" json:"tags"`
	IsFeatured    *bool           `gorm:"not null;default:false" json:"is_featured"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	FarmId           int             `json:"farm_id" binding:"required"`
	Name             string          `json:"name" binding:"required"`
	Slug             string          `json:"slug" binding:"required"`
	Sku              string          `json:"sku"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price" binding:"required"`
	Unit             string          `json:"unit" binding:"required"`
	MinOrderQuantity int             `json:"min_order_quantity"`
	MaxOrderQuantity int             `json:"max_order_quantity"`
	OpeningStock     int             `json:"opening_stock"`
	LeadTimeDays     int             `json:"lead_time_days"`
	Organic          *bool           `json:"organic"`
	Seasonality      string          `json:"seasonality"`
	Category         ProductCategory `json:"category"`
	Status           ProductStatus   `json:"status"`
	Tags             string          `json:"tags"`
}

func (obj Product) GetId() int {
	return obj.ID
}

func (p Product) IsSellable() bool {
	return p.Status == ProductStatusActive
}

func (input *NewProduct) validate(db *gorm.DB, ctx context.Context) error {
	if err := utils.ValidateResourceId[Farm](db, ctx, input.FarmId); err != nil {
		return utils.NewValidationError("farm_id", "farm not found")
	}
	if err := utils.ValidateUnique[Product](db, ctx, "slug", input.Slug, 0); err != nil {
		return err
	}
	if input.Price.IsNegative() || input.Price.IsZero() {
		return utils.NewValidationError("price", "must be positive")
	}
	if input.OpeningStock < 0 {
		return utils.NewValidationError("opening_stock", "must not be negative")
	}
	if input.MinOrderQuantity < 0 || input.MaxOrderQuantity < 0 {
		return utils.NewValidationError("order_quantity", "must not be negative")
	}
	if input.MaxOrderQuantity > 0 && input.MinOrderQuantity > input.MaxOrderQuantity {
		return utils.NewValidationError("order_quantity", "min exceeds max")
	}
	return nil
}

func CreateProduct(db *gorm.DB, ctx context.Context, input *NewProduct) (*Product, error) {

	if err := input.validate(db, ctx); err != nil {
		return nil, err
	}

	minQty := input.MinOrderQuantity
	if minQty == 0 {
		minQty = 1
	}
	category := input.Category
	if category == "" {
		category = ProductCategoryOther
	}
	status := input.Status
	if status == "" {
		status = ProductStatusDraft
	}
	organic := input.Organic
	if organic == nil {
		organic = utils.NewFalse()
	}

	product := Product{
		FarmId:           input.FarmId,
		Name:             input.Name,
		Slug:             input.Slug,
		Sku:              input.Sku,
		Description:      input.Description,
		Price:            input.Price,
		Unit:             input.Unit,
		MinOrderQuantity: minQty,
		MaxOrderQuantity: input.MaxOrderQuantity,
		LeadTimeDays:     input.LeadTimeDays,
		Organic:          organic,
		Seasonality:      input.Seasonality,
		Category:         category,
		Status:           status,
		Tags:             input.Tags,
		IsFeatured:       utils.NewFalse(),
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// Opening stock goes through the ledger like every other delta.
	if input.OpeningStock > 0 {
		userId, _ := utils.GetUserIdFromContext(ctx)
		if _, err := recordAdjustmentTx(tx.WithContext(ctx), &NewInventoryAdjustment{
			ProductId:      product.ID,
			QuantityChange: input.OpeningStock,
			AdjustmentType: InventoryAdjustmentTypeRestock,
			CreatedById:    userId,
			Note:           "Opening stock",
		}); err != nil {
			tx.Rollback()
			return nil, err
		}
		product.StockCacheQty = input.OpeningStock
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &product, nil
}

func GetProduct(db *gorm.DB, ctx context.Context, id int) (*Product, error) {
	return utils.FetchModel[Product](db, ctx, id)
}

type UpdateProductInput struct {
	Name             *string          `json:"name"`
	Description      *string          `json:"description"`
	Price            *decimal.Decimal `json:"price"`
	Unit             *string          `json:"unit"`
	MinOrderQuantity *int             `json:"min_order_quantity"`
	MaxOrderQuantity *int             `json:"max_order_quantity"`
	LeadTimeDays     *int             `json:"lead_time_days"`
	Status           *ProductStatus   `json:"status"`
	Tags             *string          `json:"tags"`
}

// UpdateProduct applies partial field updates. Stock is deliberately
// not updatable here; use inventory adjustments.
func UpdateProduct(db *gorm.DB, ctx context.Context, id int, input *UpdateProductInput) (*Product, error) {
	product, err := utils.FetchModel[Product](db, ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["Name"] = *input.Name
	}
	if input.Description != nil {
		updates["Description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() || input.Price.IsZero() {
			return nil, utils.NewValidationError("price", "must be positive")
		}
		updates["Price"] = *input.Price
	}
	if input.Unit != nil {
		updates["Unit"] = *input.Unit
	}
	if input.MinOrderQuantity != nil {
		updates["MinOrderQuantity"] = *input.MinOrderQuantity
	}
	if input.MaxOrderQuantity != nil {
		updates["MaxOrderQuantity"] = *input.MaxOrderQuantity
	}
	if input.LeadTimeDays != nil {
		updates["LeadTimeDays"] = *input.LeadTimeDays
	}
	if input.Status != nil {
		updates["Status"] = *input.Status
	}
	if input.Tags != nil {
		updates["Tags"] = *input.Tags
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// ListActiveProducts returns sellable catalog entries for a farm, or
// for every farm when farmId is zero.
func ListActiveProducts(db *gorm.DB, ctx context.Context, farmId int) ([]*Product, error) {
	dbCtx := db.WithContext(ctx).Where("status = ?", ProductStatusActive)
	if farmId > 0 {
		dbCtx = dbCtx.Where("farm_id = ?", farmId)
	}
	var products []*Product
	if err := dbCtx.Order("name ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
