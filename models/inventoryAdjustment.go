package models

import (
	"context"
	"errors"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	"gorm.io/gorm"
)

// InventoryAdjustment is an append-only ledger entry. Rows are never
// updated or deleted; corrections are new offsetting entries. A
// product's current stock is the running sum of its deltas.
type InventoryAdjustment struct {
	ID             int                     `gorm:"primary_key" json:"id"`
	ProductId      int                     `gorm:"index;not null" json:"product_id" binding:"required"`
	QuantityChange int                     `gorm:"not null" json:"quantity_change" binding:"required"`
	AdjustmentType InventoryAdjustmentType `gorm:"type:enum('RESTOCK','SALE','CORRECTION','SPOILAGE');not null" json:"adjustment_type" binding:"required"`
	CreatedById    int                     `gorm:"index" json:"created_by_id"`
	Note           string                  `gorm:"size:255" json:"note"`
	CreatedAt      time.Time               `gorm:"autoCreateTime" json:"created_at"`
}

type NewInventoryAdjustment struct {
	ProductId      int                     `json:"product_id" binding:"required"`
	QuantityChange int                     `json:"quantity_change" binding:"required"`
	AdjustmentType InventoryAdjustmentType `json:"adjustment_type" binding:"required"`
	CreatedById    int                     `json:"created_by_id"`
	Note           string                  `json:"note"`
}

// StockPolicy decides whether a SALE that would drive projected stock
// negative is allowed. The default rejects unless backorders are
// enabled; tests and callers with special needs plug their own.
type StockPolicy interface {
	AllowNegativeStock(productId int) bool
}

type BackorderPolicy struct {
	Allow bool
}

func (p BackorderPolicy) AllowNegativeStock(int) bool { return p.Allow }

// ValidateAdjustment enforces sign/type consistency before any write:
// restocks add, sales and spoilage subtract, corrections may do either
// but never nothing.
func ValidateAdjustment(adjustmentType InventoryAdjustmentType, delta int) error {
	if delta == 0 {
		return utils.NewValidationError("quantity_change", "delta must not be zero")
	}
	switch adjustmentType {
	case InventoryAdjustmentTypeRestock:
		if delta < 0 {
			return utils.NewValidationError("quantity_change", "restock delta must be positive")
		}
	case InventoryAdjustmentTypeSale, InventoryAdjustmentTypeSpoilage:
		if delta > 0 {
			return utils.NewValidationError("quantity_change", "sale/spoilage delta must be negative")
		}
	case InventoryAdjustmentTypeCorrection:
		// any non-zero delta
	default:
		return utils.NewValidationError("adjustment_type", "unknown adjustment type")
	}
	return nil
}

// CurrentStock is the running sum of all ledger deltas for a product.
// Callers inside a transaction see uncommitted ledger rows of that
// transaction, which is what the pre-sale check needs.
func CurrentStock(tx *gorm.DB, ctx context.Context, productId int) (int, error) {
	var total *int
	err := tx.WithContext(ctx).Model(&InventoryAdjustment{}).
		Where("product_id = ?", productId).
		Select("SUM(quantity_change)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// recordAdjustmentTx appends a ledger row and refreshes the product's
// stock cache inside the caller's transaction. No policy check here;
// RecordAdjustment wraps it with validation and the stock policy.
func recordAdjustmentTx(tx *gorm.DB, input *NewInventoryAdjustment) (*InventoryAdjustment, error) {
	adjustment := InventoryAdjustment{
		ProductId:      input.ProductId,
		QuantityChange: input.QuantityChange,
		AdjustmentType: input.AdjustmentType,
		CreatedById:    input.CreatedById,
		Note:           input.Note,
	}
	if err := tx.Create(&adjustment).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&Product{}).Where("id = ?", input.ProductId).
		Update("stock_cache_qty", gorm.Expr(
			"(SELECT COALESCE(SUM(quantity_change), 0) FROM inventory_adjustments WHERE product_id = ?)",
			input.ProductId,
		)).Error; err != nil {
		return nil, err
	}
	return &adjustment, nil
}

// RecordAdjustment validates and appends a ledger entry inside the
// caller's transaction. The product row is locked FOR UPDATE so the
// projected-stock check for negative deltas is serialized per product;
// workflow.WithProductStockLock adds a cross-process lock on top but
// correctness does not depend on it.
func RecordAdjustment(tx *gorm.DB, ctx context.Context, input *NewInventoryAdjustment, policy StockPolicy) (*InventoryAdjustment, error) {

	if err := ValidateAdjustment(input.AdjustmentType, input.QuantityChange); err != nil {
		return nil, err
	}

	var product Product
	if err := tx.WithContext(ctx).Clauses(forUpdateClause()).
		First(&product, "id = ?", input.ProductId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	if input.QuantityChange < 0 && product.IsSellable() {
		stock, err := CurrentStock(tx, ctx, input.ProductId)
		if err != nil {
			return nil, err
		}
		projected := stock + input.QuantityChange
		if projected < 0 && (policy == nil || !policy.AllowNegativeStock(input.ProductId)) {
			return nil, &utils.InsufficientStockError{
				ProductId: input.ProductId,
				Requested: -input.QuantityChange,
				Available: stock,
			}
		}
	}

	return recordAdjustmentTx(tx.WithContext(ctx), input)
}

// ListAdjustments returns the ledger for a product, newest first.
func ListAdjustments(db *gorm.DB, ctx context.Context, productId int) ([]*InventoryAdjustment, error) {
	var adjustments []*InventoryAdjustment
	err := db.WithContext(ctx).
		Where("product_id = ?", productId).
		Order("id DESC").
		Find(&adjustments).Error
	if err != nil {
		return nil, err
	}
	return adjustments, nil
}
