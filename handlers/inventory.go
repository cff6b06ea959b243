package handlers

import (
	"net/http"

	"github.com/farmdirect/marketplace_backend/config"
	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/farmdirect/marketplace_backend/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type adjustInventoryRequest struct {
	ProductId      int    `json:"product_id" binding:"required"`
	QuantityChange int    `json:"quantity_change" binding:"required"`
	AdjustmentType string `json:"adjustment_type" binding:"required"`
	Note           string `json:"note"`
}

func adjustInventoryHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body adjustInventoryRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		adjustmentType, err := models.ParseInventoryAdjustmentType(body.AdjustmentType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		input := models.NewInventoryAdjustment{
			ProductId:      body.ProductId,
			QuantityChange: body.QuantityChange,
			AdjustmentType: adjustmentType,
			CreatedById:    utils.GetUserId(ctx),
			Note:           body.Note,
		}
		policy := models.BackorderPolicy{Allow: config.AllowBackorders()}

		var adjustment *models.InventoryAdjustment
		err = workflow.WithProductStockLock(ctx, body.ProductId, func() error {
			tx := db.Begin()
			created, err := models.RecordAdjustment(tx, ctx, &input, policy)
			if err != nil {
				tx.Rollback()
				return err
			}
			if err := tx.Commit().Error; err != nil {
				return err
			}
			adjustment = created
			return nil
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, adjustment)
	}
}

func listAdjustmentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		productId, ok := pathId(c, "id")
		if !ok {
			return
		}
		adjustments, err := models.ListAdjustments(db, c.Request.Context(), productId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, adjustments)
	}
}

func currentStockHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		productId, ok := pathId(c, "id")
		if !ok {
			return
		}
		stock, err := models.CurrentStock(db, c.Request.Context(), productId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"product_id": productId, "current_stock": stock})
	}
}
