package handlers

import (
	"net/http"

	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type advanceFulfillmentRequest struct {
	NextStatus string `json:"next_status" binding:"required"`
}

func advanceFulfillmentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var body advanceFulfillmentRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		next, err := models.ParseFulfillmentStatus(body.NextStatus)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fulfillment, err := workflow.AdvanceFulfillment(db, c.Request.Context(), id, next)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, fulfillment)
	}
}

func updateFulfillmentTrackingHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.UpdateFulfillmentTracking
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fulfillment, err := models.SetFulfillmentTracking(db, c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, fulfillment)
	}
}

func listOrderFulfillmentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, ok := pathId(c, "id")
		if !ok {
			return
		}
		fulfillments, err := models.ListOrderFulfillments(db, c.Request.Context(), orderId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, fulfillments)
	}
}
