package handlers

import (
	"net/http"

	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func placeOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.PlaceOrderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order, err := workflow.PlaceOrder(db, c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func getOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		order, err := models.GetOrder(db, c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func listOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var statuses []models.OrderStatus
		if raw := c.Query("status"); raw != "" {
			status, err := models.ParseOrderStatus(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			statuses = append(statuses, status)
		}
		orders, err := models.ListConsumerOrders(db, c.Request.Context(), statuses)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func listFarmOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		farmId, ok := pathId(c, "id")
		if !ok {
			return
		}
		orders, err := models.ListFarmOrders(db, c.Request.Context(), farmId, nil)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func cancelOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var body struct {
			Note string `json:"note"`
		}
		_ = c.ShouldBindJSON(&body)
		order, err := workflow.CancelOrder(db, c.Request.Context(), id, body.Note)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func recordPaymentHandler(db *gorm.DB, provider workflow.PaymentProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.RecordPaymentInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		payment, err := workflow.RecordPayment(db, c.Request.Context(), provider, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	}
}

func confirmOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		order, err := workflow.ConfirmOrder(db, c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func refundOrderHandler(db *gorm.DB, provider workflow.PaymentProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		order, err := workflow.RefundOrder(db, c.Request.Context(), provider, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
