package handlers

import (
	"net/http"

	"github.com/farmdirect/marketplace_backend/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func getCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := models.GetCart(db, c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func addCartItemHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCartItem
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cart, err := models.AddCartItem(db, c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func removeCartItemHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		productId, ok := pathId(c, "productId")
		if !ok {
			return
		}
		cart, err := models.RemoveCartItem(db, c.Request.Context(), productId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func clearCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		cart, err := models.GetCart(db, ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := models.ClearCart(db, ctx, cart.ID); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
