package handlers

import (
	"net/http"

	"github.com/farmdirect/marketplace_backend/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func createReviewHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewReview
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		review, err := models.CreateReview(db, c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, review)
	}
}

func addFavoriteFarmHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		farmId, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := models.AddFavoriteFarm(db, c.Request.Context(), farmId); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func removeFavoriteFarmHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		farmId, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := models.RemoveFavoriteFarm(db, c.Request.Context(), farmId); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func addFavoriteProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		productId, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := models.AddFavoriteProduct(db, c.Request.Context(), productId); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func removeFavoriteProductHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		productId, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := models.RemoveFavoriteProduct(db, c.Request.Context(), productId); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func listFavoritesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		farms, err := models.ListFavoriteFarms(db, ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		products, err := models.ListFavoriteProducts(db, ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"farms": farms, "products": products})
	}
}

func sendMessageHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewMessage
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		message, err := models.SendMessage(db, c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, message)
	}
}

func conversationHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		otherUserId, ok := pathId(c, "userId")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		messages, err := models.ListConversation(db, ctx, otherUserId, 0)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := models.MarkConversationRead(db, ctx, otherUserId); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, messages)
	}
}

func listNotificationsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		unreadOnly := c.Query("unread") == "true"
		notifications, err := models.ListNotifications(db, c.Request.Context(), unreadOnly, 0)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, notifications)
	}
}

func markNotificationReadHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := models.MarkNotificationRead(db, c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func markAllNotificationsReadHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.MarkAllNotificationsRead(db, c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
