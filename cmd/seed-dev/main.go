// Command seed-dev populates a development database with a small
// working dataset: one farm with delivery options, a product catalog
// with ledger-backed stock, a consumer with a paid order, and an
// active auto-reorder setting.
package main

import (
	"context"
	"log"
	"time"

	"github.com/farmdirect/marketplace_backend/config"
	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/farmdirect/marketplace_backend/workflow"
	"github.com/shopspring/decimal"
)

func main() {
	db := config.ConnectDatabaseWithRetry()
	defer config.CloseDatabase(db)

	if err := models.MigrateTable(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	ctx := context.Background()

	farmer, err := models.CreateUser(db, ctx, &models.NewUser{
		Email:       "farmer@greenvalley.test",
		Password:    "password123",
		Role:        models.UserRoleFarmer,
		DisplayName: "Green Valley",
		FirstName:   "Grace",
		LastName:    "Fields",
	})
	if err != nil {
		log.Fatalf("seed farmer: %v", err)
	}
	farmerCtx := utils.SetUserIdInContext(ctx, farmer.ID)

	consumer, err := models.CreateUser(db, ctx, &models.NewUser{
		Email:        "consumer@example.test",
		Password:     "password123",
		Role:         models.UserRoleConsumer,
		DisplayName:  "Casey",
		FirstName:    "Casey",
		LastName:     "Nguyen",
		AddressLine1: "12 Orchard Lane",
		City:         "Portland",
		State:        "OR",
		PostalCode:   "97201",
		Country:      "US",
	})
	if err != nil {
		log.Fatalf("seed consumer: %v", err)
	}
	consumerCtx := utils.SetUserIdInContext(ctx, consumer.ID)

	farm, err := models.CreateFarm(db, farmerCtx, &models.NewFarm{
		Name:        "Green Valley Farm",
		Slug:        "green-valley-farm",
		Description: "Family-run vegetable farm",
		City:        "Hillsboro",
		State:       "OR",
		DeliveryOptions: []models.NewDeliveryOption{
			{Type: models.DeliveryTypeLocalDelivery, Name: "Local delivery", Fee: decimal.NewFromFloat(7.50)},
			{Type: models.DeliveryTypePickup, Name: "Farm stand pickup", Fee: decimal.Zero},
		},
	})
	if err != nil {
		log.Fatalf("seed farm: %v", err)
	}
	if _, err := models.ActivateFarm(db, farmerCtx, farm.ID); err != nil {
		log.Fatalf("activate farm: %v", err)
	}

	tomatoes, err := models.CreateProduct(db, farmerCtx, &models.NewProduct{
		FarmId:           farm.ID,
		Name:             "Heirloom Tomatoes",
		Slug:             "heirloom-tomatoes",
		Unit:             "lb",
		Price:            decimal.NewFromFloat(4.50),
		Category:         models.ProductCategoryVegetables,
		Status:           models.ProductStatusActive,
		MinOrderQuantity: 1,
		OpeningStock:     120,
	})
	if err != nil {
		log.Fatalf("seed tomatoes: %v", err)
	}
	eggs, err := models.CreateProduct(db, farmerCtx, &models.NewProduct{
		FarmId:           farm.ID,
		Name:             "Pasture Eggs",
		Slug:             "pasture-eggs",
		Unit:             "dozen",
		Price:            decimal.NewFromFloat(6.50),
		Category:         models.ProductCategoryEggs,
		Status:           models.ProductStatusActive,
		MinOrderQuantity: 1,
		OpeningStock:     40,
	})
	if err != nil {
		log.Fatalf("seed eggs: %v", err)
	}

	// ledger history: restock then a manual sale correction
	for _, adj := range []models.NewInventoryAdjustment{
		{ProductId: tomatoes.ID, QuantityChange: 150, AdjustmentType: models.InventoryAdjustmentTypeRestock, CreatedById: farmer.ID, Note: "Weekly harvest"},
		{ProductId: tomatoes.ID, QuantityChange: -3, AdjustmentType: models.InventoryAdjustmentTypeSale, CreatedById: farmer.ID, Note: "Farm stand sale"},
	} {
		tx := db.Begin()
		if _, err := models.RecordAdjustment(tx, farmerCtx, &adj, nil); err != nil {
			tx.Rollback()
			log.Fatalf("seed adjustment: %v", err)
		}
		if err := tx.Commit().Error; err != nil {
			log.Fatalf("seed adjustment commit: %v", err)
		}
	}

	options, err := models.GetFarmDeliveryOptions(db, ctx, farm.ID)
	if err != nil || len(options) == 0 {
		log.Fatalf("load delivery options: %v", err)
	}
	deliveryOption := options[0]

	// a paid order: 2 lb tomatoes + 2 dozen eggs = 22.00 subtotal
	for _, item := range []models.NewCartItem{
		{ProductId: tomatoes.ID, DeliveryOptionId: deliveryOption.ID, Quantity: 2},
		{ProductId: eggs.ID, DeliveryOptionId: deliveryOption.ID, Quantity: 2},
	} {
		if _, err := models.AddCartItem(db, consumerCtx, &item); err != nil {
			log.Fatalf("seed cart: %v", err)
		}
	}
	order, err := workflow.PlaceOrder(db, consumerCtx, &workflow.PlaceOrderInput{
		DeliveryAddress: consumer.FormattedAddress(),
	})
	if err != nil {
		log.Fatalf("seed order: %v", err)
	}
	if _, err := workflow.RecordPayment(db, consumerCtx, workflow.LocalPaymentProvider{}, &workflow.RecordPaymentInput{
		OrderId: order.ID,
		Amount:  order.Total,
		Method:  "card",
	}); err != nil {
		log.Fatalf("seed payment: %v", err)
	}

	if err := models.AddFavoriteFarm(db, consumerCtx, farm.ID); err != nil {
		log.Fatalf("seed favorite farm: %v", err)
	}
	if err := models.AddFavoriteProduct(db, consumerCtx, tomatoes.ID); err != nil {
		log.Fatalf("seed favorite product: %v", err)
	}
	if _, err := models.CreateReview(db, consumerCtx, &models.NewReview{
		FarmId:  &farm.ID,
		Rating:  5,
		Title:   "Incredible freshness",
		Comment: "The tomatoes stayed firm for a full week.",
	}); err != nil {
		log.Fatalf("seed review: %v", err)
	}
	if _, err := models.SendMessage(db, consumerCtx, &models.NewMessage{
		RecipientId: farmer.ID,
		FarmId:      &farm.ID,
		OrderId:     &order.ID,
		Subject:     "Cooking suggestions?",
		Body:        "Do you have recipe recommendations for the heirloom tomatoes?",
	}); err != nil {
		log.Fatalf("seed message: %v", err)
	}

	if _, err := models.CreateAutoReorderSetting(db, consumerCtx, &models.NewAutoReorderSetting{
		ProductId:        eggs.ID,
		DeliveryOptionId: deliveryOption.ID,
		Quantity:         1,
		Frequency:        models.FrequencyWeekly,
		NextOrderDate:    time.Now().AddDate(0, 0, 7),
	}); err != nil {
		log.Fatalf("seed auto-reorder: %v", err)
	}

	log.Printf("seeded: farm=%d tomatoes=%d eggs=%d order=%s", farm.ID, tomatoes.ID, eggs.ID, order.OrderNumber)
}
