package models

import "gorm.io/gorm"

// MigrateTable creates or updates the schema for every entity. Called
// once at startup after the database connection is established.
func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Farm{},
		&DeliveryOption{},
		&Product{},
		&InventoryAdjustment{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OrderStatusChange{},
		&Payment{},
		&Fulfillment{},
		&AutoReorderSetting{},
		&Review{},
		&FavoriteFarm{},
		&FavoriteProduct{},
		&Message{},
		&Notification{},
		&NotificationEventRecord{},
		&IdempotencyKey{},
	)
}
