package models

import (
	"context"
	"fmt"
	"time"

	"github.com/farmdirect/marketplace_backend/config"
	"github.com/farmdirect/marketplace_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Farm struct {
	ID                 int               `gorm:"primary_key" json:"id"`
	OwnerUserId        int               `gorm:"index;not null" json:"owner_user_id" binding:"required"`
	Name               string            `gorm:"size:100;not null" json:"name" binding:"required"`
	Slug               string            `gorm:"size:120;not null;uniqueIndex" json:"slug"`
	Headline           string            `gorm:"size:255" json:"headline"`
	Description        string            `gorm:"type:text" json:"description"`
	Phone              string            `gorm:"size:30" json:"phone"`
	Email              string            `gorm:"size:255" json:"email"`
	Website            string            `gorm:"size:255" json:"website"`
	AddressLine1       string            `gorm:"size:255" json:"address_line1"`
	City               string            `gorm:"size:100" json:"city"`
	State              string            `gorm:"size:100" json:"state"`
	PostalCode         string            `gorm:"size:20" json:"postal_code"`
	Country            string            `gorm:"size:100" json:"country"`
	MinOrderAmount     decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"min_order_amount"`
	PickupInstructions string            `gorm:"type:text" json:"pickup_instructions"`
	DeliveryNotes      string            `gorm:"type:text" json:"delivery_notes"`
	Tags               string            `gorm:"size:255" json:"tags"`
	Status             FarmStatus        `gorm:"type:enum('ACTIVE','PENDING_REVIEW','SUSPENDED');not null;default:'PENDING_REVIEW'" json:"status"`
	DeliveryOptions    []*DeliveryOption `gorm:"foreignKey:FarmId" json:"delivery_options"`
	CreatedAt          time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFarm struct {
	Name               string              `json:"name" binding:"required"`
	Slug               string              `json:"slug" binding:"required"`
	Headline           string              `json:"headline"`
	Description        string              `json:"description"`
	Phone              string              `json:"phone"`
	Email              string              `json:"email"`
	Website            string              `json:"website"`
	AddressLine1       string              `json:"address_line1"`
	City               string              `json:"city"`
	State              string              `json:"state"`
	PostalCode         string              `json:"postal_code"`
	Country            string              `json:"country"`
	MinOrderAmount     decimal.Decimal     `json:"min_order_amount"`
	PickupInstructions string              `json:"pickup_instructions"`
	DeliveryNotes      string              `json:"delivery_notes"`
	Tags               string              `json:"tags"`
	DeliveryOptions    []NewDeliveryOption `json:"delivery_options"`
}

type DeliveryOption struct {
	ID           int             `gorm:"primary_key" json:"id"`
	FarmId       int             `gorm:"index;not null" json:"farm_id" binding:"required"`
	Type         DeliveryType    `gorm:"type:enum('PICKUP','LOCAL_DELIVERY','SHIPPING');not null" json:"type" binding:"required"`
	Name         string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Description  string          `gorm:"size:255" json:"description"`
	Fee          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"fee"`
	MinimumOrder decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"minimum_order"`
	RadiusKm     decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"radius_km"`
	CutoffTime   string          `gorm:"size:10" json:"cutoff_time"`
	IsEnabled    *bool           `gorm:"not null;default:true" json:"is_enabled"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDeliveryOption struct {
	Type         DeliveryType    `json:"type" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	Fee          decimal.Decimal `json:"fee"`
	MinimumOrder decimal.Decimal `json:"minimum_order"`
	RadiusKm     decimal.Decimal `json:"radius_km"`
	CutoffTime   string          `json:"cutoff_time"`
}

func (obj Farm) GetId() int {
	return obj.ID
}

func (input *NewFarm) validate(db *gorm.DB, ctx context.Context) error {
	if err := utils.ValidateUnique[Farm](db, ctx, "slug", input.Slug, 0); err != nil {
		return err
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return utils.NewValidationError("phone", "invalid phone number")
		}
	}
	if input.MinOrderAmount.IsNegative() {
		return utils.NewValidationError("min_order_amount", "must not be negative")
	}
	for _, opt := range input.DeliveryOptions {
		if opt.Fee.IsNegative() || opt.MinimumOrder.IsNegative() {
			return utils.NewValidationError("delivery_options", "fee and minimum order must not be negative")
		}
	}
	return nil
}

func CreateFarm(db *gorm.DB, ctx context.Context, input *NewFarm) (*Farm, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, utils.NewValidationError("user", "user id is required")
	}

	if err := input.validate(db, ctx); err != nil {
		return nil, err
	}

	var options []*DeliveryOption
	for _, opt := range input.DeliveryOptions {
		options = append(options, &DeliveryOption{
			Type:         opt.Type,
			Name:         opt.Name,
			Description:  opt.Description,
			Fee:          opt.Fee,
			MinimumOrder: opt.MinimumOrder,
			RadiusKm:     opt.RadiusKm,
			CutoffTime:   opt.CutoffTime,
			IsEnabled:    utils.NewTrue(),
		})
	}

	farm := Farm{
		OwnerUserId:        userId,
		Name:               input.Name,
		Slug:               input.Slug,
		Headline:           input.Headline,
		Description:        input.Description,
		Phone:              input.Phone,
		Email:              input.Email,
		Website:            input.Website,
		AddressLine1:       input.AddressLine1,
		City:               input.City,
		State:              input.State,
		PostalCode:         input.PostalCode,
		Country:            input.Country,
		MinOrderAmount:     input.MinOrderAmount,
		PickupInstructions: input.PickupInstructions,
		DeliveryNotes:      input.DeliveryNotes,
		Tags:               input.Tags,
		Status:             FarmStatusPendingReview,
		DeliveryOptions:    options,
	}

	if err := db.WithContext(ctx).Create(&farm).Error; err != nil {
		return nil, err
	}

	return &farm, nil
}

func GetFarm(db *gorm.DB, ctx context.Context, id int) (*Farm, error) {
	return utils.FetchModel[Farm](db, ctx, id, "DeliveryOptions")
}

// GetFarmDeliveryOptions returns the farm's delivery options, cached in
// redis with a short TTL since catalog reads dominate checkout traffic.
func GetFarmDeliveryOptions(db *gorm.DB, ctx context.Context, farmId int) ([]*DeliveryOption, error) {
	var options []*DeliveryOption
	redisKey := fmt.Sprintf("farmDeliveryOptions:%d", farmId)
	exists, err := config.GetRedisObject(redisKey, &options)
	if err != nil {
		return nil, err
	}
	if exists {
		return options, nil
	}
	if err := db.WithContext(ctx).Where("farm_id = ?", farmId).Find(&options).Error; err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(redisKey, &options, 5*time.Minute); err != nil {
		return nil, err
	}
	return options, nil
}

// GetDeliveryOptionForFarm loads a delivery option and verifies it is
// offered by the given farm and enabled. The cached list is for
// catalog reads only; checkout validation goes straight to the
// database so a just-disabled option cannot ride out a cache TTL.
// (may return ErrorRecordNotFound)
func GetDeliveryOptionForFarm(db *gorm.DB, ctx context.Context, farmId int, deliveryOptionId int) (*DeliveryOption, error) {
	var opt DeliveryOption
	err := db.WithContext(ctx).
		Where("id = ? AND farm_id = ?", deliveryOptionId, farmId).
		First(&opt).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if opt.IsEnabled != nil && !*opt.IsEnabled {
		return nil, utils.NewValidationError("delivery_option", "delivery option is disabled")
	}
	return &opt, nil
}

// ActivateFarm moves a farm out of review. Admin only; ownership checks
// happen at the handler layer.
func ActivateFarm(db *gorm.DB, ctx context.Context, id int) (*Farm, error) {
	farm, err := utils.FetchModel[Farm](db, ctx, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(farm).Update("Status", FarmStatusActive).Error; err != nil {
		return nil, err
	}
	farm.Status = FarmStatusActive
	return farm, nil
}
