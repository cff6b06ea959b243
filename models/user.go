package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/farmdirect/marketplace_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID             int       `gorm:"primary_key" json:"id"`
	Email          string    `gorm:"size:255;not null;uniqueIndex" json:"email" binding:"required"`
	HashedPassword string    `gorm:"size:255;not null" json:"-"`
	Role           UserRole  `gorm:"type:enum('CONSUMER','FARMER','ADMIN');not null;default:'CONSUMER'" json:"role"`
	DisplayName    string    `gorm:"size:100" json:"display_name"`
	FirstName      string    `gorm:"size:100" json:"first_name"`
	LastName       string    `gorm:"size:100" json:"last_name"`
	Phone          string    `gorm:"size:30" json:"phone"`
	AddressLine1   string    `gorm:"size:255" json:"address_line1"`
	City           string    `gorm:"size:100" json:"city"`
	State          string    `gorm:"size:100" json:"state"`
	PostalCode     string    `gorm:"size:20" json:"postal_code"`
	Country        string    `gorm:"size:100" json:"country"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Email        string   `json:"email" binding:"required"`
	Password     string   `json:"password" binding:"required,min=8"`
	Role         UserRole `json:"role"`
	DisplayName  string   `json:"display_name"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Phone        string   `json:"phone"`
	AddressLine1 string   `json:"address_line1"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	PostalCode   string   `json:"postal_code"`
	Country      string   `json:"country"`
}

// FormattedAddress renders the profile address as a one-line delivery
// address snapshot.
func (obj User) FormattedAddress() string {
	parts := []string{}
	for _, p := range []string{obj.AddressLine1, obj.City, obj.State, obj.PostalCode, obj.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (obj User) GetId() int {
	return obj.ID
}

func (input *NewUser) validate(db *gorm.DB, ctx context.Context) error {
	if !utils.IsValidEmail(input.Email) {
		return utils.NewValidationError("email", "invalid email")
	}
	if err := utils.ValidateUnique[User](db, ctx, "email", input.Email, 0); err != nil {
		return err
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return utils.NewValidationError("phone", "invalid phone number")
		}
	}
	return nil
}

func CreateUser(db *gorm.DB, ctx context.Context, input *NewUser) (*User, error) {

	if err := input.validate(db, ctx); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = UserRoleConsumer
	}

	user := User{
		Email:          input.Email,
		HashedPassword: string(hashed),
		Role:           role,
		DisplayName:    input.DisplayName,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Phone:          input.Phone,
		AddressLine1:   input.AddressLine1,
		City:           input.City,
		State:          input.State,
		PostalCode:     input.PostalCode,
		Country:        input.Country,
		IsActive:       utils.NewTrue(),
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	// Consumers get a cart on signup.
	if role == UserRoleConsumer {
		cart := Cart{UserId: user.ID}
		if err := db.WithContext(ctx).Create(&cart).Error; err != nil {
			return nil, err
		}
	}

	return &user, nil
}

// Authenticate verifies credentials and returns a signed token.
func Authenticate(db *gorm.DB, ctx context.Context, email, password string) (string, *User, error) {
	user, err := utils.FetchModelWhere[User](db, ctx, "email = ?", email)
	if err != nil {
		return "", nil, errors.New("invalid email or password")
	}
	if user.IsActive != nil && !*user.IsActive {
		return "", nil, errors.New("account disabled")
	}
	if err := utils.ComparePassword(user.HashedPassword, password); err != nil {
		return "", nil, errors.New("invalid email or password")
	}
	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func GetUser(db *gorm.DB, ctx context.Context, id int) (*User, error) {
	return utils.FetchModel[User](db, ctx, id)
}
