package utils

import (
	"context"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
	"gorm.io/gorm"
)

var CountryCode = "US"

var validate = validator.New()

// ValidateStruct runs go-playground tag validation on an input struct.
func ValidateStruct(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return NewValidationError(verrs[0].Field(), verrs[0].Tag())
		}
		return err
	}
	return nil
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"error": err.Error()}
	}

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

// ValidateResourceId checks that a row with the given id exists.
// (may return ErrorRecordNotFound)
func ValidateResourceId[T any](db *gorm.DB, ctx context.Context, id interface{}) error {

	count, err := ResourceCountWhere[T](db, ctx, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// ValidateUnique checks that no other row carries the same column value.
func ValidateUnique[T any](db *gorm.DB, ctx context.Context, column string, value interface{}, exceptId interface{}) error {
	var model T
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		err = db.WithContext(ctx).Model(&model).
			Where(fmt.Sprintf("%s = ?", column), value).Count(&count).Error
	} else {
		err = db.WithContext(ctx).Model(&model).
			Where(fmt.Sprintf("%s = ?", column), value).
			Where("id != ?", exceptId).Count(&count).Error
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError(column, "already taken")
	}
	return nil
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err // Phone number is invalid
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil
}
