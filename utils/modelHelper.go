package utils

import (
	"context"

	"gorm.io/gorm"
)

/* DB fetching */

// FetchModel fetches a model by primary key. The DB handle is passed
// explicitly; there is no ambient client.
// (may return ErrorRecordNotFound)
func FetchModel[T any](db *gorm.DB, ctx context.Context, id int, associations ...string) (*T, error) {

	dbCtx := db.WithContext(ctx)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// FetchModelWhere fetches the first model matching a condition.
// (may return ErrorRecordNotFound)
func FetchModelWhere[T any](db *gorm.DB, ctx context.Context, cond string, args ...interface{}) (*T, error) {
	var result T
	err := db.WithContext(ctx).Where(cond, args...).First(&result).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// FetchAllModels fetches all rows of a model.
func FetchAllModels[T any](db *gorm.DB, ctx context.Context, associations ...string) ([]*T, error) {

	dbCtx := db.WithContext(ctx)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var results []*T
	err := dbCtx.Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ResourceCountWhere counts rows of a model matching a condition.
func ResourceCountWhere[T any](db *gorm.DB, ctx context.Context, cond string, args ...interface{}) (int64, error) {
	var model T
	var count int64
	err := db.WithContext(ctx).Model(&model).Where(cond, args...).Count(&count).Error
	return count, err
}
