package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoriteRepository struct {
	db *gorm.DB
}

// Add inserts the pair unless it already exists and reports whether a row
// was written.
func (r *FavoriteRepository) Add(ctx context.Context, userID, resourceID int64) (bool, error) {
	m := favoriteModel{UserID: userID, ResourceID: resourceID}
	tx := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// Remove deletes the pair and reports whether a row was removed. Removing a
// pair that does not exist is not an error.
func (r *FavoriteRepository) Remove(ctx context.Context, userID, resourceID int64) (bool, error) {
	tx := r.db.WithContext(ctx).
		Where("user_id = ? AND resource_id = ?", userID, resourceID).
		Delete(&favoriteModel{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *FavoriteRepository) Exists(ctx context.Context, userID, resourceID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&favoriteModel{}).
		Where("user_id = ? AND resource_id = ?", userID, resourceID).
		Count(&count).Error
	return count > 0, err
}

// ResourceIDs returns the ids the user has favorited, most recent first.
func (r *FavoriteRepository) ResourceIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&favoriteModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("resource_id", &ids).Error
	return ids, err
}
