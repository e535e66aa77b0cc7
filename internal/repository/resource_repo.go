package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campusfinder/internal/domain"
	"campusfinder/internal/pkg/utils"
)

type ResourceRepository struct {
	db            *gorm.DB
	defaultAvatar string
}

// ResourceChanges carries a partial update; nil fields are left alone.
type ResourceChanges struct {
	Name        *string
	Description *string
	Location    *string
	Hours       *string
	Category    *string
	Coordinates *domain.Coordinates
	ImageURL    *string

	// ClearCoordinates stores NULL when Coordinates is nil.
	ClearCoordinates bool
}

func (c ResourceChanges) Empty() bool {
	return c.Name == nil && c.Description == nil && c.Location == nil && c.Hours == nil &&
		c.Category == nil && c.Coordinates == nil && c.ImageURL == nil && !c.ClearCoordinates
}

func (r *ResourceRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Preload("Reviews.User")
}

// List returns every resource, newest first, with owner and reviews.
func (r *ResourceRepository) List(ctx context.Context) ([]domain.Resource, error) {
	var rows []resourceModel
	if err := r.withDetails(ctx).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toDomainList(rows), nil
}

func (r *ResourceRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Resource, error) {
	if len(ids) == 0 {
		return []domain.Resource{}, nil
	}
	var rows []resourceModel
	if err := r.withDetails(ctx).Where("id IN ?", ids).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.toDomainList(rows), nil
}

func (r *ResourceRepository) GetByID(ctx context.Context, id int64) (*domain.Resource, error) {
	var m resourceModel
	if err := r.withDetails(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	res := toDomainResource(m, r.defaultAvatar)
	return &res, nil
}

// GetForUpdate loads the bare row and locks it until the transaction ends.
// Every write to a resource's derived columns takes this lock first.
func (r *ResourceRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Resource, error) {
	var m resourceModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, id).Error
	if err != nil {
		return nil, err
	}
	res := toDomainResource(m, r.defaultAvatar)
	return &res, nil
}

func (r *ResourceRepository) Create(ctx context.Context, res *domain.Resource) error {
	m := toResourceModel(res)
	// derived columns start from zero regardless of input
	m.AverageRating, m.ReviewCount, m.FavoriteCount = 0, 0, 0
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		return err
	}
	res.ID = m.ID
	res.AverageRating, res.ReviewCount, res.FavoriteCount = 0, 0, 0
	res.CreatedAt = m.CreatedAt
	res.UpdatedAt = m.UpdatedAt
	if res.Reviews == nil {
		res.Reviews = []domain.Review{}
	}
	return nil
}

func (r *ResourceRepository) Update(ctx context.Context, id int64, c ResourceChanges) error {
	fields := map[string]any{}
	if c.Name != nil {
		fields["name"] = *c.Name
	}
	if c.Description != nil {
		fields["description"] = *c.Description
	}
	if c.Location != nil {
		fields["location"] = *c.Location
	}
	if c.Hours != nil {
		fields["hours"] = *c.Hours
	}
	if c.Category != nil {
		fields["category"] = *c.Category
	}
	if c.Coordinates != nil {
		fields["coordinates"] = datatypes.JSON(utils.CoordinatesToJSON(c.Coordinates))
	} else if c.ClearCoordinates {
		fields["coordinates"] = gorm.Expr("NULL")
	}
	if c.ImageURL != nil {
		fields["image_url"] = *c.ImageURL
	}
	if len(fields) == 0 {
		return nil
	}

	tx := r.db.WithContext(ctx).Model(&resourceModel{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the resource together with its favorites and reviews.
func (r *ResourceRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resource_id = ?", id).Delete(&favoriteModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("resource_id = ?", id).Delete(&reviewModel{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&resourceModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *ResourceRepository) IDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&resourceModel{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// StoredStats returns the derived columns as currently persisted.
func (r *ResourceRepository) StoredStats(ctx context.Context, id int64) (domain.ResourceStats, error) {
	var m resourceModel
	err := r.db.WithContext(ctx).
		Select("id", "average_rating", "review_count", "favorite_count").
		First(&m, id).Error
	if err != nil {
		return domain.ResourceStats{}, err
	}
	return domain.ResourceStats{
		ResourceID:    m.ID,
		AverageRating: m.AverageRating,
		ReviewCount:   m.ReviewCount,
		FavoriteCount: m.FavoriteCount,
	}, nil
}

// AggregateStats computes the derived columns from the review and favorite
// rows without writing anything.
func (r *ResourceRepository) AggregateStats(ctx context.Context, id int64) (domain.ResourceStats, error) {
	var rating struct {
		Average float64
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&reviewModel{}).
		Select("COALESCE(AVG(CAST(rating AS FLOAT)), 0) AS average, COUNT(*) AS total").
		Where("resource_id = ?", id).
		Scan(&rating).Error
	if err != nil {
		return domain.ResourceStats{}, err
	}
	if rating.Total == 0 {
		rating.Average = 0
	}

	var favorites int64
	err = r.db.WithContext(ctx).
		Model(&favoriteModel{}).
		Where("resource_id = ?", id).
		Count(&favorites).Error
	if err != nil {
		return domain.ResourceStats{}, err
	}

	return domain.ResourceStats{
		ResourceID:    id,
		AverageRating: rating.Average,
		ReviewCount:   rating.Total,
		FavoriteCount: favorites,
	}, nil
}

// RecomputeRating rewrites average_rating and review_count from the review
// rows. Callers hold the resource lock.
func (r *ResourceRepository) RecomputeRating(ctx context.Context, id int64) (domain.ResourceStats, error) {
	stats, err := r.AggregateStats(ctx, id)
	if err != nil {
		return stats, err
	}
	err = r.db.WithContext(ctx).
		Model(&resourceModel{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"average_rating": stats.AverageRating,
			"review_count":   stats.ReviewCount,
		}).Error
	return stats, err
}

// RecomputeFavorites rewrites favorite_count from the favorite rows.
// Callers hold the resource lock.
func (r *ResourceRepository) RecomputeFavorites(ctx context.Context, id int64) (domain.ResourceStats, error) {
	stats, err := r.AggregateStats(ctx, id)
	if err != nil {
		return stats, err
	}
	err = r.db.WithContext(ctx).
		Model(&resourceModel{}).
		Where("id = ?", id).
		UpdateColumn("favorite_count", stats.FavoriteCount).Error
	return stats, err
}

// Recompute rewrites every derived column.
func (r *ResourceRepository) Recompute(ctx context.Context, id int64) (domain.ResourceStats, error) {
	stats, err := r.AggregateStats(ctx, id)
	if err != nil {
		return stats, err
	}
	err = r.db.WithContext(ctx).
		Model(&resourceModel{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"average_rating": stats.AverageRating,
			"review_count":   stats.ReviewCount,
			"favorite_count": stats.FavoriteCount,
		}).Error
	return stats, err
}

func (r *ResourceRepository) toDomainList(rows []resourceModel) []domain.Resource {
	out := make([]domain.Resource, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainResource(m, r.defaultAvatar))
	}
	return out
}
