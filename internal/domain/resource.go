package domain

import "time"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Resource is a campus place or service. AverageRating, ReviewCount and
// FavoriteCount are caches of the review and favorite rows and are only
// written by the recompute paths.
type Resource struct {
	ID            int64        `json:"id"`
	OwnerID       int64        `json:"owner_id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Location      string       `json:"location"`
	Hours         string       `json:"hours"`
	Category      string       `json:"category"`
	Coordinates   *Coordinates `json:"coordinates"`
	ImageURL      *string      `json:"image_url"`
	AverageRating float64      `json:"average_rating"`
	ReviewCount   int64        `json:"review_count"`
	FavoriteCount int64        `json:"favorite_count"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`

	Owner       *UserSummary `json:"owner,omitempty"`
	Reviews     []Review     `json:"reviews"`
	IsFavorited *bool        `json:"is_favorited,omitempty"`
}

// ResourceStats is the derived part of a resource after a recompute.
type ResourceStats struct {
	ResourceID    int64   `json:"resource_id"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
	FavoriteCount int64   `json:"favorite_count"`
}
