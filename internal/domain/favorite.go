package domain

import "time"

// Favorite marks a resource as favorited by a user. A pair exists at most once.
type Favorite struct {
	UserID     int64     `json:"user_id"`
	ResourceID int64     `json:"resource_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type FavoriteStatus string

const (
	FavoriteAdded        FavoriteStatus = "favorited"
	FavoriteAlready      FavoriteStatus = "already_favorited"
	FavoriteRemoved      FavoriteStatus = "unfavorited"
	FavoriteNotFavorited FavoriteStatus = "not_favorited"
)

// FavoriteResult reports what a favorite/unfavorite call did.
type FavoriteResult struct {
	ResourceID    int64          `json:"resource_id"`
	Status        FavoriteStatus `json:"status"`
	IsFavorited   bool           `json:"is_favorited"`
	FavoriteCount int64          `json:"favorite_count"`
}

// Changed reports whether a favorite row was inserted or deleted.
func (r FavoriteResult) Changed() bool {
	return r.Status == FavoriteAdded || r.Status == FavoriteRemoved
}
