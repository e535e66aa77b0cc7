package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID         int64        `json:"id"`
	ResourceID int64        `json:"resource_id"`
	UserID     int64        `json:"user_id"`
	Rating     int          `json:"rating"`
	Comment    *string      `json:"comment"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	User       *UserSummary `json:"user,omitempty"`
}
