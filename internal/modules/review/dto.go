package review

import "campusfinder/internal/domain"

const maxCommentLen = 2000

type CreateReviewRequest struct {
	Rating  *int    `json:"rating" binding:"required,min=1,max=5"`
	Comment *string `json:"comment" binding:"omitempty,max=2000"`
}

// Result is a review together with the resource's recomputed stats.
type Result struct {
	Review   *domain.Review       `json:"review,omitempty"`
	Resource domain.ResourceStats `json:"resource"`
}
