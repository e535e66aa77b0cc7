package settings

import "campusfinder/internal/domain"

// UpdateRequest is a partial settings change; absent fields stay as they are.
type UpdateRequest struct {
	Name               *string `json:"name" binding:"omitempty,max=120"`
	Email              *string `json:"email" binding:"omitempty,email,max=255"`
	CurrentPassword    *string `json:"current_password" binding:"omitempty,max=72"`
	NewPassword        *string `json:"new_password" binding:"omitempty,min=8,max=72"`
	EmailNotifications *bool   `json:"email_notifications"`
	PushNotifications  *bool   `json:"push_notifications"`
}

type UpdateResult struct {
	User    *domain.User `json:"user"`
	Changed bool         `json:"-"`
}

type AvatarResult struct {
	ImageURL string       `json:"image_url"`
	User     *domain.User `json:"user"`
}
