package domain

import "time"

// User is an account holder. PasswordHash is nil for accounts that never
// set a password; such accounts cannot log in with credentials.
type User struct {
	ID                 int64     `json:"id"`
	Email              string    `json:"email"`
	PasswordHash       *string   `json:"-"`
	Name               string    `json:"name"`
	AvatarURL          string    `json:"avatar_url"`
	EmailNotifications bool      `json:"email_notifications"`
	PushNotifications  bool      `json:"push_notifications"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// UserSummary is the public projection embedded in resources and reviews.
type UserSummary struct {
	ID        int64  `json:"id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Email: u.Email, Name: u.Name, AvatarURL: u.AvatarURL}
}
