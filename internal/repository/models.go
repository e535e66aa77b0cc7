package repository

import (
	"time"

	"gorm.io/datatypes"

	"campusfinder/internal/domain"
	"campusfinder/internal/pkg/utils"
)

type userModel struct {
	ID                 int64     `gorm:"column:id;primaryKey"`
	Email              string    `gorm:"column:email;size:255;not null;uniqueIndex"`
	PasswordHash       *string   `gorm:"column:password_hash"`
	Name               string    `gorm:"column:name;size:120;not null"`
	AvatarURL          *string   `gorm:"column:avatar_url"`
	EmailNotifications bool      `gorm:"column:email_notifications;not null"`
	PushNotifications  bool      `gorm:"column:push_notifications;not null"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type resourceModel struct {
	ID            int64           `gorm:"column:id;primaryKey"`
	OwnerID       int64           `gorm:"column:owner_id;not null;index"`
	Name          string          `gorm:"column:name;size:200;not null"`
	Description   string          `gorm:"column:description;type:text;not null"`
	Location      string          `gorm:"column:location;size:255;not null"`
	Hours         string          `gorm:"column:hours;size:255;not null"`
	Category      string          `gorm:"column:category;size:100;not null;index"`
	Coordinates   *datatypes.JSON `gorm:"column:coordinates"`
	ImageURL      *string         `gorm:"column:image_url"`
	AverageRating float64         `gorm:"column:average_rating;not null;default:0"`
	ReviewCount   int64           `gorm:"column:review_count;not null;default:0"`
	FavoriteCount int64           `gorm:"column:favorite_count;not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;index"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`

	Owner   *userModel    `gorm:"foreignKey:OwnerID"`
	Reviews []reviewModel `gorm:"foreignKey:ResourceID;constraint:OnDelete:CASCADE"`
}

func (resourceModel) TableName() string { return "resources" }

type reviewModel struct {
	ID         int64     `gorm:"column:id;primaryKey"`
	ResourceID int64     `gorm:"column:resource_id;not null;index"`
	UserID     int64     `gorm:"column:user_id;not null;index"`
	Rating     int       `gorm:"column:rating;not null;check:rating >= 1 AND rating <= 5"`
	Comment    *string   `gorm:"column:comment;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`

	User *userModel `gorm:"foreignKey:UserID"`
}

func (reviewModel) TableName() string { return "reviews" }

type favoriteModel struct {
	UserID     int64     `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	ResourceID int64     `gorm:"column:resource_id;primaryKey;autoIncrement:false;index"`
	CreatedAt  time.Time `gorm:"column:created_at"`

	User     *userModel     `gorm:"foreignKey:UserID"`
	Resource *resourceModel `gorm:"foreignKey:ResourceID;constraint:OnDelete:CASCADE"`
}

func (favoriteModel) TableName() string { return "favorites" }

// Models lists every table in migration order.
func Models() []any {
	return []any{&userModel{}, &resourceModel{}, &reviewModel{}, &favoriteModel{}}
}

func toDomainUser(m userModel, defaultAvatar string) *domain.User {
	avatar := defaultAvatar
	if m.AvatarURL != nil && *m.AvatarURL != "" {
		avatar = *m.AvatarURL
	}
	return &domain.User{
		ID:                 m.ID,
		Email:              m.Email,
		PasswordHash:       m.PasswordHash,
		Name:               m.Name,
		AvatarURL:          avatar,
		EmailNotifications: m.EmailNotifications,
		PushNotifications:  m.PushNotifications,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toUserModel(u *domain.User, defaultAvatar string) userModel {
	var avatar *string
	if u.AvatarURL != "" && u.AvatarURL != defaultAvatar {
		v := u.AvatarURL
		avatar = &v
	}
	return userModel{
		ID:                 u.ID,
		Email:              normalizeEmail(u.Email),
		PasswordHash:       u.PasswordHash,
		Name:               u.Name,
		AvatarURL:          avatar,
		EmailNotifications: u.EmailNotifications,
		PushNotifications:  u.PushNotifications,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func toDomainReview(m reviewModel, defaultAvatar string) domain.Review {
	rv := domain.Review{
		ID:         m.ID,
		ResourceID: m.ResourceID,
		UserID:     m.UserID,
		Rating:     m.Rating,
		Comment:    m.Comment,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.User != nil {
		// reviewers are shown by name and avatar only
		s := toDomainUser(*m.User, defaultAvatar).Summary()
		s.Email = ""
		rv.User = s
	}
	return rv
}

func toDomainResource(m resourceModel, defaultAvatar string) domain.Resource {
	res := domain.Resource{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		Name:          m.Name,
		Description:   m.Description,
		Location:      m.Location,
		Hours:         m.Hours,
		Category:      m.Category,
		ImageURL:      m.ImageURL,
		AverageRating: m.AverageRating,
		ReviewCount:   m.ReviewCount,
		FavoriteCount: m.FavoriteCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		Reviews:       make([]domain.Review, 0, len(m.Reviews)),
	}
	if m.Coordinates != nil {
		res.Coordinates = utils.JSONToCoordinates(*m.Coordinates)
	}
	if m.Owner != nil {
		res.Owner = toDomainUser(*m.Owner, defaultAvatar).Summary()
	}
	for _, rv := range m.Reviews {
		res.Reviews = append(res.Reviews, toDomainReview(rv, defaultAvatar))
	}
	return res
}

func toResourceModel(r *domain.Resource) resourceModel {
	m := resourceModel{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Name:          r.Name,
		Description:   r.Description,
		Location:      r.Location,
		Hours:         r.Hours,
		Category:      r.Category,
		ImageURL:      r.ImageURL,
		AverageRating: r.AverageRating,
		ReviewCount:   r.ReviewCount,
		FavoriteCount: r.FavoriteCount,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Coordinates != nil {
		j := datatypes.JSON(utils.CoordinatesToJSON(r.Coordinates))
		m.Coordinates = &j
	}
	return m
}
