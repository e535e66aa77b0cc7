package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"campusfinder/internal/domain"
)

type UserRepository struct {
	db            *gorm.DB
	defaultAvatar string
}

// UserChanges lists the profile columns a settings update may touch. Nil
// fields are left alone.
type UserChanges struct {
	Name               *string
	Email              *string
	PasswordHash       *string
	AvatarURL          *string
	EmailNotifications *bool
	PushNotifications  *bool
}

func (c UserChanges) Empty() bool {
	return c.Name == nil && c.Email == nil && c.PasswordHash == nil && c.AvatarURL == nil &&
		c.EmailNotifications == nil && c.PushNotifications == nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	m := toUserModel(u, r.defaultAvatar)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*u = *toDomainUser(m, r.defaultAvatar)
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&m)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainUser(m, r.defaultAvatar), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainUser(m, r.defaultAvatar), nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("email = ?", normalizeEmail(email)).
		Count(&count).Error
	return count > 0, err
}

// Update applies changes and returns the fresh row. A missing user yields
// gorm.ErrRecordNotFound.
func (r *UserRepository) Update(ctx context.Context, id int64, c UserChanges) (*domain.User, error) {
	fields := map[string]any{}
	if c.Name != nil {
		fields["name"] = *c.Name
	}
	if c.Email != nil {
		fields["email"] = normalizeEmail(*c.Email)
	}
	if c.PasswordHash != nil {
		fields["password_hash"] = *c.PasswordHash
	}
	if c.AvatarURL != nil {
		fields["avatar_url"] = *c.AvatarURL
	}
	if c.EmailNotifications != nil {
		fields["email_notifications"] = *c.EmailNotifications
	}
	if c.PushNotifications != nil {
		fields["push_notifications"] = *c.PushNotifications
	}

	if len(fields) > 0 {
		tx := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Updates(fields)
		if tx.Error != nil {
			return nil, tx.Error
		}
		if tx.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.GetByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
