package settings

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"gorm.io/gorm"

	"campusfinder/internal/cache"
	"campusfinder/internal/database"
	"campusfinder/internal/domain"
	"campusfinder/internal/modules/auth"
	"campusfinder/internal/pkg/logger"
	"campusfinder/internal/pkg/validator"
	"campusfinder/internal/repository"
	"campusfinder/internal/storage"
)

type AvatarStore interface {
	SaveAvatar(ctx context.Context, fh *multipart.FileHeader) (*storage.StoredImage, error)
	Remove(ctx context.Context, img *storage.StoredImage) error
}

type Service struct {
	users      *repository.UserRepository
	avatars    AvatarStore
	emails     *auth.EmailPolicy
	bcryptCost int
	// owner and reviewer summaries are embedded in cached resource listings
	cache cache.ResourceList
}

func NewService(users *repository.UserRepository, avatars AvatarStore, emails *auth.EmailPolicy, bcryptCost int, list cache.ResourceList) *Service {
	if list == nil {
		list = cache.Noop{}
	}
	return &Service{users: users, avatars: avatars, emails: emails, bcryptCost: bcryptCost, cache: list}
}

func (s *Service) Update(ctx context.Context, userID int64, req UpdateRequest) (*UpdateResult, error) {
	user, err := s.currentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	changes, err := s.diff(ctx, user, req)
	if err != nil {
		return nil, err
	}
	if changes.Empty() {
		return &UpdateResult{User: user}, nil
	}

	updated, err := s.users.Update(ctx, userID, changes)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return nil, ErrEmailInUse
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("update settings: %w", err)
	}

	if changes.Name != nil || changes.Email != nil {
		s.cache.Invalidate(ctx)
	}
	return &UpdateResult{User: updated, Changed: true}, nil
}

// diff keeps only the fields that actually differ from the stored user.
func (s *Service) diff(ctx context.Context, user *domain.User, req UpdateRequest) (repository.UserChanges, error) {
	var changes repository.UserChanges

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return changes, validator.FieldErrors{"name": "required"}
		}
		if name != user.Name {
			changes.Name = &name
		}
	}

	if req.Email != nil {
		email := auth.NormalizeEmail(*req.Email)
		if email != user.Email {
			if !s.emails.Allowed(email) {
				return changes, validator.FieldErrors{"email": "institution"}
			}
			taken, err := s.users.ExistsByEmail(ctx, email)
			if err != nil {
				return changes, fmt.Errorf("check email: %w", err)
			}
			if taken {
				return changes, ErrEmailInUse
			}
			changes.Email = &email
		}
	}

	if req.NewPassword != nil || req.CurrentPassword != nil {
		switch {
		case req.CurrentPassword == nil || *req.CurrentPassword == "":
			return changes, validator.FieldErrors{"current_password": "required"}
		case req.NewPassword == nil || *req.NewPassword == "":
			return changes, validator.FieldErrors{"new_password": "required"}
		}
		if !auth.CheckPassword(user.PasswordHash, *req.CurrentPassword) {
			return changes, ErrInvalidPassword
		}
		hash, err := auth.HashPassword(*req.NewPassword, s.bcryptCost)
		if err != nil {
			return changes, fmt.Errorf("hash password: %w", err)
		}
		changes.PasswordHash = &hash
	}

	if req.EmailNotifications != nil && *req.EmailNotifications != user.EmailNotifications {
		changes.EmailNotifications = req.EmailNotifications
	}
	if req.PushNotifications != nil && *req.PushNotifications != user.PushNotifications {
		changes.PushNotifications = req.PushNotifications
	}
	return changes, nil
}

// UploadAvatar stores a square thumbnail and points the profile at it.
func (s *Service) UploadAvatar(ctx context.Context, userID int64, fh *multipart.FileHeader) (*AvatarResult, error) {
	if _, err := s.currentUser(ctx, userID); err != nil {
		return nil, err
	}

	img, err := s.avatars.SaveAvatar(ctx, fh)
	if err != nil {
		return nil, err
	}

	updated, err := s.users.Update(ctx, userID, repository.UserChanges{AvatarURL: &img.URL})
	if err != nil {
		if rmErr := s.avatars.Remove(ctx, img); rmErr != nil {
			logger.FromContext(ctx).Warn().Err(rmErr).Str("key", img.Key).Msg("orphaned avatar not removed")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("save avatar url: %w", err)
	}

	s.cache.Invalidate(ctx)
	return &AvatarResult{ImageURL: img.URL, User: updated}, nil
}

func (s *Service) currentUser(ctx context.Context, userID int64) (*domain.User, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
