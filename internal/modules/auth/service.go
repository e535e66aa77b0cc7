package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"campusfinder/internal/database"
	"campusfinder/internal/domain"
	"campusfinder/internal/pkg/jwt"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type TokenIssuer interface {
	GenerateToken(userID int64, email, name string) (string, time.Time, error)
}

type Service struct {
	users      UserRepository
	tokens     TokenIssuer
	emails     *EmailPolicy
	bcryptCost int
}

func NewService(users UserRepository, tokens TokenIssuer, emails *EmailPolicy, bcryptCost int) *Service {
	return &Service{users: users, tokens: tokens, emails: emails, bcryptCost: bcryptCost}
}

// Signup creates a credential account. It does not start a session.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	email := NormalizeEmail(req.Email)
	if !s.emails.Allowed(email) {
		return nil, ErrNonInstitutionalEmail
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:              email,
		PasswordHash:       &hash,
		Name:               strings.TrimSpace(req.Name),
		EmailNotifications: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent signup
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a session token. Every credential
// failure is reported as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(req.Email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		burnCompare(req.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Email, user.Name)
	if errors.Is(err, jwt.ErrMissingSecret) {
		log.Error().Err(err).Msg("login: session signing is not configured")
		return nil, ErrServiceUnavailable
	}
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// CurrentUser resolves a session back to the stored account.
func (s *Service) CurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}
