package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"campusfinder/internal/modules/auth"
	"campusfinder/internal/pkg/logger"
	"campusfinder/internal/pkg/observability"
	"campusfinder/internal/pkg/validator"
	"campusfinder/internal/repository"
)

type Service struct {
	users  *repository.UserRepository
	mailer Mailer
}

// NewService takes a nil mailer when no SMTP credentials are configured;
// Send then fails with ErrNotConfigured.
func NewService(users *repository.UserRepository, mailer Mailer) *Service {
	return &Service{users: users, mailer: mailer}
}

// Send emails req.Email on behalf of senderID. Registered recipients who
// turned email notifications off are skipped without error.
func (s *Service) Send(ctx context.Context, senderID int64, req SendRequest) (*SendResult, error) {
	if senderID <= 0 {
		return nil, ErrUnauthorized
	}
	if s.mailer == nil {
		return nil, ErrNotConfigured
	}

	ctx, span := observability.StartSpan(ctx, "notification.Send")
	defer span.End()

	to := auth.NormalizeEmail(req.Email)
	if to == "" {
		return nil, validator.FieldErrors{"email": "required"}
	}

	recipient, err := s.users.GetByEmail(ctx, to)
	switch {
	case err == nil && !recipient.EmailNotifications:
		logger.FromContext(ctx).Info().Int64("recipient_id", recipient.ID).Msg("notification skipped, recipient opted out")
		return &SendResult{Skipped: SkippedOptedOut}, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("look up recipient: %w", err)
	}

	msg := Message{To: to, Subject: defaultSubject, Body: defaultBody}
	if subject := strings.TrimSpace(req.Subject); subject != "" {
		msg.Subject = subject
	}
	if body := strings.TrimSpace(req.Message); body != "" {
		msg.Body = body
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("send notification: %w", err)
	}
	return &SendResult{Sent: true}, nil
}
