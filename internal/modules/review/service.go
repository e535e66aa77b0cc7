package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"campusfinder/internal/cache"
	"campusfinder/internal/domain"
	"campusfinder/internal/pkg/logger"
	"campusfinder/internal/pkg/observability"
	"campusfinder/internal/pkg/validator"
	"campusfinder/internal/realtime"
	"campusfinder/internal/repository"
)

type Service struct {
	store  *repository.Store
	cache  cache.ResourceList
	events realtime.Publisher
}

func NewService(store *repository.Store, list cache.ResourceList, events realtime.Publisher) *Service {
	if list == nil {
		list = cache.Noop{}
	}
	if events == nil {
		events = realtime.Discard{}
	}
	return &Service{store: store, cache: list, events: events}
}

// Add records a review and refreshes the resource's average rating in the
// same transaction.
func (s *Service) Add(ctx context.Context, userID, resourceID int64, rating int, comment *string) (*Result, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	if rating < domain.MinRating || rating > domain.MaxRating {
		return nil, validator.FieldErrors{"rating": "range"}
	}
	comment = cleanComment(comment)
	if comment != nil && len(*comment) > maxCommentLen {
		return nil, validator.FieldErrors{"comment": "max"}
	}

	ctx, span := observability.StartSpan(ctx, "review.Add", attribute.Int64("resource.id", resourceID))
	defer span.End()

	rv := &domain.Review{ResourceID: resourceID, UserID: userID, Rating: rating, Comment: comment}
	var stats domain.ResourceStats
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := tx.Resources.GetForUpdate(ctx, resourceID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResourceNotFound
			}
			return err
		}
		if err := tx.Reviews.Create(ctx, rv); err != nil {
			return err
		}
		var err error
		stats, err = tx.Resources.RecomputeRating(ctx, resourceID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("add review: %w", err)
	}

	s.afterCommit(ctx, stats)

	saved, err := s.store.Reviews.GetByID(ctx, rv.ID)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Int64("review_id", rv.ID).Msg("reload after insert failed")
		saved = rv
	}
	return &Result{Review: saved, Resource: stats}, nil
}

// Delete removes the caller's own review and refreshes the rating.
func (s *Service) Delete(ctx context.Context, userID, reviewID int64) (*Result, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	ctx, span := observability.StartSpan(ctx, "review.Delete", attribute.Int64("review.id", reviewID))
	defer span.End()

	rv, err := s.store.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load review: %w", err)
	}
	if rv.UserID != userID {
		return nil, ErrUnauthorized
	}

	var stats domain.ResourceStats
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := tx.Resources.GetForUpdate(ctx, rv.ResourceID); err != nil {
			return err
		}
		if err := tx.Reviews.Delete(ctx, reviewID); err != nil {
			return err
		}
		var err error
		stats, err = tx.Resources.RecomputeRating(ctx, rv.ResourceID)
		return err
	})
	if err != nil {
		// the review or its resource went away concurrently
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete review: %w", err)
	}

	s.afterCommit(ctx, stats)
	return &Result{Resource: stats}, nil
}

func (s *Service) ListByResource(ctx context.Context, resourceID int64) ([]domain.Review, error) {
	if _, err := s.store.Resources.StoredStats(ctx, resourceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return s.store.Reviews.ListByResource(ctx, resourceID)
}

func (s *Service) afterCommit(ctx context.Context, stats domain.ResourceStats) {
	s.cache.Invalidate(ctx)
	s.events.Publish(realtime.Event{Type: realtime.EventResourceStats, Payload: stats})
}

func cleanComment(c *string) *string {
	if c == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*c)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
