package favorite

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"campusfinder/internal/cache"
	"campusfinder/internal/domain"
	"campusfinder/internal/pkg/observability"
	"campusfinder/internal/pkg/validator"
	"campusfinder/internal/realtime"
	"campusfinder/internal/repository"
)

type Service struct {
	store   *repository.Store
	cache   cache.ResourceList
	events  realtime.Publisher
	metrics *observability.Metrics
}

func NewService(store *repository.Store, list cache.ResourceList, events realtime.Publisher, metrics *observability.Metrics) *Service {
	if list == nil {
		list = cache.Noop{}
	}
	if events == nil {
		events = realtime.Discard{}
	}
	return &Service{store: store, cache: list, events: events, metrics: metrics}
}

// Favorite adds the pair once. Repeating it changes nothing and reports
// already_favorited.
func (s *Service) Favorite(ctx context.Context, userID, resourceID int64) (*domain.FavoriteResult, error) {
	return s.toggle(ctx, userID, resourceID, true)
}

// Unfavorite removes the pair. Removing a pair that is not there succeeds
// with not_favorited.
func (s *Service) Unfavorite(ctx context.Context, userID, resourceID int64) (*domain.FavoriteResult, error) {
	return s.toggle(ctx, userID, resourceID, false)
}

// Apply serves the action-flag form of the API.
func (s *Service) Apply(ctx context.Context, userID, resourceID int64, action string) (*domain.FavoriteResult, error) {
	switch action {
	case ActionFavorite:
		return s.Favorite(ctx, userID, resourceID)
	case ActionUnfavorite:
		return s.Unfavorite(ctx, userID, resourceID)
	default:
		return nil, validator.FieldErrors{"action": "oneof"}
	}
}

func (s *Service) toggle(ctx context.Context, userID, resourceID int64, add bool) (*domain.FavoriteResult, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	ctx, span := observability.StartSpan(ctx, "favorite.toggle",
		attribute.Int64("resource.id", resourceID),
		attribute.Bool("favorite.add", add),
	)
	defer span.End()

	result := &domain.FavoriteResult{ResourceID: resourceID}
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if _, err := tx.Resources.GetForUpdate(ctx, resourceID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResourceNotFound
			}
			return err
		}

		var changed bool
		var err error
		if add {
			changed, err = tx.Favorites.Add(ctx, userID, resourceID)
		} else {
			changed, err = tx.Favorites.Remove(ctx, userID, resourceID)
		}
		if err != nil {
			return err
		}

		var stats domain.ResourceStats
		if changed {
			stats, err = tx.Resources.RecomputeFavorites(ctx, resourceID)
		} else {
			stats, err = tx.Resources.StoredStats(ctx, resourceID)
		}
		if err != nil {
			return err
		}

		result.Status = status(add, changed)
		result.IsFavorited = add
		result.FavoriteCount = stats.FavoriteCount
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("toggle favorite: %w", err)
	}

	observability.RecordFavoriteToggle(ctx, s.metrics, string(result.Status))
	if result.Changed() {
		s.cache.Invalidate(ctx)
		s.events.Publish(realtime.Event{Type: realtime.EventResourceStats, Payload: result})
	}
	return result, nil
}

func status(add, changed bool) domain.FavoriteStatus {
	switch {
	case add && changed:
		return domain.FavoriteAdded
	case add:
		return domain.FavoriteAlready
	case changed:
		return domain.FavoriteRemoved
	default:
		return domain.FavoriteNotFavorited
	}
}

// ListMine returns the caller's favorites, most recently favorited first.
func (s *Service) ListMine(ctx context.Context, userID int64) ([]domain.Resource, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	ids, err := s.store.Favorites.ResourceIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("favorite ids: %w", err)
	}
	items, err := s.store.Resources.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("favorite resources: %w", err)
	}

	byID := make(map[int64]domain.Resource, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	fav := true
	out := make([]domain.Resource, 0, len(items))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			it.IsFavorited = &fav
			out = append(out, it)
		}
	}
	return out, nil
}
