package resource

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"campusfinder/internal/cache"
	"campusfinder/internal/domain"
	"campusfinder/internal/pkg/logger"
	"campusfinder/internal/pkg/observability"
	"campusfinder/internal/realtime"
	"campusfinder/internal/repository"
	"campusfinder/internal/storage"
)

// ImageStore is the part of storage.Images the service needs.
type ImageStore interface {
	SaveResourceImage(ctx context.Context, fh *multipart.FileHeader) (*storage.StoredImage, error)
	Remove(ctx context.Context, img *storage.StoredImage) error
}

type Service struct {
	store  *repository.Store
	images ImageStore
	cache  cache.ResourceList
	events realtime.Publisher
}

func NewService(store *repository.Store, images ImageStore, list cache.ResourceList, events realtime.Publisher) *Service {
	if list == nil {
		list = cache.Noop{}
	}
	if events == nil {
		events = realtime.Discard{}
	}
	return &Service{store: store, images: images, cache: list, events: events}
}

// List returns every resource, newest first. When callerID is set each item
// carries is_favorited for that user.
func (s *Service) List(ctx context.Context, callerID int64) ([]domain.Resource, error) {
	ctx, span := observability.StartSpan(ctx, "resource.List")
	defer span.End()

	items, gen, ok := s.cache.Get(ctx)
	if !ok {
		var err error
		items, err = s.store.Resources.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list resources: %w", err)
		}
		s.cache.Set(ctx, gen, items)
	}

	if callerID > 0 {
		if err := s.markFavorites(ctx, callerID, items); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id, callerID int64) (*domain.Resource, error) {
	res, err := s.store.Resources.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resource: %w", err)
	}
	if callerID > 0 {
		fav, err := s.store.Favorites.Exists(ctx, callerID, id)
		if err != nil {
			return nil, fmt.Errorf("favorite lookup: %w", err)
		}
		res.IsFavorited = &fav
	}
	return res, nil
}

// Create stores the image first so a rejected upload never leaves a row
// behind. If the insert fails the image is removed again.
func (s *Service) Create(ctx context.Context, callerID int64, in Input) (*domain.Resource, error) {
	if callerID <= 0 {
		return nil, ErrUnauthorized
	}
	in.normalize()
	if err := in.validate(true); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "resource.Create", attribute.Int64("owner.id", callerID))
	defer span.End()

	img, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	res := &domain.Resource{
		OwnerID:     callerID,
		Name:        deref(in.Name),
		Description: deref(in.Description),
		Location:    deref(in.Location),
		Hours:       deref(in.Hours),
		Category:    deref(in.Category),
		Coordinates: in.Coordinates,
	}
	if img != nil {
		res.ImageURL = &img.URL
	}

	if err := s.store.Resources.Create(ctx, res); err != nil {
		s.dropImage(ctx, img)
		return nil, fmt.Errorf("create resource: %w", err)
	}

	s.cache.Invalidate(ctx)

	created, err := s.store.Resources.GetByID(ctx, res.ID)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Int64("resource_id", res.ID).Msg("reload after create failed")
		created = res
	}
	s.events.Publish(realtime.Event{Type: realtime.EventResourceCreated, Payload: created})
	return created, nil
}

// Update applies the fields present in in. Only the owner may update; a
// missing resource is ErrNotFound.
func (s *Service) Update(ctx context.Context, callerID, id int64, in Input) (*domain.Resource, error) {
	if callerID <= 0 {
		return nil, ErrUnauthorized
	}
	in.normalize()
	if err := in.validate(false); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "resource.Update", attribute.Int64("resource.id", id))
	defer span.End()

	// ownership is settled before any upload so strangers cannot push files
	current, err := s.store.Resources.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load resource: %w", err)
	}
	if current.OwnerID != callerID {
		return nil, ErrUnauthorized
	}

	img, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}
	changes := in.changes()
	if img != nil {
		changes.ImageURL = &img.URL
	}

	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		locked, err := tx.Resources.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if locked.OwnerID != callerID {
			return ErrUnauthorized
		}
		if changes.Empty() {
			return nil
		}
		return tx.Resources.Update(ctx, id, changes)
	})
	if err != nil {
		s.dropImage(ctx, img)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrNotFound
		case errors.Is(err, ErrUnauthorized):
			return nil, err
		}
		return nil, fmt.Errorf("update resource: %w", err)
	}

	s.cache.Invalidate(ctx)

	updated, err := s.store.Resources.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload resource: %w", err)
	}
	s.events.Publish(realtime.Event{Type: realtime.EventResourceUpdated, Payload: updated})
	return updated, nil
}

// Delete removes the resource with its reviews and favorites. Only the owner
// may delete.
func (s *Service) Delete(ctx context.Context, callerID, id int64) error {
	if callerID <= 0 {
		return ErrUnauthorized
	}

	ctx, span := observability.StartSpan(ctx, "resource.Delete", attribute.Int64("resource.id", id))
	defer span.End()

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		res, err := tx.Resources.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if res.OwnerID != callerID {
			return ErrUnauthorized
		}
		return tx.Resources.Delete(ctx, id)
	})
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, ErrUnauthorized):
		return err
	default:
		return fmt.Errorf("delete resource: %w", err)
	}

	s.cache.Invalidate(ctx)
	s.events.Publish(realtime.Event{Type: realtime.EventResourceDeleted, Payload: map[string]int64{"id": id}})
	return nil
}

func (s *Service) markFavorites(ctx context.Context, userID int64, items []domain.Resource) error {
	ids, err := s.store.Favorites.ResourceIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("favorite lookup: %w", err)
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range items {
		_, fav := set[items[i].ID]
		items[i].IsFavorited = &fav
	}
	return nil
}

func (s *Service) saveImage(ctx context.Context, fh *multipart.FileHeader) (*storage.StoredImage, error) {
	if fh == nil {
		return nil, nil
	}
	if s.images == nil {
		return nil, errors.New("image storage is not configured")
	}
	return s.images.SaveResourceImage(ctx, fh)
}

func (s *Service) dropImage(ctx context.Context, img *storage.StoredImage) {
	if img == nil {
		return
	}
	if err := s.images.Remove(ctx, img); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("key", img.Key).Msg("orphaned image not removed")
	}
}
