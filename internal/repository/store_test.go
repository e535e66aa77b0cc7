package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"campusfinder/internal/config"
	"campusfinder/internal/database"
	"campusfinder/internal/domain"
)

const testAvatar = "/uploads/default.png"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{URL: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, Migrate(context.Background(), db))
	return NewStore(db, testAvatar)
}

func seedUser(t *testing.T, s *Store, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Name: email, EmailNotifications: true}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func seedResource(t *testing.T, s *Store, ownerID int64, name string) *domain.Resource {
	t.Helper()
	r := &domain.Resource{OwnerID: ownerID, Name: name}
	require.NoError(t, s.Resources.Create(context.Background(), r))
	return r
}

func seedReview(t *testing.T, s *Store, resourceID, userID int64, rating int) *domain.Review {
	t.Helper()
	rv := &domain.Review{ResourceID: resourceID, UserID: userID, Rating: rating}
	require.NoError(t, s.Reviews.Create(context.Background(), rv))
	return rv
}

func TestUserRepository_CreateNormalizesEmailAndDefaultsAvatar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "  Ana@UW.edu ")
	assert.Equal(t, "ana@uw.edu", u.Email)
	assert.Equal(t, testAvatar, u.AvatarURL)

	got, err := s.Users.GetByEmail(ctx, "ANA@uw.edu")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	exists, err := s.Users.ExistsByEmail(ctx, "ana@uw.edu")
	require.NoError(t, err)
	assert.True(t, exists)

	err = s.Users.Create(ctx, &domain.User{Email: "ana@uw.edu"})
	assert.True(t, database.IsUniqueViolation(err))
}

func TestUserRepository_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "bo@uw.edu")

	name, avatar, push := "Bo", "/uploads/avatars/bo.jpg", true
	got, err := s.Users.Update(ctx, u.ID, UserChanges{Name: &name, AvatarURL: &avatar, PushNotifications: &push})
	require.NoError(t, err)
	assert.Equal(t, "Bo", got.Name)
	assert.Equal(t, avatar, got.AvatarURL)
	assert.True(t, got.PushNotifications)
	assert.True(t, got.EmailNotifications)

	_, err = s.Users.Update(ctx, 9999, UserChanges{Name: &name})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestResourceRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "owner@uw.edu")

	img := "/uploads/resources/x.jpg"
	r := &domain.Resource{
		OwnerID:     owner.ID,
		Name:        "Odegaard Library",
		Coordinates: &domain.Coordinates{Lat: 47.6565, Lng: -122.3104},
		ImageURL:    &img,
		// derived columns are ignored on insert
		AverageRating: 5,
		FavoriteCount: 9,
	}
	require.NoError(t, s.Resources.Create(ctx, r))

	got, err := s.Resources.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Odegaard Library", got.Name)
	assert.Equal(t, "", got.Description)
	assert.Equal(t, &domain.Coordinates{Lat: 47.6565, Lng: -122.3104}, got.Coordinates)
	assert.Equal(t, img, *got.ImageURL)
	assert.Zero(t, got.AverageRating)
	assert.Zero(t, got.FavoriteCount)
	require.NotNil(t, got.Owner)
	assert.Equal(t, owner.ID, got.Owner.ID)
	assert.Empty(t, got.Reviews)

	plain := seedResource(t, s, owner.ID, "No coordinates")
	got, err = s.Resources.GetByID(ctx, plain.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Coordinates)
	assert.Nil(t, got.ImageURL)
}

func TestResourceRepository_ListNewestFirstWithReviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "owner@uw.edu")
	reviewer := seedUser(t, s, "rev@uw.edu")

	first := seedResource(t, s, owner.ID, "first")
	second := seedResource(t, s, owner.ID, "second")
	seedReview(t, s, first.ID, reviewer.ID, 4)

	list, err := s.Resources.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	require.Len(t, list[1].Reviews, 1)
	require.NotNil(t, list[1].Reviews[0].User)
	assert.Equal(t, "rev@uw.edu", list[1].Reviews[0].User.Name)
	assert.Empty(t, list[1].Reviews[0].User.Email)
	assert.Equal(t, testAvatar, list[1].Reviews[0].User.AvatarURL)
}

func TestResourceRepository_UpdatePartial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "owner@uw.edu")
	r := seedResource(t, s, owner.ID, "Suzzallo")

	hours := "8am-10pm"
	require.NoError(t, s.Resources.Update(ctx, r.ID, ResourceChanges{Hours: &hours}))

	got, err := s.Resources.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Suzzallo", got.Name)
	assert.Equal(t, "8am-10pm", got.Hours)

	assert.ErrorIs(t, s.Resources.Update(ctx, 777, ResourceChanges{Hours: &hours}), gorm.ErrRecordNotFound)
}

func TestResourceRepository_RecomputeRating(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "owner@uw.edu")
	a := seedUser(t, s, "a@uw.edu")
	b := seedUser(t, s, "b@uw.edu")
	r := seedResource(t, s, owner.ID, "HUB")

	stats, err := s.Resources.RecomputeRating(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.AverageRating)
	assert.Equal(t, int64(0), stats.ReviewCount)

	seedReview(t, s, r.ID, a.ID, 4)
	rv := seedReview(t, s, r.ID, b.ID, 2)

	stats, err = s.Resources.RecomputeRating(ctx, r.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, stats.AverageRating, 1e-9)
	assert.Equal(t, int64(2), stats.ReviewCount)

	require.NoError(t, s.Reviews.Delete(ctx, rv.ID))
	_, err = s.Resources.RecomputeRating(ctx, r.ID)
	require.NoError(t, err)

	stored, err := s.Resources.StoredStats(ctx, r.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, stored.AverageRating, 1e-9)
	assert.Equal(t, int64(1), stored.ReviewCount)
}

func TestReviewRepository_RejectsOutOfRangeRating(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "owner@uw.edu")
	r := seedResource(t, s, owner.ID, "IMA")

	err := s.Reviews.Create(ctx, &domain.Review{ResourceID: r.ID, UserID: owner.ID, Rating: 6})
	assert.Error(t, err)
	err = s.Reviews.Create(ctx, &domain.Review{ResourceID: r.ID, UserID: owner.ID, Rating: 0})
	assert.Error(t, err)
}

func TestFavoriteRepository_AddIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "owner@uw.edu")
	u := seedUser(t, s, "fan@uw.edu")
	r := seedResource(t, s, owner.ID, "Gym")

	added, err := s.Favorites.Add(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Favorites.Add(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.False(t, added)

	stats, err := s.Resources.AggregateStats(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.FavoriteCount)

	removed, err := s.Favorites.Remove(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Favorites.Remove(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestResourceRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "owner@uw.edu")
	u := seedUser(t, s, "u@uw.edu")
	r := seedResource(t, s, owner.ID, "Cafe")
	keep := seedResource(t, s, owner.ID, "Other")

	seedReview(t, s, r.ID, u.ID, 5)
	seedReview(t, s, keep.ID, u.ID, 3)
	_, err := s.Favorites.Add(ctx, u.ID, r.ID)
	require.NoError(t, err)

	require.NoError(t, s.Resources.Delete(ctx, r.ID))

	_, err = s.Resources.GetByID(ctx, r.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	reviews, err := s.Reviews.ListByResource(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	exists, err := s.Favorites.Exists(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	reviews, err = s.Reviews.ListByResource(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)

	assert.ErrorIs(t, s.Resources.Delete(ctx, r.ID), gorm.ErrRecordNotFound)
}

func TestStore_InTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := seedUser(t, s, "owner@uw.edu")

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx *Store) error {
		if err := tx.Resources.Create(ctx, &domain.Resource{OwnerID: owner.ID, Name: "ghost"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := s.Resources.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
