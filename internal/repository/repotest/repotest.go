// Package repotest provides a migrated in-memory store for tests.
package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"campusfinder/internal/config"
	"campusfinder/internal/database"
	"campusfinder/internal/domain"
	"campusfinder/internal/repository"
)

const DefaultAvatar = "/uploads/default.png"

// NewStore opens a fresh SQLite database that lives as long as t.
func NewStore(t testing.TB) *repository.Store {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{URL: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, repository.Migrate(context.Background(), db))
	return repository.NewStore(db, DefaultAvatar)
}

func User(t testing.TB, s *repository.Store, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Name: email, EmailNotifications: true}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func Resource(t testing.TB, s *repository.Store, ownerID int64, name string) *domain.Resource {
	t.Helper()
	r := &domain.Resource{OwnerID: ownerID, Name: name}
	require.NoError(t, s.Resources.Create(context.Background(), r))
	return r
}
