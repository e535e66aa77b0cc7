package repository

import (
	"context"

	"gorm.io/gorm"

	"campusfinder/internal/database"
)

// Store bundles the repositories over one connection or transaction.
type Store struct {
	db            *gorm.DB
	defaultAvatar string

	Users     *UserRepository
	Resources *ResourceRepository
	Reviews   *ReviewRepository
	Favorites *FavoriteRepository
}

// NewStore wires every repository to db. defaultAvatar is reported for users
// that never uploaded a picture.
func NewStore(db *gorm.DB, defaultAvatar string) *Store {
	return &Store{
		db:            db,
		defaultAvatar: defaultAvatar,
		Users:         &UserRepository{db: db, defaultAvatar: defaultAvatar},
		Resources:     &ResourceRepository{db: db, defaultAvatar: defaultAvatar},
		Reviews:       &ReviewRepository{db: db, defaultAvatar: defaultAvatar},
		Favorites:     &FavoriteRepository{db: db},
	}
}

func (s *Store) DB() *gorm.DB { return s.db }

// InTx runs fn with a Store bound to a single transaction. Inside fn every
// query must go through tx; the SQLite pool has one connection.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx, s.defaultAvatar))
	})
}

// Migrate creates the schema.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return database.Migrate(ctx, db, Models()...)
}
