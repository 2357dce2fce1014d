package repository

import (
	"context"
	"errors"
	"fmt"

	"LabelDesk/errs"
	"LabelDesk/model"

	"gorm.io/gorm"
)

// Store is the system of record for labels, artists, releases and users.
// It is constructed explicitly and injected into every component; a Store
// obtained inside Transaction reads and writes one consistent snapshot.
type Store struct {
	db *gorm.DB
}

// NewStore 创建实体存储
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Models lists the tables owned by the store.
func Models() []interface{} {
	return []interface{}{&model.Label{}, &model.Artist{}, &model.Release{}, &model.User{}}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn against a Store bound to a single transaction. Nested
// calls reuse the outer transaction through savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Labels() LabelRepository   { return &gormLabelRepository{db: s.db} }
func (s *Store) Artists() ArtistRepository { return &gormArtistRepository{db: s.db} }
func (s *Store) Releases() ReleaseRepository {
	return &gormReleaseRepository{db: s.db}
}
func (s *Store) Users() UserRepository { return &gormUserRepository{db: s.db} }

// translate maps gorm errors onto the error taxonomy.
func translate(op, kind, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(kind, id)
	}
	return errs.Upstream(op, err)
}
