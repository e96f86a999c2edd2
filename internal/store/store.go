package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// Store bundles the database handle with the per-entity repositories.
// It is constructed once at process start and injected into each
// pipeline stage.
type Store struct {
	DB *gorm.DB

	Tenants  *TenantRepo
	Users    *UserRepo
	Sources  *SourceAccountRepo
	Mentions *MentionRepo
	Replies  *ReplyRepo
}

// Open connects to the database and runs migrations. A postgres:// DSN
// selects Postgres; anything else (including empty) falls back to a local
// SQLite file, which is also what the tests use.
func Open(databaseURL string) (*Store, error) {
	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://"):
		dialector = postgres.Open(databaseURL)
	case databaseURL != "":
		dialector = sqlite.Open(databaseURL)
	default:
		dialector = sqlite.Open("reviewpulse.db")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, ok := dialector.(*sqlite.Dialector); ok {
		// SQLite handles concurrent writers poorly; serialize through
		// one connection instead of surfacing SQLITE_BUSY to workers.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Location{},
		&models.SourceAccount{},
		&models.Mention{},
		&models.Reply{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return newStore(db), nil
}

func newStore(db *gorm.DB) *Store {
	return &Store{
		DB:       db,
		Tenants:  &TenantRepo{db: db},
		Users:    &UserRepo{db: db},
		Sources:  &SourceAccountRepo{db: db},
		Mentions: &MentionRepo{db: db},
		Replies:  &ReplyRepo{db: db},
	}
}

// Transaction runs fn against a Store bound to one database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newStore(tx))
	})
}

// Ping reports whether the database is reachable. Used by the health
// endpoint: store unavailability is fatal for the whole pipeline.
func (s *Store) Ping() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
