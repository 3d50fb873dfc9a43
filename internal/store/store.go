// Package store provides the relational persistence layer for the media
// catalog. A Store is constructed once at process start, injected into the
// components that need it, and closed at shutdown.
package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/halcyonlabs/mediarec/internal/logging"
	"github.com/halcyonlabs/mediarec/internal/media"
)

// Store is a handle on the relational database.
type Store struct {
	db     *gorm.DB
	logger *logging.Logger
}

// Open connects to Postgres with the given DSN and migrates the schema.
func Open(dsn string, logger *logging.Logger) (*Store, error) {
	return OpenDialector(postgres.Open(dsn), logger)
}

// OpenDialector connects using an explicit GORM dialector. Tests use this
// with an in-memory sqlite dialector.
func OpenDialector(dialector gorm.Dialector, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&media.Descriptor{}, &media.Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.Info(context.Background(), "database connection established",
		zap.String("dialect", dialector.Name()),
	)

	return &Store{db: db, logger: logger}, nil
}

// DB exposes the underlying GORM handle for transaction-scoped sessions.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn inside a single transaction. The transaction commits only
// if fn returns nil; any error rolls back every write made inside it.
func (s *Store) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// Health verifies database connectivity.
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}
