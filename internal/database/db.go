package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"warehouse-backend/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres. The caller owns the handle and closes it with Close.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates/updates the tables for every model.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Store{},
		&models.Rack{},
		&models.Shelf{},
		&models.User{},
		&models.Brand{},
		&models.Make{},
		&models.Category{},
		&models.Item{},
		&models.KitComponent{},
		&models.InventoryRecord{},
		&models.FlowLogEntry{},
		&models.Supplier{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderLine{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// Migrate runs AutoMigrate and, on Postgres, the SQL migrations that add
// constraints gorm tags cannot express.
func Migrate(db *gorm.DB, runSQL bool, log *slog.Logger) error {
	if err := AutoMigrate(db); err != nil {
		return err
	}
	if !runSQL || db.Dialector.Name() != "postgres" {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := runSQLMigrations(sqlDB); err != nil {
		return err
	}
	log.Info("sql migrations applied")
	return nil
}

// WithTx runs fn inside one transaction. On Postgres the transaction is
// SERIALIZABLE so concurrent read-check-write sequences conflict instead of
// interleaving.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var opts *sql.TxOptions
	if db.Dialector.Name() == "postgres" {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	if opts != nil {
		return db.WithContext(ctx).Transaction(fn, opts)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// IsConflict reports whether err is a serialization failure or deadlock
// raised by Postgres. The caller may retry the whole operation.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// IsForeignKeyViolation reports that a row is still referenced elsewhere.
func IsForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// IsUniqueViolation reports a duplicate key error (Postgres 23505 or gorm's translated error).
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
