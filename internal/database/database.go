package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/psds-microservice/lottery-service/internal/config"
	"github.com/psds-microservice/lottery-service/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the store selected by driver.
func Open(driver, dsn string, logLevel string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log.New(os.Stdout, "gorm: ", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogLevel(logLevel),
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql db: %w", err)
	}
	if driver == config.DriverPostgres {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// Connect opens the configured store with its schema up to date: goose migrations on
// Postgres, AutoMigrate on SQLite.
func Connect(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	if cfg.DB.Driver == config.DriverPostgres {
		if err := MigrateUp(ctx, cfg.DatabaseURL()); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	db, err := Open(cfg.DB.Driver, cfg.DSN(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.DB.Driver == config.DriverSQLite {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return db, nil
}

// AutoMigrate creates the schema from the model tags. Used for SQLite, where the
// goose migrations (Postgres dialect) do not apply.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Spot{}, &model.Ticket{}, &model.AdminUser{}, &model.AdminSession{})
}

// IsUniqueViolation reports whether err is a unique-constraint failure. A non-empty
// target must also appear in the violated index name (Postgres) or in the column
// list of the message (SQLite).
func IsUniqueViolation(err error, target string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, target)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		if liteErr.ExtendedCode != sqlite3.ErrConstraintUnique && liteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
			return false
		}
		return strings.Contains(liteErr.Error(), target)
	}
	return false
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.Info
	case "warn", "info":
		return logger.Warn
	case "silent":
		return logger.Silent
	default:
		return logger.Error
	}
}
