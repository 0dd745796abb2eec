package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"navigator-backend/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// Open connects to Postgres, or to a local SQLite file when DATABASE_URL
// starts with "sqlite://" (handy for development and the CLI).
func Open(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel(cfg.Mode))}

	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(cfg.DatabaseURL, sqlitePrefix); ok {
		dialector = sqlite.Open(path)
	} else {
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if dialector.Name() == "sqlite" {
		// One writer at a time avoids "database is locked"
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	log.Printf("[Database] Connected (%s)", dialector.Name())
	return db, nil
}

func logLevel(mode string) logger.LogLevel {
	if mode == "release" {
		return logger.Error
	}
	return logger.Warn
}

// Migrator is satisfied by each module's AutoMigrate function
type Migrator func(db *gorm.DB) error

// Migrate runs the given migrations in order
func Migrate(db *gorm.DB, migrations ...Migrator) error {
	for _, m := range migrations {
		if err := m(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	log.Printf("[Database] Migrations complete")
	return nil
}
