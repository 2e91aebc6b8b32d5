package db

import (
	"errors"
	"fmt"
	"log"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"

	"github.com/advisorly/feetrack/internal/models"
)

// Migrate brings the schema up to date. With sqlMigrations set the versioned
// SQL files under migrations/ run via golang-migrate (Postgres only; they
// carry the partial unique payment index). Otherwise AutoMigrate is used,
// which also covers the sqlite test databases.
func Migrate(conn *gorm.DB, dsn string, sqlMigrations bool) error {
	if sqlMigrations {
		return runSQLMigrations(dsn)
	}
	modelsToMigrate := []any{
		&models.Client{}, &models.Contract{}, &models.Payment{},
		&models.PaymentPeriod{}, &models.VarianceThreshold{}, &models.ClientMetrics{},
	}
	for _, m := range modelsToMigrate {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Printf("[DB] migrate close: src=%v db=%v", srcErr, dbErr)
		}
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
