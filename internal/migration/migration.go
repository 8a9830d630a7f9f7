package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	faqdomain "github.com/railzwaylabs/shopfaq/internal/faq/domain"
	settingsdomain "github.com/railzwaylabs/shopfaq/internal/settings/domain"
	subscriptiondomain "github.com/railzwaylabs/shopfaq/internal/subscription/domain"
	usagedomain "github.com/railzwaylabs/shopfaq/internal/usage/domain"
	webhookdomain "github.com/railzwaylabs/shopfaq/internal/webhook/domain"
	"gorm.io/gorm"
)

// Models lists every table the service owns. Drivers without embedded SQL
// migrations are brought up to date from these definitions.
func Models() []any {
	return []any{
		&subscriptiondomain.Subscription{},
		&usagedomain.UsageRecord{},
		&faqdomain.ProductFAQ{},
		&settingsdomain.ShopSettings{},
		&webhookdomain.Event{},
	}
}

// Run brings the schema up to date for driver. Postgres uses the versioned
// SQL migrations; mysql and sqlite use gorm's AutoMigrate.
func Run(ctx context.Context, conn *gorm.DB, driver string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if driver != "postgres" {
		if err := conn.WithContext(ctx).AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(ctx, sqlDB)
}

// RunMigrations applies all embedded postgres migrations under an advisory
// lock so that concurrent deploys cannot interleave.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	want, err := LatestMigrationVersion()
	if err != nil {
		return err
	}

	unlock, err := acquireAdvisoryLock(ctx, db)
	if err != nil {
		return err
	}
	defer func() { _ = unlock(context.Background()) }()

	// The migrator is not closed: closing the postgres driver closes db,
	// which is the shared application pool.
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if _, err := cleanVersion(m); err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	got, err := cleanVersion(m)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("schema version mismatch after migrate: got %d want %d", got, want)
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "shopfaq_schema_migrations"})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// cleanVersion returns the applied version, 0 for an empty schema, and
// fails when a previous run stopped half way.
func cleanVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read migration version: %w", err)
	case dirty:
		return 0, fmt.Errorf("database migrations are dirty at version %d; fix the schema and force the version", version)
	}
	return version, nil
}
