// Package migration creates the billing schema on startup so local and
// self-hosted deployments work out of the box.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/hisaab/internal/ledger/domain"
	memberdomain "github.com/smallbiznis/hisaab/internal/member/domain"
	membershipdomain "github.com/smallbiznis/hisaab/internal/membership/domain"
	merchantdomain "github.com/smallbiznis/hisaab/internal/merchant/domain"
	"github.com/smallbiznis/hisaab/internal/sequence"
	supplydomain "github.com/smallbiznis/hisaab/internal/supply/domain"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

// RunMigrations applies the embedded SQL migrations against postgres.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate builds the schema from the gorm models. Used for dialects the
// SQL migrations do not target, such as mysql deployments and sqlite tests.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&merchantdomain.Merchant{},
		&memberdomain.MerchantMember{},
		&memberdomain.MemberRole{},
		&membershipdomain.MerchantMembership{},
		&invoicedomain.Invoice{},
		&ledgerdomain.TransactionHistory{},
		&supplydomain.SupplyRecord{},
		&sequence.Counter{},
	)
}
