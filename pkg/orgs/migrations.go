package orgs

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all org schema migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create orgs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS orgs (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					clean_name VARCHAR(255),
					company_name VARCHAR(255),
					owner_role VARCHAR(50) NOT NULL,
					country VARCHAR(100),
					plan_id BIGINT,
					custom_payment_schedule JSONB,
					custom_plan_features JSONB,
					settings JSONB NOT NULL DEFAULT '{}',
					pages JSONB NOT NULL DEFAULT '[]',
					payment_customer_id VARCHAR(255),
					subscription_id VARCHAR(255),
					is_favourite BOOLEAN NOT NULL DEFAULT FALSE,
					is_test_account BOOLEAN NOT NULL DEFAULT FALSE,
					is_sales_org BOOLEAN NOT NULL DEFAULT FALSE,
					is_main_org BOOLEAN NOT NULL DEFAULT FALSE,
					is_white_label_enabled BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_orgs_payment_customer_id ON orgs(payment_customer_id);
			`,
		},
		{
			Version:     2,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					password_hash VARCHAR(255) NOT NULL,
					contact_number VARCHAR(50),
					address_line_one VARCHAR(255),
					address_line_two VARCHAR(255),
					city VARCHAR(100),
					post_code VARCHAR(20),
					country VARCHAR(100),
					role VARCHAR(50) NOT NULL,
					org_id BIGINT NOT NULL REFERENCES orgs(id) ON DELETE CASCADE,
					landlord_id BIGINT,
					agency_id BIGINT,
					permissions JSONB NOT NULL DEFAULT '[]',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_contact_number ON users(contact_number)
					WHERE contact_number IS NOT NULL AND contact_number <> '';
				CREATE INDEX IF NOT EXISTS idx_users_org_id ON users(org_id);
			`,
		},
		{
			Version:     3,
			Description: "Create teams table",
			SQL: `
				CREATE TABLE IF NOT EXISTS teams (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES orgs(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_teams_org_id ON teams(org_id);
			`,
		},
		{
			Version:     4,
			Description: "Create landlords and agencies tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS landlords (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES orgs(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					country VARCHAR(100),
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS agencies (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES orgs(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					country VARCHAR(100),
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_landlords_org_id ON landlords(org_id);
				CREATE INDEX IF NOT EXISTS idx_agencies_org_id ON agencies(org_id);
			`,
		},
		{
			Version:     5,
			Description: "Create subscription_plans table",
			SQL: `
				CREATE TABLE IF NOT EXISTS subscription_plans (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					billing_frequency VARCHAR(50) NOT NULL,
					price_id VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(name, billing_frequency)
				);
			`,
		},
	}
}

// RunMigrations applies pending migrations in order
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS org_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM org_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO org_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
