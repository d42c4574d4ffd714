package postgres

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS cases (
		reporting_date date PRIMARY KEY,
		positive integer,
		hospitalized_currently integer,
		total_hospitalized integer,
		death_confirmed integer,
		tested integer,
		positive_increase integer,
		death_increase integer,
		hospitalized_increase integer,
		tested_increase integer,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS vaccines (
		reporting_date date PRIMARY KEY,
		daily_qty integer,
		daily_cumulative integer,
		one_dose_increase integer,
		one_dose_total integer,
		two_doses_increase integer,
		two_doses_total integer,
		daily_pfizer integer,
		daily_moderna integer,
		daily_janssen integer,
		pfizer_total integer,
		moderna_total integer,
		janssen_total integer,
		distributed_increase integer,
		distributed_total integer,
		total_vaccine_providers integer,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS invokes (
		id bigserial PRIMARY KEY,
		function_name text NOT NULL,
		new_data boolean NOT NULL,
		invoke_time timestamptz NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates the tables the service needs if they do not exist.
// Statements are idempotent, so running this on every startup is safe.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
