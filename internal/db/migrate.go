package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The exclusion constraint on appointments is the authoritative overlap
// guard: the API-level conflict check is only a fast-path pre-check, so a
// racing insert must fail here rather than create a double booking.
var statements = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,

	`CREATE TABLE IF NOT EXISTS patients (
		id            BIGSERIAL PRIMARY KEY,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		email         TEXT NOT NULL,
		phone         TEXT,
		date_of_birth DATE,
		gender        TEXT NOT NULL,
		address       TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS doctors (
		id               BIGSERIAL PRIMARY KEY,
		first_name       TEXT NOT NULL,
		last_name        TEXT NOT NULL,
		email            TEXT NOT NULL,
		phone            TEXT,
		specialization   TEXT NOT NULL,
		qualification    TEXT,
		experience_years INT NOT NULL DEFAULT 0,
		designation      TEXT,
		department       TEXT NOT NULL,
		consultation_fee NUMERIC(10,2) NOT NULL DEFAULT 0,
		is_available     BOOLEAN NOT NULL DEFAULT true,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS appointments (
		id               BIGSERIAL PRIMARY KEY,
		patient_id       BIGINT NOT NULL REFERENCES patients(id),
		doctor_id        BIGINT NOT NULL REFERENCES doctors(id),
		start_time       TIMESTAMPTZ NOT NULL,
		end_time         TIMESTAMPTZ NOT NULL,
		duration_minutes INT NOT NULL CHECK (duration_minutes > 0),
		type             TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'scheduled',
		blood_pressure   TEXT,
		heart_rate       INT,
		temperature      DOUBLE PRECISION,
		o2_saturation    INT,
		symptoms         TEXT,
		diagnosis        TEXT,
		prescription     TEXT,
		notes            TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT appointments_no_overlap EXCLUDE USING gist (
			doctor_id WITH =,
			tstzrange(start_time, end_time) WITH &&
		) WHERE (status <> 'cancelled')
	)`,

	`CREATE INDEX IF NOT EXISTS idx_appointments_doctor ON appointments (doctor_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments (patient_id, start_time)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
