package infra

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, then applies the
// idempotent SQL schema patches. TranslateError is on so that unique-index
// violations surface as gorm.ErrDuplicatedKey — the session concurrency
// guard depends on it.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := ApplySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}

	return db, nil
}

// ApplySchemaPatches creates the schema with plain idempotent DDL. Statements
// use IF NOT EXISTS semantics so re-running on an already-patched DB is safe.
//
// The partial unique index uq_shift_sessions_open is the single-open-session
// guard: inserting a second open session for the same (company, agency,
// operator) fails atomically at the store, so there is no check-then-act
// window between concurrent start() calls.
func ApplySchemaPatches(db *gorm.DB) error {
	patches := []string{
		`CREATE TABLE IF NOT EXISTS shift_sessions (
			id                    UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			company_id            UUID NOT NULL,
			agency_id             UUID NOT NULL,
			operator_id           UUID NOT NULL,
			operator_display_name TEXT NOT NULL,
			status                VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			start_at              TIMESTAMPTZ,
			end_at                TIMESTAMPTZ,
			ticket_count          INT NOT NULL DEFAULT 0,
			amount_total          DECIMAL(12,2) NOT NULL DEFAULT 0,
			created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shift_sessions_tenant
			ON shift_sessions (company_id, agency_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shift_sessions_operator_id
			ON shift_sessions (operator_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_shift_sessions_open
			ON shift_sessions (company_id, agency_id, operator_id)
			WHERE status IN ('PENDING', 'ACTIVE', 'PAUSED')`,

		`CREATE TABLE IF NOT EXISTS shift_reports (
			id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			shift_session_id    UUID NOT NULL UNIQUE,
			company_id          UUID NOT NULL,
			agency_id           UUID NOT NULL,
			operator_id         UUID NOT NULL,
			period_start        TIMESTAMPTZ,
			period_end          TIMESTAMPTZ NOT NULL,
			ticket_count        INT NOT NULL,
			amount_total        DECIMAL(12,2) NOT NULL,
			status              VARCHAR(30) NOT NULL DEFAULT 'AWAITING_ACCOUNTANT',
			accountant_approved BOOLEAN NOT NULL DEFAULT FALSE,
			accountant_at       TIMESTAMPTZ,
			accountant_by_id    UUID,
			manager_approved    BOOLEAN NOT NULL DEFAULT FALSE,
			manager_at          TIMESTAMPTZ,
			manager_by_id       UUID,
			validated_at        TIMESTAMPTZ,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shift_reports_tenant
			ON shift_reports (company_id, agency_id)`,

		`CREATE TABLE IF NOT EXISTS shift_report_routes (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			shift_report_id UUID NOT NULL REFERENCES shift_reports(id),
			position        INT NOT NULL,
			departure       TEXT NOT NULL,
			arrival         TEXT NOT NULL,
			tickets         INT NOT NULL,
			amount          DECIMAL(12,2) NOT NULL,
			departure_times JSONB NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shift_report_routes_shift_report_id
			ON shift_report_routes (shift_report_id)`,

		// sale_records is owned by the sales subsystem; created here too so a
		// standalone deployment of this service is self-sufficient.
		`CREATE TABLE IF NOT EXISTS sale_records (
			id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			company_id       UUID NOT NULL,
			agency_id        UUID NOT NULL,
			shift_session_id UUID,
			channel          VARCHAR(20) NOT NULL,
			departure        TEXT NOT NULL,
			arrival          TEXT NOT NULL,
			departure_time   VARCHAR(5) NOT NULL,
			seat_count       INT NOT NULL,
			amount           DECIMAL(12,2) NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sale_records_tenant
			ON sale_records (company_id, agency_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sale_records_shift_session_id
			ON sale_records (shift_session_id)`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
