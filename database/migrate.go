package database

import (
	"fmt"

	"belegflow-backend/models"

	"gorm.io/gorm"
)

// MigrateTenantSchema applies (idempotent) schema migrations for a single tenant schema.
// It pins search_path to the tenant and performs:
// - AutoMigrate (tables/columns)
// - Money column types (NUMERIC(12,2))
// - Indexes (receipts by batch/status, line items)
// - Foreign key: receipts.batch_id → batches.id (cascade delete)
// - CHECK constraints on the status/type/stage enums
// - Idempotency keys table + unique index
func MigrateTenantSchema(schema string) error {
	if schema == "" {
		return fmt.Errorf("schema name is empty")
	}

	return DB.Transaction(func(tx *gorm.DB) error {
		// Pin the tenant schema for this transaction
		if err := tx.Exec(`SET search_path = "` + schema + `", public`).Error; err != nil {
			return fmt.Errorf("set search_path failed: %w", err)
		}

		// --- AutoMigrate tables/columns/index tags (non-destructive) ---
		if err := tx.AutoMigrate(
			&models.Customer{},
			&models.Batch{},
			&models.Receipt{},
			&models.LineItem{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("tenant automigrate failed: %w", err)
		}

		// --- Enforce money columns as NUMERIC(12,2) (idempotent ALTERs) ---
		alters := []string{
			`ALTER TABLE batches    ALTER COLUMN total_amount  TYPE numeric(12,2)`,
			`ALTER TABLE batches    ALTER COLUMN income_total  TYPE numeric(12,2)`,
			`ALTER TABLE batches    ALTER COLUMN expense_total TYPE numeric(12,2)`,
			`ALTER TABLE receipts   ALTER COLUMN vat_amount    TYPE numeric(12,2)`,
			`ALTER TABLE receipts   ALTER COLUMN total_amount  TYPE numeric(12,2)`,
			`ALTER TABLE line_items ALTER COLUMN unit_price    TYPE numeric(12,2)`,
			`ALTER TABLE line_items ALTER COLUMN total         TYPE numeric(12,2)`,
		}
		for _, stmt := range alters {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("money type migration failed on: %s - %w", stmt, err)
			}
		}

		// --- Composite / helpful indexes (idempotent) ---
		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_receipts_batch_status ON receipts (batch_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_line_items_receipt ON line_items (receipt_id)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_keys_key ON idempotency_keys (key)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		// --- Foreign key: receipts.batch_id -> batches.id (CASCADE delete) ---
		fk := `
DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1
		FROM pg_constraint
		WHERE conrelid = 'receipts'::regclass
		  AND conname  = 'fk_receipts_batch'
	) THEN
		ALTER TABLE receipts
		ADD CONSTRAINT fk_receipts_batch
		FOREIGN KEY (batch_id)
		REFERENCES batches(id)
		ON UPDATE RESTRICT
		ON DELETE CASCADE;
	END IF;
END $$;`
		if err := tx.Exec(fk).Error; err != nil {
			return fmt.Errorf("foreign key migration failed: %w", err)
		}

		// --- Enum CHECK constraints (idempotent) ---
		checks := []string{
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'receipts'::regclass
					  AND conname  = 'chk_receipts_status'
				) THEN
					ALTER TABLE receipts
					ADD CONSTRAINT chk_receipts_status
					CHECK (status IN ('pending', 'approved', 'rejected'));
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'receipts'::regclass
					  AND conname  = 'chk_receipts_type'
				) THEN
					ALTER TABLE receipts
					ADD CONSTRAINT chk_receipts_type
					CHECK (type IN ('expense', 'income'));
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'batches'::regclass
					  AND conname  = 'chk_batches_stage'
				) THEN
					ALTER TABLE batches
					ADD CONSTRAINT chk_batches_stage
					CHECK (lifecycle_stage IN ('draft', 'collecting', 'waiting', 'ready_to_close', 'completed'));
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'batches'::regclass
					  AND conname  = 'chk_batches_status'
				) THEN
					ALTER TABLE batches
					ADD CONSTRAINT chk_batches_status
					CHECK (status IN ('open', 'processing', 'completed'));
				END IF;
			END $$;`,
		}
		for _, stmt := range checks {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}

		return nil
	})
}
