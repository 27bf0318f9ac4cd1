// Package repository provides data access for import-related entities.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-import/internal/domain/import/dedupe"
	"github.com/FACorreiaa/smart-import/internal/domain/import/mapping"
	"github.com/FACorreiaa/smart-import/internal/domain/import/transform"
)

// Import job statuses.
const (
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// SavedMapping is a reviewed column mapping remembered for files with the
// same header fingerprint.
type SavedMapping struct {
	ID          uuid.UUID             `db:"id"`
	UserID      uuid.UUID             `db:"user_id"`
	Entity      mapping.EntityType    `db:"entity"`
	Fingerprint string                `db:"fingerprint"`
	Mapping     mapping.ColumnMapping `db:"mapping"`
	CreatedAt   time.Time             `db:"created_at"`
	UpdatedAt   time.Time             `db:"updated_at"`
}

// ImportJob tracks the status of a file import
type ImportJob struct {
	ID             uuid.UUID          `db:"id"`
	UserID         uuid.UUID          `db:"user_id"`
	Entity         mapping.EntityType `db:"entity"`
	Fingerprint    string             `db:"fingerprint"`
	Status         string             `db:"status"`
	ErrorMessage   *string            `db:"error_message"`
	RowsTotal      int                `db:"rows_total"`
	RowsImported   int                `db:"rows_imported"`
	RowsFailed     int                `db:"rows_failed"`
	RowsDuplicates int                `db:"rows_duplicates"`
	RequestedAt    time.Time          `db:"requested_at"`
	FinishedAt     *time.Time         `db:"finished_at"`
}

// JobCounts is the row tally reported while and after a job runs.
type JobCounts struct {
	Imported   int
	Failed     int
	Duplicates int
}

// ImportRepository defines data access operations for imports
type ImportRepository interface {
	// Saved mappings
	GetMappingByFingerprint(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, fingerprint string) (*SavedMapping, error)
	SaveMapping(ctx context.Context, m *SavedMapping) error

	// Import jobs
	CreateImportJob(ctx context.Context, job *ImportJob) error
	UpdateImportJobProgress(ctx context.Context, id uuid.UUID, counts JobCounts) error
	FinishImportJob(ctx context.Context, id uuid.UUID, status string, counts JobCounts, errorMessage *string) error

	// Existing records, projected for duplicate detection
	ListExistingTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]dedupe.ExistingTransaction, error)
	ListExistingLeads(ctx context.Context, userID uuid.UUID) ([]dedupe.ExistingLead, error)

	// Bulk inserts of validated records
	BulkInsertTransactions(ctx context.Context, userID, jobID uuid.UUID, txs []transform.Transaction) (int, error)
	BulkInsertLeads(ctx context.Context, userID, jobID uuid.UUID, leads []transform.Lead) (int, error)
	BulkInsertContacts(ctx context.Context, userID, jobID uuid.UUID, contacts []transform.Contact) (int, error)
	BulkInsertOpportunities(ctx context.Context, userID, jobID uuid.UUID, opps []transform.Opportunity) (int, error)
	BulkInsertTasks(ctx context.Context, userID, jobID uuid.UUID, tasks []transform.Task) (int, error)
}
