package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/smart-import/internal/domain/import/dedupe"
	"github.com/FACorreiaa/smart-import/internal/domain/import/mapping"
	"github.com/FACorreiaa/smart-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/smart-import/internal/domain/import/transform"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repository to allow mocking in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ PgxPool = (*pgxpool.Pool)(nil)

const (
	getMappingQuery = `
		SELECT id, user_id, entity, fingerprint, mapping, created_at, updated_at
		FROM import_mappings
		WHERE user_id = $1 AND entity = $2 AND fingerprint = $3
	`
	saveMappingQuery = `
		INSERT INTO import_mappings (id, user_id, entity, fingerprint, mapping)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, entity, fingerprint)
		DO UPDATE SET mapping = EXCLUDED.mapping, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	createImportJobQuery = `
		INSERT INTO import_jobs (id, user_id, entity, fingerprint, status, rows_total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING requested_at
	`
	updateImportJobProgressQuery = `UPDATE import_jobs SET rows_imported = $2, rows_failed = $3, rows_duplicates = $4 WHERE id = $1`
	finishImportJobQuery         = `
		UPDATE import_jobs SET
			status = $2, rows_imported = $3, rows_failed = $4, rows_duplicates = $5,
			error_message = $6, finished_at = NOW()
		WHERE id = $1
	`
	listExistingTransactionsQuery = `
		SELECT id, posted_at, amount_minor, description
		FROM transactions
		WHERE user_id = $1 AND posted_at BETWEEN $2 AND $3
		ORDER BY posted_at, id
	`
	listExistingLeadsQuery = `
		SELECT id, name, COALESCE(website, '')
		FROM leads
		WHERE user_id = $1
		ORDER BY created_at, id
	`
)

var (
	transactionColumns = []string{"id", "user_id", "import_job_id", "posted_at", "description", "amount_minor", "category", "reference", "source", "external_id"}
	leadColumns        = []string{"id", "user_id", "import_job_id", "name", "website", "industry", "email", "phone", "address", "city", "state", "country", "status", "source", "notes"}
	leadContactColumns = []string{"id", "lead_id", "slot_index", "is_primary", "first_name", "last_name", "email", "phone", "title"}
	contactColumns     = []string{"id", "user_id", "import_job_id", "first_name", "last_name", "email", "phone", "title", "company", "notes"}
	opportunityColumns = []string{"id", "user_id", "import_job_id", "name", "company", "value", "stage", "close_date", "probability", "notes"}
	taskColumns        = []string{"id", "user_id", "import_job_id", "title", "description", "due_date", "priority", "status", "company"}
)

// PostgresImportRepository implements ImportRepository using PostgreSQL
type PostgresImportRepository struct {
	pgpool PgxPool
}

// NewPostgresImportRepository creates a new PostgreSQL-backed import repository
func NewPostgresImportRepository(pgpool PgxPool) *PostgresImportRepository {
	return &PostgresImportRepository{pgpool: pgpool}
}

// GetMappingByFingerprint returns the user's saved mapping for an entity and
// header fingerprint, or nil when none was saved.
func (r *PostgresImportRepository) GetMappingByFingerprint(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, fingerprint string) (*SavedMapping, error) {
	var (
		m         SavedMapping
		entityRaw string
		raw       []byte
	)
	err := r.pgpool.QueryRow(ctx, getMappingQuery, userID, string(entity), fingerprint).Scan(
		&m.ID, &m.UserID, &entityRaw, &m.Fingerprint, &raw, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping by fingerprint: %w", err)
	}
	m.Entity = mapping.EntityType(entityRaw)

	if err := json.Unmarshal(raw, &m.Mapping); err != nil {
		return nil, fmt.Errorf("failed to decode saved mapping: %w", err)
	}

	return &m, nil
}

// SaveMapping inserts a mapping or replaces the one saved for the same
// user, entity and fingerprint.
func (r *PostgresImportRepository) SaveMapping(ctx context.Context, m *SavedMapping) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	raw, err := json.Marshal(m.Mapping)
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}

	err = r.pgpool.QueryRow(ctx, saveMappingQuery, m.ID, m.UserID, string(m.Entity), m.Fingerprint, raw).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	return nil
}

// CreateImportJob creates a new import job
func (r *PostgresImportRepository) CreateImportJob(ctx context.Context, job *ImportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = JobStatusRunning
	}

	err := r.pgpool.QueryRow(ctx, createImportJobQuery,
		job.ID, job.UserID, string(job.Entity), job.Fingerprint, job.Status, job.RowsTotal,
	).Scan(&job.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}

	return nil
}

// UpdateImportJobProgress updates the row counts for an import job
func (r *PostgresImportRepository) UpdateImportJobProgress(ctx context.Context, id uuid.UUID, counts JobCounts) error {
	_, err := r.pgpool.Exec(ctx, updateImportJobProgressQuery, id, counts.Imported, counts.Failed, counts.Duplicates)
	if err != nil {
		return fmt.Errorf("failed to update import job progress: %w", err)
	}
	return nil
}

// FinishImportJob marks an import job as complete
func (r *PostgresImportRepository) FinishImportJob(ctx context.Context, id uuid.UUID, status string, counts JobCounts, errorMessage *string) error {
	_, err := r.pgpool.Exec(ctx, finishImportJobQuery, id, status, counts.Imported, counts.Failed, counts.Duplicates, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to finish import job: %w", err)
	}
	return nil
}

// ListExistingTransactions projects the user's transactions posted between
// from and to (inclusive) for duplicate detection.
func (r *PostgresImportRepository) ListExistingTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]dedupe.ExistingTransaction, error) {
	rows, err := r.pgpool.Query(ctx, listExistingTransactionsQuery, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing transactions: %w", err)
	}
	defer rows.Close()

	var out []dedupe.ExistingTransaction
	for rows.Next() {
		var (
			tx          dedupe.ExistingTransaction
			postedAt    time.Time
			amountMinor int64
		)
		if err := rows.Scan(&tx.ID, &postedAt, &amountMinor, &tx.Description); err != nil {
			return nil, fmt.Errorf("failed to scan existing transaction: %w", err)
		}
		tx.Date = postedAt.Format(normalizer.ISODateLayout)
		tx.Amount = decimal.New(amountMinor, -2).InexactFloat64()
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list existing transactions: %w", err)
	}

	return out, nil
}

// ListExistingLeads projects the user's leads for duplicate detection.
func (r *PostgresImportRepository) ListExistingLeads(ctx context.Context, userID uuid.UUID) ([]dedupe.ExistingLead, error) {
	rows, err := r.pgpool.Query(ctx, listExistingLeadsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing leads: %w", err)
	}
	defer rows.Close()

	var out []dedupe.ExistingLead
	for rows.Next() {
		var l dedupe.ExistingLead
		if err := rows.Scan(&l.ID, &l.Name, &l.Website); err != nil {
			return nil, fmt.Errorf("failed to scan existing lead: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list existing leads: %w", err)
	}

	return out, nil
}

// BulkInsertTransactions inserts multiple transactions efficiently
func (r *PostgresImportRepository) BulkInsertTransactions(ctx context.Context, userID, jobID uuid.UUID, txs []transform.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(txs))
	for _, tx := range txs {
		postedAt, err := time.Parse(normalizer.ISODateLayout, tx.Date)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", tx.RowNumber, normalizer.ErrInvalidDate)
		}
		rows = append(rows, []any{
			uuid.New(),
			userID,
			jobID,
			postedAt,
			tx.Description,
			tx.AmountMinor,
			nullIfEmpty(tx.Category),
			nullIfEmpty(tx.Reference),
			"csv",
			generateExternalID(tx),
		})
	}

	n, err := r.pgpool.CopyFrom(ctx, pgx.Identifier{"transactions"}, transactionColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to bulk insert transactions: %w", err)
	}

	return int(n), nil
}

// BulkInsertLeads inserts leads and their contacts in one transaction.
func (r *PostgresImportRepository) BulkInsertLeads(ctx context.Context, userID, jobID uuid.UUID, leads []transform.Lead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	leadRows := make([][]any, 0, len(leads))
	var contactRows [][]any
	for _, l := range leads {
		leadID := uuid.New()
		leadRows = append(leadRows, []any{
			leadID, userID, jobID, l.Name,
			nullIfEmpty(l.Website), nullIfEmpty(l.Industry), nullIfEmpty(l.Email), nullIfEmpty(l.Phone),
			nullIfEmpty(l.Address), nullIfEmpty(l.City), nullIfEmpty(l.State), nullIfEmpty(l.Country),
			nullIfEmpty(l.Status), nullIfEmpty(l.Source), nullIfEmpty(l.Notes),
		})
		for _, c := range l.Contacts {
			contactRows = append(contactRows, []any{
				uuid.New(), leadID, c.SlotIndex, c.IsPrimary, c.FirstName,
				nullIfEmpty(c.LastName), nullIfEmpty(c.Email), nullIfEmpty(c.Phone), nullIfEmpty(c.Title),
			})
		}
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin lead insert: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"leads"}, leadColumns, pgx.CopyFromRows(leadRows))
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, fmt.Errorf("failed to bulk insert leads: %w", err)
	}

	if len(contactRows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"lead_contacts"}, leadContactColumns, pgx.CopyFromRows(contactRows)); err != nil {
			_ = tx.Rollback(ctx)
			return 0, fmt.Errorf("failed to bulk insert lead contacts: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit lead insert: %w", err)
	}

	return int(n), nil
}

// BulkInsertContacts inserts standalone contacts.
func (r *PostgresImportRepository) BulkInsertContacts(ctx context.Context, userID, jobID uuid.UUID, contacts []transform.Contact) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	n, err := r.pgpool.CopyFrom(ctx,
		pgx.Identifier{"contacts"},
		contactColumns,
		pgx.CopyFromSlice(len(contacts), func(i int) ([]any, error) {
			c := contacts[i]
			return []any{
				uuid.New(), userID, jobID, c.FirstName,
				nullIfEmpty(c.LastName), nullIfEmpty(c.Email), nullIfEmpty(c.Phone),
				nullIfEmpty(c.Title), nullIfEmpty(c.Company), nullIfEmpty(c.Notes),
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk insert contacts: %w", err)
	}

	return int(n), nil
}

// BulkInsertOpportunities inserts opportunities.
func (r *PostgresImportRepository) BulkInsertOpportunities(ctx context.Context, userID, jobID uuid.UUID, opps []transform.Opportunity) (int, error) {
	if len(opps) == 0 {
		return 0, nil
	}

	n, err := r.pgpool.CopyFrom(ctx,
		pgx.Identifier{"opportunities"},
		opportunityColumns,
		pgx.CopyFromSlice(len(opps), func(i int) ([]any, error) {
			o := opps[i]
			closeDate, err := optionalDate(o.CloseDate)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", o.RowNumber, err)
			}
			return []any{
				uuid.New(), userID, jobID, o.Name,
				nullIfEmpty(o.Company), o.Value, nullIfEmpty(o.Stage), closeDate, o.Probability, nullIfEmpty(o.Notes),
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk insert opportunities: %w", err)
	}

	return int(n), nil
}

// BulkInsertTasks inserts tasks.
func (r *PostgresImportRepository) BulkInsertTasks(ctx context.Context, userID, jobID uuid.UUID, tasks []transform.Task) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}

	n, err := r.pgpool.CopyFrom(ctx,
		pgx.Identifier{"tasks"},
		taskColumns,
		pgx.CopyFromSlice(len(tasks), func(i int) ([]any, error) {
			t := tasks[i]
			dueDate, err := optionalDate(t.DueDate)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", t.RowNumber, err)
			}
			return []any{
				uuid.New(), userID, jobID, t.Title,
				nullIfEmpty(t.Description), dueDate, nullIfEmpty(t.Priority), nullIfEmpty(t.Status), nullIfEmpty(t.Company),
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk insert tasks: %w", err)
	}

	return int(n), nil
}

// generateExternalID creates a stable identifier for a transaction so a
// re-imported statement line can be traced to its earlier insert.
func generateExternalID(tx transform.Transaction) string {
	data := fmt.Sprintf("%s|%s|%d", tx.Date, tx.Description, tx.AmountMinor)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(normalizer.ISODateLayout, *s)
	if err != nil {
		return nil, normalizer.ErrInvalidDate
	}
	return &t, nil
}
