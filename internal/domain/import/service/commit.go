package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/smart-import/internal/domain/common"
	"github.com/FACorreiaa/smart-import/internal/domain/import/dedupe"
	"github.com/FACorreiaa/smart-import/internal/domain/import/mapping"
	"github.com/FACorreiaa/smart-import/internal/domain/import/repository"
	"github.com/FACorreiaa/smart-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-import/internal/domain/import/transform"
	"github.com/FACorreiaa/smart-import/pkg/observability"
)

// CommitOptions controls a commit.
type CommitOptions struct {
	// SkipDuplicates drops records matching stored ones before insert.
	SkipDuplicates bool
	// Threshold overrides the configured transaction similarity threshold.
	Threshold int
}

// ImportResult contains the result of an import operation
type ImportResult struct {
	JobID          uuid.UUID          `json:"jobId"`
	Entity         mapping.EntityType `json:"entity"`
	RowsTotal      int                `json:"rowsTotal"`
	RowsImported   int                `json:"rowsImported"`
	RowsFailed     int                `json:"rowsFailed"`
	RowsDuplicates int                `json:"rowsDuplicates"`
	Errors         []string           `json:"errors"`
}

// Commit transforms an upload with m and stores its valid records under a new
// import job. Invalid rows are counted and reported, never inserted.
func (s *ImportService) Commit(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, data []byte, m mapping.ColumnMapping, opts CommitOptions) (res *ImportResult, err error) {
	ctx, span := s.startSpan(ctx, "Commit", entity)
	defer func() { endSpan(span, err) }()

	grid, m, err := s.prepare(entity, data, m)
	if err != nil {
		return nil, err
	}
	if v := mapping.Validate(entity, m); !v.Valid {
		return nil, fmt.Errorf("%w: %s", common.ErrInvalidMapping, strings.Join(v.Errors, "; "))
	}

	batch, err := transform.Run(entity, grid, m, contactSlots(entity, grid))
	if err != nil {
		return nil, err
	}

	job := &repository.ImportJob{
		UserID:      userID,
		Entity:      entity,
		Fingerprint: sniffer.Fingerprint(grid.Headers),
		RowsTotal:   batch.Total,
	}
	if err := s.repo.CreateImportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}
	span.SetAttributes(attribute.String("import.job_id", job.ID.String()))

	c := &committer{
		svc:    s,
		userID: userID,
		jobID:  job.ID,
		counts: repository.JobCounts{Failed: batch.Invalid},
	}

	if err := c.run(ctx, batch, opts); err != nil {
		errMsg := err.Error()
		if finishErr := s.repo.FinishImportJob(ctx, job.ID, repository.JobStatusFailed, c.counts, &errMsg); finishErr != nil {
			s.logger.WarnContext(ctx, "failed to finish import job", "job_id", job.ID, "error", finishErr)
		}
		s.logger.ErrorContext(ctx, "import failed", "job_id", job.ID, "entity", entity, "error", err)
		return nil, err
	}

	if err := s.repo.FinishImportJob(ctx, job.ID, repository.JobStatusSucceeded, c.counts, nil); err != nil {
		s.logger.WarnContext(ctx, "failed to finish import job", "job_id", job.ID, "error", err)
	}

	label := string(entity)
	observability.ImportRows.WithLabelValues(label, observability.OutcomeImported).Add(float64(c.counts.Imported))
	observability.ImportRows.WithLabelValues(label, observability.OutcomeInvalid).Add(float64(c.counts.Failed))
	observability.ImportRows.WithLabelValues(label, observability.OutcomeDuplicate).Add(float64(c.counts.Duplicates))

	errs := batch.Errors()
	if errs == nil {
		errs = []string{}
	}
	s.logger.InfoContext(ctx, "import finished",
		"job_id", job.ID,
		"entity", entity,
		"rows", batch.Total,
		"valid", batch.Valid,
		"invalid", batch.Invalid,
		"duplicates", c.counts.Duplicates,
	)

	return &ImportResult{
		JobID:          job.ID,
		Entity:         entity,
		RowsTotal:      batch.Total,
		RowsImported:   c.counts.Imported,
		RowsFailed:     c.counts.Failed,
		RowsDuplicates: c.counts.Duplicates,
		Errors:         errs,
	}, nil
}

// committer carries the running tally of one import job.
type committer struct {
	svc         *ImportService
	userID      uuid.UUID
	jobID       uuid.UUID
	counts      repository.JobCounts
	sinceUpdate int
}

func (c *committer) run(ctx context.Context, batch *transform.Batch, opts CommitOptions) error {
	s := c.svc
	var err error

	switch batch.Entity {
	case mapping.EntityTransaction:
		txs := transform.Valid(batch.Transactions)
		if opts.SkipDuplicates {
			if txs, err = c.dropDuplicateTransactions(ctx, txs, opts.Threshold); err != nil {
				return err
			}
		}
		err = insertInBatches(ctx, c, txs, s.repo.BulkInsertTransactions)
	case mapping.EntityLead:
		leads := transform.Valid(batch.Leads)
		if opts.SkipDuplicates {
			if leads, err = c.dropDuplicateLeads(ctx, leads); err != nil {
				return err
			}
		}
		err = insertInBatches(ctx, c, leads, s.repo.BulkInsertLeads)
	case mapping.EntityContact:
		err = insertInBatches(ctx, c, transform.Valid(batch.Contacts), s.repo.BulkInsertContacts)
	case mapping.EntityOpportunity:
		err = insertInBatches(ctx, c, transform.Valid(batch.Opportunities), s.repo.BulkInsertOpportunities)
	case mapping.EntityTask:
		err = insertInBatches(ctx, c, transform.Valid(batch.Tasks), s.repo.BulkInsertTasks)
	default:
		return fmt.Errorf("%w: %s", mapping.ErrUnsupportedEntity, batch.Entity)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s records: %w", batch.Entity, err)
	}

	if c.sinceUpdate > 0 {
		c.updateProgress(ctx)
	}
	return nil
}

func (c *committer) updateProgress(ctx context.Context) {
	if err := c.svc.repo.UpdateImportJobProgress(ctx, c.jobID, c.counts); err != nil {
		c.svc.logger.WarnContext(ctx, "failed to update import job progress", "job_id", c.jobID, "error", err)
	}
	c.sinceUpdate = 0
}

func (c *committer) imported(ctx context.Context, n int) {
	c.counts.Imported += n
	c.sinceUpdate += n
	if c.sinceUpdate >= c.svc.opts.ProgressEvery {
		c.updateProgress(ctx)
	}
}

type bulkInsertFunc[T any] func(ctx context.Context, userID, jobID uuid.UUID, records []T) (int, error)

// insertInBatches writes records in chunks of the configured batch size and
// reports progress after each chunk.
func insertInBatches[T any](ctx context.Context, c *committer, records []T, insert bulkInsertFunc[T]) error {
	size := c.svc.opts.BatchSize
	for start := 0; start < len(records); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+size, len(records))
		n, err := insert(ctx, c.userID, c.jobID, records[start:end])
		if err != nil {
			return err
		}
		c.imported(ctx, n)
	}
	return nil
}

func (c *committer) dropDuplicateTransactions(ctx context.Context, txs []transform.Transaction, threshold int) ([]transform.Transaction, error) {
	candidates := make([]dedupe.TransactionCandidate, len(txs))
	for i, tx := range txs {
		amount := tx.Amount
		candidates[i] = dedupe.TransactionCandidate{Date: tx.Date, Amount: &amount, Description: tx.Description}
	}

	results, err := c.svc.transactionDuplicates(ctx, c.userID, candidates, threshold)
	if err != nil {
		return nil, err
	}
	c.counts.Duplicates += countDuplicates(mapping.EntityTransaction, results)
	return keepUnique(txs, results), nil
}

func (c *committer) dropDuplicateLeads(ctx context.Context, leads []transform.Lead) ([]transform.Lead, error) {
	candidates := make([]dedupe.LeadCandidate, len(leads))
	for i, l := range leads {
		candidates[i] = dedupe.LeadCandidate{Name: l.Name, Website: l.Website}
	}

	results, err := c.svc.leadDuplicates(ctx, c.userID, candidates)
	if err != nil {
		return nil, err
	}
	c.counts.Duplicates += countDuplicates(mapping.EntityLead, results)
	return keepUnique(leads, results), nil
}

func keepUnique[T, E any](records []T, results []dedupe.Result[E]) []T {
	out := make([]T, 0, len(records))
	for i, r := range records {
		if !results[i].IsDuplicate {
			out = append(out, r)
		}
	}
	return out
}
