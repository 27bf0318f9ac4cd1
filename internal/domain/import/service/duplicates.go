package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/smart-import/internal/domain/common"
	"github.com/FACorreiaa/smart-import/internal/domain/import/dedupe"
	"github.com/FACorreiaa/smart-import/internal/domain/import/mapping"
	"github.com/FACorreiaa/smart-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/smart-import/pkg/observability"
)

// DuplicateCandidates are the records a reviewer wants checked. Only the
// slice matching the requested entity is read.
type DuplicateCandidates struct {
	Transactions []dedupe.TransactionCandidate `json:"transactions,omitempty"`
	Leads        []dedupe.LeadCandidate        `json:"leads,omitempty"`
}

// DuplicateReport holds one result per candidate, in candidate order.
type DuplicateReport struct {
	Entity       mapping.EntityType                          `json:"entity"`
	Transactions []dedupe.Result[dedupe.ExistingTransaction] `json:"transactions,omitempty"`
	Leads        []dedupe.Result[dedupe.ExistingLead]        `json:"leads,omitempty"`
	Checked      int                                         `json:"checked"`
	Duplicates   int                                         `json:"duplicates"`
}

// CheckDuplicates compares candidates against the user's stored records.
// Entities without a duplicate rule report no duplicates. A threshold of zero
// uses the configured default.
func (s *ImportService) CheckDuplicates(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, candidates DuplicateCandidates, threshold int) (report *DuplicateReport, err error) {
	ctx, span := s.startSpan(ctx, "CheckDuplicates", entity)
	defer func() { endSpan(span, err) }()

	if _, err := mapping.ParseEntityType(string(entity)); err != nil {
		return nil, err
	}

	report = &DuplicateReport{Entity: entity}
	switch entity {
	case mapping.EntityTransaction:
		if err := s.checkCandidateLimit(len(candidates.Transactions)); err != nil {
			return nil, err
		}
		report.Transactions, err = s.transactionDuplicates(ctx, userID, candidates.Transactions, threshold)
		if err != nil {
			return nil, err
		}
		report.Checked = len(report.Transactions)
		report.Duplicates = countDuplicates(entity, report.Transactions)
	case mapping.EntityLead:
		if err := s.checkCandidateLimit(len(candidates.Leads)); err != nil {
			return nil, err
		}
		report.Leads, err = s.leadDuplicates(ctx, userID, candidates.Leads)
		if err != nil {
			return nil, err
		}
		report.Checked = len(report.Leads)
		report.Duplicates = countDuplicates(entity, report.Leads)
	}

	span.SetAttributes(attribute.Int("import.checked", report.Checked), attribute.Int("import.duplicates", report.Duplicates))
	s.logger.InfoContext(ctx, "checked duplicates", "entity", entity, "rows", report.Checked, "duplicates", report.Duplicates)
	return report, nil
}

func (s *ImportService) checkCandidateLimit(n int) error {
	if s.opts.DuplicateCandidateLimit > 0 && n > s.opts.DuplicateCandidateLimit {
		return fmt.Errorf("%w: %d candidates exceeds limit of %d", common.ErrBadRequest, n, s.opts.DuplicateCandidateLimit)
	}
	return nil
}

func (s *ImportService) threshold(requested int) int {
	if requested <= 0 || requested > 100 {
		return s.opts.DuplicateThreshold
	}
	return requested
}

// transactionDuplicates loads stored transactions within the candidates'
// date range and matches against them.
func (s *ImportService) transactionDuplicates(ctx context.Context, userID uuid.UUID, candidates []dedupe.TransactionCandidate, threshold int) ([]dedupe.Result[dedupe.ExistingTransaction], error) {
	var existing []dedupe.ExistingTransaction
	if from, to, ok := dateRange(candidates); ok {
		var err error
		existing, err = s.repo.ListExistingTransactions(ctx, userID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing transactions: %w", err)
		}
	}

	strategy := dedupe.NewTransactionStrategy(s.threshold(threshold))
	return dedupe.CheckBatch[dedupe.TransactionCandidate, dedupe.ExistingTransaction](strategy, candidates, existing), nil
}

func (s *ImportService) leadDuplicates(ctx context.Context, userID uuid.UUID, candidates []dedupe.LeadCandidate) ([]dedupe.Result[dedupe.ExistingLead], error) {
	var existing []dedupe.ExistingLead
	if len(candidates) > 0 {
		var err error
		existing, err = s.repo.ListExistingLeads(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing leads: %w", err)
		}
	}
	return dedupe.CheckBatch[dedupe.LeadCandidate, dedupe.ExistingLead](dedupe.LeadStrategy{}, candidates, existing), nil
}

// dateRange returns the earliest and latest parseable candidate dates.
func dateRange(candidates []dedupe.TransactionCandidate) (from, to time.Time, ok bool) {
	for _, c := range candidates {
		if c.Amount == nil {
			continue
		}
		iso, err := normalizer.ParseDate(c.Date)
		if err != nil {
			continue
		}
		d, err := time.Parse(normalizer.ISODateLayout, iso)
		if err != nil {
			continue
		}
		if !ok || d.Before(from) {
			from = d
		}
		if !ok || d.After(to) {
			to = d
		}
		ok = true
	}
	return from, to, ok
}

func countDuplicates[E any](entity mapping.EntityType, results []dedupe.Result[E]) int {
	n := 0
	for _, r := range results {
		if r.IsDuplicate {
			n++
			observability.ImportDuplicates.WithLabelValues(string(entity), string(r.MatchReason)).Inc()
		}
	}
	return n
}
