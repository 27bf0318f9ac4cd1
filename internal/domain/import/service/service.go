// Package service provides the import orchestration logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/schollz/closestmatch"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-import/internal/domain/common"
	"github.com/FACorreiaa/smart-import/internal/domain/import/dedupe"
	"github.com/FACorreiaa/smart-import/internal/domain/import/mapping"
	"github.com/FACorreiaa/smart-import/internal/domain/import/parser"
	"github.com/FACorreiaa/smart-import/internal/domain/import/repository"
	"github.com/FACorreiaa/smart-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-import/internal/domain/import/transform"
	"github.com/FACorreiaa/smart-import/pkg/observability"
)

const (
	importBatchSize           = 500
	importProgressUpdateEvery = 500
	sampleRowCount            = 5
)

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	BatchSize               int
	ProgressEvery           int
	DuplicateThreshold      int
	DuplicateCandidateLimit int
	MaxRows                 int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = importBatchSize
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = importProgressUpdateEvery
	}
	if o.DuplicateThreshold <= 0 || o.DuplicateThreshold > 100 {
		o.DuplicateThreshold = dedupe.DefaultThreshold
	}
	return o
}

// AnalyzeResult contains the result of analyzing an uploaded file
type AnalyzeResult struct {
	Entity       mapping.EntityType    `json:"entity"`
	Headers      []string              `json:"headers"`
	RowCount     int                   `json:"rowCount"`
	SampleRows   [][]string            `json:"sampleRows"`
	Fingerprint  string                `json:"fingerprint"`
	Mapping      mapping.ColumnMapping `json:"mapping"`
	Confidence   mapping.Confidence    `json:"confidence"`
	Validation   mapping.Validation    `json:"validation"`
	ContactSlots []mapping.ContactSlot `json:"contactSlots,omitempty"`

	// Existing mapping found
	MappingFound   bool       `json:"mappingFound"`
	SavedMappingID *uuid.UUID `json:"savedMappingId,omitempty"`

	// Closest unmapped header per missing required field
	Suggestions map[string]string `json:"suggestions,omitempty"`
}

// PreviewResult is the typed outcome of applying a mapping without saving.
type PreviewResult struct {
	Validation mapping.Validation `json:"validation"`
	Batch      *transform.Batch   `json:"batch"`
	Errors     []string           `json:"errors"`
}

// ImportService orchestrates file analysis and import operations
type ImportService struct {
	repo   repository.ImportRepository
	logger *slog.Logger
	tracer trace.Tracer
	opts   Options
}

// NewImportService creates a new import service
func NewImportService(repo repository.ImportRepository, logger *slog.Logger, opts Options) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		repo:   repo,
		logger: logger,
		tracer: otel.Tracer("smart-import/import"),
		opts:   opts.withDefaults(),
	}
}

func (s *ImportService) startSpan(ctx context.Context, name string, entity mapping.EntityType) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "ImportService."+name, trace.WithAttributes(
		attribute.String("import.entity", string(entity)),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "ok")
	}
	span.End()
}

// load decodes and tokenizes an upload.
func (s *ImportService) load(data []byte) (*parser.Grid, error) {
	text, err := sniffer.NormalizeEncoding(data)
	if errors.Is(err, sniffer.ErrEmptyFile) {
		return nil, common.ErrEmptyUpload
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode upload: %w", err)
	}

	grid := parser.Parse(text)
	if len(grid.Headers) == 1 && grid.Headers[0] == "" {
		return nil, common.ErrEmptyUpload
	}
	if s.opts.MaxRows > 0 && len(grid.Rows) > s.opts.MaxRows {
		return nil, fmt.Errorf("%w: file has %d rows, limit is %d", common.ErrBadRequest, len(grid.Rows), s.opts.MaxRows)
	}
	return grid, nil
}

// prepare loads an upload and checks a caller-supplied mapping against it.
func (s *ImportService) prepare(entity mapping.EntityType, data []byte, m mapping.ColumnMapping) (*parser.Grid, mapping.ColumnMapping, error) {
	grid, err := s.load(data)
	if err != nil {
		return nil, nil, err
	}
	m, err = mapping.Apply(entity, nil, m)
	if err != nil {
		return nil, nil, err
	}
	if err := mapping.CheckHeaders(m, grid.Headers); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrInvalidMapping, err)
	}
	return grid, m, nil
}

func contactSlots(entity mapping.EntityType, grid *parser.Grid) []mapping.ContactSlot {
	if entity != mapping.EntityLead {
		return nil
	}
	return mapping.DetectContactSlots(grid.Headers)
}

// Analyze inspects an upload and proposes a column mapping for entity.
// A mapping saved for the same header fingerprint overrides detection.
func (s *ImportService) Analyze(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, data []byte) (res *AnalyzeResult, err error) {
	ctx, span := s.startSpan(ctx, "Analyze", entity)
	defer func() { endSpan(span, err) }()

	grid, err := s.load(data)
	if err != nil {
		return nil, err
	}

	detection, err := mapping.Detect(entity, grid.Headers)
	if err != nil {
		return nil, err
	}

	res = &AnalyzeResult{
		Entity:       entity,
		Headers:      grid.Headers,
		RowCount:     len(grid.Rows),
		SampleRows:   sniffer.SampleRows(grid, sampleRowCount),
		Fingerprint:  sniffer.Fingerprint(grid.Headers),
		Mapping:      detection.Mapping,
		Confidence:   detection.Confidence,
		ContactSlots: contactSlots(entity, grid),
	}

	saved, err := s.repo.GetMappingByFingerprint(ctx, userID, entity, res.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to look up saved mapping: %w", err)
	}
	if saved != nil {
		merged, err := mapping.Apply(entity, detection.Mapping, saved.Mapping)
		if err != nil {
			return nil, err
		}
		for field, header := range saved.Mapping {
			if _, known := merged[field]; !known {
				continue
			}
			if header == "" {
				res.Confidence[field] = 0
			} else {
				res.Confidence[field] = 1
			}
		}
		res.Mapping = merged
		res.MappingFound = true
		res.SavedMappingID = &saved.ID
	}

	res.Validation = mapping.Validate(entity, res.Mapping)
	res.Suggestions = suggestHeaders(entity, res.Mapping, grid.Headers)

	for field, score := range res.Confidence {
		if res.Mapping.Has(field) {
			observability.ImportMappingConfidence.WithLabelValues(string(entity)).Observe(score)
		}
	}
	span.SetAttributes(
		attribute.Int("import.rows", res.RowCount),
		attribute.Bool("import.mapping_found", res.MappingFound),
	)
	s.logger.InfoContext(ctx, "analyzed upload",
		"entity", entity,
		"rows", res.RowCount,
		"mapping_found", res.MappingFound,
		"valid", res.Validation.Valid,
	)
	return res, nil
}

// suggestHeaders proposes the closest unmapped header for every required
// field the mapping lacks.
func suggestHeaders(entity mapping.EntityType, m mapping.ColumnMapping, headers []string) map[string]string {
	used := make(map[string]struct{}, len(m))
	for _, h := range m {
		if h != "" {
			used[h] = struct{}{}
		}
	}

	byKey := make(map[string]string)
	var keys []string
	for _, h := range headers {
		if _, ok := used[h]; ok || strings.TrimSpace(h) == "" {
			continue
		}
		key := strings.ToLower(h)
		if _, dup := byKey[key]; dup {
			continue
		}
		byKey[key] = h
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil
	}

	cm := closestmatch.New(keys, []int{2, 3})
	out := make(map[string]string)
	for _, field := range mapping.RequiredFields(entity) {
		if m.Has(field) {
			continue
		}
		if field == mapping.FieldAmount && (m.Has(mapping.FieldDebit) || m.Has(mapping.FieldCredit)) {
			continue
		}
		if match := cm.Closest(strings.ToLower(mapping.Label(entity, field))); match != "" {
			out[field] = byKey[match]
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Preview transforms an upload with m and returns the typed records without
// persisting anything.
func (s *ImportService) Preview(ctx context.Context, entity mapping.EntityType, data []byte, m mapping.ColumnMapping) (res *PreviewResult, err error) {
	ctx, span := s.startSpan(ctx, "Preview", entity)
	defer func() { endSpan(span, err) }()

	grid, m, err := s.prepare(entity, data, m)
	if err != nil {
		return nil, err
	}

	batch, err := transform.Run(entity, grid, m, contactSlots(entity, grid))
	if err != nil {
		return nil, err
	}

	errs := batch.Errors()
	if errs == nil {
		errs = []string{}
	}
	span.SetAttributes(attribute.Int("import.valid", batch.Valid), attribute.Int("import.invalid", batch.Invalid))
	s.logger.DebugContext(ctx, "previewed upload", "entity", entity, "rows", batch.Total, "valid", batch.Valid, "invalid", batch.Invalid)

	return &PreviewResult{
		Validation: mapping.Validate(entity, m),
		Batch:      batch,
		Errors:     errs,
	}, nil
}

// SaveMapping remembers a reviewed mapping for uploads with the same header fingerprint.
func (s *ImportService) SaveMapping(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, fingerprint string, m mapping.ColumnMapping) (saved *repository.SavedMapping, err error) {
	ctx, span := s.startSpan(ctx, "SaveMapping", entity)
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(fingerprint) == "" {
		return nil, fmt.Errorf("%w: fingerprint is required", common.ErrBadRequest)
	}
	m, err = mapping.Apply(entity, nil, m)
	if err != nil {
		return nil, err
	}

	saved = &repository.SavedMapping{
		UserID:      userID,
		Entity:      entity,
		Fingerprint: fingerprint,
		Mapping:     m,
	}
	if err := s.repo.SaveMapping(ctx, saved); err != nil {
		return nil, fmt.Errorf("failed to save mapping: %w", err)
	}

	s.logger.InfoContext(ctx, "saved import mapping", "entity", entity, "mapping_id", saved.ID)
	return saved, nil
}
