// Package handler exposes the import pipeline over HTTP for the review UI.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/smart-import/internal/domain/common"
	"github.com/FACorreiaa/smart-import/internal/domain/import/mapping"
	"github.com/FACorreiaa/smart-import/internal/domain/import/repository"
	"github.com/FACorreiaa/smart-import/internal/domain/import/service"
)

// ImportService is the subset of the import service the handler drives.
type ImportService interface {
	Analyze(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, data []byte) (*service.AnalyzeResult, error)
	Preview(ctx context.Context, entity mapping.EntityType, data []byte, m mapping.ColumnMapping) (*service.PreviewResult, error)
	CheckDuplicates(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, candidates service.DuplicateCandidates, threshold int) (*service.DuplicateReport, error)
	Commit(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, data []byte, m mapping.ColumnMapping, opts service.CommitOptions) (*service.ImportResult, error)
	SaveMapping(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, fingerprint string, m mapping.ColumnMapping) (*repository.SavedMapping, error)
}

var _ ImportService = (*service.ImportService)(nil)

// ImportHandler serves the import endpoints.
type ImportHandler struct {
	svc            ImportService
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewImportHandler constructs a new handler. Request bodies larger than
// maxUploadBytes are rejected with 413.
func NewImportHandler(svc ImportService, logger *slog.Logger, maxUploadBytes int64) *ImportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportHandler{svc: svc, logger: logger, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts the import endpoints on mux, each wrapped by wrap
// when it is non-nil.
func (h *ImportHandler) RegisterRoutes(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	routes := map[string]http.HandlerFunc{
		"POST /v1/imports/{entity}/analyze":               h.Analyze,
		"POST /v1/imports/{entity}/preview":               h.Preview,
		"POST /v1/imports/{entity}/duplicates":            h.CheckDuplicates,
		"POST /v1/imports/{entity}/commit":                h.Commit,
		"PUT /v1/imports/{entity}/mappings/{fingerprint}": h.SaveMapping,
	}
	for pattern, fn := range routes {
		var handler http.Handler = fn
		if wrap != nil {
			handler = wrap(handler)
		}
		mux.Handle(pattern, handler)
		h.logger.Debug("registered route", "pattern", pattern)
	}
}

type mappingRequest struct {
	CSV     string                `json:"csv"`
	Mapping mapping.ColumnMapping `json:"mapping"`
}

type commitRequest struct {
	CSV            string                `json:"csv"`
	Mapping        mapping.ColumnMapping `json:"mapping"`
	SkipDuplicates *bool                 `json:"skipDuplicates"`
	Threshold      int                   `json:"threshold"`
}

type duplicatesRequest struct {
	service.DuplicateCandidates
	Threshold int `json:"threshold"`
}

type saveMappingRequest struct {
	Mapping mapping.ColumnMapping `json:"mapping"`
}

// Analyze takes the raw CSV upload as the request body.
func (h *ImportHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID, entity, ok := h.scope(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err != nil {
		h.writeError(w, r, bodyError(err))
		return
	}

	res, err := h.svc.Analyze(r.Context(), userID, entity, data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	_, entity, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req mappingRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.svc.Preview(r.Context(), entity, []byte(req.CSV), req.Mapping)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *ImportHandler) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	userID, entity, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req duplicatesRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.svc.CheckDuplicates(r.Context(), userID, entity, req.DuplicateCandidates, req.Threshold)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// Commit stores the valid records of an upload. Duplicates are skipped
// unless skipDuplicates is explicitly false.
func (h *ImportHandler) Commit(w http.ResponseWriter, r *http.Request) {
	userID, entity, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req commitRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	opts := service.CommitOptions{SkipDuplicates: true, Threshold: req.Threshold}
	if req.SkipDuplicates != nil {
		opts.SkipDuplicates = *req.SkipDuplicates
	}

	res, err := h.svc.Commit(r.Context(), userID, entity, []byte(req.CSV), req.Mapping, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, res)
}

func (h *ImportHandler) SaveMapping(w http.ResponseWriter, r *http.Request) {
	userID, entity, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req saveMappingRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	saved, err := h.svc.SaveMapping(r.Context(), userID, entity, r.PathValue("fingerprint"), req.Mapping)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"id":          saved.ID,
		"entity":      saved.Entity,
		"fingerprint": saved.Fingerprint,
		"mapping":     saved.Mapping,
		"updatedAt":   saved.UpdatedAt,
	})
}

// scope resolves the caller and the entity path segment.
func (h *ImportHandler) scope(w http.ResponseWriter, r *http.Request) (uuid.UUID, mapping.EntityType, bool) {
	userID, err := common.UserIDFromContext(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return uuid.Nil, "", false
	}
	entity, err := mapping.ParseEntityType(r.PathValue("entity"))
	if err != nil {
		h.writeError(w, r, err)
		return uuid.Nil, "", false
	}
	return userID, entity, true
}

func (h *ImportHandler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err := dec.Decode(dst); err != nil {
		return bodyError(err)
	}
	return nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", common.ErrUploadTooLarge, tooLarge.Limit)
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body is empty", common.ErrBadRequest)
	}
	return fmt.Errorf("%w: %v", common.ErrBadRequest, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrUnsupportedEntity):
		return http.StatusNotFound
	case errors.Is(err, common.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrInvalidMapping):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrBadRequest), errors.Is(err, common.ErrEmptyUpload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (h *ImportHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "import request failed",
			"path", r.URL.Path,
			"request_id", common.RequestIDFromContext(r.Context()),
			"error", err,
		)
		msg = "internal error"
	}
	h.writeJSON(w, status, errorResponse{Error: msg, RequestID: common.RequestIDFromContext(r.Context())})
}

func (h *ImportHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}
