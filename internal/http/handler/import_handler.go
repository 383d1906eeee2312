package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/domain"
	"github.com/pharmsource/sourcing-api/internal/service"
	"go.uber.org/zap"
)

// maxImportRows bounds one bulk import request. Larger spreadsheets are
// split client-side.
const maxImportRows = 5000

// ImportHandler handles HTTP requests for bulk import operations
type ImportHandler struct {
	importService *service.ImportService
	logger        *zap.Logger
}

// NewImportHandler creates a new import handler instance
func NewImportHandler(
	importService *service.ImportService,
	logger *zap.Logger,
) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		logger:        logger,
	}
}

// Validate godoc
// @Summary Validate import batch
// @Description Run the validation pipeline over spreadsheet rows without writing any opportunity data
// @Tags Import
// @Accept json
// @Produce json
// @Param request body domain.ImportRequest true "Import payload"
// @Success 200 {object} domain.ImportValidationResult
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /import/validate [post]
func (h *ImportHandler) Validate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeImportRequest(w, r)
	if !ok {
		return
	}

	result, err := h.importService.ValidateBatch(r.Context(), req)
	if err != nil {
		h.logger.Error("import validation failed", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Commit godoc
// @Summary Commit import batch
// @Description Validate and apply spreadsheet rows. Refused entirely when any row is invalid.
// @Tags Import
// @Accept json
// @Produce json
// @Param request body domain.ImportRequest true "Import payload"
// @Success 200 {object} domain.ImportCommitResult
// @Failure 400 {object} domain.APIError
// @Failure 422 {object} domain.APIError "Batch contains invalid rows"
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /import/commit [post]
func (h *ImportHandler) Commit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeImportRequest(w, r)
	if !ok {
		return
	}

	result, err := h.importService.CommitBatch(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetBatch godoc
// @Summary Get import batch
// @Description Get the audit record of one import batch
// @Tags Import
// @Produce json
// @Param id path string true "Batch ID" format(uuid)
// @Success 200 {object} domain.ImportBatchDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /import/batches/{id} [get]
func (h *ImportHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid batch ID format")
		return
	}

	batch, err := h.importService.GetBatch(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, batch)
}

// ListBatches godoc
// @Summary List import batches
// @Description Get paginated import batch audit records, newest first
// @Tags Import
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ImportBatchDTO}
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /import/batches [get]
func (h *ImportHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	result, err := h.importService.ListBatches(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list import batches", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *ImportHandler) decodeImportRequest(w http.ResponseWriter, r *http.Request) (*domain.ImportRequest, bool) {
	var req domain.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if len(req.Rows) == 0 {
		respondWithError(w, http.StatusBadRequest, "Import payload contains no rows")
		return nil, false
	}
	if len(req.Rows) > maxImportRows {
		respondWithError(w, http.StatusBadRequest, "Import payload exceeds "+strconv.Itoa(maxImportRows)+" rows")
		return nil, false
	}
	return &req, true
}
