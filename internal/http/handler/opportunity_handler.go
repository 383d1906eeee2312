package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/domain"
	"github.com/pharmsource/sourcing-api/internal/normalize"
	"github.com/pharmsource/sourcing-api/internal/repository"
	"github.com/pharmsource/sourcing-api/internal/service"
	"go.uber.org/zap"
)

// OpportunityHandler handles HTTP requests for sourcing opportunity operations
type OpportunityHandler struct {
	opportunityService *service.OpportunityService
	logger             *zap.Logger
}

// NewOpportunityHandler creates a new opportunity handler instance
func NewOpportunityHandler(
	opportunityService *service.OpportunityService,
	logger *zap.Logger,
) *OpportunityHandler {
	return &OpportunityHandler{
		opportunityService: opportunityService,
		logger:             logger,
	}
}

// List godoc
// @Summary List opportunities
// @Description Get paginated list of sourcing opportunities with optional filters
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param stage query string false "Filter by stage"
// @Param segment query string false "Filter by segment" Enums(API, HI_API, INTERMEDIATE, EXCIPIENT, FORMULATION)
// @Param owner query string false "Filter by owner name"
// @Param account query string false "Filter by account name"
// @Param product query string false "Filter by product (normalized key match)"
// @Param minQuantity query number false "Minimum annual quantity in kg"
// @Param maxQuantity query number false "Maximum annual quantity in kg"
// @Param createdAfter query string false "Created after (RFC 3339)"
// @Param createdBefore query string false "Created before (RFC 3339)"
// @Param search query string false "Search account, product and owner names"
// @Param sort query string false "Sort option" Enums(created_desc, created_asc, saving_desc, saving_asc, quantity_desc, quantity_asc, stage_desc, stage_asc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.OpportunityDTO}
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities [get]
func (h *OpportunityHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	filters, err := parseOpportunityFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	sortBy := repository.OpportunitySortByCreatedDesc
	if sort := r.URL.Query().Get("sort"); sort != "" {
		sortBy = repository.OpportunitySortOption(sort)
	}

	result, err := h.opportunityService.List(r.Context(), page, pageSize, filters, sortBy)
	if err != nil {
		h.logger.Error("failed to list opportunities", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get opportunity by ID
// @Description Get a single sourcing opportunity with derived pricing and savings
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path string true "Opportunity ID" format(uuid)
// @Success 200 {object} domain.OpportunityDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities/{id} [get]
func (h *OpportunityHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid opportunity ID format")
		return
	}

	opp, err := h.opportunityService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, opp)
}

// Create godoc
// @Summary Create opportunity
// @Description Register a new sourcing opportunity at the initial stage
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param request body domain.CreateOpportunityRequest true "Opportunity data"
// @Success 201 {object} domain.OpportunityDTO
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities [post]
func (h *OpportunityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOpportunityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	opp, err := h.opportunityService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create opportunity", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, opp)
}

// Update godoc
// @Summary Update opportunity
// @Description Update an opportunity's descriptive and pricing fields. Stage is not touched; use the stage endpoint.
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path string true "Opportunity ID" format(uuid)
// @Param request body domain.UpdateOpportunityRequest true "Updated fields"
// @Success 200 {object} domain.OpportunityDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities/{id} [put]
func (h *OpportunityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid opportunity ID format")
		return
	}

	var req domain.UpdateOpportunityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	opp, err := h.opportunityService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, opp)
}

// Delete godoc
// @Summary Delete opportunity
// @Description Delete an opportunity and its stage history
// @Tags Opportunities
// @Param id path string true "Opportunity ID" format(uuid)
// @Success 204 "No Content"
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities/{id} [delete]
func (h *OpportunityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid opportunity ID format")
		return
	}

	if err := h.opportunityService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangeStage godoc
// @Summary Change opportunity stage
// @Description Move an opportunity to another stage. Advancing past sourcing requires a registered supplier.
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path string true "Opportunity ID" format(uuid)
// @Param request body domain.ChangeStageRequest true "Target stage"
// @Success 200 {object} domain.OpportunityDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Concurrent stage change"
// @Security BearerAuth
// @Router /opportunities/{id}/stage [put]
func (h *OpportunityHandler) ChangeStage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid opportunity ID format")
		return
	}

	var req domain.ChangeStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	opp, err := h.opportunityService.ChangeStage(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, opp)
}

// GetStageHistory godoc
// @Summary Get stage history
// @Description Get the full stage transition history of an opportunity, newest first
// @Tags Opportunities
// @Produce json
// @Param id path string true "Opportunity ID" format(uuid)
// @Success 200 {array} domain.StageHistoryDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /opportunities/{id}/history [get]
func (h *OpportunityHandler) GetStageHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid opportunity ID format")
		return
	}

	history, err := h.opportunityService.GetStageHistory(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// GetPipelineOverview godoc
// @Summary Pipeline overview
// @Description Per-stage opportunity counts with total savings and quantity
// @Tags Dashboard
// @Produce json
// @Success 200 {array} domain.PipelineStageDTO
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline [get]
func (h *OpportunityHandler) GetPipelineOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.opportunityService.GetPipelineOverview(r.Context())
	if err != nil {
		h.logger.Error("failed to build pipeline overview", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, overview)
}

// GetDashboardSummary godoc
// @Summary Dashboard summary
// @Description Aggregate counts and savings across the whole pipeline
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.DashboardSummaryDTO
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /dashboard/summary [get]
func (h *OpportunityHandler) GetDashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.opportunityService.GetDashboardSummary(r.Context())
	if err != nil {
		h.logger.Error("failed to build dashboard summary", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// parseOpportunityFilters builds repository filters from list query parameters.
func parseOpportunityFilters(r *http.Request) (*repository.OpportunityFilters, error) {
	q := r.URL.Query()
	filters := &repository.OpportunityFilters{}

	if stage := q.Get("stage"); stage != "" {
		s := domain.Stage(stage)
		if !s.IsValid() {
			return nil, errors.New("unknown stage: " + stage)
		}
		filters.Stage = &s
	}
	if segment := q.Get("segment"); segment != "" {
		seg := domain.Segment(segment)
		if !seg.IsValid() {
			return nil, errors.New("unknown segment: " + segment)
		}
		filters.Segment = &seg
	}
	if owner := q.Get("owner"); owner != "" {
		filters.OwnerName = &owner
	}
	if account := q.Get("account"); account != "" {
		filters.AccountName = &account
	}
	if product := q.Get("product"); product != "" {
		key := normalize.ProductKey(product)
		filters.ProductKey = &key
	}
	if raw := q.Get("minQuantity"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.New("minQuantity must be numeric")
		}
		filters.MinQuantity = &v
	}
	if raw := q.Get("maxQuantity"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.New("maxQuantity must be numeric")
		}
		filters.MaxQuantity = &v
	}
	if raw := q.Get("createdAfter"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errors.New("createdAfter must be RFC 3339")
		}
		filters.CreatedAfter = &t
	}
	if raw := q.Get("createdBefore"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errors.New("createdBefore must be RFC 3339")
		}
		filters.CreatedBefore = &t
	}
	if search := q.Get("search"); search != "" {
		filters.SearchQuery = &search
	}

	return filters, nil
}
