package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/domain"
	"github.com/pharmsource/sourcing-api/internal/normalize"
	"github.com/pharmsource/sourcing-api/internal/repository"
	"github.com/pharmsource/sourcing-api/internal/service"
	"go.uber.org/zap"
)

// SupplierHandler handles HTTP requests for supplier price entry operations
type SupplierHandler struct {
	supplierService *service.SupplierService
	logger          *zap.Logger
}

// NewSupplierHandler creates a new supplier handler instance
func NewSupplierHandler(
	supplierService *service.SupplierService,
	logger *zap.Logger,
) *SupplierHandler {
	return &SupplierHandler{
		supplierService: supplierService,
		logger:          logger,
	}
}

// List godoc
// @Summary List supplier entries
// @Description Get paginated list of supplier price entries with optional filters
// @Tags Suppliers
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param product query string false "Filter by product (normalized key match)"
// @Param supplier query string false "Filter by supplier name"
// @Param linkageStatus query string false "Filter by linkage status" Enums(PREPARING, IN_PROGRESS, COMPLETED)
// @Param dmfRegistered query bool false "Filter by DMF registration"
// @Param search query string false "Search product and supplier names"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.SupplierDTO}
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /suppliers [get]
func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	q := r.URL.Query()
	filters := &repository.SupplierFilters{}
	if product := q.Get("product"); product != "" {
		key := normalize.ProductKey(product)
		filters.ProductKey = &key
	}
	if supplier := q.Get("supplier"); supplier != "" {
		filters.SupplierName = &supplier
	}
	if status := q.Get("linkageStatus"); status != "" {
		ls := domain.LinkageStatus(status)
		if !ls.IsValid() {
			respondWithError(w, http.StatusBadRequest, "unknown linkage status: "+status)
			return
		}
		filters.LinkageStatus = &ls
	}
	if raw := q.Get("dmfRegistered"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "dmfRegistered must be a boolean")
			return
		}
		filters.DMFRegistered = &v
	}
	if search := q.Get("search"); search != "" {
		filters.SearchQuery = &search
	}

	result, err := h.supplierService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		h.logger.Error("failed to list suppliers", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ListByProduct godoc
// @Summary List suppliers for a product
// @Description Get the collapsed supplier roster for one product, newest entry per supplier name
// @Tags Suppliers
// @Produce json
// @Param product query string true "Product name"
// @Success 200 {array} domain.SupplierDTO
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /suppliers/by-product [get]
func (h *SupplierHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	product := r.URL.Query().Get("product")
	if product == "" {
		respondWithError(w, http.StatusBadRequest, "product query parameter is required")
		return
	}

	suppliers, err := h.supplierService.ListByProduct(r.Context(), product)
	if err != nil {
		h.logger.Error("failed to list suppliers for product", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, suppliers)
}

// GetByID godoc
// @Summary Get supplier entry by ID
// @Description Get a single supplier price entry
// @Tags Suppliers
// @Produce json
// @Param id path string true "Supplier entry ID" format(uuid)
// @Success 200 {object} domain.SupplierDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /suppliers/{id} [get]
func (h *SupplierHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid supplier ID format")
		return
	}

	supplier, err := h.supplierService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, supplier)
}

// Create godoc
// @Summary Create supplier entry
// @Description Register a supplier price entry. Opportunities for the product waiting in pre-sourcing stages advance automatically; the response lists their ids.
// @Tags Suppliers
// @Accept json
// @Produce json
// @Param request body domain.CreateSupplierRequest true "Supplier data"
// @Success 201 {object} domain.CreateSupplierResponse
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /suppliers [post]
func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	resp, err := h.supplierService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create supplier", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// Update godoc
// @Summary Update supplier entry
// @Description Update pricing and linkage fields of a supplier entry. The product cannot change; mislinked entries are deleted and re-entered.
// @Tags Suppliers
// @Accept json
// @Produce json
// @Param id path string true "Supplier entry ID" format(uuid)
// @Param request body domain.UpdateSupplierRequest true "Updated fields"
// @Success 200 {object} domain.SupplierDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /suppliers/{id} [put]
func (h *SupplierHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid supplier ID format")
		return
	}

	var req domain.UpdateSupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	supplier, err := h.supplierService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, supplier)
}

// Delete godoc
// @Summary Delete supplier entry
// @Description Delete a supplier price entry. If the product's roster becomes empty, opportunities past sourcing roll back to the sourcing request stage; the response reports them.
// @Tags Suppliers
// @Produce json
// @Param id path string true "Supplier entry ID" format(uuid)
// @Success 200 {object} domain.SupplierRemovalResponse
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /suppliers/{id} [delete]
func (h *SupplierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid supplier ID format")
		return
	}

	resp, err := h.supplierService.Delete(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// DeleteByName godoc
// @Summary Delete supplier by name
// @Description Delete every price entry of one supplier for a product in a single operation; the response reports any rollback it caused
// @Tags Suppliers
// @Accept json
// @Produce json
// @Param request body domain.DeleteSupplierByNameRequest true "Product and supplier name"
// @Success 200 {object} domain.SupplierRemovalResponse
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /suppliers/by-name [delete]
func (h *SupplierHandler) DeleteByName(w http.ResponseWriter, r *http.Request) {
	var req domain.DeleteSupplierByNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	resp, err := h.supplierService.DeleteByName(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
