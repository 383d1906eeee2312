package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pharmsource/sourcing-api/internal/domain"
	"github.com/pharmsource/sourcing-api/internal/pricing"
	"github.com/pharmsource/sourcing-api/internal/service"
	"go.uber.org/zap"
)

// PricingHandler handles pricing preview and fx rate requests
type PricingHandler struct {
	fxRateService *service.FxRateService
	logger        *zap.Logger
}

// NewPricingHandler creates a new pricing handler instance
func NewPricingHandler(fxRateService *service.FxRateService, logger *zap.Logger) *PricingHandler {
	return &PricingHandler{
		fxRateService: fxRateService,
		logger:        logger,
	}
}

// Preview godoc
// @Summary Preview derived pricing
// @Description Derive localized prices and savings for entered price blocks without persisting anything
// @Tags Pricing
// @Accept json
// @Produce json
// @Param request body domain.PricingPreviewRequest true "Price blocks and quantity"
// @Success 200 {object} domain.PricingPreviewResponse
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /pricing/preview [post]
func (h *PricingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req domain.PricingPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	estimate := blockInput(req.Estimate)
	if err := pricing.ValidateBlock(estimate); err != nil {
		respondWithError(w, http.StatusBadRequest, "estimate "+err.Error())
		return
	}
	var purchase *pricing.BlockInput
	if req.Purchase != nil {
		in := blockInput(*req.Purchase)
		if err := pricing.ValidateBlock(in); err != nil {
			respondWithError(w, http.StatusBadRequest, "purchase "+err.Error())
			return
		}
		purchase = &in
	}

	result := pricing.Compute(purchase, estimate, req.QuantityKg)

	resp := domain.PricingPreviewResponse{
		Estimate: priceBlockDTO(req.Estimate, result.Estimate),
	}
	if result.Purchase != nil && req.Purchase != nil {
		dto := priceBlockDTO(*req.Purchase, *result.Purchase)
		resp.Purchase = &dto
	}
	if result.Savings != nil {
		resp.Savings = &domain.SavingsDTO{
			PerUnit: result.Savings.PerUnit,
			Total:   result.Savings.Total,
			Rate:    result.Savings.Rate,
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// ListFxRates godoc
// @Summary List reference fx rates
// @Description Get the advisory fx reference rates last synced from the finance warehouse
// @Tags Pricing
// @Produce json
// @Success 200 {array} domain.FxRateDTO
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /fx-rates [get]
func (h *PricingHandler) ListFxRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.fxRateService.ListRates(r.Context())
	if err != nil {
		h.logger.Error("failed to list fx rates", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rates)
}

func blockInput(req domain.PriceBlockRequest) pricing.BlockInput {
	return pricing.BlockInput{
		Currency:         req.Currency,
		UnitPrice:        req.UnitPrice,
		FxRate:           req.FxRate,
		TariffRatePct:    req.TariffRate,
		ExtraCostRatePct: req.ExtraCostRate,
	}
}

func priceBlockDTO(req domain.PriceBlockRequest, derived pricing.BlockDerived) domain.PriceBlockDTO {
	in := blockInput(req)
	return domain.PriceBlockDTO{
		Currency:       req.Currency,
		UnitPrice:      req.UnitPrice,
		FxRate:         in.EffectiveFxRate(),
		TariffRate:     req.TariffRate,
		ExtraCostRate:  req.ExtraCostRate,
		LocalUnitPrice: derived.LocalUnitPrice,
		LocalTotal:     derived.LocalTotal,
	}
}
