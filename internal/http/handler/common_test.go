package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pharmsource/sourcing-api/internal/domain"
	"github.com/pharmsource/sourcing-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondServiceError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound, domain.ErrorTypeNotFound},
		{"supplier required", service.ErrSupplierRequired, http.StatusBadRequest, domain.ErrorTypeBadRequest},
		{"invalid stage", service.ErrInvalidStage, http.StatusBadRequest, domain.ErrorTypeBadRequest},
		{"batch validation failed", service.ErrBatchValidationFailed, http.StatusUnprocessableEntity, domain.ErrorTypeBadRequest},
		{"conflict", service.ErrConflict, http.StatusConflict, domain.ErrorTypeConflict},
		{"unknown error", assert.AnError, http.StatusInternalServerError, domain.ErrorTypeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondServiceError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var apiErr domain.APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
			assert.Equal(t, tc.wantType, apiErr.Type)
			assert.Equal(t, tc.wantStatus, apiErr.Status)
		})
	}
}

func TestRespondValidationError(t *testing.T) {
	req := domain.CreateSupplierRequest{
		SupplierName: "Missing product",
		Currency:     "USDT", // too long
		UnitPrice:    -1,
	}
	err := validate.Struct(&req)
	require.Error(t, err)

	rec := httptest.NewRecorder()
	respondValidationError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
	assert.Contains(t, apiErr.Errors, "productName")
	assert.Contains(t, apiErr.Errors, "currency")
	assert.Contains(t, apiErr.Errors, "unitPrice")
}

func TestToJSONFieldName(t *testing.T) {
	assert.Equal(t, "productName", toJSONFieldName("ProductName"))
	assert.Equal(t, "quantityKg", toJSONFieldName("QuantityKg"))
	assert.Equal(t, "", toJSONFieldName(""))
}
