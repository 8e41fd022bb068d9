package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbilling "github.com/agencydesk/backend/internal/application/billing"
	"github.com/agencydesk/backend/internal/domain/billing"
	"github.com/agencydesk/backend/internal/domain/shared"
	"github.com/agencydesk/backend/internal/interfaces/http/dto"
)

// stubPaymentRecorder captures the service request and returns a canned result
type stubPaymentRecorder struct {
	lastReq appbilling.RecordPaymentRequest
	result  *appbilling.RecordPaymentResult
	err     error
}

func (s *stubPaymentRecorder) RecordPayment(_ context.Context, req appbilling.RecordPaymentRequest) (*appbilling.RecordPaymentResult, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newPaidInstallment(t *testing.T, agencyID uuid.UUID) *billing.Installment {
	t.Helper()
	installment, err := billing.NewInstallment(agencyID, uuid.New(), 1,
		decimal.NewFromInt(1000), time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, installment.Activate())
	require.NoError(t, installment.RecordPayment(
		decimal.NewFromInt(1000),
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		"wire transfer"))
	return installment
}

func setupPaymentRouter(recorder *stubPaymentRecorder) *gin.Engine {
	router := gin.New()
	h := NewPaymentHandler(recorder)
	router.POST("/installments/:id/payments", h.RecordPayment)
	return router
}

func recordPaymentHTTP(t *testing.T, router *gin.Engine, installmentID, agencyID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/installments/"+installmentID+"/payments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if agencyID != "" {
		req.Header.Set("X-Agency-ID", agencyID)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRecordPaymentSuccess(t *testing.T) {
	agencyID := uuid.New()
	installment := newPaidInstallment(t, agencyID)
	recorder := &stubPaymentRecorder{
		result: &appbilling.RecordPaymentResult{
			Installment:      installment,
			PlanID:           installment.PlanID,
			PlanStatus:       billing.PlanStatusCompleted,
			EarnedCommission: decimal.NewFromFloat(150.00),
			Outstanding:      decimal.Zero,
		},
	}
	router := setupPaymentRouter(recorder)

	w := recordPaymentHTTP(t, router, installment.ID.String(), agencyID.String(), gin.H{
		"paidDate":   "2026-03-10",
		"paidAmount": "1000.00",
		"notes":      "wire transfer",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                  `json:"success"`
		Data    RecordPaymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, installment.ID, resp.Data.Installment.ID)
	assert.Equal(t, "PAID", resp.Data.Installment.Status)
	assert.Equal(t, "2026-03-10", resp.Data.Installment.PaidDate)
	assert.True(t, resp.Data.Installment.Outstanding.IsZero())
	assert.Equal(t, string(billing.PlanStatusCompleted), resp.Data.PlanStatus)
	assert.True(t, decimal.NewFromFloat(150.00).Equal(resp.Data.EarnedCommission))

	// The service request carries the parsed values and agency scope
	assert.Equal(t, agencyID, recorder.lastReq.AgencyID)
	assert.Equal(t, installment.ID, recorder.lastReq.InstallmentID)
	assert.True(t, decimal.NewFromInt(1000).Equal(recorder.lastReq.Amount))
	assert.Equal(t, "wire transfer", recorder.lastReq.Note)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), recorder.lastReq.PaidDate)
}

func TestRecordPaymentInvalidInstallmentID(t *testing.T) {
	router := setupPaymentRouter(&stubPaymentRecorder{})

	w := recordPaymentHTTP(t, router, "not-a-uuid", uuid.New().String(), gin.H{
		"paidDate":   "2026-03-10",
		"paidAmount": "100.00",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordPaymentMissingAgencyScope(t *testing.T) {
	router := setupPaymentRouter(&stubPaymentRecorder{})

	w := recordPaymentHTTP(t, router, uuid.New().String(), "", gin.H{
		"paidDate":   "2026-03-10",
		"paidAmount": "100.00",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecordPaymentValidation(t *testing.T) {
	tests := []struct {
		name          string
		body          gin.H
		expectedField string
	}{
		{
			name:          "malformed date",
			body:          gin.H{"paidDate": "10/03/2026", "paidAmount": "100.00"},
			expectedField: "paidDate",
		},
		{
			name:          "malformed amount",
			body:          gin.H{"paidDate": "2026-03-10", "paidAmount": "abc"},
			expectedField: "paidAmount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupPaymentRouter(&stubPaymentRecorder{})

			w := recordPaymentHTTP(t, router, uuid.New().String(), uuid.New().String(), tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			require.Len(t, resp.Error.Details, 1)
			assert.Equal(t, tt.expectedField, resp.Error.Details[0].Field)
		})
	}
}

func TestRecordPaymentMissingBodyFields(t *testing.T) {
	router := setupPaymentRouter(&stubPaymentRecorder{})

	w := recordPaymentHTTP(t, router, uuid.New().String(), uuid.New().String(), gin.H{
		"paidDate": "2026-03-10",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordPaymentDomainErrors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "installment not found",
			err:          shared.ErrNotFound,
			expectedCode: http.StatusNotFound,
			expectedErr:  dto.ErrCodeNotFound,
		},
		{
			name:         "overpayment rejected",
			err:          shared.NewDomainError("OVERPAYMENT_EXCEEDED", "Payment amount cannot exceed 1100.00"),
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  dto.ErrCodeOverpayment,
		},
		{
			name:         "terminal installment rejected",
			err:          shared.NewDomainError("INVALID_STATE", "Cannot record a payment on a PAID installment"),
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  dto.ErrCodeInvalidState,
		},
		{
			name:         "future paid date rejected",
			err:          shared.NewDomainError("INVALID_PAID_DATE", "Payment date cannot be in the future"),
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeValidationRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupPaymentRouter(&stubPaymentRecorder{err: tt.err})

			w := recordPaymentHTTP(t, router, uuid.New().String(), uuid.New().String(), gin.H{
				"paidDate":   "2026-03-10",
				"paidAmount": "100.00",
			})

			assert.Equal(t, tt.expectedCode, w.Code)

			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
		})
	}
}
