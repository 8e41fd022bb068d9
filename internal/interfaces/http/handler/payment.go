package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appbilling "github.com/agencydesk/backend/internal/application/billing"
	"github.com/agencydesk/backend/internal/domain/billing"
	"github.com/agencydesk/backend/internal/interfaces/http/dto"
)

// dateLayout is the wire format for calendar dates
const dateLayout = "2006-01-02"

// PaymentRecorder applies one payment to an installment
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, req appbilling.RecordPaymentRequest) (*appbilling.RecordPaymentResult, error)
}

// PaymentHandler handles installment payment endpoints
type PaymentHandler struct {
	BaseHandler
	payments PaymentRecorder
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentRecorder) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// RecordPaymentRequest is the body of POST /installments/:id/payments
type RecordPaymentRequest struct {
	PaidDate   string `json:"paidDate" binding:"required"`
	PaidAmount string `json:"paidAmount" binding:"required"`
	Notes      string `json:"notes" binding:"omitempty,max=500"`
}

// InstallmentView is the installment section of a payment response
type InstallmentView struct {
	ID          uuid.UUID       `json:"id"`
	PlanID      uuid.UUID       `json:"planId"`
	Sequence    int             `json:"sequence"`
	Status      string          `json:"status"`
	AmountDue   decimal.Decimal `json:"amountDue"`
	AmountPaid  decimal.Decimal `json:"amountPaid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	DueDate     string          `json:"dueDate"`
	PaidDate    string          `json:"paidDate,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// RecordPaymentResponse reports the updated installment and plan aggregate
type RecordPaymentResponse struct {
	Installment      InstallmentView `json:"installment"`
	PlanStatus       string          `json:"planStatus"`
	EarnedCommission decimal.Decimal `json:"earnedCommission"`
}

// RecordPayment godoc
// @ID           recordInstallmentPayment
// @Summary      Record a payment against an installment
// @Description  Applies a payment, updates the installment status and recalculates the plan's earned commission atomically
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id      path  string                true  "Installment ID"
// @Param        payment body  RecordPaymentRequest  true  "Payment details"
// @Success      200 {object} APIResponse[RecordPaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /installments/{id}/payments [post]
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid installment ID")
		return
	}
	installmentID, err := uuid.Parse(uri.ID)
	if err != nil {
		h.BadRequest(c, "Invalid installment ID")
		return
	}

	agencyID, err := getAgencyID(c)
	if err != nil {
		h.Unauthorized(c, "Agency scope is required")
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	paidDate, err := time.Parse(dateLayout, req.PaidDate)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{
			{Field: "paidDate", Message: "Must be a date in YYYY-MM-DD format"},
		})
		return
	}
	amount, err := decimal.NewFromString(req.PaidAmount)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{
			{Field: "paidAmount", Message: "Must be a decimal number"},
		})
		return
	}

	serviceReq := appbilling.RecordPaymentRequest{
		AgencyID:      agencyID,
		InstallmentID: installmentID,
		PaidDate:      paidDate,
		Amount:        amount,
		Note:          req.Notes,
	}
	if operatorID, err := getUserID(c); err == nil {
		serviceReq.OperatorID = &operatorID
	}

	result, err := h.payments.RecordPayment(c.Request.Context(), serviceReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRecordPaymentResponse(result))
}

func toRecordPaymentResponse(result *appbilling.RecordPaymentResult) RecordPaymentResponse {
	return RecordPaymentResponse{
		Installment:      toInstallmentView(result.Installment),
		PlanStatus:       string(result.PlanStatus),
		EarnedCommission: result.EarnedCommission,
	}
}

func toInstallmentView(installment *billing.Installment) InstallmentView {
	view := InstallmentView{
		ID:          installment.ID,
		PlanID:      installment.PlanID,
		Sequence:    installment.Sequence,
		Status:      string(installment.Status),
		AmountDue:   installment.AmountDue,
		AmountPaid:  installment.PaidAmount(),
		Outstanding: installment.Outstanding(),
		DueDate:     installment.DueDate.Format(dateLayout),
		Notes:       installment.PaymentNote,
	}
	if installment.PaidDate != nil {
		view.PaidDate = installment.PaidDate.Format(dateLayout)
	}
	return view
}
