package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/agencydesk/backend/internal/domain/billing"
	"github.com/agencydesk/backend/internal/domain/identity"
	"github.com/agencydesk/backend/internal/domain/shared"
	"github.com/agencydesk/backend/internal/infrastructure/telemetry"
)

// SettingsProvider resolves an agency's automation settings. Backed by the
// agency repository, usually through the settings cache.
type SettingsProvider interface {
	AutomationSettings(ctx context.Context, agencyID uuid.UUID) (identity.AutomationSettings, error)
}

// PaymentService records payments against installments and keeps the plan
// commission aggregate consistent within the same transaction.
type PaymentService struct {
	scope    TransactionScope
	settings SettingsProvider
	logger   *zap.Logger
	now      func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(scope TransactionScope, settings SettingsProvider, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		scope:    scope,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the reference-instant source, for tests
func (s *PaymentService) WithNow(now func() time.Time) *PaymentService {
	s.now = now
	return s
}

// RecordPaymentRequest carries the inputs of one payment recording
type RecordPaymentRequest struct {
	AgencyID      uuid.UUID
	InstallmentID uuid.UUID
	PaidDate      time.Time
	Amount        decimal.Decimal
	Note          string
	OperatorID    *uuid.UUID
}

// RecordPaymentResult reports the updated installment and plan aggregate
type RecordPaymentResult struct {
	Installment      *billing.Installment
	PlanID           uuid.UUID
	PlanStatus       billing.PlanStatus
	EarnedCommission decimal.Decimal
	Outstanding      decimal.Decimal
}

// RecordPayment validates and applies one payment as a single atomic unit:
// load installment and plan, apply the payment, recalculate the plan's
// earned commission over all of its installments, and append an audit
// entry. Any failure aborts the whole sequence with no partial writes.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record",
		telemetry.SpanAttrAgencyID, req.AgencyID.String(),
		telemetry.SpanAttrInstallmentID, req.InstallmentID.String(),
	)
	defer span.End()

	if req.AgencyID == uuid.Nil || req.InstallmentID == uuid.Nil {
		return nil, shared.ErrInvalidInput
	}

	settings, err := s.settings.AutomationSettings(ctx, req.AgencyID)
	if err != nil {
		// the clock only gates "paid date not in the future"; defaults are
		// an acceptable degradation when the settings lookup fails
		s.logger.Warn("agency settings unavailable, using defaults",
			zap.String("agency_id", req.AgencyID.String()),
			zap.Error(err))
		settings = identity.DefaultAutomationSettings()
	}
	clock := billing.ClockFor(settings)
	localToday := clock.LocalToday(s.now())

	var result *RecordPaymentResult
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		installment, err := repos.Installments().FindByIDForAgency(ctx, req.AgencyID, req.InstallmentID)
		if err != nil {
			return err
		}
		plan, err := repos.Plans().FindByIDForAgency(ctx, req.AgencyID, installment.PlanID)
		if err != nil {
			return err
		}

		oldValues := map[string]any{
			"installment": billing.InstallmentSnapshot(installment),
			"plan":        billing.PlanSnapshot(plan),
		}

		if err := installment.RecordPayment(req.Amount, req.PaidDate, localToday, req.Note); err != nil {
			return err
		}
		if err := repos.Installments().Save(ctx, installment); err != nil {
			return err
		}

		installments, err := repos.Installments().FindByPlan(ctx, req.AgencyID, installment.PlanID)
		if err != nil {
			return err
		}
		commission := plan.RecalculateCommission(installments)
		plan.ApplyCommission(commission)
		if err := repos.Plans().Save(ctx, plan); err != nil {
			return err
		}

		newValues := map[string]any{
			"installment": billing.InstallmentSnapshot(installment),
			"plan":        billing.PlanSnapshot(plan),
			"payment":     map[string]any{"amount": req.Amount.String(), "paid_date": billing.DateOf(req.PaidDate).Format("2006-01-02")},
		}
		audit, err := billing.NewPaymentAudit(req.AgencyID, installment.ID, plan.ID, req.OperatorID, oldValues, newValues)
		if err != nil {
			return err
		}
		if err := repos.Audits().Create(ctx, audit); err != nil {
			return err
		}

		result = &RecordPaymentResult{
			Installment:      installment,
			PlanID:           plan.ID,
			PlanStatus:       plan.Status,
			EarnedCommission: plan.EarnedCommission,
			Outstanding:      installment.Outstanding(),
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPlanID, result.PlanID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		"installment_status", string(result.Installment.Status),
		"plan_status", string(result.PlanStatus),
	)
	s.logger.Info("payment recorded",
		zap.String("agency_id", req.AgencyID.String()),
		zap.String("installment_id", req.InstallmentID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("status", string(result.Installment.Status)),
		zap.String("plan_status", string(result.PlanStatus)))
	return result, nil
}
