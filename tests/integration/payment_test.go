package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appbilling "github.com/agencydesk/backend/internal/application/billing"
	"github.com/agencydesk/backend/internal/domain/billing"
	"github.com/agencydesk/backend/internal/domain/shared"
	"github.com/agencydesk/backend/internal/infrastructure/cache"
	"github.com/agencydesk/backend/internal/infrastructure/persistence"
)

func newPaymentService(tdb *TestDB) *appbilling.PaymentService {
	log := zap.NewNop()
	agencyRepo := persistence.NewGormAgencyRepository(tdb.DB)
	settings := cache.NewAgencySettingsProvider(agencyRepo, cache.NewInMemorySettingsCache(), time.Minute, log)
	scope := persistence.NewGormTransactionScope(tdb.DB)
	return appbilling.NewPaymentService(scope, settings, log)
}

func TestRecordPaymentLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	ctx := context.Background()

	agencyID := uuid.New()
	planID := uuid.New()
	firstID := uuid.New()
	secondID := uuid.New()

	tdb.CreateTestAgency(agencyID, "UTC", "17:00")
	tdb.CreateTestPlan(agencyID, planID, "1000.00", "100.00")

	today := time.Now().UTC().Format("2006-01-02")
	tdb.CreateTestInstallment(agencyID, planID, firstID, 1, "600.00", today, "PENDING")
	tdb.CreateTestInstallment(agencyID, planID, secondID, 2, "400.00", today, "PENDING")

	svc := newPaymentService(tdb)
	paidDate := time.Now().UTC()

	// Paying the first installment in full earns its share of commission
	result, err := svc.RecordPayment(ctx, appbilling.RecordPaymentRequest{
		AgencyID:      agencyID,
		InstallmentID: firstID,
		PaidDate:      paidDate,
		Amount:        decimal.NewFromInt(600),
		Note:          "bank transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, billing.InstallmentStatusPaid, result.Installment.Status)
	assert.True(t, result.Installment.Outstanding().IsZero())
	assert.Equal(t, billing.PlanStatusActive, result.PlanStatus)
	assert.True(t, decimal.NewFromInt(60).Equal(result.EarnedCommission),
		"600/1000 of the expected 100.00 commission, got %s", result.EarnedCommission)

	// Paying the remaining installment completes the plan
	result, err = svc.RecordPayment(ctx, appbilling.RecordPaymentRequest{
		AgencyID:      agencyID,
		InstallmentID: secondID,
		PaidDate:      paidDate,
		Amount:        decimal.NewFromInt(400),
	})
	require.NoError(t, err)
	assert.Equal(t, billing.PlanStatusCompleted, result.PlanStatus)
	assert.True(t, decimal.NewFromInt(100).Equal(result.EarnedCommission))

	// The audit trail has one entry per payment
	var auditCount int64
	err = tdb.DB.Raw("SELECT COUNT(*) FROM payment_audits WHERE plan_id = ?", planID).Scan(&auditCount).Error
	require.NoError(t, err)
	assert.Equal(t, int64(2), auditCount)
}

func TestRecordPaymentPartialThenOverpayment(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	ctx := context.Background()

	agencyID := uuid.New()
	planID := uuid.New()
	installmentID := uuid.New()

	tdb.CreateTestAgency(agencyID, "UTC", "17:00")
	tdb.CreateTestPlan(agencyID, planID, "1000.00", "100.00")

	today := time.Now().UTC().Format("2006-01-02")
	tdb.CreateTestInstallment(agencyID, planID, installmentID, 1, "1000.00", today, "PENDING")

	svc := newPaymentService(tdb)
	paidDate := time.Now().UTC()

	result, err := svc.RecordPayment(ctx, appbilling.RecordPaymentRequest{
		AgencyID:      agencyID,
		InstallmentID: installmentID,
		PaidDate:      paidDate,
		Amount:        decimal.NewFromInt(300),
	})
	require.NoError(t, err)
	assert.Equal(t, billing.InstallmentStatusPartial, result.Installment.Status)
	assert.True(t, decimal.NewFromInt(700).Equal(result.Outstanding))
	assert.True(t, result.EarnedCommission.IsZero(), "partial payments earn no commission")

	// Cumulative payments above 110% of the amount due are rejected and
	// leave the installment untouched
	_, err = svc.RecordPayment(ctx, appbilling.RecordPaymentRequest{
		AgencyID:      agencyID,
		InstallmentID: installmentID,
		PaidDate:      paidDate,
		Amount:        decimal.NewFromInt(900),
	})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "OVERPAYMENT_EXCEEDED", domainErr.Code)

	var amountPaid string
	err = tdb.DB.Raw("SELECT amount_paid FROM installments WHERE id = ?", installmentID).Scan(&amountPaid).Error
	require.NoError(t, err)
	paid, parseErr := decimal.NewFromString(amountPaid)
	require.NoError(t, parseErr)
	assert.True(t, decimal.NewFromInt(300).Equal(paid), "rejected payment must not change the paid amount")
}

func TestRecordPaymentAgencyScope(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	ctx := context.Background()

	agencyID := uuid.New()
	otherAgencyID := uuid.New()
	planID := uuid.New()
	installmentID := uuid.New()

	tdb.CreateTestAgency(agencyID, "UTC", "17:00")
	tdb.CreateTestAgency(otherAgencyID, "UTC", "17:00")
	tdb.CreateTestPlan(agencyID, planID, "500.00", "50.00")

	today := time.Now().UTC().Format("2006-01-02")
	tdb.CreateTestInstallment(agencyID, planID, installmentID, 1, "500.00", today, "PENDING")

	svc := newPaymentService(tdb)

	// Another agency cannot see, let alone pay, this installment
	_, err := svc.RecordPayment(ctx, appbilling.RecordPaymentRequest{
		AgencyID:      otherAgencyID,
		InstallmentID: installmentID,
		PaidDate:      time.Now().UTC(),
		Amount:        decimal.NewFromInt(500),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
