package persistence

import (
	"context"

	appbilling "github.com/agencydesk/backend/internal/application/billing"
	"github.com/agencydesk/backend/internal/domain/billing"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to the billing repositories
// within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Installments returns the installment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Installments() billing.InstallmentRepository {
	return NewGormInstallmentRepository(r.tx)
}

// Plans returns the payment plan repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Plans() billing.PaymentPlanRepository {
	return NewGormPaymentPlanRepository(r.tx)
}

// Audits returns the payment audit repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Audits() billing.PaymentAuditRepository {
	return NewGormPaymentAuditRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appbilling.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appbilling.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
