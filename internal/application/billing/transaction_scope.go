package billing

import (
	"context"

	"github.com/agencydesk/backend/internal/domain/billing"
)

// TransactionalRepositories exposes the repositories participating in one
// payment-recording transaction.
type TransactionalRepositories interface {
	Installments() billing.InstallmentRepository
	Plans() billing.PaymentPlanRepository
	Audits() billing.PaymentAuditRepository
}

// TransactionScope runs a function inside a single transaction boundary.
// Every repository write inside fn commits or rolls back as one unit, so a
// failure after the installment write cannot leave the plan aggregate
// stale.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// NoOpTransactionScope executes the function without transaction
// semantics. Used in tests where the backing store handles atomicity or
// none is needed.
type NoOpTransactionScope struct {
	Repos TransactionalRepositories
}

// Execute runs fn directly against the configured repositories
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.Repos)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
