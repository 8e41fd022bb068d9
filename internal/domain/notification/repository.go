package notification

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for notification records.
// Create must surface a duplicate (installment, kind) pair as
// shared.ErrAlreadyExists; the underlying uniqueness constraint is the
// final backstop against concurrent runs double-notifying.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	Exists(ctx context.Context, agencyID, installmentID uuid.UUID, kind Kind) (bool, error)
	FindByInstallment(ctx context.Context, agencyID, installmentID uuid.UUID) ([]Record, error)
}
