package jobrun

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for the job run ledger
type Repository interface {
	Create(ctx context.Context, run *Run) error
	Save(ctx context.Context, run *Run) error
	FindByID(ctx context.Context, id uuid.UUID) (*Run, error)
	FindLatest(ctx context.Context, jobName string) (*Run, error)
	FindRecent(ctx context.Context, jobName string, limit int) ([]Run, error)
}
