package identity

import (
	"context"

	"github.com/google/uuid"
)

// AgencyRepository defines the persistence interface for agencies
type AgencyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Agency, error)
	FindByCode(ctx context.Context, code string) (*Agency, error)
	FindActive(ctx context.Context) ([]Agency, error)
	Save(ctx context.Context, agency *Agency) error
}
