package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByName(ctx context.Context, name string) (*Patient, error)
	UpdateDateOfBirth(ctx context.Context, id uuid.UUID, dob time.Time) error
}
