package sharing

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *Token) error
	GetByID(ctx context.Context, id uuid.UUID) (*Token, error)
	// GetByValue looks a token up by its opaque secret. Returns
	// ErrTokenNotFound when no token carries that value.
	GetByValue(ctx context.Context, value string) (*Token, error)
	// ListByPatient returns the patient's tokens newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Token, error)
	// MarkRevoked flips the revoked flag. Revoking an already revoked
	// token is a no-op, not an error.
	MarkRevoked(ctx context.Context, id uuid.UUID) error
	// ValueExists reports whether any token, live or dead, already holds
	// the value. Issuance re-checks before insert.
	ValueExists(ctx context.Context, value string) (bool, error)
}
