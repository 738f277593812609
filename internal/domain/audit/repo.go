package audit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Append inserts one log row. The trail is append-only; there is no
	// update or delete.
	Append(ctx context.Context, entry *AccessLog) error
	// ListByPatient returns the patient's trail newest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*AccessLog, error)
}
