package record

import (
	"context"

	"github.com/google/uuid"
)

type EntryRepository interface {
	InsertBatch(ctx context.Context, entries []*Entry) error
	// ListByPatient returns entries in canonical order: category order,
	// then original entry order within category. A nil categories filter
	// returns all four; an empty non-nil filter matches nothing.
	ListByPatient(ctx context.Context, patientID uuid.UUID, categories []Category) ([]*Entry, error)
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) error
}
