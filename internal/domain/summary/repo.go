package summary

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNoSummary is returned when the patient has no generated summary yet.
var ErrNoSummary = errors.New("no summary generated for patient")

type Repository interface {
	Insert(ctx context.Context, s *Summary) error
	// Latest returns the most recently generated summary for the patient,
	// or ErrNoSummary.
	Latest(ctx context.Context, patientID uuid.UUID) (*Summary, error)
}
