package record

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medagg/medagg/internal/platform/db"
)

type Service struct {
	entries EntryRepository
	runner  db.Runner
}

func NewService(entries EntryRepository, runner db.Runner) *Service {
	return &Service{entries: entries, runner: runner}
}

// Ingest normalizes one source document and persists the resulting entries
// for the patient. With replace set, the patient's prior entries are
// superseded in the same transaction (bulk re-load semantics).
func (s *Service) Ingest(ctx context.Context, patientID uuid.UUID, doc *SourceDocument, replace bool) ([]*Entry, error) {
	entries, verr := Normalize(doc)
	if verr != nil {
		return nil, verr
	}

	for _, e := range entries {
		e.ID = uuid.New()
		e.PatientID = patientID
	}

	err := s.runner.WithinTx(ctx, func(ctx context.Context) error {
		if replace {
			if err := s.entries.DeleteByPatient(ctx, patientID); err != nil {
				return err
			}
		}
		return s.entries.InsertBatch(ctx, entries)
	})
	if err != nil {
		return nil, fmt.Errorf("persist entries: %w", err)
	}
	return entries, nil
}

// Records returns the patient's canonical entries, optionally filtered to a
// set of categories, in canonical order.
func (s *Service) Records(ctx context.Context, patientID uuid.UUID, categories []Category) ([]*Entry, error) {
	return s.entries.ListByPatient(ctx, patientID, categories)
}
