package summary

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medagg/medagg/internal/domain/anomaly"
	"github.com/medagg/medagg/internal/domain/record"
)

type Service struct {
	repo     Repository
	entries  record.EntryRepository
	detector *anomaly.Detector
	primary  Generator
	fallback Generator
	model    string
	timeout  time.Duration
	now      func() time.Time
}

// NewService wires the summary pipeline. primary may be nil when no AI
// collaborator is configured; the fallback then serves every request.
func NewService(
	repo Repository,
	entries record.EntryRepository,
	detector *anomaly.Detector,
	primary Generator,
	model string,
	timeout time.Duration,
) *Service {
	return &Service{
		repo:     repo,
		entries:  entries,
		detector: detector,
		primary:  primary,
		fallback: NewFallbackGenerator(),
		model:    model,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Generate builds a fresh summary over the patient's full record set and
// persists it. The AI call is bounded by the configured timeout; any failure
// there degrades to the deterministic fallback rather than failing the
// request.
func (s *Service) Generate(ctx context.Context, patientID uuid.UUID) (*Summary, error) {
	entries, err := s.entries.ListByPatient(ctx, patientID, nil)
	if err != nil {
		return nil, err
	}
	anomalies := s.detector.Detect(entries)

	draft, source, model := s.draft(ctx, entries, anomalies)
	out := &Summary{
		ID:               uuid.New(),
		PatientID:        patientID,
		ClinicianSummary: draft.ClinicianSummary,
		PatientSummary:   draft.PatientSummary,
		Disclaimer:       Disclaimer,
		Source:           source,
		Model:            model,
		GeneratedAt:      s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) draft(ctx context.Context, entries []*record.Entry, anomalies []anomaly.Anomaly) (*Draft, Source, string) {
	if s.primary != nil {
		genCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		draft, err := s.primary.Generate(genCtx, entries, anomalies)
		if err == nil {
			return draft, SourceAI, s.model
		}
		log.Warn().Err(err).Msg("ai summary failed, using fallback")
	}
	// The fallback cannot fail.
	draft, _ := s.fallback.Generate(ctx, entries, anomalies)
	return draft, SourceFallback, ""
}

// Latest returns the most recent stored summary for the patient.
func (s *Service) Latest(ctx context.Context, patientID uuid.UUID) (*Summary, error) {
	return s.repo.Latest(ctx, patientID)
}
