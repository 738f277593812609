package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medagg/medagg/internal/domain/record"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record appends one access to the trail. Callers run this inside the same
// transaction as the data release: if the trail cannot be written the whole
// access fails.
func (s *Service) Record(ctx context.Context, tokenID, patientID uuid.UUID, sourceIP string, released []record.Category) (*AccessLog, error) {
	entry := &AccessLog{
		ID:                 uuid.New(),
		TokenID:            tokenID,
		PatientID:          patientID,
		AccessedAt:         s.now().UTC(),
		SourceIP:           sourceIP,
		CategoriesReleased: released,
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("record access: %w", err)
	}
	return entry, nil
}

// Trail returns the patient's access history, newest first.
func (s *Service) Trail(ctx context.Context, patientID uuid.UUID) ([]*AccessLog, error) {
	return s.repo.ListByPatient(ctx, patientID)
}
