package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrIdentityMismatch is returned when the supplied name or date of birth
// does not match the record on file.
var ErrIdentityMismatch = errors.New("patient identity does not match")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Lookup(ctx context.Context, name string) (*Patient, error) {
	return s.repo.GetByName(ctx, name)
}

// GetOrCreate finds the patient by name or registers a new one. A date of
// birth supplied for an existing patient without one is filled in; an
// existing DOB is never overwritten.
func (s *Service) GetOrCreate(ctx context.Context, name string, dob *time.Time) (*Patient, error) {
	existing, err := s.repo.GetByName(ctx, name)
	if err == nil {
		if dob != nil && existing.DateOfBirth == nil {
			if err := s.repo.UpdateDateOfBirth(ctx, existing.ID, *dob); err != nil {
				return nil, err
			}
			existing.DateOfBirth = dob
		}
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p := &Patient{
		ID:          uuid.New(),
		Name:        name,
		DateOfBirth: dob,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	return p, nil
}

// VerifyIdentity checks the supplied name and date of birth against the
// stored patient. Both must match; a patient without a stored DOB cannot be
// verified.
func (s *Service) VerifyIdentity(ctx context.Context, id uuid.UUID, name string, dob time.Time) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.DateOfBirth == nil {
		return fmt.Errorf("%w: no date of birth on record", ErrIdentityMismatch)
	}
	if NormalizeName(p.Name) != NormalizeName(name) {
		return fmt.Errorf("%w: name", ErrIdentityMismatch)
	}
	py, pm, pd := p.DateOfBirth.Date()
	gy, gm, gd := dob.Date()
	if py != gy || pm != gm || pd != gd {
		return fmt.Errorf("%w: date of birth", ErrIdentityMismatch)
	}
	return nil
}
