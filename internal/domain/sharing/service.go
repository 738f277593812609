package sharing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medagg/medagg/internal/domain/anomaly"
	"github.com/medagg/medagg/internal/domain/audit"
	"github.com/medagg/medagg/internal/domain/metric"
	"github.com/medagg/medagg/internal/domain/patient"
	"github.com/medagg/medagg/internal/domain/record"
	"github.com/medagg/medagg/internal/platform/db"
	"github.com/medagg/medagg/internal/platform/secrets"
)

// maxIssueAttempts bounds the uniqueness re-check loop on issuance. With a
// 256-bit value a collision is effectively impossible; the bound keeps a
// misbehaving entropy source from spinning forever.
const maxIssueAttempts = 5

type Service struct {
	tokens   Repository
	entries  record.EntryRepository
	patients *patient.Service
	audits   *audit.Service
	detector *anomaly.Detector
	runner   db.Runner
	source   secrets.Source
	now      func() time.Time
}

func NewService(
	tokens Repository,
	entries record.EntryRepository,
	patients *patient.Service,
	audits *audit.Service,
	detector *anomaly.Detector,
	runner db.Runner,
	source secrets.Source,
) *Service {
	return &Service{
		tokens:   tokens,
		entries:  entries,
		patients: patients,
		audits:   audits,
		detector: detector,
		runner:   runner,
		source:   source,
		now:      time.Now,
	}
}

// Create issues a new token for the patient. Scope must be a non-empty set
// of known categories and ttl strictly positive; the generated value is
// re-checked against the store before insert.
func (s *Service) Create(ctx context.Context, patientID uuid.UUID, scope []record.Category, ttl time.Duration) (*Token, error) {
	if !record.ValidScope(scope) {
		return nil, ErrInvalidScope
	}
	canonical := canonicalScope(scope)
	if len(canonical) == 0 {
		return nil, ErrInvalidScope
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}

	var value string
	for attempt := 0; ; attempt++ {
		if attempt == maxIssueAttempts {
			return nil, fmt.Errorf("issue token: no unique value after %d attempts", maxIssueAttempts)
		}
		v, err := secrets.NewToken(s.source)
		if err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}
		taken, err := s.tokens.ValueExists(ctx, v)
		if err != nil {
			return nil, err
		}
		if !taken {
			value = v
			break
		}
		log.Warn().Int("attempt", attempt+1).Msg("token value collision, regenerating")
	}

	issued := s.now().UTC()
	t := &Token{
		ID:        uuid.New(),
		PatientID: patientID,
		Value:     value,
		Scope:     canonical,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
	}
	if err := s.tokens.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate resolves a presented token value and checks it is usable now.
// The three failure modes stay distinct so callers can report them apart.
func (s *Service) Validate(ctx context.Context, value string) (*Token, error) {
	t, err := s.tokens.GetByValue(ctx, value)
	if err != nil {
		return nil, err
	}
	if err := t.UsableAt(s.now()); err != nil {
		return nil, err
	}
	return t, nil
}

// Revoke marks the token dead. Idempotent: revoking an already revoked or
// expired token succeeds without complaint.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) (*Token, error) {
	t, err := s.tokens.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Revoked {
		if err := s.tokens.MarkRevoked(ctx, id); err != nil {
			return nil, err
		}
		t.Revoked = true
	}
	return t, nil
}

// TokenView is a token plus its derived state, for owner-facing listings.
type TokenView struct {
	*Token
	Status Status `json:"status"`
}

// ListForPatient returns the patient's tokens newest first, each with its
// status as of now.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]TokenView, error) {
	tokens, err := s.tokens.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]TokenView, len(tokens))
	for i, t := range tokens {
		views[i] = TokenView{Token: t, Status: t.StatusAt(now)}
	}
	return views, nil
}

// Access is everything released by one successful provider authorization.
type Access struct {
	Token              *Token                       `json:"-"`
	Patient            *patient.Patient             `json:"patient"`
	Entries            []*record.Entry              `json:"entries"`
	Anomalies          []anomaly.Anomaly            `json:"anomalies"`
	Metrics            map[metric.Name][]metric.Point `json:"metrics"`
	CategoriesReleased []record.Category            `json:"categories_released"`
}

// AuthorizeRequest carries what the provider presents: the token value plus
// the patient identity they claim to be treating.
type AuthorizeRequest struct {
	TokenValue  string
	PatientName string
	DateOfBirth time.Time
	SourceIP    string
}

// Authorize is the provider access path. Token validation, identity check,
// scoped data release, anomaly and metric derivation, and the audit write
// all happen inside one transaction: if any step fails, nothing is released
// and nothing is logged.
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (*Access, error) {
	var access *Access
	err := s.runner.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.Validate(ctx, req.TokenValue)
		if err != nil {
			return err
		}
		if err := s.patients.VerifyIdentity(ctx, t.PatientID, req.PatientName, req.DateOfBirth); err != nil {
			return err
		}
		p, err := s.patients.Get(ctx, t.PatientID)
		if err != nil {
			return err
		}

		entries, err := s.entries.ListByPatient(ctx, t.PatientID, t.Scope)
		if err != nil {
			return err
		}
		released := releasedCategories(entries)

		if _, err := s.audits.Record(ctx, t.ID, t.PatientID, req.SourceIP, released); err != nil {
			return err
		}

		access = &Access{
			Token:              t,
			Patient:            p,
			Entries:            entries,
			Anomalies:          s.detector.Detect(entries),
			Metrics:            scopedMetrics(entries, t),
			CategoriesReleased: released,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return access, nil
}

// canonicalScope dedupes a scope into canonical category order. Names are
// resolved through ParseCategory so aliases ("medications") and case
// variants ("Vitals") land on the canonical constants instead of being
// dropped.
func canonicalScope(scope []record.Category) []record.Category {
	in := make(map[record.Category]bool, len(scope))
	for _, c := range scope {
		if canon, ok := record.ParseCategory(string(c)); ok {
			in[canon] = true
		}
	}
	var out []record.Category
	for _, c := range record.Categories {
		if in[c] {
			out = append(out, c)
		}
	}
	return out
}

// releasedCategories lists, in canonical order, the categories actually
// present in the released entries. Always a subset of the token scope.
func releasedCategories(entries []*record.Entry) []record.Category {
	present := make(map[record.Category]bool, len(record.Categories))
	for _, e := range entries {
		present[e.Category] = true
	}
	out := make([]record.Category, 0, len(present))
	for _, c := range record.Categories {
		if present[c] {
			out = append(out, c)
		}
	}
	return out
}

// scopedMetrics extracts only the metrics whose source category the token
// covers; the others are omitted entirely rather than returned empty.
func scopedMetrics(entries []*record.Entry, t *Token) map[metric.Name][]metric.Point {
	out := make(map[metric.Name][]metric.Point)
	if t.InScope(record.CategoryVitals) {
		out[metric.BMI] = metric.Extract(entries, metric.BMI)
	}
	if t.InScope(record.CategoryLabs) {
		out[metric.TotalCholesterol] = metric.Extract(entries, metric.TotalCholesterol)
		out[metric.A1C] = metric.Extract(entries, metric.A1C)
	}
	return out
}
