package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// NormalizeName canonicalizes a patient name for matching: names are the
// only lookup key exposed to the owner UI, so matching is case-insensitive
// and whitespace-trimmed.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
