// Package sharing issues and validates the opaque tokens a patient hands to
// a provider. A token carries no embedded claims; everything about it lives
// in the store and revocation is immediate.
package sharing

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medagg/medagg/internal/domain/record"
)

var (
	ErrTokenNotFound = errors.New("share token not found")
	ErrTokenExpired  = errors.New("share token expired")
	ErrTokenRevoked  = errors.New("share token revoked")

	ErrInvalidScope = errors.New("token scope must be a non-empty set of known categories")
	ErrInvalidTTL   = errors.New("token ttl must be positive")
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// Token is a patient-issued grant over a subset of record categories. Value
// is the opaque secret the provider presents; it never encodes scope or
// expiry.
type Token struct {
	ID        uuid.UUID         `db:"id" json:"id"`
	PatientID uuid.UUID         `db:"patient_id" json:"patient_id"`
	Value     string            `db:"token_value" json:"-"`
	Scope     []record.Category `db:"scope" json:"scope"`
	IssuedAt  time.Time         `db:"issued_at" json:"issued_at"`
	ExpiresAt time.Time         `db:"expires_at" json:"expires_at"`
	Revoked   bool              `db:"revoked" json:"revoked"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// StatusAt derives the token's state at the given instant. Revocation wins
// over expiry: a revoked token reports revoked even after it expires.
func (t *Token) StatusAt(now time.Time) Status {
	if t.Revoked {
		return StatusRevoked
	}
	if !now.Before(t.ExpiresAt) {
		return StatusExpired
	}
	return StatusActive
}

// UsableAt returns nil when the token can authorize an access at the given
// instant. Expiry is exclusive: a token is dead at exactly expires_at.
func (t *Token) UsableAt(now time.Time) error {
	switch t.StatusAt(now) {
	case StatusRevoked:
		return ErrTokenRevoked
	case StatusExpired:
		return ErrTokenExpired
	}
	return nil
}

// InScope reports whether the category is covered by the token's grant.
func (t *Token) InScope(cat record.Category) bool {
	for _, c := range t.Scope {
		if c == cat {
			return true
		}
	}
	return false
}
