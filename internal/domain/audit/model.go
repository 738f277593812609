// Package audit keeps the append-only trail of provider accesses. Every
// successful token access writes exactly one row; the trail is never
// updated or pruned.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/medagg/medagg/internal/domain/record"
)

// AccessLog is one recorded release of patient data to a token holder.
// CategoriesReleased lists the categories actually present in the released
// entries, always a subset of the token's scope.
type AccessLog struct {
	ID                 uuid.UUID         `db:"id" json:"id"`
	TokenID            uuid.UUID         `db:"token_id" json:"token_id"`
	PatientID          uuid.UUID         `db:"patient_id" json:"patient_id"`
	AccessedAt         time.Time         `db:"accessed_at" json:"accessed_at"`
	SourceIP           string            `db:"source_ip" json:"source_ip"`
	CategoriesReleased []record.Category `db:"categories_released" json:"categories_released"`
}
