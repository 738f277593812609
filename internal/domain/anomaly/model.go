package anomaly

import (
	"time"

	"github.com/google/uuid"

	"github.com/medagg/medagg/internal/domain/record"
)

type Kind string

const (
	KindDuplicate   Kind = "duplicate"
	KindMissingDate Kind = "missing_date"
	KindOutlier     Kind = "outlier"
	KindConflict    Kind = "conflict"
)

// kindRank fixes the tie-break order between rules firing on the same
// date/category/hospital.
var kindRank = map[Kind]int{
	KindDuplicate:   0,
	KindMissingDate: 1,
	KindOutlier:     2,
	KindConflict:    3,
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Anomaly is a derived flag over canonical entries. Anomalies are recomputed
// from current records on demand, never stored as authoritative state.
type Anomaly struct {
	Kind      Kind            `json:"kind"`
	Severity  Severity        `json:"severity"`
	Category  record.Category `json:"category"`
	Date      *time.Time      `json:"date,omitempty"`
	Hospitals []string        `json:"hospitals"`
	Message   string          `json:"message"`
	EntryIDs  []uuid.UUID     `json:"entry_ids"`
}
