// Package analysis runs report and X-ray analyses and keeps their results in
// the encrypted record store.
package analysis

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/medassist/medassist/internal/domain/biomarker"
	"github.com/medassist/medassist/internal/domain/diet"
)

type Kind string

const (
	KindReport Kind = "report"
	KindXray   Kind = "xray"
)

func (k Kind) Valid() bool {
	return k == KindReport || k == KindXray
}

// Order selects creation-time ordering for list reads.
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

var (
	// ErrNotFound covers both a missing id and an id owned by someone else.
	ErrNotFound         = errors.New("report not found")
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrInvalidKind      = errors.New("invalid analysis kind")
	ErrInvalidUpload    = errors.New("invalid file type, please upload an image")
)

// Payload is the plaintext sealed into every record. Field names are the
// stored format and must not change.
type Payload struct {
	ExtractedText  string              `json:"extracted_text"`
	Biomarkers     []biomarker.Reading `json:"biomarkers"`
	DietPlan       *diet.Plan          `json:"diet_plan"`
	Interpretation *string             `json:"interpretation"`
	Findings       []string            `json:"findings,omitempty"`
	Region         string              `json:"region,omitempty"`
}

// Record is list metadata. It never carries ciphertext.
type Record struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"-"`
	Kind      Kind      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// SealedRecord is a Record with its encrypted payload.
type SealedRecord struct {
	Record
	Ciphertext []byte
}

// Opened is a decrypted record.
type Opened struct {
	Record
	Payload Payload
}

// Analysis is the response for a single analysis: the payload fields plus
// the record id.
type Analysis struct {
	Payload
	AnalysisID uuid.UUID `json:"analysis_id"`
}

// HistoryItem is one row of the report history list.
type HistoryItem struct {
	ID        uuid.UUID `json:"id"`
	Type      Kind      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}

// TrendPoint is one decrypted report in the analytics view.
type TrendPoint struct {
	Date          time.Time           `json:"date"`
	Biomarkers    []biomarker.Reading `json:"biomarkers"`
	Macros        *diet.Macros        `json:"macros"`
	VitalityScore int                 `json:"vitality_score"`
}

// DailyPlan is the latest report's diet plan, or a message explaining why
// there is none.
type DailyPlan struct {
	DietPlan *diet.Plan `json:"diet_plan"`
	Date     *time.Time `json:"date,omitempty"`
	Message  string     `json:"message,omitempty"`
}

const (
	MessageNoReport     = "No report analysis found. Please upload a report."
	MessageInaccessible = "Data inaccessible. Please re-upload report."
)

// VitalityScore is a display heuristic: 70 plus 5 per detected marker,
// capped at 100. It is not a clinical metric.
func VitalityScore(markers int) int {
	return min(100, 70+5*markers)
}
