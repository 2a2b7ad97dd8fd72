// Package audit keeps the append-only trail of verification outcomes. One
// record exists per session that reached scoring; records are never updated
// or deleted here.
package audit

import (
	"time"

	"idproof/pkg/domain"
)

// Record captures one completed or failed verification attempt. Score fields
// are pointers because a failed attempt may have produced only some of the
// signals; absent scores stay null in the trail rather than defaulting to
// zero.
type Record struct {
	ID                 domain.AuditRecordID
	SessionID          domain.SessionID
	OCRConfidence      *int
	DocumentValidation *int
	LivenessScore      *int
	FaceMatchScore     *int
	Verified           bool
	Token              *string
	Reason             string
	Timestamp          time.Time
}

// Scores assembles the breakdown when all four signals are present. The
// second return is false for partial records.
func (r Record) Scores() (domain.ScoreBreakdown, bool) {
	if r.OCRConfidence == nil || r.DocumentValidation == nil || r.LivenessScore == nil || r.FaceMatchScore == nil {
		return domain.ScoreBreakdown{}, false
	}
	return domain.ScoreBreakdown{
		OCRConfidence:      *r.OCRConfidence,
		DocumentValidation: *r.DocumentValidation,
		LivenessScore:      *r.LivenessScore,
		FaceMatchScore:     *r.FaceMatchScore,
	}, true
}
