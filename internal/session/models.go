// Package session owns the verification session lifecycle: the ordered
// progression from document submission through extraction, field
// confirmation, live capture, scoring, and completion. The session is the
// server-side source of truth; clients hold only the opaque session ID.
package session

import (
	"time"

	"idproof/pkg/domain"
	dErrors "idproof/pkg/domain-errors"

	"idproof/internal/storage"
)

// State is one stage of the verification lifecycle. Transitions are strictly
// monotonic; Failed is terminal and reachable from any non-terminal stage.
type State string

const (
	StateCreated              State = "Created"
	StateDocumentSubmitted    State = "DocumentSubmitted"
	StateExtracted            State = "Extracted"
	StateFieldsConfirmed      State = "FieldsConfirmed"
	StateLiveCaptureSubmitted State = "LiveCaptureSubmitted"
	StateScored               State = "Scored"
	StateCompleted            State = "Completed"
	StateFailed               State = "Failed"
)

// stateOrder positions each live stage in the pipeline. Failed is outside
// the ordering.
var stateOrder = map[State]int{
	StateCreated:              0,
	StateDocumentSubmitted:    1,
	StateExtracted:            2,
	StateFieldsConfirmed:      3,
	StateLiveCaptureSubmitted: 4,
	StateScored:               5,
	StateCompleted:            6,
}

// AtOrPast reports whether the state has reached the given stage. Always
// false for Failed.
func (s State) AtOrPast(stage State) bool {
	pos, ok := stateOrder[s]
	if !ok {
		return false
	}
	return pos >= stateOrder[stage]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Session is one verification attempt. Fields accumulate as the pipeline
// advances and never regress; a Completed session is immutable.
type Session struct {
	ID    domain.SessionID `json:"id"`
	State State            `json:"state"`

	DocumentRef       storage.Ref `json:"documentRef,omitempty"`
	DocumentMediaType string      `json:"documentMediaType,omitempty"`
	// DocumentDigest is the content digest of the submitted document,
	// used to recognize idempotent replays of the submit step.
	DocumentDigest string `json:"documentDigest,omitempty"`

	DocumentType    domain.DocumentType    `json:"documentType,omitempty"`
	ExtractedFields domain.ExtractedFields `json:"extractedFields"`
	OCRConfidence   *int                   `json:"ocrConfidence,omitempty"`
	HasPhoto        bool                   `json:"hasPhoto,omitempty"`
	PhotoLocation   string                 `json:"photoLocation,omitempty"`

	LivePhotoRef    storage.Ref `json:"livePhotoRef,omitempty"`
	LiveMediaType   string      `json:"liveMediaType,omitempty"`
	LivePhotoDigest string      `json:"livePhotoDigest,omitempty"`

	DocumentValidation *int   `json:"documentValidation,omitempty"`
	LivenessScore      *int   `json:"livenessScore,omitempty"`
	FaceMatchScore     *int   `json:"faceMatchScore,omitempty"`
	Notes              string `json:"notes,omitempty"`

	Verified *bool   `json:"verified,omitempty"`
	Token    *string `json:"token,omitempty"`

	FailureCode   dErrors.Code `json:"failureCode,omitempty"`
	FailureReason string       `json:"failureReason,omitempty"`

	// Version increments on every committed mutation; stores use it for
	// optimistic conflict detection.
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// New creates a session in the initial state.
func New(now time.Time) *Session {
	return &Session{
		ID:        domain.NewSessionID(),
		State:     StateCreated,
		Version:   1,
		CreatedAt: now.UTC(),
	}
}

// transitionErr builds the InvalidTransition error surfaced as HTTP 409.
func transitionErr(current State, attempted string) error {
	return dErrors.New(dErrors.CodeInvalidTransition,
		"cannot "+attempted+" in state "+string(current))
}

// replayConflictErr reports a redo of a completed step with different data.
func replayConflictErr(step string) error {
	return dErrors.New(dErrors.CodeConcurrentModification,
		step+" already completed with different data")
}

// ApplyDocument attaches the stored document and advances to
// DocumentSubmitted. Requires Created.
func (s *Session) ApplyDocument(ref storage.Ref, mediaType, digest string) error {
	if s.State != StateCreated {
		return transitionErr(s.State, "submit document")
	}
	s.DocumentRef = ref
	s.DocumentMediaType = mediaType
	s.DocumentDigest = digest
	s.State = StateDocumentSubmitted
	return nil
}

// ApplyExtraction records the classifier's document analysis and advances to
// Extracted. Requires DocumentSubmitted; OCR confidence is set once here and
// read-only afterwards.
func (s *Session) ApplyExtraction(docType domain.DocumentType, fields domain.ExtractedFields, confidence int, hasPhoto bool, photoLocation string) error {
	if s.State != StateDocumentSubmitted {
		return transitionErr(s.State, "record extraction")
	}
	s.DocumentType = docType
	s.ExtractedFields = fields
	s.OCRConfidence = &confidence
	s.HasPhoto = hasPhoto
	s.PhotoLocation = photoLocation
	s.State = StateExtracted
	return nil
}

// ApplyConfirmedFields overwrites the extracted fields with the user's
// confirmation exactly once and advances to FieldsConfirmed. Requires
// Extracted.
func (s *Session) ApplyConfirmedFields(fields domain.ExtractedFields) error {
	if s.State != StateExtracted {
		return transitionErr(s.State, "confirm fields")
	}
	s.ExtractedFields = fields.Normalize()
	s.State = StateFieldsConfirmed
	return nil
}

// ApplyLiveCapture attaches the stored live photo and advances to
// LiveCaptureSubmitted. Requires FieldsConfirmed.
func (s *Session) ApplyLiveCapture(ref storage.Ref, mediaType, digest string) error {
	if s.State != StateFieldsConfirmed {
		return transitionErr(s.State, "submit live capture")
	}
	s.LivePhotoRef = ref
	s.LiveMediaType = mediaType
	s.LivePhotoDigest = digest
	s.State = StateLiveCaptureSubmitted
	return nil
}

// ApplyScores records the verification adapter's output and advances to
// Scored. Requires LiveCaptureSubmitted.
func (s *Session) ApplyScores(documentValidation, livenessScore, faceMatchScore int, notes string) error {
	if s.State != StateLiveCaptureSubmitted {
		return transitionErr(s.State, "record scores")
	}
	s.DocumentValidation = &documentValidation
	s.LivenessScore = &livenessScore
	s.FaceMatchScore = &faceMatchScore
	s.Notes = notes
	s.State = StateScored
	return nil
}

// Complete freezes the decision and the token (nil when not verified) and
// moves the session to its final immutable state. Requires Scored.
func (s *Session) Complete(verified bool, token *string, now time.Time) error {
	if s.State != StateScored {
		return transitionErr(s.State, "complete")
	}
	s.Verified = &verified
	s.Token = token
	s.State = StateCompleted
	at := now.UTC()
	s.CompletedAt = &at
	return nil
}

// Fail moves the session to the terminal Failed state, recording why. A
// session that already completed cannot fail afterwards.
func (s *Session) Fail(code dErrors.Code, reason string, now time.Time) error {
	if s.State.Terminal() {
		return transitionErr(s.State, "fail")
	}
	s.FailureCode = code
	s.FailureReason = reason
	s.State = StateFailed
	at := now.UTC()
	s.CompletedAt = &at
	return nil
}

// Scores assembles the full breakdown once scoring completed.
func (s *Session) Scores() (domain.ScoreBreakdown, bool) {
	if s.OCRConfidence == nil || s.DocumentValidation == nil || s.LivenessScore == nil || s.FaceMatchScore == nil {
		return domain.ScoreBreakdown{}, false
	}
	return domain.ScoreBreakdown{
		OCRConfidence:      *s.OCRConfidence,
		DocumentValidation: *s.DocumentValidation,
		LivenessScore:      *s.LivenessScore,
		FaceMatchScore:     *s.FaceMatchScore,
	}, true
}
