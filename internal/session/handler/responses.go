package handler

import (
	"time"

	"idproof/pkg/domain"

	"idproof/internal/session"
)

// SessionResponse is the HTTP representation of a session's current state.
type SessionResponse struct {
	SessionID       string                  `json:"sessionId"`
	State           string                  `json:"state"`
	DocumentType    string                  `json:"documentType,omitempty"`
	ExtractedFields *domain.ExtractedFields `json:"extractedFields,omitempty"`
	OCRConfidence   *int                    `json:"ocrConfidence,omitempty"`
	HasPhoto        bool                    `json:"hasPhoto,omitempty"`
	PhotoLocation   string                  `json:"photoLocation,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
}

// FromSession converts a session to its HTTP representation.
func FromSession(s *session.Session) *SessionResponse {
	resp := &SessionResponse{
		SessionID:     s.ID.String(),
		State:         string(s.State),
		DocumentType:  string(s.DocumentType),
		OCRConfidence: s.OCRConfidence,
		HasPhoto:      s.HasPhoto,
		PhotoLocation: s.PhotoLocation,
		CreatedAt:     s.CreatedAt,
	}
	if s.State.AtOrPast(session.StateExtracted) {
		fields := s.ExtractedFields
		resp.ExtractedFields = &fields
	}
	return resp
}

// ResultResponse is the HTTP response for GET /sessions/{id}/result.
type ResultResponse struct {
	Verified  bool                   `json:"verified"`
	Scores    *domain.ScoreBreakdown `json:"scores"`
	Token     *string                `json:"token"`
	Timestamp *time.Time             `json:"timestamp"`
}

// FromResult converts a completed session to the result payload.
func FromResult(s *session.Session) *ResultResponse {
	resp := &ResultResponse{
		Token:     s.Token,
		Timestamp: s.CompletedAt,
	}
	if s.Verified != nil {
		resp.Verified = *s.Verified
	}
	if scores, ok := s.Scores(); ok {
		resp.Scores = &scores
	}
	return resp
}
