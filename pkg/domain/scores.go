package domain

// ScoreBreakdown is the full set of signals behind a verification decision.
// It appears in the attestation token, the audit record, and the result
// payload so a decision is always reproducible from any of the three.
type ScoreBreakdown struct {
	OCRConfidence      int `json:"ocrConfidence"`
	DocumentValidation int `json:"documentValidation"`
	LivenessScore      int `json:"livenessScore"`
	FaceMatchScore     int `json:"faceMatchScore"`
}
