// Package decision fuses the four verification scores into the binary
// verified outcome. The rule is a strict conjunction over inclusive
// thresholds, deliberately simple so any decision is reproducible from the
// audit record alone.
package decision

import "idproof/internal/platform/config"

// Engine evaluates verification scores against configured thresholds.
// Thresholds are policy; the conjunction itself is fixed.
type Engine struct {
	thresholds config.Thresholds
}

func NewEngine(t config.Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// Decide reports whether a session passes verification. Every score must
// meet its threshold (inclusive); there is no weighting or partial credit.
// Pure and deterministic.
func (e *Engine) Decide(ocrConfidence, documentValidation, livenessScore, faceMatchScore int) bool {
	return ocrConfidence >= e.thresholds.OCRConfidence &&
		documentValidation >= e.thresholds.DocumentValidation &&
		livenessScore >= e.thresholds.Liveness &&
		faceMatchScore >= e.thresholds.FaceMatch
}
