package domain

import "strings"

// ExtractedFields holds the personal data read off an identity document.
// Populated once by extraction and overwritten exactly once when the user
// confirms or corrects the values.
type ExtractedFields struct {
	Name     string `json:"name"`
	IDNumber string `json:"idNumber"`
	DOB      string `json:"dob"`
	Address  string `json:"address"`
}

// Normalize trims surrounding whitespace from every field. Replay detection
// compares normalized values so a retried request with stray whitespace still
// counts as the same payload.
func (f ExtractedFields) Normalize() ExtractedFields {
	return ExtractedFields{
		Name:     strings.TrimSpace(f.Name),
		IDNumber: strings.TrimSpace(f.IDNumber),
		DOB:      strings.TrimSpace(f.DOB),
		Address:  strings.TrimSpace(f.Address),
	}
}

// Equal reports whether two field sets are the same after normalization.
func (f ExtractedFields) Equal(other ExtractedFields) bool {
	return f.Normalize() == other.Normalize()
}
