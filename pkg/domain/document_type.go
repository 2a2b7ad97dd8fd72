package domain

import "strings"

// DocumentType classifies the identity document a session is built around.
// Invariant: the value is one of the supported document types; anything the
// classifier returns outside the allowlist normalizes to Unknown.
//
// Usage: construct via NormalizeDocumentType when ingesting classifier
// output; direct casting bypasses normalization.
type DocumentType string

// Supported document types.
const (
	DocumentTypeAadhaar        DocumentType = "Aadhaar"
	DocumentTypePassport       DocumentType = "Passport"
	DocumentTypeDriversLicense DocumentType = "DriversLicense"
	DocumentTypeUnknown        DocumentType = "Unknown"
)

// validDocumentTypes is the single source of truth for valid document types.
var validDocumentTypes = map[DocumentType]bool{
	DocumentTypeAadhaar:        true,
	DocumentTypePassport:       true,
	DocumentTypeDriversLicense: true,
	DocumentTypeUnknown:        true,
}

// NormalizeDocumentType maps free-form classifier output onto the supported
// set. Unrecognized values become Unknown rather than an error; the document
// type informs the attestation but never gates the pipeline.
func NormalizeDocumentType(s string) DocumentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aadhaar":
		return DocumentTypeAadhaar
	case "passport":
		return DocumentTypePassport
	case "driverslicense", "drivers license", "driver's license", "driving license":
		return DocumentTypeDriversLicense
	default:
		return DocumentTypeUnknown
	}
}

// IsValid checks if the document type is one of the supported enum values.
func (d DocumentType) IsValid() bool {
	return validDocumentTypes[d]
}

// String returns the string representation of the document type.
func (d DocumentType) String() string {
	return string(d)
}
