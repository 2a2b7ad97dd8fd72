package handler

import (
	"encoding/base64"
	"strings"

	"idproof/pkg/domain"
	dErrors "idproof/pkg/domain-errors"
)

// UploadRequest is the HTTP request body for POST /sessions/{id}/document
// and POST /sessions/{id}/live-capture. Image carries either plain base64 or
// a browser-style data URL ("data:image/png;base64,...."); MediaType is
// required only for plain base64.
type UploadRequest struct {
	Image     string `json:"image"`
	MediaType string `json:"mediaType"`

	// Parsed values (populated by Validate)
	parsedData      []byte
	parsedMediaType string
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *UploadRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Image) == "" {
		return dErrors.New(dErrors.CodeValidation, "image is required")
	}

	encoded := r.Image
	mediaType := strings.TrimSpace(r.MediaType)

	if strings.HasPrefix(encoded, "data:") {
		rest := encoded[len("data:"):]
		semi := strings.Index(rest, ";base64,")
		if semi < 0 {
			return dErrors.New(dErrors.CodeValidation, "data URL must be base64 encoded")
		}
		mediaType = rest[:semi]
		encoded = rest[semi+len(";base64,"):]
	}
	if mediaType == "" {
		return dErrors.New(dErrors.CodeValidation, "mediaType is required")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "image is not valid base64")
	}

	r.parsedData = data
	r.parsedMediaType = mediaType
	return nil
}

// Data returns the decoded upload bytes.
func (r *UploadRequest) Data() []byte { return r.parsedData }

// ParsedMediaType returns the effective media type.
func (r *UploadRequest) ParsedMediaType() string { return r.parsedMediaType }

// ConfirmFieldsRequest is the HTTP request body for POST
// /sessions/{id}/fields.
type ConfirmFieldsRequest struct {
	Name     string `json:"name"`
	IDNumber string `json:"idNumber"`
	DOB      string `json:"dob"`
	Address  string `json:"address"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ConfirmFieldsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(r.IDNumber) == "" {
		return dErrors.New(dErrors.CodeValidation, "idNumber is required")
	}
	return nil
}

// Fields converts the request into the domain field set.
func (r *ConfirmFieldsRequest) Fields() domain.ExtractedFields {
	return domain.ExtractedFields{
		Name:     r.Name,
		IDNumber: r.IDNumber,
		DOB:      r.DOB,
		Address:  r.Address,
	}
}
