// Package extraction turns an identity-document image into structured fields
// via the external classifier. It isolates the classifier's free-form output
// behind strict parsing so the rest of the pipeline only ever sees a
// validated Result or an error.
package extraction

import (
	"context"
	"encoding/base64"
	"log/slog"

	"idproof/pkg/domain"
	dErrors "idproof/pkg/domain-errors"

	"idproof/internal/classifier"
)

const extractionPrompt = `Analyze this identity document and extract the following information:
1. Document type (Aadhaar/Passport/Driver's License/Unknown)
2. Full name
3. ID number
4. Date of birth (format: YYYY-MM-DD)
5. Address
6. Confidence level (0-100) for the extraction
7. Whether the document contains a person's photo, and its approximate location (e.g. "top-right", "left-side")

Return a JSON object with this structure:
{
  "documentType": "string",
  "name": "string",
  "idNumber": "string",
  "dob": "string",
  "address": "string",
  "confidence": number,
  "hasPhoto": boolean,
  "photoLocation": "string"
}`

// Result is the validated outcome of document extraction.
type Result struct {
	DocumentType  domain.DocumentType
	Fields        domain.ExtractedFields
	Confidence    int
	HasPhoto      bool
	PhotoLocation string
}

// Completer is the slice of the classifier client the adapter needs.
type Completer interface {
	Complete(ctx context.Context, req classifier.ChatRequest) (*classifier.ChatResponse, error)
}

// Adapter calls the classifier once per document and normalizes the response.
type Adapter struct {
	classifier Completer
	log        *slog.Logger
}

func NewAdapter(c Completer, log *slog.Logger) *Adapter {
	return &Adapter{classifier: c, log: log}
}

// Extract analyzes a document image. Classifier transport failures come back
// as ExtractionFailed; unparsable or incomplete payloads as
// MalformedResponse. Either way the caller treats the attempt as terminal.
func (a *Adapter) Extract(ctx context.Context, image []byte, mediaType string) (*Result, error) {
	dataURL := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := a.classifier.Complete(ctx, classifier.ChatRequest{
		Messages: []classifier.Message{{
			Role: "user",
			Content: []classifier.ContentPart{
				classifier.TextPart(extractionPrompt),
				classifier.ImagePart(dataURL),
			},
		}},
		Temperature: 0.1,
		MaxTokens:   1000,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeMalformedResponse) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeExtractionFailed, "classifier call failed")
	}

	content := resp.Choices[0].Message.Content
	raw, err := firstJSONObject(content)
	if err != nil {
		a.log.Warn("extraction output had no parseable object",
			slog.Int("content_length", len(content)),
		)
		return nil, err
	}

	p, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}

	return &Result{
		DocumentType:  domain.NormalizeDocumentType(p.DocumentType),
		Fields: domain.ExtractedFields{
			Name:     p.Name,
			IDNumber: p.IDNumber,
			DOB:      p.DOB,
			Address:  p.Address,
		},
		Confidence:    p.confidenceInt(),
		HasPhoto:      p.HasPhoto,
		PhotoLocation: p.PhotoLocation,
	}, nil
}
