// Package verification scores a live capture against the submitted document
// via the external classifier. The request forces a structured tool call so
// the response is deterministic; free-text answers are rejected.
package verification

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"

	dErrors "idproof/pkg/domain-errors"

	"idproof/internal/classifier"
)

const verificationPrompt = `You are an expert facial biometric verification system. Determine whether two photos show the same person.

IMAGE 1: Identity document containing a person's photo
IMAGE 2: Live selfie photo of a person

1. LIVENESS SCORE (0-100) - Is IMAGE 2 a real, live person?
   Score low (0-40) for blurred or unclear captures, photos of photos, screen
   displays, printed images, masks, or artificial features. Score high
   (70-100) only for a clear, sharp image of a real person with natural skin
   texture and lighting.

2. FACE MATCH SCORE (0-100) - Are these the same person?
   Compare core biometric features: eye shape and spacing, nose structure,
   mouth and lip shape, jawline, facial proportions. Natural variations
   (facial hair, glasses, hair style, aging, expression, angle) are fine for
   the same person. If core bone structure and facial proportions differ,
   score low (0-45) even when superficial features look similar.

3. DOCUMENT VALIDATION SCORE (0-100) - Does IMAGE 1 look like a genuine
   government ID? Check for tampering or manipulation; be lenient with wear
   and fading on older documents.

Return your scores through the verify_identity function.`

var verifyIdentityParams = json.RawMessage(`{
	"type": "object",
	"properties": {
		"livenessScore": {"type": "number", "description": "Liveness score from 0-100"},
		"faceMatchScore": {"type": "number", "description": "Face match score from 0-100"},
		"documentValidation": {"type": "number", "description": "Document validation score from 0-100"},
		"notes": {"type": "string", "description": "Brief explanation of the verification"}
	},
	"required": ["livenessScore", "faceMatchScore", "documentValidation", "notes"]
}`)

// Result carries the three verification scores and the classifier's
// explanation. All scores are validated before a Result exists; partial
// scoring never reaches the caller.
type Result struct {
	LivenessScore      int
	FaceMatchScore     int
	DocumentValidation int
	Notes              string
}

// Completer is the slice of the classifier client the adapter needs.
type Completer interface {
	Complete(ctx context.Context, req classifier.ChatRequest) (*classifier.ChatResponse, error)
}

// Adapter calls the classifier once per live capture and validates the
// structured response.
type Adapter struct {
	classifier Completer
	log        *slog.Logger
}

func NewAdapter(c Completer, log *slog.Logger) *Adapter {
	return &Adapter{classifier: c, log: log}
}

// Verify scores the live capture against the document image. Any transport
// failure, missing tool call, or missing/non-numeric score fails the call
// with VerificationFailed; the session terminates rather than deciding on
// partial data.
func (a *Adapter) Verify(ctx context.Context, document []byte, documentMediaType string, liveCapture []byte, liveMediaType string) (*Result, error) {
	docURL := "data:" + documentMediaType + ";base64," + base64.StdEncoding.EncodeToString(document)
	liveURL := "data:" + liveMediaType + ";base64," + base64.StdEncoding.EncodeToString(liveCapture)

	resp, err := a.classifier.Complete(ctx, classifier.ChatRequest{
		Messages: []classifier.Message{{
			Role: "user",
			Content: []classifier.ContentPart{
				classifier.TextPart(verificationPrompt),
				classifier.ImagePart(docURL),
				classifier.ImagePart(liveURL),
			},
		}},
		Tools: []classifier.Tool{{
			Type: "function",
			Function: classifier.ToolFunction{
				Name:        "verify_identity",
				Description: "Return verification scores for liveness detection and face matching",
				Parameters:  verifyIdentityParams,
			},
		}},
		ToolChoice:  classifier.ForceTool("verify_identity"),
		Temperature: 0.1,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeVerificationFailed, "classifier call failed")
	}

	toolCalls := resp.Choices[0].Message.ToolCalls
	if len(toolCalls) == 0 {
		a.log.Warn("verification response carried no tool call")
		return nil, dErrors.New(dErrors.CodeVerificationFailed, "classifier returned no structured result")
	}

	return parseScores(toolCalls[0].Function.Arguments)
}

type scorePayload struct {
	LivenessScore      *json.Number `json:"livenessScore"`
	FaceMatchScore     *json.Number `json:"faceMatchScore"`
	DocumentValidation *json.Number `json:"documentValidation"`
	Notes              string       `json:"notes"`
}

func parseScores(arguments string) (*Result, error) {
	var p scorePayload
	if err := json.Unmarshal([]byte(arguments), &p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeVerificationFailed, "decode verification arguments")
	}

	liveness, err := scoreValue("livenessScore", p.LivenessScore)
	if err != nil {
		return nil, err
	}
	faceMatch, err := scoreValue("faceMatchScore", p.FaceMatchScore)
	if err != nil {
		return nil, err
	}
	docValidation, err := scoreValue("documentValidation", p.DocumentValidation)
	if err != nil {
		return nil, err
	}

	return &Result{
		LivenessScore:      liveness,
		FaceMatchScore:     faceMatch,
		DocumentValidation: docValidation,
		Notes:              p.Notes,
	}, nil
}

func scoreValue(name string, n *json.Number) (int, error) {
	if n == nil {
		return 0, dErrors.New(dErrors.CodeVerificationFailed, "verification score "+name+" is missing")
	}
	f, err := n.Float64()
	if err != nil {
		return 0, dErrors.New(dErrors.CodeVerificationFailed, "verification score "+name+" is not numeric")
	}
	if f < 0 || f > 100 {
		return 0, dErrors.New(dErrors.CodeVerificationFailed, "verification score "+name+" out of range")
	}
	return int(f + 0.5), nil
}
