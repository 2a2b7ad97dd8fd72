package extraction

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idproof/pkg/domain"
	dErrors "idproof/pkg/domain-errors"

	"idproof/internal/classifier"
)

type fakeCompleter struct {
	content string
	err     error
}

func (f *fakeCompleter) Complete(_ context.Context, _ classifier.ChatRequest) (*classifier.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &classifier.ChatResponse{
		Choices: []classifier.Choice{{Message: classifier.ResponseMessage{Content: f.content}}},
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newAdapter(content string, err error) *Adapter {
	return NewAdapter(&fakeCompleter{content: content, err: err}, testLogger())
}

const validPayload = `{
	"documentType": "Passport",
	"name": "Jane Doe",
	"idNumber": "P1234567",
	"dob": "1990-04-12",
	"address": "42 Harbor Lane",
	"confidence": 90,
	"hasPhoto": true,
	"photoLocation": "top-right"
}`

func TestExtractPlainJSON(t *testing.T) {
	res, err := newAdapter(validPayload, nil).Extract(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, domain.DocumentTypePassport, res.DocumentType)
	assert.Equal(t, "Jane Doe", res.Fields.Name)
	assert.Equal(t, "P1234567", res.Fields.IDNumber)
	assert.Equal(t, 90, res.Confidence)
	assert.True(t, res.HasPhoto)
	assert.Equal(t, "top-right", res.PhotoLocation)
}

func TestExtractFencedJSON(t *testing.T) {
	content := "Here is the extracted data:\n```json\n" + validPayload + "\n```\nLet me know if you need anything else."
	res, err := newAdapter(content, nil).Extract(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", res.Fields.Name)
}

func TestExtractProseBeforeObject(t *testing.T) {
	content := "The document appears to be a passport. " + validPayload
	res, err := newAdapter(content, nil).Extract(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypePassport, res.DocumentType)
}

func TestExtractNoObject(t *testing.T) {
	_, err := newAdapter("I could not read this document.", nil).Extract(context.Background(), []byte("img"), "image/jpeg")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedResponse))
}

func TestExtractMissingKey(t *testing.T) {
	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(validPayload), &obj))
	delete(obj, "idNumber")
	content, err := json.Marshal(obj)
	require.NoError(t, err)

	_, extractErr := newAdapter(string(content), nil).Extract(context.Background(), []byte("img"), "image/jpeg")
	require.Error(t, extractErr)
	assert.True(t, dErrors.HasCode(extractErr, dErrors.CodeMalformedResponse))
}

func TestExtractConfidenceValidation(t *testing.T) {
	cases := []struct {
		name       string
		confidence string
	}{
		{"non-numeric", `"very high"`},
		{"negative", `-5`},
		{"above range", `101`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			content := `{"documentType":"Passport","name":"Jane Doe","idNumber":"P1","dob":"1990-04-12",` +
				`"address":"x","confidence":` + tc.confidence + `,"hasPhoto":false,"photoLocation":""}`
			_, err := newAdapter(content, nil).Extract(context.Background(), []byte("img"), "image/jpeg")
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedResponse))
		})
	}
}

func TestExtractFractionalConfidenceRounds(t *testing.T) {
	content := `{"documentType":"Aadhaar","name":"A","idNumber":"1","dob":"2000-01-01",` +
		`"address":"x","confidence":87.6,"hasPhoto":false,"photoLocation":""}`
	res, err := newAdapter(content, nil).Extract(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, 88, res.Confidence)
}

func TestExtractUnknownDocumentType(t *testing.T) {
	content := `{"documentType":"Library Card","name":"A","idNumber":"1","dob":"2000-01-01",` +
		`"address":"x","confidence":50,"hasPhoto":false,"photoLocation":""}`
	res, err := newAdapter(content, nil).Extract(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypeUnknown, res.DocumentType)
}

func TestExtractClassifierFailure(t *testing.T) {
	cause := dErrors.New(dErrors.CodeInternal, "classifier returned status 500")
	_, err := newAdapter("", cause).Extract(context.Background(), []byte("img"), "image/jpeg")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeExtractionFailed))
}

func TestExtractClassifierMalformed(t *testing.T) {
	cause := dErrors.New(dErrors.CodeMalformedResponse, "classifier returned no choices")
	_, err := newAdapter("", cause).Extract(context.Background(), []byte("img"), "image/jpeg")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedResponse))
	assert.False(t, dErrors.HasCode(err, dErrors.CodeExtractionFailed))
}
