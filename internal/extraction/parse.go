package extraction

import (
	"encoding/json"
	"strings"

	dErrors "idproof/pkg/domain-errors"
)

// firstJSONObject scans free-form classifier output for the first well-formed
// JSON object and returns its raw bytes. The classifier often wraps its
// payload in prose or markdown code fences; scanning for balanced objects
// handles both without caring about the wrapping.
func firstJSONObject(text string) (json.RawMessage, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var candidate json.RawMessage
		if err := dec.Decode(&candidate); err == nil && isObject(candidate) {
			return candidate, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeMalformedResponse, "no JSON object found in classifier output")
}

func isObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}

// requiredKeys are the fields the extraction payload must carry. A payload
// missing any of them is malformed, not a partial success.
var requiredKeys = []string{
	"documentType", "name", "idNumber", "dob", "address",
	"confidence", "hasPhoto", "photoLocation",
}

// decodePayload validates and decodes the raw extraction object. Missing
// keys and non-numeric or out-of-range confidence values are rejected
// outright rather than coerced.
func decodePayload(raw json.RawMessage) (*payload, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedResponse, "decode extraction object")
	}
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			return nil, dErrors.New(dErrors.CodeMalformedResponse, "extraction payload missing key "+k)
		}
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedResponse, "decode extraction payload")
	}

	conf, err := p.Confidence.Float64()
	if err != nil {
		return nil, dErrors.New(dErrors.CodeMalformedResponse, "extraction confidence is not numeric")
	}
	if conf < 0 || conf > 100 {
		return nil, dErrors.New(dErrors.CodeMalformedResponse, "extraction confidence out of range")
	}
	return &p, nil
}

// payload is the wire shape of the extraction object. Confidence stays a
// json.Number until validated so string or missing values surface as errors
// instead of zero.
type payload struct {
	DocumentType  string      `json:"documentType"`
	Name          string      `json:"name"`
	IDNumber      string      `json:"idNumber"`
	DOB           string      `json:"dob"`
	Address       string      `json:"address"`
	Confidence    json.Number `json:"confidence"`
	HasPhoto      bool        `json:"hasPhoto"`
	PhotoLocation string      `json:"photoLocation"`
}

func (p *payload) confidenceInt() int {
	f, _ := p.Confidence.Float64()
	return int(f + 0.5)
}
