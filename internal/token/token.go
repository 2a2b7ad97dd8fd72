// Package token issues and verifies the signed attestation produced for a
// successful verification. Tokens are HS256 JWTs over the canonical claim
// set so a relying party can check authenticity offline with the shared key.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"idproof/pkg/domain"
	dErrors "idproof/pkg/domain-errors"
)

// Claims is the attestation payload: which session, what document, the full
// score breakdown, and the outcome. Subject carries the session ID; IssuedAt
// the verification timestamp.
type Claims struct {
	DocumentType string                `json:"documentType"`
	Scores       domain.ScoreBreakdown `json:"scores"`
	Verified     bool                  `json:"verified"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies attestation tokens.
type Issuer struct {
	signingKey []byte
	issuer     string
}

func NewIssuer(signingKey string, issuer string) *Issuer {
	return &Issuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Issue signs an attestation for a verified session. Deterministic for a
// fixed key, payload, and timestamp. A signing failure is a SignatureFailure,
// never a silent downgrade of the result.
func (i *Issuer) Issue(sessionID domain.SessionID, documentType domain.DocumentType, scores domain.ScoreBreakdown, issuedAt time.Time) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		DocumentType: documentType.String(),
		Scores:       scores,
		Verified:     true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  sessionID.String(),
			Issuer:   i.issuer,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	})

	signed, err := newToken.SignedString(i.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeSignatureFailure, "sign attestation token")
	}
	return signed, nil
}

// Verify checks an attestation token's signature and returns its claims.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token signature invalid")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
