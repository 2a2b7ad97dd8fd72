// Package domain holds typed identifiers shared across feature packages.
//
// IDs are distinct types over uuid.UUID so the compiler rejects accidental
// cross-assignment (a SessionID can never be passed where an AuditRecordID
// is expected). Parse helpers enforce the invariant that IDs are valid,
// non-nil UUIDs at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "idproof/pkg/domain-errors"
)

// SessionID identifies one verification attempt.
type SessionID uuid.UUID

// AuditRecordID identifies one append-only audit record.
type AuditRecordID uuid.UUID

// NewSessionID generates a fresh random session ID.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// NewAuditRecordID generates a fresh random audit record ID.
func NewAuditRecordID() AuditRecordID {
	return AuditRecordID(uuid.New())
}

// ParseSessionID validates and converts a string into a SessionID.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

func (id SessionID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero value.
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id AuditRecordID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the ID is the zero value.
func (id AuditRecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
