package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"idproof/pkg/domain"
	"idproof/pkg/platform/sentinel"
)

// Schema creates the audit table. Applied at startup; the table is
// append-only so there are no follow-up migrations to sequence.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id                  UUID PRIMARY KEY,
	session_id          UUID NOT NULL UNIQUE,
	ocr_confidence      INTEGER,
	document_validation INTEGER,
	liveness_score      INTEGER,
	face_match_score    INTEGER,
	verified            BOOLEAN NOT NULL,
	token               TEXT,
	reason              TEXT NOT NULL DEFAULT '',
	recorded_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_records_recorded_at_idx ON audit_records (recorded_at);
`

// PostgresStore persists audit records in Postgres via the pgx stdlib
// driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema applies the audit table schema.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply audit schema: %w", err)
	}
	return nil
}

// Append inserts the record. The session_id unique constraint enforces
// write-once per session; a conflicting insert reports ErrConflict instead
// of overwriting the trail.
func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	query := `
		INSERT INTO audit_records (
			id, session_id, ocr_confidence, document_validation,
			liveness_score, face_match_score, verified, token, reason, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.SessionID),
		record.OCRConfidence,
		record.DocumentValidation,
		record.LivenessScore,
		record.FaceMatchScore,
		record.Verified,
		record.Token,
		record.Reason,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindBySession(ctx context.Context, sessionID domain.SessionID) (*Record, error) {
	query := `
		SELECT id, session_id, ocr_confidence, document_validation,
			   liveness_score, face_match_score, verified, token, reason, recorded_at
		FROM audit_records
		WHERE session_id = $1
	`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(sessionID))

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query audit record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByTimeRange(ctx context.Context, from, to time.Time) ([]Record, error) {
	query := `
		SELECT id, session_id, ocr_confidence, document_validation,
			   liveness_score, face_match_score, verified, token, reason, recorded_at
		FROM audit_records
		WHERE recorded_at >= $1 AND recorded_at <= $2
		ORDER BY recorded_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		record       Record
		recordID     uuid.UUID
		sessionID    uuid.UUID
		token        sql.NullString
	)
	err := row.Scan(
		&recordID,
		&sessionID,
		&record.OCRConfidence,
		&record.DocumentValidation,
		&record.LivenessScore,
		&record.FaceMatchScore,
		&record.Verified,
		&token,
		&record.Reason,
		&record.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	record.ID = domain.AuditRecordID(recordID)
	record.SessionID = domain.SessionID(sessionID)
	if token.Valid {
		record.Token = &token.String
	}
	return &record, nil
}
