package audit

import (
	"context"
	"log/slog"
	"time"

	"idproof/pkg/domain"
)

// Service records verification outcomes. Appending to the store is the
// durability point; records are then handed to the worker inbox for
// best-effort fan-out so a slow broker never delays the caller.
type Service struct {
	store Store
	inbox chan<- Record
	log   *slog.Logger
}

// NewService wires the audit trail. inbox may be nil when no fan-out is
// configured.
func NewService(store Store, inbox chan<- Record, log *slog.Logger) *Service {
	return &Service{store: store, inbox: inbox, log: log}
}

// Emit durably writes the record, then queues it for fan-out. Returns only
// after the store append succeeds; callers rely on that ordering before
// releasing tokens.
func (s *Service) Emit(ctx context.Context, record Record) error {
	if record.ID.IsNil() {
		record.ID = domain.NewAuditRecordID()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	if err := s.store.Append(ctx, record); err != nil {
		return err
	}

	if s.inbox != nil {
		select {
		case s.inbox <- record:
		default:
			s.log.Warn("audit fan-out inbox full, dropping publish",
				slog.String("session_id", record.SessionID.String()),
			)
		}
	}
	return nil
}

// FindBySession returns the record for one session.
func (s *Service) FindBySession(ctx context.Context, sessionID domain.SessionID) (*Record, error) {
	return s.store.FindBySession(ctx, sessionID)
}

// ListByTimeRange returns records recorded within [from, to].
func (s *Service) ListByTimeRange(ctx context.Context, from, to time.Time) ([]Record, error) {
	return s.store.ListByTimeRange(ctx, from, to)
}
