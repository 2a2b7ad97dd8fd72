package audit

import (
	"context"
	"time"

	"idproof/pkg/domain"
)

// Store persists audit records. Append is write-once per session: a second
// append for the same session fails with sentinel.ErrConflict.
type Store interface {
	Append(ctx context.Context, record Record) error
	FindBySession(ctx context.Context, sessionID domain.SessionID) (*Record, error)
	ListByTimeRange(ctx context.Context, from, to time.Time) ([]Record, error)
}
