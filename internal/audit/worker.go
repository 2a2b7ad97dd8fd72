package audit

import (
	"context"
	"log/slog"
)

// Sink receives records fanned out by the worker.
type Sink interface {
	Publish(ctx context.Context, record Record) error
}

// Worker consumes audit records from a channel and pushes them to a sink.
// Publish failures are logged and skipped; the store already holds the
// durable copy.
type Worker struct {
	sink  Sink
	inbox <-chan Record
	log   *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Record, log *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record := <-w.inbox:
			if err := w.sink.Publish(ctx, record); err != nil {
				w.log.Warn("audit sink publish failed",
					slog.String("session_id", record.SessionID.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
