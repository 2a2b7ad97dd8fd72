package audit

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idproof/pkg/domain"
	"idproof/pkg/platform/sentinel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestEmitFillsIDAndTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	svc := NewService(store, nil, testLogger())
	sessionID := domain.NewSessionID()

	err := svc.Emit(context.Background(), Record{SessionID: sessionID, Verified: false})
	require.NoError(t, err)

	found, err := svc.FindBySession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.False(t, found.ID.IsNil())
	assert.False(t, found.Timestamp.IsZero())
}

func TestEmitWriteOnce(t *testing.T) {
	svc := NewService(NewInMemoryStore(), nil, testLogger())
	sessionID := domain.NewSessionID()

	require.NoError(t, svc.Emit(context.Background(), Record{SessionID: sessionID}))
	err := svc.Emit(context.Background(), Record{SessionID: sessionID})
	require.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestEmitFansOutAfterAppend(t *testing.T) {
	inbox := make(chan Record, 1)
	svc := NewService(NewInMemoryStore(), inbox, testLogger())
	sessionID := domain.NewSessionID()

	require.NoError(t, svc.Emit(context.Background(), Record{SessionID: sessionID}))

	select {
	case got := <-inbox:
		assert.Equal(t, sessionID, got.SessionID)
	default:
		t.Fatal("expected record on fan-out inbox")
	}
}

func TestEmitDropsWhenInboxFull(t *testing.T) {
	inbox := make(chan Record) // unbuffered, no consumer
	svc := NewService(NewInMemoryStore(), inbox, testLogger())
	sessionID := domain.NewSessionID()

	// Emit must not block even with nobody reading the inbox.
	require.NoError(t, svc.Emit(context.Background(), Record{SessionID: sessionID}))

	found, err := svc.FindBySession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, sessionID, found.SessionID)
}

type capturingSink struct {
	records chan Record
	fail    bool
}

func (c *capturingSink) Publish(_ context.Context, record Record) error {
	c.records <- record
	if c.fail {
		return assert.AnError
	}
	return nil
}

func TestWorkerPublishesFromInbox(t *testing.T) {
	inbox := make(chan Record, 1)
	sink := &capturingSink{records: make(chan Record, 1)}
	worker := NewWorker(sink, inbox, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	record := Record{ID: domain.NewAuditRecordID(), SessionID: domain.NewSessionID()}
	inbox <- record

	select {
	case got := <-sink.records:
		assert.Equal(t, record.SessionID, got.SessionID)
	case <-time.After(time.Second):
		t.Fatal("worker did not publish record")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWorkerSurvivesSinkFailure(t *testing.T) {
	inbox := make(chan Record, 2)
	sink := &capturingSink{records: make(chan Record, 2), fail: true}
	worker := NewWorker(sink, inbox, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	inbox <- Record{SessionID: domain.NewSessionID()}
	inbox <- Record{SessionID: domain.NewSessionID()}

	for i := 0; i < 2; i++ {
		select {
		case <-sink.records:
		case <-time.After(time.Second):
			t.Fatal("worker stopped after sink failure")
		}
	}
}
