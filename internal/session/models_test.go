package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idproof/pkg/domain"
	dErrors "idproof/pkg/domain-errors"
)

func passportFields() domain.ExtractedFields {
	return domain.ExtractedFields{
		Name:     "Jane Doe",
		IDNumber: "P1234567",
		DOB:      "1990-04-12",
		Address:  "42 Harbor Lane",
	}
}

func advanceTo(t *testing.T, s *Session, target State) {
	t.Helper()
	steps := []func() error{
		func() error { return s.ApplyDocument("doc-ref", "image/jpeg", "digest-1") },
		func() error {
			return s.ApplyExtraction(domain.DocumentTypePassport, passportFields(), 90, true, "top-right")
		},
		func() error { return s.ApplyConfirmedFields(passportFields()) },
		func() error { return s.ApplyLiveCapture("live-ref", "image/png", "digest-2") },
		func() error { return s.ApplyScores(92, 85, 88, "clear match") },
	}
	order := []State{
		StateDocumentSubmitted, StateExtracted, StateFieldsConfirmed,
		StateLiveCaptureSubmitted, StateScored,
	}
	for i, step := range steps {
		if s.State == target {
			return
		}
		require.NoError(t, step())
		require.Equal(t, order[i], s.State)
	}
}

func TestLifecycleAdvancesInOrder(t *testing.T) {
	s := New(time.Now())
	assert.Equal(t, StateCreated, s.State)
	assert.False(t, s.ID.IsNil())

	advanceTo(t, s, StateScored)

	token := "signed"
	require.NoError(t, s.Complete(true, &token, time.Now()))
	assert.Equal(t, StateCompleted, s.State)
	assert.True(t, *s.Verified)
	assert.NotNil(t, s.CompletedAt)

	scores, ok := s.Scores()
	require.True(t, ok)
	assert.Equal(t, 90, scores.OCRConfidence)
	assert.Equal(t, 88, scores.FaceMatchScore)
}

func TestNoStageSkipping(t *testing.T) {
	s := New(time.Now())

	// Cannot confirm fields before extraction.
	err := s.ApplyConfirmedFields(passportFields())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	// Cannot submit live capture straight after extraction.
	advanceTo(t, s, StateExtracted)
	err = s.ApplyLiveCapture("live-ref", "image/png", "d")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	// Cannot score before the live capture exists.
	err = s.ApplyScores(90, 90, 90, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestNoBackwardTransitions(t *testing.T) {
	s := New(time.Now())
	advanceTo(t, s, StateFieldsConfirmed)

	// Re-running earlier stages must be rejected.
	err := s.ApplyDocument("other-ref", "image/jpeg", "other")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	err = s.ApplyConfirmedFields(passportFields())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestCompletedSessionIsFrozen(t *testing.T) {
	s := New(time.Now())
	advanceTo(t, s, StateScored)
	require.NoError(t, s.Complete(false, nil, time.Now()))

	err := s.Fail(dErrors.CodeExtractionFailed, "late failure", time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	err = s.Complete(true, nil, time.Now())
	require.Error(t, err)
}

func TestFailFromAnyLiveState(t *testing.T) {
	for _, target := range []State{StateCreated, StateDocumentSubmitted, StateExtracted, StateFieldsConfirmed} {
		s := New(time.Now())
		advanceTo(t, s, target)

		require.NoError(t, s.Fail(dErrors.CodeExtractionFailed, "classifier unreachable", time.Now()))
		assert.Equal(t, StateFailed, s.State)
		assert.Equal(t, dErrors.CodeExtractionFailed, s.FailureCode)
		assert.True(t, s.State.Terminal())
	}
}

func TestAtOrPast(t *testing.T) {
	assert.True(t, StateScored.AtOrPast(StateExtracted))
	assert.True(t, StateExtracted.AtOrPast(StateExtracted))
	assert.False(t, StateCreated.AtOrPast(StateExtracted))
	assert.False(t, StateFailed.AtOrPast(StateCreated))
}

func TestConfirmedFieldsAreNormalized(t *testing.T) {
	s := New(time.Now())
	advanceTo(t, s, StateExtracted)

	fields := passportFields()
	fields.Name = "  Jane Doe  "
	require.NoError(t, s.ApplyConfirmedFields(fields))
	assert.Equal(t, "Jane Doe", s.ExtractedFields.Name)
}
