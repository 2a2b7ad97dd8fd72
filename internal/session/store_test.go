package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idproof/pkg/domain"
	"idproof/pkg/platform/sentinel"

	"idproof/internal/storage"
)

// StoreSuite exercises the Store contract against any backend. The in-memory
// store runs it here; the Redis store runs it behind the integration tag.
type StoreSuite struct {
	suite.Suite
	store Store
}

func (s *StoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	sess := New(time.Now())

	s.Require().NoError(s.store.Create(ctx, sess))

	got, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.ID, got.ID)
	s.Equal(StateCreated, got.State)
	s.Equal(1, got.Version)
}

func (s *StoreSuite) TestCreateDuplicate() {
	ctx := context.Background()
	sess := New(time.Now())

	s.Require().NoError(s.store.Create(ctx, sess))
	s.Require().ErrorIs(s.store.Create(ctx, sess), sentinel.ErrConflict)
}

func (s *StoreSuite) TestGetUnknown() {
	_, err := s.store.Get(context.Background(), domain.NewSessionID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestUpdateIncrementsVersion() {
	ctx := context.Background()
	sess := New(time.Now())
	s.Require().NoError(s.store.Create(ctx, sess))

	s.Require().NoError(sess.ApplyDocument("doc-ref", "image/jpeg", "digest"))
	s.Require().NoError(s.store.Update(ctx, sess))
	s.Equal(2, sess.Version)

	got, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(StateDocumentSubmitted, got.State)
	s.Equal(2, got.Version)
}

func (s *StoreSuite) TestUpdateStaleVersion() {
	ctx := context.Background()
	sess := New(time.Now())
	s.Require().NoError(s.store.Create(ctx, sess))

	first, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	second, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)

	s.Require().NoError(first.ApplyDocument("ref-a", "image/jpeg", "a"))
	s.Require().NoError(s.store.Update(ctx, first))

	s.Require().NoError(second.ApplyDocument("ref-b", "image/jpeg", "b"))
	s.Require().ErrorIs(s.store.Update(ctx, second), sentinel.ErrConflict)

	got, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(storage.Ref("ref-a"), got.DocumentRef)
}

func (s *StoreSuite) TestUpdateUnknown() {
	sess := New(time.Now())
	s.Require().ErrorIs(s.store.Update(context.Background(), sess), sentinel.ErrNotFound)
}

func (s *StoreSuite) TestRoundTripPreservesAccumulatedData() {
	ctx := context.Background()
	sess := New(time.Now())
	s.Require().NoError(s.store.Create(ctx, sess))

	s.Require().NoError(sess.ApplyDocument("doc-ref", "image/jpeg", "digest"))
	fields := domain.ExtractedFields{Name: "Jane Doe", IDNumber: "P1", DOB: "1990-04-12", Address: "42 Harbor Lane"}
	s.Require().NoError(sess.ApplyExtraction(domain.DocumentTypePassport, fields, 90, true, "top-right"))
	s.Require().NoError(s.store.Update(ctx, sess))

	got, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(domain.DocumentTypePassport, got.DocumentType)
	s.Equal(fields, got.ExtractedFields)
	s.Require().NotNil(got.OCRConfidence)
	s.Equal(90, *got.OCRConfidence)
	s.True(got.HasPhoto)
	s.Equal("top-right", got.PhotoLocation)
}

type MemoryStoreSuite struct {
	StoreSuite
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}
