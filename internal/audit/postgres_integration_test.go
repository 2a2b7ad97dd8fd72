//go:build integration

package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"idproof/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	StoreSuite
	pg *containers.PostgresContainer
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())

	store := NewPostgresStore(s.pg.DB)
	s.Require().NoError(store.EnsureSchema(context.Background()))
	s.store = store
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.ExecContext(context.Background(), "TRUNCATE audit_records")
	s.Require().NoError(err)
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}
