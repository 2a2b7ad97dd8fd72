//go:build integration

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idproof/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	StoreSuite
	redis *containers.RedisContainer
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedisStore(s.redis.Client, time.Hour)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) TestSessionExpires() {
	ctx := context.Background()
	short := NewRedisStore(s.redis.Client, 50*time.Millisecond)

	sess := New(time.Now())
	s.Require().NoError(short.Create(ctx, sess))

	time.Sleep(100 * time.Millisecond)

	_, err := short.Get(ctx, sess.ID)
	s.Require().Error(err)
}
