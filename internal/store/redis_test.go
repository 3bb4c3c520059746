package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

type RedisStoreTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	store  *Redis
}

func (s *RedisStoreTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})

	st, err := NewRedis(context.Background(), s.client, "board:")
	s.Require().NoError(err)
	s.store = st
}

func (s *RedisStoreTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestRedisStoreTestSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreTestSuite))
}

func (s *RedisStoreTestSuite) TestNilClient() {
	_, err := NewRedis(context.Background(), nil, "")
	s.Error(err)
}

func (s *RedisStoreTestSuite) TestStateRoundTrip() {
	ctx := context.Background()

	_, err := s.store.ReadState(ctx)
	s.ErrorIs(err, scoreboard.ErrNoState)

	ten := 10.0
	want := scoreboard.State{
		CurrentRound: 1,
		Players: []scoreboard.Player{
			{ID: 42, Name: "Alice", TotalScore: 10, RoundScores: []*float64{&ten}, Photo: "data:image/png;base64,AA=="},
		},
	}
	s.Require().NoError(s.store.WriteState(ctx, want))

	// Keys are namespaced by the prefix.
	s.True(s.mr.Exists("board:" + scoreboard.StateKey))

	got, err := s.store.ReadState(ctx)
	s.Require().NoError(err)
	s.True(got.Equal(want))
}

func (s *RedisStoreTestSuite) TestCorruptState() {
	s.Require().NoError(s.mr.Set("board:"+scoreboard.StateKey, "{not json"))

	_, err := s.store.ReadState(context.Background())
	s.True(errors.Is(err, scoreboard.ErrStateCorrupt))
}

func (s *RedisStoreTestSuite) TestTriggerLifecycle() {
	ctx := context.Background()
	key := scoreboard.RoundTriggerKey

	_, err := s.store.ReadTrigger(ctx, key)
	s.ErrorIs(err, ErrNoTrigger)

	s.Require().NoError(s.store.WriteTrigger(ctx, key, []byte(`{"type":"nextRound","roundNumber":2,"timestamp":9}`)))
	raw, err := s.store.ReadTrigger(ctx, key)
	s.Require().NoError(err)

	trig, err := scoreboard.DecodeRoundTrigger(raw)
	s.Require().NoError(err)
	s.Equal(2, trig.RoundNumber)

	s.Require().NoError(s.store.DeleteTrigger(ctx, key))
	_, err = s.store.ReadTrigger(ctx, key)
	s.ErrorIs(err, ErrNoTrigger)
}

func (s *RedisStoreTestSuite) TestSubscribeReceivesWrites() {
	ch, cancel := s.store.Subscribe()
	defer cancel()

	s.Require().NoError(s.store.WriteState(context.Background(), scoreboard.NewState()))

	select {
	case ev := <-ch:
		s.Equal(scoreboard.StateKey, ev.Key)
		s.False(ev.Deleted)
	case <-time.After(time.Second):
		s.Fail("timed out waiting for event")
	}
}

func (s *RedisStoreTestSuite) TestCheck() {
	s.NoError(s.store.Check(context.Background()))
	s.mr.Close()
	s.Error(s.store.Check(context.Background()))
}
