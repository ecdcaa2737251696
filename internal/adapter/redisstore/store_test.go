package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sscs-hearings-service/internal/adapter/storetest"
	"github.com/example/sscs-hearings-service/internal/domain"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewWithClient(client, zerolog.Nop())
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		_, s := setupMiniRedis(t)
		return s
	})
}

func TestStoreLayout(t *testing.T) {
	mr, s := setupMiniRedis(t)
	_, err := s.Insert(context.Background(), domain.CaseSnapshot{CaseID: "42", State: domain.StateWithDwp})
	require.NoError(t, err)

	assert.Equal(t, "1", mr.HGet("case:42", "version"))
	assert.Contains(t, mr.HGet("case:42", "payload"), `"state":"withDwp"`)
}

func TestStoreCorruptVersion(t *testing.T) {
	mr, s := setupMiniRedis(t)
	mr.HSet("case:7", "version", "abc", "payload", "{}")

	_, _, err := s.Get(context.Background(), "7")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCaseNotFound)
}

func TestStoreUnavailable(t *testing.T) {
	mr, s := setupMiniRedis(t)
	mr.Close()

	_, _, err := s.Get(context.Background(), "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCaseNotFound)
}

func TestNewFailsWithoutServer(t *testing.T) {
	_, err := New(context.Background(), Config{Addr: "127.0.0.1:1"}, zerolog.Nop())
	require.Error(t, err)
}
