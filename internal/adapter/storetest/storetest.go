// Package storetest содержит общий набор проверок для реализаций domain.CaseStore.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sscs-hearings-service/internal/domain"
)

// Store — хранилище, которое умеет заводить новые дела.
type Store interface {
	domain.CaseStore
	domain.CaseSeeder
}

func sample(id string) domain.CaseSnapshot {
	return domain.CaseSnapshot{
		CaseID:       id,
		State:        domain.StateReadyToList,
		HearingRoute: domain.RouteListAssist,
		Region:       "Leeds",
		Hearings:     []domain.Hearing{{HearingID: "h1", Status: domain.HmcAwaitingListing}},
		Data:         map[string]any{"appellant": "Jane"},
	}
}

// Run проверяет контракт compare-and-swap. newStore должен возвращать пустое хранилище.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("RoundTrip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		v, err := s.Insert(ctx, sample("1"))
		require.NoError(t, err)
		require.Equal(t, int64(1), v)

		got, ver, err := s.Get(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), ver)
		if diff := cmp.Diff(sample("1"), got); diff != "" {
			t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("DuplicateInsert", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Insert(ctx, sample("1"))
		require.NoError(t, err)
		_, err = s.Insert(ctx, sample("1"))
		assert.ErrorIs(t, err, domain.ErrCaseExists)
	})

	t.Run("NotFound", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, _, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrCaseNotFound)
		_, _, err = s.CompareAndSwap(ctx, "missing", 1, sample("missing"))
		assert.ErrorIs(t, err, domain.ErrCaseNotFound)
	})

	t.Run("StaleVersionRejected", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Insert(ctx, sample("1"))
		require.NoError(t, err)

		next := sample("1")
		next.State = domain.StateHearing
		ok, v, err := s.CompareAndSwap(ctx, "1", 1, next)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(2), v)

		stale := sample("1")
		stale.State = domain.StateDormant
		ok, cur, err := s.CompareAndSwap(ctx, "1", 1, stale)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int64(2), cur)

		got, _, err := s.Get(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, domain.StateHearing, got.State, "stale write must not win")
	})

	t.Run("ConcurrentSwapsOneWinner", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Insert(ctx, sample("1"))
		require.NoError(t, err)

		const n = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, _, err := s.CompareAndSwap(ctx, "1", 1, sample("1"))
				if err != nil {
					t.Errorf("swap: %v", err)
					return
				}
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		_, v, err := s.Get(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)
	})
}
