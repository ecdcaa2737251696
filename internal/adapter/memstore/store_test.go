package memstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sscs-hearings-service/internal/adapter/storetest"
	"github.com/example/sscs-hearings-service/internal/domain"
)

func TestStoreCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := New()
	v, err := s.Insert(ctx, domain.CaseSnapshot{CaseID: "1", State: domain.StateWithDwp})
	require.NoError(t, err)
	require.Equal(t, int64(1), v)

	ok, nv, err := s.CompareAndSwap(ctx, "1", 1, domain.CaseSnapshot{CaseID: "1", State: domain.StateReadyToList})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), nv)

	ok, cur, err := s.CompareAndSwap(ctx, "1", 1, domain.CaseSnapshot{CaseID: "1", State: domain.StateHearing})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(2), cur)

	got, ver, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
	assert.Equal(t, domain.StateReadyToList, got.State)
}

func TestStoreNotFoundAndDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCaseNotFound)
	_, _, err = s.CompareAndSwap(ctx, "missing", 1, domain.CaseSnapshot{})
	assert.ErrorIs(t, err, domain.ErrCaseNotFound)

	_, err = s.Insert(ctx, domain.CaseSnapshot{CaseID: "1"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, domain.CaseSnapshot{CaseID: "1"})
	assert.ErrorIs(t, err, domain.ErrCaseExists)
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Insert(ctx, domain.CaseSnapshot{CaseID: "1", Data: map[string]any{"k": "v"}})
	require.NoError(t, err)

	got, _, err := s.Get(ctx, "1")
	require.NoError(t, err)
	got.Data["k"] = "changed"

	again, _, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Data["k"])
}

func TestStoreConcurrentSwapsSerialize(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Insert(ctx, domain.CaseSnapshot{CaseID: "1"})
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	wins := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, v, err := s.CompareAndSwap(ctx, "1", 1, domain.CaseSnapshot{CaseID: "1"}); err == nil && ok {
				wins <- v
			}
		}()
	}
	wg.Wait()
	close(wins)
	assert.Len(t, wins, 1)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store { return New() })
}
