package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/sscs-hearings-service/internal/adapter/storetest"
	"github.com/example/sscs-hearings-service/internal/domain"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		s, err := Open(context.Background(), filepath.Join(t.TempDir(), "cases.db"), DefaultConfig())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cases.db")

	s, err := Open(ctx, path, Config{})
	require.NoError(t, err)
	_, err = s.Insert(ctx, storeCase("1"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, Config{})
	require.NoError(t, err)
	defer s.Close()
	_, v, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
}

func TestInsertDuplicateMapsConstraintCode(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "cases.db"), DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Insert(ctx, storeCase("1"))
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, `INSERT INTO cases(case_id, version, payload) VALUES(?, 1, ?)`, "1", []byte("{}"))
	require.Error(t, err)
	require.True(t, isUniqueViolation(err))
	require.False(t, isUniqueViolation(errors.New("UNIQUE constraint failed: cases.case_id")))

	_, err = s.Insert(ctx, storeCase("1"))
	require.ErrorIs(t, err, domain.ErrCaseExists)
}

func storeCase(id string) domain.CaseSnapshot {
	return domain.CaseSnapshot{CaseID: id, State: domain.StateWithDwp}
}
