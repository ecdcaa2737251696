// Package memstore хранит дела в памяти процесса.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/sscs-hearings-service/internal/domain"
)

type entry struct {
	version int64
	snap    domain.CaseSnapshot
}

// Store — потокобезопасная карта дел с версиями. Снимки копируются на входе
// и на выходе, чтобы вызывающий код не менял сохранённое состояние.
type Store struct {
	mu    sync.RWMutex
	store map[string]entry
}

func New() *Store {
	return &Store{store: make(map[string]entry)}
}

func (s *Store) Get(ctx context.Context, caseID string) (domain.CaseSnapshot, int64, error) {
	if err := ctx.Err(); err != nil {
		return domain.CaseSnapshot{}, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.store[caseID]
	if !ok {
		return domain.CaseSnapshot{}, 0, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, caseID)
	}
	return e.snap.Clone(), e.version, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, caseID string, expected int64, next domain.CaseSnapshot) (bool, int64, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.store[caseID]
	if !ok {
		return false, 0, fmt.Errorf("%w: %s", domain.ErrCaseNotFound, caseID)
	}
	if e.version != expected {
		return false, e.version, nil
	}
	next = next.Clone()
	next.CaseID = caseID
	s.store[caseID] = entry{version: expected + 1, snap: next}
	return true, expected + 1, nil
}

func (s *Store) Insert(ctx context.Context, c domain.CaseSnapshot) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if c.CaseID == "" {
		return 0, fmt.Errorf("%w: case without id", domain.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store[c.CaseID]; ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrCaseExists, c.CaseID)
	}
	s.store[c.CaseID] = entry{version: 1, snap: c.Clone()}
	return 1, nil
}

// Len — число дел в хранилище.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.store)
}

var (
	_ domain.CaseStore  = (*Store)(nil)
	_ domain.CaseSeeder = (*Store)(nil)
)
