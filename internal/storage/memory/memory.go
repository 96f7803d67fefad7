// Package memory is an in-process ledger store for local development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"ledger/internal/core"
)

// Store keeps every entry in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	byID   map[int64]core.Transaction
	nextID int64
	last   time.Time

	now func() time.Time
}

func New() *Store {
	return &Store{
		byID: make(map[int64]core.Transaction),
		now:  time.Now,
	}
}

// WithClock replaces the clock used for createdAt and future-date checks.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.Normalize()
	if err := tx.Validate(s.now()); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now().UTC().Truncate(time.Microsecond)
	if !createdAt.After(s.last) {
		createdAt = s.last.Add(time.Microsecond)
	}
	s.last = createdAt
	s.nextID++

	tx.ID = s.nextID
	tx.CreatedAt = createdAt
	s.byID[tx.ID] = tx
	return tx, nil
}

func (s *Store) Update(ctx context.Context, id int64, tx core.Transaction) (core.Transaction, error) {
	tx.Normalize()
	if err := tx.Validate(s.now()); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	tx.ID = cur.ID
	tx.CreatedAt = cur.CreatedAt
	s.byID[id] = tx
	return tx, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	delete(s.byID, id)
	return cur, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.byID[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *Store) FindAll(ctx context.Context, q core.Query) ([]core.Transaction, error) {
	return q.Apply(s.snapshot()), nil
}

func (s *Store) MonthTotals(ctx context.Context, year, month int) (core.MonthSummary, error) {
	return core.SummarizeMonth(s.snapshot(), year, month), nil
}

func (s *Store) MonthlyTrends(ctx context.Context) ([]core.TrendPoint, error) {
	return core.Trends(s.snapshot()), nil
}

func (s *Store) CategoryTotals(ctx context.Context, year, month int, t core.Type) ([]core.CategoryAmount, error) {
	return core.BreakdownByCategory(s.snapshot(), year, month, t), nil
}

// snapshot copies the entries in id order so equal sort keys stay deterministic.
func (s *Store) snapshot() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Transaction, 0, len(s.byID))
	for id := int64(1); id <= s.nextID; id++ {
		if tx, ok := s.byID[id]; ok {
			out = append(out, tx)
		}
	}
	return out
}
