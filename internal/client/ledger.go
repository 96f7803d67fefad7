package client

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
)

const (
	viewCacheSize = 64
	viewCacheTTL  = 10 * time.Minute
)

// Remote is the part of the API the local ledger depends on.
type Remote interface {
	List(ctx context.Context, q core.Query) ([]core.Transaction, error)
	Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	Update(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error)
	Delete(ctx context.Context, id int64) (core.Transaction, error)
}

// Ledger is a local copy of the full record set. It is fetched once and
// thrown away after every successful mutation; filtering, sorting and the
// category breakdown then run locally with the server's semantics.
//
// Slices returned by Ledger are shared with its cache and must not be
// modified.
type Ledger struct {
	remote Remote

	mu      sync.Mutex
	records []core.Transaction
	loaded  bool
	fetches int

	views      *cache.LRUCache[[]core.Transaction]
	breakdowns *cache.LRUCache[[]core.CategoryAmount]
}

func NewLedger(remote Remote) *Ledger {
	return &Ledger{
		remote:     remote,
		views:      cache.NewLRUCache[[]core.Transaction](viewCacheSize, viewCacheTTL),
		breakdowns: cache.NewLRUCache[[]core.CategoryAmount](viewCacheSize, viewCacheTTL),
	}
}

// Records returns every record in the default order, fetching on first use.
func (l *Ledger) Records(ctx context.Context) ([]core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return l.records, nil
	}
	records, err := l.remote.List(ctx, core.Query{})
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	l.records = records
	l.loaded = true
	l.fetches++
	return l.records, nil
}

// Filter applies q to the local copy.
func (l *Ledger) Filter(ctx context.Context, q core.Query) ([]core.Transaction, error) {
	key := q.Values().Encode()
	if v, ok := l.views.Get(key); ok {
		return v, nil
	}

	records, err := l.Records(ctx)
	if err != nil {
		return nil, err
	}
	out := q.Apply(records)
	l.views.Set(key, out)
	return out, nil
}

// Sort returns the local records ordered by field and order, unfiltered.
func (l *Ledger) Sort(ctx context.Context, field core.SortField, order core.SortOrder) ([]core.Transaction, error) {
	return l.Filter(ctx, core.Query{SortBy: field, SortOrder: order})
}

// CategoryBreakdown sums the month's expenses per category.
func (l *Ledger) CategoryBreakdown(ctx context.Context, year, month int) ([]core.CategoryAmount, error) {
	if err := core.ValidateYearMonth(year, month); err != nil {
		return nil, err
	}
	key := strconv.Itoa(year) + "-" + strconv.Itoa(month)
	if v, ok := l.breakdowns.Get(key); ok {
		return v, nil
	}

	records, err := l.Records(ctx)
	if err != nil {
		return nil, err
	}
	out := core.BreakdownByCategory(records, year, month, core.Expense)
	l.breakdowns.Set(key, out)
	return out, nil
}

func (l *Ledger) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	tx, err := l.remote.Create(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}
	l.Invalidate()
	return tx, nil
}

func (l *Ledger) Update(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	tx, err := l.remote.Update(ctx, id, in)
	if err != nil {
		return core.Transaction{}, err
	}
	l.Invalidate()
	return tx, nil
}

func (l *Ledger) Delete(ctx context.Context, id int64) (core.Transaction, error) {
	tx, err := l.remote.Delete(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	l.Invalidate()
	return tx, nil
}

// Invalidate drops the local copy and every derived view; the next read
// refetches everything.
func (l *Ledger) Invalidate() {
	l.mu.Lock()
	l.records = nil
	l.loaded = false
	l.mu.Unlock()

	l.views.Purge()
	l.breakdowns.Purge()
}

// Fetches counts full loads from the server.
func (l *Ledger) Fetches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fetches
}
