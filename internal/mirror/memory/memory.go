// Package memory is an in-process mirror used by tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"ledger/internal/core"
	"ledger/internal/mirror"
)

var _ mirror.Mirror = (*Mirror)(nil)

type Mirror struct {
	name string

	mu    sync.Mutex
	items map[int64]core.Transaction
	err   error
}

func New(name string) *Mirror {
	return &Mirror{name: name, items: make(map[int64]core.Transaction)}
}

func (m *Mirror) Name() string { return m.name }

// FailWith makes every subsequent write return err; nil restores normal behaviour.
func (m *Mirror) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Mirror) Upsert(_ context.Context, tx core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items[tx.ID] = tx
	return nil
}

func (m *Mirror) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.items, id)
	return nil
}

func (m *Mirror) Replace(_ context.Context, txs []core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.items = make(map[int64]core.Transaction, len(txs))
	for _, tx := range txs {
		m.items[tx.ID] = tx
	}
	return nil
}

// Get returns the mirrored copy of id.
func (m *Mirror) Get(id int64) (core.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.items[id]
	return tx, ok
}

// IDs lists mirrored ids in ascending order.
func (m *Mirror) IDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.items))
	for id := range m.items {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
