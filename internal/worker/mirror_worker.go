package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/mirror"
)

// Reader is the slice of the ledger store the worker needs.
type Reader interface {
	FindByID(ctx context.Context, id int64) (core.Transaction, error)
	FindAll(ctx context.Context, q core.Query) ([]core.Transaction, error)
}

// SyncWorker copies ledger changes into every configured mirror.
// Events and reconciles never overlap: mirrors resolve rows from state
// that a concurrent Replace would rewrite.
type SyncWorker struct {
	store   Reader
	mirrors []mirror.Mirror

	mu sync.Mutex
}

func NewSyncWorker(store Reader, mirrors ...mirror.Mirror) *SyncWorker {
	return &SyncWorker{
		store:   store,
		mirrors: mirrors,
	}
}

// HandleEvent applies one change notification. The record is re-read from
// the store so out-of-order events converge on the current state.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	slog.InfoContext(ctx, "Processing transaction event",
		"event_id", ev.EventID,
		"id", ev.ID,
		"kind", ev.Kind)

	if ev.Kind == amqp.EventDeleted {
		return w.deleteEverywhere(ctx, ev.ID)
	}

	tx, err := w.store.FindByID(ctx, ev.ID)
	if errors.Is(err, core.ErrNotFound) {
		// deleted after the event was published
		slog.InfoContext(ctx, "Transaction gone before sync, removing from mirrors", "id", ev.ID)
		return w.deleteEverywhere(ctx, ev.ID)
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.fanOut(ctx, "upsert", func(ctx context.Context, m mirror.Mirror) error {
		return m.Upsert(ctx, tx)
	})
}

func (w *SyncWorker) deleteEverywhere(ctx context.Context, id int64) error {
	return w.fanOut(ctx, "delete", func(ctx context.Context, m mirror.Mirror) error {
		return m.Delete(ctx, id)
	})
}

// Reconcile pushes the full ledger to every mirror. It recovers from lost
// events and worker downtime.
func (w *SyncWorker) Reconcile(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	txs, err := w.store.FindAll(ctx, core.Query{})
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	start := time.Now()
	if err := w.fanOut(ctx, "replace", func(ctx context.Context, m mirror.Mirror) error {
		return m.Replace(ctx, txs)
	}); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Mirrors reconciled",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpSync,
		"records", len(txs),
		"mirrors", len(w.mirrors),
		"duration", time.Since(start))
	return nil
}

// RunPeriodic reconciles every interval until ctx is done.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Reconcile(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic reconcile failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) fanOut(ctx context.Context, op string, fn func(context.Context, mirror.Mirror) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range w.mirrors {
		m := m
		g.Go(func() error {
			if err := fn(gctx, m); err != nil {
				slog.ErrorContext(ctx, "Mirror operation failed",
					"mirror", m.Name(), "op", op, "error", err)
				return fmt.Errorf("%s %s: %w", m.Name(), op, err)
			}
			return nil
		})
	}
	return g.Wait()
}
