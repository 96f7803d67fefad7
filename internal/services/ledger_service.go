package services

import (
	"context"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
)

// LedgerService applies mutations to the store and publishes change events
type LedgerService struct {
	store     Store
	publisher EventPublisher
}

// NewLedgerService wires a store and an optional publisher (nil disables events).
func NewLedgerService(store Store, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

// Create stores a new entry and announces it
func (s *LedgerService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	created, err := s.store.Insert(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created", txFields(log.OpCreate, created).ToSlice()...)

	s.publish(ctx, created.ID, amqp.EventCreated)
	return created, nil
}

// Update replaces entry id; id and createdAt are preserved
func (s *LedgerService) Update(ctx context.Context, id int64, tx core.Transaction) (core.Transaction, error) {
	updated, err := s.store.Update(ctx, id, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction updated", txFields(log.OpUpdate, updated).ToSlice()...)

	s.publish(ctx, id, amqp.EventUpdated)
	return updated, nil
}

// Delete removes entry id and returns the removed record
func (s *LedgerService) Delete(ctx context.Context, id int64) (core.Transaction, error) {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction deleted", txFields(log.OpDelete, removed).ToSlice()...)

	s.publish(ctx, id, amqp.EventDeleted)
	return removed, nil
}

func (s *LedgerService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	tx, err := s.store.FindByID(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// publish never fails the caller; the store commit already happened.
func (s *LedgerService) publish(ctx context.Context, id int64, kind amqp.EventKind) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "id", id, "kind", kind)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, id, kind); err != nil {
		fields := log.NewFields().WithComponent(log.ComponentAMQP).WithError(err)
		fields[log.FieldTxID] = id
		slog.ErrorContext(ctx, "Failed to publish transaction event", append(fields.ToSlice(), "kind", kind)...)
	}
}

func txFields(op string, tx core.Transaction) log.LogFields {
	return log.NewFields().
		WithComponent(log.ComponentLedger).
		WithOperation(op).
		WithTransaction(tx)
}
