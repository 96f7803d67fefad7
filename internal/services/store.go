package services

import (
	"context"

	"ledger/internal/amqp"
	"ledger/internal/core"
)

// Store is the ledger's persistence contract. Implementations validate
// entries, own id and createdAt, and return core.ErrNotFound for missing ids.
type Store interface {
	Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	Update(ctx context.Context, id int64, tx core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, id int64) (core.Transaction, error)
	FindByID(ctx context.Context, id int64) (core.Transaction, error)
	FindAll(ctx context.Context, q core.Query) ([]core.Transaction, error)

	MonthTotals(ctx context.Context, year, month int) (core.MonthSummary, error)
	MonthlyTrends(ctx context.Context) ([]core.TrendPoint, error)
	CategoryTotals(ctx context.Context, year, month int, t core.Type) ([]core.CategoryAmount, error)

	Ping(ctx context.Context) error
}

// EventPublisher announces committed mutations.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, id int64, kind amqp.EventKind) error
}
