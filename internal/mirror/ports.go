package mirror

import (
	"context"

	"ledger/internal/core"
)

// Ports for outbound read-only copies of the ledger.
type (
	// Mirror keeps an external copy of the ledger keyed by transaction id.
	Mirror interface {
		// Name identifies the mirror in logs and errors.
		Name() string
		// Upsert writes tx, replacing any previous copy with the same id.
		Upsert(ctx context.Context, tx core.Transaction) error
		// Delete removes id. Deleting an absent id is not an error.
		Delete(ctx context.Context, id int64) error
		// Replace makes the mirror hold exactly txs.
		Replace(ctx context.Context, txs []core.Transaction) error
	}

	// Pinger is implemented by mirrors that can report their health.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
