package services

import (
	"context"
	"fmt"

	"ledger/internal/core"
)

// QueryService answers filtered and sorted list requests.
type QueryService struct {
	store Store
}

func NewQueryService(store Store) *QueryService {
	return &QueryService{store: store}
}

// List returns the entries matching q. An empty result is a non-nil slice.
func (s *QueryService) List(ctx context.Context, q core.Query) ([]core.Transaction, error) {
	txs, err := s.store.FindAll(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}
