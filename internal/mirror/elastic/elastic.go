// Package elastic mirrors the ledger into an Elasticsearch index for
// full-text search over descriptions and categories.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"ledger/internal/core"
	"ledger/internal/mirror"
)

const (
	DefaultIndex = "ledger-transactions"

	bulkFlushBytes = 1 << 20
	maxRetries     = 5
)

var indexMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "long"},
      "type":        {"type": "keyword"},
      "amount":      {"type": "scaled_float", "scaling_factor": 100},
      "category":    {"type": "keyword"},
      "description": {"type": "text"},
      "date":        {"type": "date", "format": "yyyy-MM-dd"},
      "createdAt":   {"type": "date"}
    }
  }
}`

var (
	_ mirror.Mirror = (*Mirror)(nil)
	_ mirror.Pinger = (*Mirror)(nil)
)

type Mirror struct {
	es    *elasticsearch.Client
	index string
}

// New builds a client for addresses with retry on overload statuses.
func New(addresses []string, index string) (*Mirror, error) {
	if len(addresses) == 0 {
		return nil, errors.New("no elasticsearch addresses configured")
	}
	if strings.TrimSpace(index) == "" {
		index = DefaultIndex
	}

	retryBackoff := backoff.NewExponentialBackOff()
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,

		// Retry on 429 TooManyRequests statuses
		RetryOnStatus: []int{502, 503, 504, 429},

		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},

		MaxRetries: maxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &Mirror{es: es, index: index}, nil
}

func (m *Mirror) Name() string { return "elasticsearch" }

func (m *Mirror) Ping(ctx context.Context) error {
	res, err := m.es.Ping(m.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	return checkResponse(res, "ping")
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (m *Mirror) EnsureIndex(ctx context.Context) error {
	res, err := m.es.Indices.Exists([]string{m.index}, m.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", m.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = m.es.Indices.Create(m.index,
		m.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		m.es.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", m.index, err)
	}
	if err := checkResponse(res, "create index"); err != nil {
		// another worker may have created it first
		if strings.Contains(err.Error(), "resource_already_exists_exception") {
			return nil
		}
		return err
	}
	slog.InfoContext(ctx, "Created elasticsearch index", "index", m.index)
	return nil
}

func (m *Mirror) Upsert(ctx context.Context, tx core.Transaction) error {
	req := esapi.IndexRequest{
		Index:      m.index,
		DocumentID: docID(tx.ID),
		Body:       esutil.NewJSONReader(tx),
	}
	res, err := req.Do(ctx, m.es)
	if err != nil {
		return fmt.Errorf("index transaction %d: %w", tx.ID, err)
	}
	return checkResponse(res, "index transaction "+docID(tx.ID))
}

func (m *Mirror) Delete(ctx context.Context, id int64) error {
	req := esapi.DeleteRequest{
		Index:      m.index,
		DocumentID: docID(id),
	}
	res, err := req.Do(ctx, m.es)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return nil
	}
	return checkResponse(res, "delete transaction "+docID(id))
}

// Replace empties the index and bulk-indexes txs.
func (m *Mirror) Replace(ctx context.Context, txs []core.Transaction) error {
	res, err := m.es.DeleteByQuery([]string{m.index},
		strings.NewReader(`{"query":{"match_all":{}}}`),
		m.es.DeleteByQuery.WithContext(ctx),
		m.es.DeleteByQuery.WithRefresh(true),
		m.es.DeleteByQuery.WithConflicts("proceed"))
	if err != nil {
		return fmt.Errorf("clear index %s: %w", m.index, err)
	}
	if res.StatusCode != http.StatusNotFound {
		if err := checkResponse(res, "clear index"); err != nil {
			return err
		}
	} else {
		res.Body.Close()
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:      m.index,
		Client:     m.es,
		NumWorkers: 2,
		FlushBytes: bulkFlushBytes,
	})
	if err != nil {
		return fmt.Errorf("create bulk indexer: %w", err)
	}

	for _, tx := range txs {
		doc, err := json.Marshal(tx)
		if err != nil {
			bi.Close(ctx)
			return fmt.Errorf("encode transaction %d: %w", tx.ID, err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: docID(tx.ID),
			Body:       bytes.NewReader(doc),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					slog.ErrorContext(ctx, "Bulk index failed", "id", item.DocumentID, "error", err)
					return
				}
				slog.ErrorContext(ctx, "Bulk index failed", "id", item.DocumentID,
					"type", res.Error.Type, "reason", res.Error.Reason)
			},
		})
		if err != nil {
			bi.Close(ctx)
			return fmt.Errorf("queue transaction %d: %w", tx.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("flush bulk indexer: %w", err)
	}
	stats := bi.Stats()
	if stats.NumFailed > 0 {
		return fmt.Errorf("failed indexing %d of %d documents", stats.NumFailed, len(txs))
	}
	slog.InfoContext(ctx, "Reindexed ledger", "index", m.index, "documents", stats.NumFlushed)
	return nil
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// checkResponse closes res and turns an error status into an error.
func checkResponse(res *esapi.Response, op string) error {
	defer res.Body.Close()
	if !res.IsError() {
		io.Copy(io.Discard, res.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("%s: %s: %s", op, res.Status(), strings.TrimSpace(string(body)))
}
