// Package backend assembles the ledger store and its optional event
// publisher from configuration.
package backend

import (
	"context"
	"fmt"

	"ledger/internal/amqp"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
	"ledger/internal/storage/memory"
)

// Type names a store implementation.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc releases whatever Open acquired.
type CleanupFunc func() error

// Pinger is a dependency that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Result is an opened backend.
type Result struct {
	Store services.Store
	// Publisher is nil when change events are disabled.
	Publisher services.EventPublisher
	// Checks are the readiness probes for everything opened.
	Checks  map[string]Pinger
	Cleanup CleanupFunc
}

// Factory opens backends.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(log.ComponentStorage)}
}

// Open creates the configured store. A broker that cannot be reached is
// logged and skipped so the API still serves.
func (f *Factory) Open(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	res := &Result{Checks: make(map[string]Pinger)}
	var closers []func() error

	switch t := Type(cfg.DataBackend); t {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		res.Store = repo
		closers = append(closers, repo.Close)
		f.logger.InfoContext(ctx, "Initialized SQLite store", "db_path", cfg.SQLiteDBPath)
	case MemoryBackend:
		res.Store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory store")
	default:
		return nil, fmt.Errorf("unsupported backend type: %q", t)
	}
	res.Checks["store"] = res.Store

	if cfg.AMQPURL != "" {
		amqpLog := f.logger.WithComponent(log.ComponentAMQP)
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			amqpLog.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			res.Publisher = client
			res.Checks["amqp"] = client
			closers = append(closers, client.Close)
			amqpLog.InfoContext(ctx, "Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}
	if res.Publisher != nil && Type(cfg.DataBackend) == MemoryBackend {
		f.logger.WarnContext(ctx, "Change events point at an in-process store; the mirror worker cannot read it back")
	}

	res.Cleanup = func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	return res, nil
}
