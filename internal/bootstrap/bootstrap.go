// Package bootstrap builds the store, gateway and event publisher selected by
// configuration. The server and the CLI share it so both see the same data.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"contactbook/internal/contact/events"
	contactmetrics "contactbook/internal/contact/metrics"
	"contactbook/internal/contact/service"
	"contactbook/internal/contact/store"
	filestore "contactbook/internal/contact/store/file"
	"contactbook/internal/contact/store/memory"
	pgstore "contactbook/internal/contact/store/postgres"
	redisstore "contactbook/internal/contact/store/redis"
	"contactbook/internal/platform/config"
	"contactbook/internal/platform/db"
	platformredis "contactbook/internal/platform/redis"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Store     store.DocumentStore
	Gateway   *service.Gateway
	Publisher events.Publisher
	Health    map[string]HealthCheck
}

// Build opens the configured store and publisher and returns a gateway over
// them. reg may be nil, in which case no metrics are recorded.
func Build(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*App, error) {
	st, health, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var opts []service.Option
	if reg != nil {
		opts = append(opts, service.WithMetrics(contactmetrics.New(reg)))
	}
	if cfg.SerializeWrites {
		opts = append(opts, service.WithSerializedWrites())
	}

	publisher, err := openPublisher(ctx, cfg, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "contact store ready",
		"driver", cfg.StoreDriver,
		"serialize_writes", cfg.SerializeWrites,
		"events", len(cfg.BrokersList()) > 0,
	)

	return &App{
		Store:     st,
		Gateway:   service.New(st, opts...),
		Publisher: publisher,
		Health:    health,
	}, nil
}

// Close flushes the publisher and closes the store.
func (a *App) Close() error {
	return errors.Join(a.Publisher.Close(), a.Store.Close())
}

// OpenStore opens the document store named by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (store.DocumentStore, map[string]HealthCheck, error) {
	health := map[string]HealthCheck{}
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.New(), health, nil
	case config.DriverFile:
		st, err := filestore.Open(cfg.StoreFilePath)
		if err != nil {
			return nil, nil, err
		}
		return st, health, nil
	case config.DriverPostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		health["postgres"] = conn.PingContext
		return pgstore.New(conn), health, nil
	case config.DriverRedis:
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, errors.New("redis: REDIS_URL is not set")
		}
		health["redis"] = client.Health
		return redisstore.New(client.Client, cfg.RedisKeyPrefix), health, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// openPublisher returns Nop when no broker is configured. Kafka delivery runs
// behind an async queue so a slow broker never stalls a request.
func openPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	p, err := events.NewKafkaPublisher(cfg.BrokersList(), cfg.KafkaTopic)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return events.Nop{}, nil
	}
	topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.EnsureTopic(topicCtx, 3, 1); err != nil {
		logger.WarnContext(ctx, "could not ensure event topic; relying on broker auto-create",
			"topic", cfg.KafkaTopic, "error", err)
	}
	return events.NewAsyncPublisher(p, logger), nil
}
