package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
	"github.com/vladislavdragonenkov/pos-core/internal/health"
	"github.com/vladislavdragonenkov/pos-core/internal/metrics"
	"github.com/vladislavdragonenkov/pos-core/internal/notifier"
	"github.com/vladislavdragonenkov/pos-core/internal/resilience"
	"github.com/vladislavdragonenkov/pos-core/internal/service/cart"
	"github.com/vladislavdragonenkov/pos-core/internal/service/eventgate"
	"github.com/vladislavdragonenkov/pos-core/internal/service/status"
	"github.com/vladislavdragonenkov/pos-core/internal/service/tranlog"
	"github.com/vladislavdragonenkov/pos-core/internal/statestore"
	"github.com/vladislavdragonenkov/pos-core/internal/storage/postgres"
	"github.com/vladislavdragonenkov/pos-core/internal/version"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Carts     domain.CartRepository
	Statuses  domain.StatusRepository
	Events    domain.ProcessedEventRepository
	Store     *postgres.Store
	Cache     *statestore.Client
	Breaker   *resilience.CircuitBreaker
	Metrics   *metrics.PosMetrics
	Tracker   *status.Tracker
	Gate      *eventgate.Gate
	Processor *tranlog.Processor
	Notifier  *notifier.DeliveryStatusClient
	Prune     *eventgate.PruneWorker
	Health    *health.Handler
	Logger    *log.Entry
}

// NewDependencies создаёт и связывает все зависимости приложения
// согласно конфигурации.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	storageDeps, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	posMetrics := metrics.NewPosMetrics()
	breaker := resilience.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerResetTimeout, logger.WithField("component", "cart-cache-breaker"))

	// Кэш-ярус опционален: без sidecar сервис работает только на durable.
	var cacheClient *statestore.Client
	carts := storageDeps.carts
	if cfg.StateStoreURL != "" {
		cacheClient = statestore.NewClient(cfg.StateStoreURL, cfg.StateStoreName,
			statestore.WithTimeout(cfg.StateStoreTimeout),
		)
		carts = cart.NewCachedCartRepository(cacheClient, storageDeps.carts, breaker, posMetrics, nil)
	}

	tracker := status.NewTracker(storageDeps.statuses, posMetrics, nil,
		status.WithMaxRetries(cfg.StatusMaxRetries),
		status.WithBaseDelay(cfg.StatusRetryDelay),
	)
	gate := eventgate.NewGate(storageDeps.events, posMetrics, nil)

	var deliveryNotifier *notifier.DeliveryStatusClient
	var processorNotifier tranlog.Notifier
	if cfg.NotifierBaseURL != "" {
		deliveryNotifier = notifier.NewDeliveryStatusClient(cfg.NotifierBaseURL)
		processorNotifier = deliveryNotifier
	}

	processor := tranlog.NewProcessor(gate, tracker, processorNotifier, nil)

	prune := eventgate.NewPruneWorker(storageDeps.events,
		eventgate.WithInterval(cfg.EventPruneInterval),
		eventgate.WithRetention(cfg.EventRetention),
		eventgate.WithBatchSize(cfg.EventPruneBatch),
	)

	healthHandler := health.NewHandler(version.String())
	if storageDeps.store != nil {
		store := storageDeps.store
		healthHandler.RegisterChecker("postgres", health.NewSimpleChecker("postgres", func() error {
			return store.Ping(context.Background())
		}))
	}
	healthHandler.RegisterChecker("cart-cache", health.NewBreakerChecker("cart-cache",
		func() string { return breaker.State().String() },
		func() bool { return breaker.State() == resilience.CircuitOpen },
	))

	return &Dependencies{
		Carts:     carts,
		Statuses:  storageDeps.statuses,
		Events:    storageDeps.events,
		Store:     storageDeps.store,
		Cache:     cacheClient,
		Breaker:   breaker,
		Metrics:   posMetrics,
		Tracker:   tracker,
		Gate:      gate,
		Processor: processor,
		Notifier:  deliveryNotifier,
		Prune:     prune,
		Health:    healthHandler,
		Logger:    logger,
	}, nil
}

// Close освобождает внешние ресурсы зависимостей.
func (d *Dependencies) Close() {
	if d.Cache != nil {
		d.Cache.Close()
	}
	if d.Notifier != nil {
		d.Notifier.CloseIdleConnections()
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
