package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos-core/internal/transport/httpapi"
)

// Run собирает зависимости и запускает сервис: HTTP API (webhook, health,
// метрики), воркер очистки маркеров событий и, опционально, Kafka-ингестию.
// Блокируется до отмены ctx или фатальной ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	kafkaProducer, kafkaConsumer, err := initKafka(cfg, deps.Processor, logger)
	if err != nil {
		logger.WithError(err).Warn("kafka initialization failed, continuing without kafka ingestion")
	}
	defer closeKafkaProducer(kafkaProducer, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	go deps.Prune.Run(workerCtx)

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Start(workerCtx); err != nil {
			return err
		}
		defer func() {
			if err := kafkaConsumer.Stop(); err != nil {
				logger.WithError(err).Warn("failed to stop kafka consumer")
			}
		}()
	}

	router := httpapi.NewRouter(
		httpapi.NewTranlogHandler(deps.Processor, nil),
		deps.Health,
	)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(srv, logger)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
