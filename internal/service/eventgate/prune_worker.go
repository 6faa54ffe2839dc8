package eventgate

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
)

const (
	defaultPruneInterval  = time.Hour
	defaultPruneRetention = 14 * 24 * time.Hour
	defaultPruneBatchSize = 500
)

var (
	pruneRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_processed_events_prune_runs_total",
		Help: "Total number of processed-event prune runs grouped by result.",
	}, []string{"result"})
	pruneDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_processed_events_prune_deleted_total",
		Help: "Total number of deleted processed-event markers.",
	})
	pruneLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pos_processed_events_prune_last_deleted",
		Help: "Number of deleted markers during the last prune run.",
	})
)

// PruneOptions задаёт параметры воркера очистки маркеров событий.
type PruneOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	Retention time.Duration
	BatchSize int
}

// PruneOption настраивает PruneWorker.
type PruneOption func(*PruneOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) PruneOption {
	return func(opts *PruneOptions) {
		opts.Logger = logger
	}
}

// WithInterval задаёт интервал между prune-циклами.
func WithInterval(interval time.Duration) PruneOption {
	return func(opts *PruneOptions) {
		opts.Interval = interval
	}
}

// WithRetention задаёт срок хранения маркера обработанного события.
func WithRetention(retention time.Duration) PruneOption {
	return func(opts *PruneOptions) {
		opts.Retention = retention
	}
}

// WithBatchSize задаёт размер batch для одного удаления.
func WithBatchSize(batchSize int) PruneOption {
	return func(opts *PruneOptions) {
		opts.BatchSize = batchSize
	}
}

// PruneWorker периодически удаляет маркеры событий старше retention.
// Окно дедупликации ограничено этим сроком: более старое событие,
// доставленное повторно, будет применено заново и отклонено
// предусловиями бизнес-логики.
type PruneWorker struct {
	events    domain.ProcessedEventRepository
	logger    *log.Entry
	interval  time.Duration
	retention time.Duration
	batchSize int
}

// NewPruneWorker создаёт воркер очистки маркеров обработанных событий.
func NewPruneWorker(events domain.ProcessedEventRepository, options ...PruneOption) *PruneWorker {
	opts := PruneOptions{
		Interval:  defaultPruneInterval,
		Retention: defaultPruneRetention,
		BatchSize: defaultPruneBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "event-prune-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultPruneInterval
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultPruneRetention
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultPruneBatchSize
	}

	return &PruneWorker{
		events:    events,
		logger:    logger,
		interval:  opts.Interval,
		retention: opts.Retention,
		batchSize: opts.BatchSize,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *PruneWorker) Run(ctx context.Context) {
	if w.events == nil {
		w.logger.Warn("event prune worker is disabled: repository is nil")
		return
	}

	w.prune(ctx, time.Now().UTC())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.prune(ctx, time.Now().UTC())
		}
	}
}

func (w *PruneWorker) prune(ctx context.Context, now time.Time) {
	deleted, err := w.DeleteExpired(ctx, now.Add(-w.retention))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		pruneRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("event prune run failed")
		return
	}

	pruneRunsTotal.WithLabelValues("ok").Inc()
	pruneLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("event prune completed")
	}
}

// DeleteExpired удаляет все маркеры старше before порциями batchSize.
func (w *PruneWorker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC().Add(-w.retention)
	}

	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := w.events.DeleteOlderThan(ctx, before, w.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			pruneDeletedTotal.Add(float64(deleted))
		}

		if deleted < w.batchSize {
			break
		}
	}

	return totalDeleted, nil
}
