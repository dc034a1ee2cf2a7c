package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

const (
	defaultRetentionInterval  = 10 * time.Minute
	defaultRetentionAge       = 24 * time.Hour
	defaultRetentionBatchSize = 500
)

var (
	outboxRetentionRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commerce_outbox_retention_runs_total",
		Help: "Total number of outbox retention runs grouped by result.",
	}, []string{"result"})
	outboxRetentionDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerce_outbox_retention_deleted_total",
		Help: "Total number of deleted sent outbox records.",
	})
	outboxRetentionLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "commerce_outbox_retention_last_deleted",
		Help: "Number of deleted records during the last retention run.",
	})
)

// RetentionOptions задаёт параметры воркера очистки отправленных записей.
type RetentionOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	Age       time.Duration
	BatchSize int
}

// RetentionOption настраивает RetentionWorker.
type RetentionOption func(*RetentionOptions)

// WithRetentionLogger задаёт logger для воркера.
func WithRetentionLogger(logger *log.Entry) RetentionOption {
	return func(opts *RetentionOptions) {
		opts.Logger = logger
	}
}

// WithRetentionInterval задаёт интервал между циклами очистки.
func WithRetentionInterval(interval time.Duration) RetentionOption {
	return func(opts *RetentionOptions) {
		opts.Interval = interval
	}
}

// WithRetentionAge задаёт минимальный возраст отправленной записи для удаления.
func WithRetentionAge(age time.Duration) RetentionOption {
	return func(opts *RetentionOptions) {
		opts.Age = age
	}
}

// WithRetentionBatchSize задаёт размер batch для одного удаления.
func WithRetentionBatchSize(batchSize int) RetentionOption {
	return func(opts *RetentionOptions) {
		opts.BatchSize = batchSize
	}
}

// RetentionWorker периодически удаляет отправленные outbox-записи старше
// заданного возраста, не давая таблице расти бесконечно.
type RetentionWorker struct {
	repo      domain.OutboxRepository
	logger    *log.Entry
	interval  time.Duration
	age       time.Duration
	batchSize int
}

// NewRetentionWorker создаёт воркер очистки outbox.
func NewRetentionWorker(repo domain.OutboxRepository, options ...RetentionOption) *RetentionWorker {
	opts := RetentionOptions{
		Interval:  defaultRetentionInterval,
		Age:       defaultRetentionAge,
		BatchSize: defaultRetentionBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "outbox-retention-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultRetentionInterval
	}
	if opts.Age <= 0 {
		opts.Age = defaultRetentionAge
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultRetentionBatchSize
	}

	return &RetentionWorker{
		repo:      repo,
		logger:    logger,
		interval:  opts.Interval,
		age:       opts.Age,
		batchSize: opts.BatchSize,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *RetentionWorker) Run(ctx context.Context) {
	if w.repo == nil {
		w.logger.Warn("outbox retention worker is disabled: repo is nil")
		return
	}

	w.cleanup(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *RetentionWorker) cleanup(ctx context.Context) {
	deleted, err := w.DeleteSent(ctx, time.Now().UTC().Add(-w.age))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		outboxRetentionRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("outbox retention run failed")
		return
	}

	outboxRetentionRunsTotal.WithLabelValues("ok").Inc()
	outboxRetentionLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("outbox retention completed")
	}
}

// DeleteSent удаляет все отправленные записи старше before порциями batchSize.
func (w *RetentionWorker) DeleteSent(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := w.repo.DeleteSentBefore(before, w.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			outboxRetentionDeletedTotal.Add(float64(deleted))
		}

		if deleted < w.batchSize {
			break
		}
	}

	return totalDeleted, nil
}
