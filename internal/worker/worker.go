package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bountyloop/marketplace-be/internal/marketplace/settlement"
	"github.com/bountyloop/marketplace-be/shared/rabbitmq"
	"github.com/google/uuid"
)

// Config holds settlement worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Coordinator   *settlement.Coordinator
	Concurrency   int
	PrefetchCount int
	SettleTimeout time.Duration
}

// Worker consumes settlement jobs from RabbitMQ and runs the
// settlement coordinator for each one. Settlement is idempotent by
// submission status, so redelivered messages are safe.
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	coordinator   *settlement.Coordinator
	concurrency   int
	prefetchCount int
	settleTimeout time.Duration
	workerID      string
	jobsChan      chan *settlement.Job
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// NewWorker creates a new settlement worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	settleTimeout := cfg.SettleTimeout
	if settleTimeout <= 0 {
		settleTimeout = 60 * time.Second
	}

	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		coordinator:   cfg.Coordinator,
		concurrency:   concurrency,
		prefetchCount: cfg.PrefetchCount,
		settleTimeout: settleTimeout,
		workerID:      fmt.Sprintf("settlement-worker-%s", uuid.NewString()[:8]),
		jobsChan:      make(chan *settlement.Job),
		stopChan:      make(chan struct{}),
	}
}

// Start begins consuming and processing settlement jobs. Blocks until
// the context is canceled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting settlement worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("settle_timeout", w.settleTimeout),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping settlement worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Settlement worker stopped")
}
