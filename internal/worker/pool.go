package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/bountyloop/marketplace-be/internal/marketplace/settlement"
)

// spawnWorkerPool spawns N settlement goroutines based on concurrency
// configuration.
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each settlement goroutine.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case job, ok := <-w.jobsChan:
			if !ok {
				w.logger.Info("Worker goroutine stopping - jobsChan closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			err := w.settle(ctx, job)

			channel := w.rabbitClient.GetChannel()
			if channel == nil {
				w.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
					slog.String("worker_name", workerName),
					slog.String("submission_id", job.SubmissionID),
				)
				continue
			}

			if err != nil {
				w.logger.Error("Settlement failed",
					slog.String("worker_name", workerName),
					slog.String("submission_id", job.SubmissionID),
					slog.String("error", err.Error()),
				)

				requeue := w.shouldRequeue(err)
				if nackErr := channel.Nack(job.DeliveryTag, false, requeue); nackErr != nil {
					w.logger.Error("Failed to NACK message",
						slog.String("worker_name", workerName),
						slog.String("submission_id", job.SubmissionID),
						slog.String("error", nackErr.Error()),
					)
				} else {
					w.logger.Info("Message NACKed",
						slog.String("worker_name", workerName),
						slog.String("submission_id", job.SubmissionID),
						slog.Bool("requeue", requeue),
					)
				}
				continue
			}

			if ackErr := channel.Ack(job.DeliveryTag, false); ackErr != nil {
				w.logger.Error("Failed to ACK message",
					slog.String("worker_name", workerName),
					slog.String("submission_id", job.SubmissionID),
					slog.String("error", ackErr.Error()),
				)
			}
		}
	}
}

// settle runs the coordinator for one job with a bounded timeout.
// Success-with-warning results (external payment done, local writes
// recovered later) count as success: the money moved, replaying the
// message cannot help.
func (w *Worker) settle(ctx context.Context, job *settlement.Job) error {
	settleCtx, cancel := context.WithTimeout(ctx, w.settleTimeout)
	defer cancel()

	result, err := w.coordinator.Settle(settleCtx, settlement.Request{
		SubmissionID: job.SubmissionID,
		PaymentID:    job.PaymentID,
		TxID:         job.TxID,
	})
	if err != nil {
		return err
	}

	switch {
	case result.AlreadySettled:
		w.logger.Info("Submission already settled, skipping",
			slog.String("submission_id", job.SubmissionID),
		)
	case result.Warning != "":
		w.logger.Warn("Settlement completed with warning",
			slog.String("submission_id", job.SubmissionID),
			slog.String("warning", result.Warning),
		)
	default:
		w.logger.Info("Settlement completed",
			slog.String("submission_id", job.SubmissionID),
			slog.String("worker_payout", result.WorkerPayout.String()),
			slog.String("platform_fee", result.PlatformFee.String()),
		)
	}

	return nil
}

// shouldRequeue decides redelivery by error type. Only transient
// external payment failures are worth retrying; state conflicts mean
// another actor already owns the outcome.
func (w *Worker) shouldRequeue(err error) bool {
	var paymentErr *domain.ExternalPaymentError
	if errors.As(err, &paymentErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var transitionErr *domain.InvalidStateTransitionError
	if errors.As(err, &transitionErr) {
		return false
	}

	if errors.Is(err, domain.ErrSubmissionNotFound) {
		return false
	}

	// Unknown errors are not requeued; the submission stays APPROVED
	// and a later webhook or manual replay settles it.
	return false
}
