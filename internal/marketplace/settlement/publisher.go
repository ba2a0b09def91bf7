package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bountyloop/marketplace-be/shared/rabbitmq"
)

// Publisher puts settlement jobs on the queue for the settlement
// service. Satisfies submission.SettlementQueue.
type Publisher struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

func NewPublisher(client *rabbitmq.Client, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// EnqueueSettlement publishes the job as a persistent message with
// retry. A publish failure surfaces to the caller so the approval can
// be retried; nothing is lost because settlement is idempotent.
func (p *Publisher) EnqueueSettlement(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement job: %w", err)
	}

	if err := p.client.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to enqueue settlement job: %w", err)
	}

	p.logger.Debug("Settlement job enqueued",
		slog.String("submission_id", job.SubmissionID),
		slog.String("payment_id", job.PaymentID),
	)
	return nil
}
