package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/google/uuid"
)

// SubmissionStore is the submission surface settlement needs.
type SubmissionStore interface {
	GetByID(ctx context.Context, submissionID string) (*domain.Submission, error)
	// MarkCompleted claims APPROVED -> COMPLETED atomically; claimed is
	// false when another settlement already won.
	MarkCompleted(ctx context.Context, submissionID string) (claimed bool, err error)
}

// TaskStore resolves the task for employer attribution.
type TaskStore interface {
	GetByID(ctx context.Context, taskID string) (*domain.Task, error)
}

// LedgerStore appends payout entries.
type LedgerStore interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) error
}

// EarningsStore increments cumulative worker earnings.
type EarningsStore interface {
	Increment(ctx context.Context, workerID string, payout domain.Amount) error
}

// RecoveryStore persists partial-failure records.
type RecoveryStore interface {
	Append(ctx context.Context, rec *domain.RecoveryRecord) error
}

// SlotAllocator consumes one task slot per settled submission.
type SlotAllocator interface {
	Decrement(ctx context.Context, taskID string) error
}

// Request carries everything needed to settle one approved submission.
type Request struct {
	SubmissionID string
	PaymentID    string
	TxID         string

	// AmountOverride, when positive, replaces the submission's agreed
	// reward. The dispute resolver uses it to pay the amount recorded
	// on the dispute.
	AmountOverride domain.Amount

	// SystemFunded marks payouts made from the platform wallet (dispute
	// rulings); the ledger entry then carries no sender.
	SystemFunded bool
}

// Result reports what a settlement did. Warning is set when the
// external payment succeeded but local bookkeeping failed and was
// diverted to a recovery record; the payment itself still succeeded.
type Result struct {
	SubmissionID   string
	PaymentID      string
	TxID           string
	WorkerPayout   domain.Amount
	PlatformFee    domain.Amount
	AlreadySettled bool
	Warning        string
}

// Coordinator drives an approved submission through fee computation,
// the external payment confirmation, and the grouped local updates.
type Coordinator struct {
	gateway     PaymentGateway
	submissions SubmissionStore
	tasks       TaskStore
	ledger      LedgerStore
	earnings    EarningsStore
	recovery    RecoveryStore
	allocator   SlotAllocator
	feeRateBps  int
	logger      *slog.Logger
}

// Config holds coordinator dependencies.
type Config struct {
	Gateway     PaymentGateway
	Submissions SubmissionStore
	Tasks       TaskStore
	Ledger      LedgerStore
	Earnings    EarningsStore
	Recovery    RecoveryStore
	Allocator   SlotAllocator
	FeeRateBps  int
	Logger      *slog.Logger
}

// NewCoordinator creates a new Coordinator instance.
func NewCoordinator(cfg *Config) *Coordinator {
	return &Coordinator{
		gateway:     cfg.Gateway,
		submissions: cfg.Submissions,
		tasks:       cfg.Tasks,
		ledger:      cfg.Ledger,
		earnings:    cfg.Earnings,
		recovery:    cfg.Recovery,
		allocator:   cfg.Allocator,
		feeRateBps:  cfg.FeeRateBps,
		logger:      cfg.Logger,
	}
}

// Settle confirms the external payment for an approved submission and
// applies the local consequences: earnings, submission completion,
// ledger entry, slot decrement.
//
// Failure semantics: before the gateway Complete call succeeds, any
// error leaves local state untouched and the whole settlement is safe
// to retry. After it succeeds the money has moved, so local failures
// are diverted into a RecoveryRecord and reported as success with a
// warning, never as a payment failure. Re-settling a COMPLETED
// submission is a no-op detected by status, not by payment id.
func (c *Coordinator) Settle(ctx context.Context, req Request) (*Result, error) {
	log := c.logger.With(
		slog.String("submission_id", req.SubmissionID),
		slog.String("payment_id", req.PaymentID),
	)

	sub, err := c.submissions.GetByID(ctx, req.SubmissionID)
	if err != nil {
		return nil, err
	}

	if sub.Status == domain.SubmissionStatusCompleted {
		log.Info("Submission already settled, nothing to do")
		return &Result{
			SubmissionID:   req.SubmissionID,
			PaymentID:      req.PaymentID,
			AlreadySettled: true,
		}, nil
	}

	if sub.Status != domain.SubmissionStatusApproved {
		return nil, &domain.InvalidStateTransitionError{
			SubmissionID: req.SubmissionID,
			Current:      sub.Status,
			Attempted:    domain.SubmissionStatusCompleted,
		}
	}

	reward := sub.AgreedReward
	if req.AmountOverride > 0 {
		reward = req.AmountOverride
	}

	// Step 1: confirm the payment on the external network. The gateway
	// call runs outside any local transaction and may take as long as
	// the client timeout allows; nothing local has changed yet, so an
	// error here is fully retryable.
	if _, err := c.gateway.Complete(ctx, req.PaymentID, req.TxID); err != nil {
		log.Error("External payment completion failed",
			slog.String("error", err.Error()),
		)
		return nil, domain.NewExternalPaymentError("complete", err)
	}

	// Step 2: re-fetch the confirmed amount to defend against tampered
	// client-supplied amounts. A fetch failure degrades to the local
	// amount with a warning.
	if payment, err := c.gateway.GetPayment(ctx, req.PaymentID); err != nil {
		log.Warn("Could not re-fetch payment, using locally recorded amount",
			slog.String("error", err.Error()),
		)
	} else if payment.Amount > 0 && payment.Amount != reward {
		log.Warn("Gateway amount differs from local amount, trusting gateway",
			slog.String("local", reward.String()),
			slog.String("confirmed", payment.Amount.String()),
		)
		reward = payment.Amount
	}

	payout, fee := domain.SplitReward(reward, c.feeRateBps)

	// The payment is confirmed on-chain; from here the settlement must
	// run to completion even if the caller goes away.
	dctx := context.WithoutCancel(ctx)

	task, err := c.tasks.GetByID(dctx, sub.TaskID)
	if err != nil {
		return c.divertToRecovery(dctx, log, req, sub, reward, fee,
			fmt.Errorf("failed to resolve task for employer attribution: %w", err))
	}

	claimed, err := c.submissions.MarkCompleted(dctx, req.SubmissionID)
	if err != nil {
		return c.divertToRecovery(dctx, log, req, sub, reward, fee, err)
	}
	if !claimed {
		// A concurrent settlement finished first; its local updates are
		// the authoritative ones.
		log.Info("Settlement lost claim race, treating as already settled")
		return &Result{
			SubmissionID:   req.SubmissionID,
			PaymentID:      req.PaymentID,
			AlreadySettled: true,
		}, nil
	}

	if err := c.earnings.Increment(dctx, sub.WorkerID, payout); err != nil {
		return c.divertToRecovery(dctx, log, req, sub, reward, fee, err)
	}

	senderID := task.EmployerID
	if req.SystemFunded {
		senderID = ""
	}
	entry := &domain.LedgerEntry{
		EntryID:      uuid.New().String(),
		SenderID:     senderID,
		ReceiverID:   sub.WorkerID,
		TaskID:       sub.TaskID,
		SubmissionID: sub.SubmissionID,
		Gross:        reward,
		PlatformFee:  fee,
		TxID:         req.TxID,
		Status:       domain.LedgerStatusCompleted,
		CreatedAt:    time.Now().UTC(),
	}
	if err := c.ledger.Append(dctx, entry); err != nil {
		return c.divertToRecovery(dctx, log, req, sub, reward, fee, err)
	}

	if err := c.allocator.Decrement(dctx, sub.TaskID); err != nil {
		return c.divertToRecovery(dctx, log, req, sub, reward, fee, err)
	}

	log.Info("Settlement complete",
		slog.String("worker_id", sub.WorkerID),
		slog.String("worker_payout", payout.String()),
		slog.String("platform_fee", fee.String()),
		slog.String("tx_id", req.TxID),
	)

	return &Result{
		SubmissionID: req.SubmissionID,
		PaymentID:    req.PaymentID,
		TxID:         req.TxID,
		WorkerPayout: payout,
		PlatformFee:  fee,
	}, nil
}

// divertToRecovery handles the partial-failure branch: the external
// payment is confirmed but a local write failed. The failure is
// persisted with every input needed to replay the local updates, and
// the caller still gets a success result so the payment is never
// misreported as failed.
func (c *Coordinator) divertToRecovery(ctx context.Context, log *slog.Logger, req Request, sub *domain.Submission, reward, fee domain.Amount, cause error) (*Result, error) {
	rec := &domain.RecoveryRecord{
		RecordID:     uuid.New().String(),
		PaymentID:    req.PaymentID,
		TxID:         req.TxID,
		SubmissionID: sub.SubmissionID,
		WorkerID:     sub.WorkerID,
		TaskID:       sub.TaskID,
		Amount:       reward,
		PlatformFee:  fee,
		Failure:      cause.Error(),
		CreatedAt:    time.Now().UTC(),
	}

	if recErr := c.recovery.Append(ctx, rec); recErr != nil {
		// Last resort: the payment happened and we could not even write
		// the recovery record. Log everything an operator needs.
		log.Error("CRITICAL: local updates and recovery record both failed after confirmed payment",
			slog.String("tx_id", req.TxID),
			slog.String("worker_id", sub.WorkerID),
			slog.String("task_id", sub.TaskID),
			slog.String("amount", reward.String()),
			slog.String("platform_fee", fee.String()),
			slog.String("local_failure", cause.Error()),
			slog.String("recovery_failure", recErr.Error()),
		)
	} else {
		log.Warn("Local settlement updates failed after confirmed payment, recovery record written",
			slog.String("record_id", rec.RecordID),
			slog.String("failure", cause.Error()),
		)
	}

	payout := reward - fee
	return &Result{
		SubmissionID: req.SubmissionID,
		PaymentID:    req.PaymentID,
		TxID:         req.TxID,
		WorkerPayout: payout,
		PlatformFee:  fee,
		Warning:      "payment confirmed but local bookkeeping deferred to reconciliation",
	}, nil
}
