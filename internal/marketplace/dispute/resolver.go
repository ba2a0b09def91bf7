package dispute

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/bountyloop/marketplace-be/internal/marketplace/settlement"
	"github.com/google/uuid"
)

// SubmissionStore is the slice of submission storage the resolver needs.
type SubmissionStore interface {
	GetByID(ctx context.Context, submissionID string) (*domain.Submission, error)
	MarkDisputed(ctx context.Context, submissionID string) error
	RestoreRejected(ctx context.Context, submissionID string) error
	ApproveFromDispute(ctx context.Context, submissionID, paymentID, txID string) error
}

type TaskStore interface {
	GetByID(ctx context.Context, taskID string) (*domain.Task, error)
}

type DisputeStore interface {
	Create(ctx context.Context, d *domain.Dispute) error
	GetByID(ctx context.Context, disputeID string) (*domain.Dispute, error)
	Resolve(ctx context.Context, disputeID string, ruling domain.DisputeRuling, adminNotes string) error
}

// Settler pays out a submission. Satisfied by settlement.Coordinator.
type Settler interface {
	Settle(ctx context.Context, req settlement.Request) (*settlement.Result, error)
}

// Resolver files disputes against rejected submissions and applies
// admin rulings. A ruling in favor of the worker pays out the disputed
// amount from platform funds through the regular settlement path.
type Resolver struct {
	submissions SubmissionStore
	tasks       TaskStore
	disputes    DisputeStore
	settler     Settler
	logger      *slog.Logger
}

type Config struct {
	Submissions SubmissionStore
	Tasks       TaskStore
	Disputes    DisputeStore
	Settler     Settler
	Logger      *slog.Logger
}

func NewResolver(cfg *Config) *Resolver {
	return &Resolver{
		submissions: cfg.Submissions,
		tasks:       cfg.Tasks,
		disputes:    cfg.Disputes,
		settler:     cfg.Settler,
		logger:      cfg.Logger,
	}
}

// Resolution is what applying a ruling produced. Settlement is nil
// unless the ruling was in favor of the worker.
type Resolution struct {
	Dispute    *domain.Dispute
	Settlement *settlement.Result
}

// FileDispute opens a dispute on a rejected submission. The amount in
// dispute is frozen from the submission's agreed reward, and the
// employer's rejection reason is captured so the admin sees both sides.
func (r *Resolver) FileDispute(ctx context.Context, submissionID, reason string) (*domain.Dispute, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < domain.MinDisputeReasonLen {
		return nil, fmt.Errorf("%w: dispute reason must be at least %d characters", domain.ErrValidation, domain.MinDisputeReasonLen)
	}

	sub, err := r.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	// Claims the submission REJECTED -> DISPUTED. A concurrent filer
	// loses this update and gets ErrDisputeAlreadyPending.
	if err := r.submissions.MarkDisputed(ctx, submissionID); err != nil {
		return nil, err
	}

	task, err := r.tasks.GetByID(ctx, sub.TaskID)
	if err != nil {
		r.rollbackDisputed(ctx, submissionID)
		return nil, err
	}

	d := &domain.Dispute{
		DisputeID:               uuid.NewString(),
		SubmissionID:            sub.SubmissionID,
		TaskID:                  sub.TaskID,
		WorkerID:                sub.WorkerID,
		EmployerID:              task.EmployerID,
		Reason:                  reason,
		OriginalRejectionReason: sub.RejectionReason,
		AmountInDispute:         sub.AgreedReward,
		Status:                  domain.DisputeStatusPending,
		CreatedAt:               time.Now().UTC(),
	}
	if err := r.disputes.Create(ctx, d); err != nil {
		r.rollbackDisputed(ctx, submissionID)
		return nil, err
	}

	r.logger.Info("Dispute filed",
		slog.String("dispute_id", d.DisputeID),
		slog.String("submission_id", d.SubmissionID),
		slog.String("amount_in_dispute", d.AmountInDispute.String()),
	)
	return d, nil
}

// rollbackDisputed undoes the DISPUTED claim when the dispute record
// could not be written, so the worker can file again.
func (r *Resolver) rollbackDisputed(ctx context.Context, submissionID string) {
	if err := r.submissions.RestoreRejected(ctx, submissionID); err != nil {
		r.logger.Error("Failed to restore submission after dispute filing failed",
			slog.String("submission_id", submissionID),
			slog.String("error", err.Error()),
		)
	}
}

// Resolve applies an admin ruling to a pending dispute. The ruling is
// claimed first, so exactly one resolution wins under concurrent admins.
//
// In favor of the worker: the submission moves back to APPROVED with the
// platform-created payment attached, and settlement runs immediately with
// the frozen disputed amount, funded by the platform. If the external
// payment then fails, the dispute stays resolved and the submission stays
// APPROVED so the payment webhook can retry the settlement.
//
// In favor of the employer: the submission returns to REJECTED and no
// money moves.
func (r *Resolver) Resolve(ctx context.Context, disputeID string, ruling domain.DisputeRuling, adminNotes, paymentID, txID string) (*Resolution, error) {
	if !ruling.Valid() {
		return nil, fmt.Errorf("%w: unknown ruling %q", domain.ErrValidation, ruling)
	}
	if strings.TrimSpace(adminNotes) == "" {
		return nil, fmt.Errorf("%w: admin notes are required", domain.ErrValidation)
	}
	if ruling == domain.RulingInFavorOfWorker && paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required to pay out a dispute", domain.ErrValidation)
	}

	d, err := r.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	if err := r.disputes.Resolve(ctx, disputeID, ruling, adminNotes); err != nil {
		return nil, err
	}
	d.Status = domain.DisputeStatusResolved
	d.Ruling = ruling
	d.AdminNotes = adminNotes
	now := time.Now().UTC()
	d.ResolvedAt = &now

	log := r.logger.With(
		slog.String("dispute_id", d.DisputeID),
		slog.String("submission_id", d.SubmissionID),
		slog.String("ruling", string(ruling)),
	)

	if ruling == domain.RulingInFavorOfEmployer {
		if err := r.submissions.RestoreRejected(ctx, d.SubmissionID); err != nil {
			return nil, fmt.Errorf("restore rejected submission: %w", err)
		}
		log.Info("Dispute resolved for employer")
		return &Resolution{Dispute: d}, nil
	}

	if err := r.submissions.ApproveFromDispute(ctx, d.SubmissionID, paymentID, txID); err != nil {
		return nil, fmt.Errorf("approve disputed submission: %w", err)
	}

	res, err := r.settler.Settle(ctx, settlement.Request{
		SubmissionID:   d.SubmissionID,
		PaymentID:      paymentID,
		TxID:           txID,
		AmountOverride: d.AmountInDispute,
		SystemFunded:   true,
	})
	if err != nil {
		// The ruling stands. The submission is APPROVED with the
		// payment attached, so a later settlement attempt picks it up.
		log.Error("Dispute payout failed, settlement will be retried",
			slog.String("error", err.Error()),
		)
		return &Resolution{Dispute: d}, fmt.Errorf("settle dispute payout: %w", err)
	}

	log.Info("Dispute resolved for worker",
		slog.String("worker_payout", res.WorkerPayout.String()),
		slog.String("platform_fee", res.PlatformFee.String()),
	)
	return &Resolution{Dispute: d, Settlement: res}, nil
}

// Get returns a dispute by id.
func (r *Resolver) Get(ctx context.Context, disputeID string) (*domain.Dispute, error) {
	return r.disputes.GetByID(ctx, disputeID)
}
