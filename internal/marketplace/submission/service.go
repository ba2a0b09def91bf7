// Package submission owns the lifecycle of one worker's attempt at one
// task: creation, revision cycles, terminal approval or rejection.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/bountyloop/marketplace-be/internal/marketplace/settlement"
	"github.com/google/uuid"
)

// TaskStore resolves tasks at submit time.
type TaskStore interface {
	GetByID(ctx context.Context, taskID string) (*domain.Task, error)
}

// SubmissionStore is the storage surface for lifecycle transitions. All
// Mark* methods check their precondition atomically with the write.
type SubmissionStore interface {
	Create(ctx context.Context, sub *domain.Submission) error
	GetByID(ctx context.Context, submissionID string) (*domain.Submission, error)
	HasOpen(ctx context.Context, taskID, workerID string) (bool, error)
	MarkRevisionRequested(ctx context.Context, submissionID, reason string, resubmitBy time.Time) error
	MarkResubmitted(ctx context.Context, submissionID, proof string) error
	MarkApproved(ctx context.Context, submissionID, paymentID, txID string) error
	MarkRejected(ctx context.Context, submissionID, reason string) error
}

// SettlementQueue hands approved submissions to the settlement worker.
type SettlementQueue interface {
	EnqueueSettlement(ctx context.Context, job settlement.Job) error
}

// Service implements the submission state machine.
type Service struct {
	tasks       TaskStore
	submissions SubmissionStore
	queue       SettlementQueue
	revisionDue time.Duration
	logger      *slog.Logger
}

// Config holds submission service dependencies.
type Config struct {
	Tasks       TaskStore
	Submissions SubmissionStore
	Queue       SettlementQueue
	// RevisionDue is how long a worker has to resubmit after a revision
	// request.
	RevisionDue time.Duration
	Logger      *slog.Logger
}

// NewService creates a new Service instance.
func NewService(cfg *Config) *Service {
	revisionDue := cfg.RevisionDue
	if revisionDue <= 0 {
		revisionDue = 7 * 24 * time.Hour
	}

	return &Service{
		tasks:       cfg.Tasks,
		submissions: cfg.Submissions,
		queue:       cfg.Queue,
		revisionDue: revisionDue,
		logger:      cfg.Logger,
	}
}

// Submit creates a new submission for a task. The task's current reward
// is frozen onto the submission as agreed_reward; later task edits do
// not change what this worker is owed.
func (s *Service) Submit(ctx context.Context, taskID, workerID, proof string) (*domain.Submission, error) {
	if proof == "" {
		return nil, fmt.Errorf("%w: proof is required", domain.ErrValidation)
	}
	if workerID == "" {
		return nil, fmt.Errorf("%w: worker id is required", domain.ErrValidation)
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.Status == domain.TaskStatusCancelled {
		return nil, fmt.Errorf("%w: task is cancelled", domain.ErrValidation)
	}
	if !task.Deadline.IsZero() && time.Now().After(task.Deadline) {
		return nil, fmt.Errorf("%w: task deadline has passed", domain.ErrValidation)
	}
	if task.SlotsRemaining == 0 || task.Status == domain.TaskStatusFull {
		return nil, domain.ErrNoSlotsAvailable
	}

	open, err := s.submissions.HasOpen(ctx, taskID, workerID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, domain.ErrDuplicateSubmission
	}

	now := time.Now().UTC()
	sub := &domain.Submission{
		SubmissionID: uuid.New().String(),
		TaskID:       taskID,
		WorkerID:     workerID,
		Proof:        proof,
		Status:       domain.SubmissionStatusSubmitted,
		AgreedReward: task.Reward,
		SubmittedAt:  now,
		UpdatedAt:    now,
	}

	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Submission created",
		slog.String("submission_id", sub.SubmissionID),
		slog.String("task_id", taskID),
		slog.String("worker_id", workerID),
		slog.String("agreed_reward", sub.AgreedReward.String()),
	)

	return sub, nil
}

// RequestRevision asks the worker to rework their proof. The worker
// gets a resubmission deadline as a visible side effect.
func (s *Service) RequestRevision(ctx context.Context, submissionID, reason string) (time.Time, error) {
	if reason == "" {
		return time.Time{}, fmt.Errorf("%w: revision reason is required", domain.ErrValidation)
	}

	resubmitBy := time.Now().UTC().Add(s.revisionDue)
	if err := s.submissions.MarkRevisionRequested(ctx, submissionID, reason, resubmitBy); err != nil {
		return time.Time{}, err
	}

	s.logger.Info("Revision requested",
		slog.String("submission_id", submissionID),
		slog.Time("resubmit_by", resubmitBy),
	)

	return resubmitBy, nil
}

// Resubmit replaces the proof after a revision request and re-enters
// review.
func (s *Service) Resubmit(ctx context.Context, submissionID, proof string) error {
	if proof == "" {
		return fmt.Errorf("%w: proof is required", domain.ErrValidation)
	}

	if err := s.submissions.MarkResubmitted(ctx, submissionID, proof); err != nil {
		return err
	}

	s.logger.Info("Submission resubmitted",
		slog.String("submission_id", submissionID),
	)

	return nil
}

// Approve claims the submission as APPROVED and enqueues settlement.
// The approval is not considered durable until settlement completes or
// is safely logged to recovery; the settlement worker owns that part.
//
// A retried approval is tolerated: if the submission is already
// APPROVED the settlement job is enqueued again (the coordinator
// dedupes by status), and if it is already COMPLETED the call is a
// no-op. Both keep a twice-delivered approval webhook harmless.
func (s *Service) Approve(ctx context.Context, submissionID, paymentID, txID string) error {
	if paymentID == "" {
		return fmt.Errorf("%w: payment id is required", domain.ErrValidation)
	}

	err := s.submissions.MarkApproved(ctx, submissionID, paymentID, txID)
	if err != nil {
		var transitionErr *domain.InvalidStateTransitionError
		if !errors.As(err, &transitionErr) {
			return err
		}
		switch transitionErr.Current {
		case domain.SubmissionStatusCompleted:
			s.logger.Info("Approval retried on settled submission, ignoring",
				slog.String("submission_id", submissionID),
			)
			return nil
		case domain.SubmissionStatusApproved:
			s.logger.Info("Approval retried, re-enqueueing settlement",
				slog.String("submission_id", submissionID),
			)
		default:
			return err
		}
	}

	if err := s.queue.EnqueueSettlement(ctx, settlement.Job{
		SubmissionID: submissionID,
		PaymentID:    paymentID,
		TxID:         txID,
	}); err != nil {
		// The submission is approved but the job never reached the
		// queue; the payment-confirmed webhook retries will enqueue it.
		s.logger.Error("Failed to enqueue settlement job",
			slog.String("submission_id", submissionID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("submission approved but settlement enqueue failed: %w", err)
	}

	s.logger.Info("Submission approved, settlement enqueued",
		slog.String("submission_id", submissionID),
		slog.String("payment_id", paymentID),
	)

	return nil
}

// Reject terminates the submission with a reason. The worker can still
// appeal through the dispute resolver.
func (s *Service) Reject(ctx context.Context, submissionID, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
	}

	if err := s.submissions.MarkRejected(ctx, submissionID, reason); err != nil {
		return err
	}

	s.logger.Info("Submission rejected",
		slog.String("submission_id", submissionID),
		slog.String("reason", reason),
	)

	return nil
}

// Get returns a submission by id.
func (s *Service) Get(ctx context.Context, submissionID string) (*domain.Submission, error) {
	return s.submissions.GetByID(ctx, submissionID)
}
