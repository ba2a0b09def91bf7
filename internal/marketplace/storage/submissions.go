package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SubmissionStore handles all submission table operations. Every status
// mutation is a conditional UPDATE whose WHERE clause encodes the
// transition table precondition, so the check and the write are one
// atomic statement.
type SubmissionStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSubmissionStore creates a new SubmissionStore instance.
func NewSubmissionStore(db *sqlx.DB, logger *slog.Logger) *SubmissionStore {
	return &SubmissionStore{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new submission. A partial unique index on
// (task_id, worker_id) over open statuses backs the one-open-submission
// rule; unique violations surface as ErrDuplicateSubmission.
func (s *SubmissionStore) Create(ctx context.Context, sub *domain.Submission) error {
	query := `
		INSERT INTO submissions (
			submission_id, task_id, worker_id, proof, status,
			revision_count, agreed_reward, submitted_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		sub.SubmissionID,
		sub.TaskID,
		sub.WorkerID,
		sub.Proof,
		sub.Status,
		sub.RevisionCount,
		sub.AgreedReward,
		sub.SubmittedAt,
		sub.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDuplicateSubmission
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// GetByID retrieves a submission by its ID.
func (s *SubmissionStore) GetByID(ctx context.Context, submissionID string) (*domain.Submission, error) {
	query := `
		SELECT
			submission_id, task_id, worker_id, proof, status,
			revision_count, rejection_reason, agreed_reward,
			payment_id, tx_id, resubmit_by, submitted_at, reviewed_at, updated_at
		FROM submissions
		WHERE submission_id = $1
	`

	var sub domain.Submission
	var rejectionReason, paymentID, txID sql.NullString
	var resubmitBy, reviewedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, submissionID).Scan(
		&sub.SubmissionID,
		&sub.TaskID,
		&sub.WorkerID,
		&sub.Proof,
		&sub.Status,
		&sub.RevisionCount,
		&rejectionReason,
		&sub.AgreedReward,
		&paymentID,
		&txID,
		&resubmitBy,
		&sub.SubmittedAt,
		&reviewedAt,
		&sub.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if rejectionReason.Valid {
		sub.RejectionReason = rejectionReason.String
	}
	if paymentID.Valid {
		sub.PaymentID = paymentID.String
	}
	if txID.Valid {
		sub.TxID = txID.String
	}
	if resubmitBy.Valid {
		t := resubmitBy.Time
		sub.ResubmitBy = &t
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		sub.ReviewedAt = &t
	}

	return &sub, nil
}

// HasOpen reports whether the worker has a non-terminal submission for
// the task.
func (s *SubmissionStore) HasOpen(ctx context.Context, taskID, workerID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM submissions
			WHERE task_id = $1
			  AND worker_id = $2
			  AND status = ANY($3)
		)
	`

	open := domain.OpenStatuses()
	statuses := make([]string, len(open))
	for i, st := range open {
		statuses[i] = string(st)
	}

	var exists bool
	err := s.db.GetContext(ctx, &exists, query, taskID, workerID, pq.Array(statuses))
	if err != nil {
		return false, fmt.Errorf("failed to check open submissions: %w", err)
	}

	return exists, nil
}

// MarkRevisionRequested moves a reviewable submission to
// REVISION_REQUESTED and records the resubmission deadline.
func (s *SubmissionStore) MarkRevisionRequested(ctx context.Context, submissionID, reason string, resubmitBy time.Time) error {
	query := `
		UPDATE submissions
		SET status = $1,
		    rejection_reason = $2,
		    resubmit_by = $3,
		    reviewed_at = NOW(),
		    updated_at = NOW()
		WHERE submission_id = $4
		  AND status = ANY($5)
	`

	return s.transition(ctx, domain.SubmissionStatusRevisionRequested, submissionID, query,
		domain.SubmissionStatusRevisionRequested, reason, resubmitBy, submissionID,
		reviewableArray())
}

// MarkResubmitted replaces the proof and bumps the revision counter.
// Legal only from REVISION_REQUESTED.
func (s *SubmissionStore) MarkResubmitted(ctx context.Context, submissionID, proof string) error {
	query := `
		UPDATE submissions
		SET status = $1,
		    proof = $2,
		    revision_count = revision_count + 1,
		    resubmit_by = NULL,
		    updated_at = NOW()
		WHERE submission_id = $3
		  AND status = $4
	`

	return s.transition(ctx, domain.SubmissionStatusRevisionResubmitted, submissionID, query,
		domain.SubmissionStatusRevisionResubmitted, proof, submissionID,
		domain.SubmissionStatusRevisionRequested)
}

// MarkApproved claims a reviewable submission as APPROVED and records
// the payment identifiers the settlement will confirm.
func (s *SubmissionStore) MarkApproved(ctx context.Context, submissionID, paymentID, txID string) error {
	query := `
		UPDATE submissions
		SET status = $1,
		    payment_id = $2,
		    tx_id = $3,
		    reviewed_at = NOW(),
		    updated_at = NOW()
		WHERE submission_id = $4
		  AND status = ANY($5)
	`

	return s.transition(ctx, domain.SubmissionStatusApproved, submissionID, query,
		domain.SubmissionStatusApproved, paymentID, txID, submissionID,
		reviewableArray())
}

// MarkRejected terminates a reviewable submission with a reason.
func (s *SubmissionStore) MarkRejected(ctx context.Context, submissionID, reason string) error {
	query := `
		UPDATE submissions
		SET status = $1,
		    rejection_reason = $2,
		    reviewed_at = NOW(),
		    updated_at = NOW()
		WHERE submission_id = $3
		  AND status = ANY($4)
	`

	return s.transition(ctx, domain.SubmissionStatusRejected, submissionID, query,
		domain.SubmissionStatusRejected, reason, submissionID,
		reviewableArray())
}

// MarkCompleted is the settlement claim: APPROVED -> COMPLETED.
// Returns claimed=false without error when another settlement already
// won the race, so a retried webhook stays a no-op.
func (s *SubmissionStore) MarkCompleted(ctx context.Context, submissionID string) (claimed bool, err error) {
	query := `
		UPDATE submissions
		SET status = $1,
		    updated_at = NOW()
		WHERE submission_id = $2
		  AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.SubmissionStatusCompleted, submissionID, domain.SubmissionStatusApproved)
	if err != nil {
		return false, fmt.Errorf("failed to complete submission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	current, err := s.currentStatus(ctx, submissionID)
	if err != nil {
		return false, err
	}
	if current == domain.SubmissionStatusCompleted {
		s.logger.Warn("Submission already completed, settlement claim lost race",
			slog.String("submission_id", submissionID),
		)
		return false, nil
	}

	return false, &domain.InvalidStateTransitionError{
		SubmissionID: submissionID,
		Current:      current,
		Attempted:    domain.SubmissionStatusCompleted,
	}
}

// MarkDisputed moves a rejected submission into DISPUTED. A submission
// that is already DISPUTED surfaces as ErrDisputeAlreadyPending.
func (s *SubmissionStore) MarkDisputed(ctx context.Context, submissionID string) error {
	query := `
		UPDATE submissions
		SET status = $1,
		    updated_at = NOW()
		WHERE submission_id = $2
		  AND status = $3
	`

	err := s.transition(ctx, domain.SubmissionStatusDisputed, submissionID, query,
		domain.SubmissionStatusDisputed, submissionID, domain.SubmissionStatusRejected)

	var transitionErr *domain.InvalidStateTransitionError
	if errors.As(err, &transitionErr) && transitionErr.Current == domain.SubmissionStatusDisputed {
		return domain.ErrDisputeAlreadyPending
	}
	return err
}

// RestoreRejected returns a disputed submission to REJECTED after an
// employer-favorable ruling.
func (s *SubmissionStore) RestoreRejected(ctx context.Context, submissionID string) error {
	query := `
		UPDATE submissions
		SET status = $1,
		    updated_at = NOW()
		WHERE submission_id = $2
		  AND status = $3
	`

	return s.transition(ctx, domain.SubmissionStatusRejected, submissionID, query,
		domain.SubmissionStatusRejected, submissionID, domain.SubmissionStatusDisputed)
}

// ApproveFromDispute moves a disputed submission to APPROVED so a
// worker-favorable ruling can settle it.
func (s *SubmissionStore) ApproveFromDispute(ctx context.Context, submissionID, paymentID, txID string) error {
	query := `
		UPDATE submissions
		SET status = $1,
		    payment_id = $2,
		    tx_id = $3,
		    updated_at = NOW()
		WHERE submission_id = $4
		  AND status = $5
	`

	return s.transition(ctx, domain.SubmissionStatusApproved, submissionID, query,
		domain.SubmissionStatusApproved, paymentID, txID, submissionID,
		domain.SubmissionStatusDisputed)
}

// transition runs a conditional status UPDATE and, when no row matched,
// converts the outcome into a typed invalid-transition or not-found
// error by reading the current status.
func (s *SubmissionStore) transition(ctx context.Context, attempted domain.SubmissionStatus, submissionID, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update submission status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	current, err := s.currentStatus(ctx, submissionID)
	if err != nil {
		return err
	}

	s.logger.Warn("Rejected illegal submission transition",
		slog.String("submission_id", submissionID),
		slog.String("current", string(current)),
		slog.String("attempted", string(attempted)),
	)

	return &domain.InvalidStateTransitionError{
		SubmissionID: submissionID,
		Current:      current,
		Attempted:    attempted,
	}
}

func (s *SubmissionStore) currentStatus(ctx context.Context, submissionID string) (domain.SubmissionStatus, error) {
	var current domain.SubmissionStatus
	err := s.db.GetContext(ctx, &current,
		`SELECT status FROM submissions WHERE submission_id = $1`, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrSubmissionNotFound
		}
		return "", fmt.Errorf("failed to get submission status: %w", err)
	}
	return current, nil
}

// reviewableArray is the SQL array of statuses an employer review
// action may act on.
func reviewableArray() interface{} {
	reviewable := domain.ReviewableStatuses()
	statuses := make([]string, len(reviewable))
	for i, st := range reviewable {
		statuses[i] = string(st)
	}
	return pq.Array(statuses)
}
