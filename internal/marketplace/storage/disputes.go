package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DisputeStore handles dispute table operations. A partial unique index
// on submission_id over PENDING disputes backs the one-open-dispute
// rule at the storage level.
type DisputeStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewDisputeStore creates a new DisputeStore instance.
func NewDisputeStore(db *sqlx.DB, logger *slog.Logger) *DisputeStore {
	return &DisputeStore{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new pending dispute.
func (s *DisputeStore) Create(ctx context.Context, d *domain.Dispute) error {
	query := `
		INSERT INTO disputes (
			dispute_id, submission_id, task_id, worker_id, employer_id,
			reason, original_rejection_reason, amount_in_dispute,
			status, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		d.DisputeID,
		d.SubmissionID,
		d.TaskID,
		d.WorkerID,
		d.EmployerID,
		d.Reason,
		d.OriginalRejectionReason,
		d.AmountInDispute,
		d.Status,
		d.CreatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrDisputeAlreadyPending
		}
		return fmt.Errorf("failed to create dispute: %w", err)
	}

	return nil
}

// GetByID retrieves a dispute by its ID.
func (s *DisputeStore) GetByID(ctx context.Context, disputeID string) (*domain.Dispute, error) {
	query := `
		SELECT
			dispute_id, submission_id, task_id, worker_id, employer_id,
			reason, original_rejection_reason, amount_in_dispute,
			status, COALESCE(ruling, '') AS ruling,
			COALESCE(admin_notes, '') AS admin_notes,
			created_at, resolved_at
		FROM disputes
		WHERE dispute_id = $1
	`

	var d domain.Dispute
	err := s.db.GetContext(ctx, &d, query, disputeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}

	return &d, nil
}

// Resolve claims a pending dispute with the ruling. The conditional
// UPDATE makes a second resolve attempt lose cleanly with
// ErrDisputeAlreadyResolved instead of overwriting the first ruling.
func (s *DisputeStore) Resolve(ctx context.Context, disputeID string, ruling domain.DisputeRuling, adminNotes string) error {
	query := `
		UPDATE disputes
		SET status = $1,
		    ruling = $2,
		    admin_notes = $3,
		    resolved_at = NOW()
		WHERE dispute_id = $4
		  AND status = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.DisputeStatusResolved, ruling, adminNotes, disputeID, domain.DisputeStatusPending)
	if err != nil {
		return fmt.Errorf("failed to resolve dispute: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM disputes WHERE dispute_id = $1)`, disputeID); err != nil {
		return fmt.Errorf("failed to check dispute existence: %w", err)
	}
	if !exists {
		return domain.ErrDisputeNotFound
	}

	s.logger.Warn("Dispute already resolved, ruling attempt rejected",
		slog.String("dispute_id", disputeID),
		slog.String("attempted_ruling", string(ruling)),
	)
	return domain.ErrDisputeAlreadyResolved
}
