package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/jmoiron/sqlx"
)

// RecoveryStore persists the durable notes written when an external
// payment succeeded but a local update failed. Records are only ever
// appended here; reconciliation is a manual operator process.
type RecoveryStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewRecoveryStore creates a new RecoveryStore instance.
func NewRecoveryStore(db *sqlx.DB, logger *slog.Logger) *RecoveryStore {
	return &RecoveryStore{
		db:     db,
		logger: logger,
	}
}

// Append inserts a recovery record.
func (s *RecoveryStore) Append(ctx context.Context, rec *domain.RecoveryRecord) error {
	query := `
		INSERT INTO recovery_records (
			record_id, payment_id, tx_id, submission_id, worker_id,
			task_id, amount, platform_fee, failure, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		rec.RecordID,
		rec.PaymentID,
		rec.TxID,
		rec.SubmissionID,
		rec.WorkerID,
		rec.TaskID,
		rec.Amount,
		rec.PlatformFee,
		rec.Failure,
		rec.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append recovery record: %w", err)
	}

	s.logger.Warn("Recovery record written - manual reconciliation required",
		slog.String("record_id", rec.RecordID),
		slog.String("payment_id", rec.PaymentID),
		slog.String("tx_id", rec.TxID),
		slog.String("submission_id", rec.SubmissionID),
		slog.String("amount", rec.Amount.String()),
		slog.String("failure", rec.Failure),
	)

	return nil
}

// List returns recovery records for the operator view, newest first,
// keyset-paginated. Fetches one extra row so the caller can tell
// whether more exist.
func (s *RecoveryStore) List(ctx context.Context, pageSize int, cursor *RecoveryCursor) ([]domain.RecoveryRecord, error) {
	query := `
		SELECT
			record_id, payment_id, tx_id, submission_id, worker_id,
			task_id, amount, platform_fee, failure, created_at
		FROM recovery_records
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if cursor != nil {
		query += fmt.Sprintf(" AND (created_at, record_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, cursor.CreatedAt, cursor.RecordID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, record_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, pageSize+1)

	var records []domain.RecoveryRecord
	err := s.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recovery records: %w", err)
	}

	return records, nil
}
