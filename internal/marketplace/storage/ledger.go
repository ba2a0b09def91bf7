package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/jmoiron/sqlx"
)

// LedgerStore appends payout records. The table is append-only; nothing
// in the core updates or deletes an entry once written.
type LedgerStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewLedgerStore creates a new LedgerStore instance.
func NewLedgerStore(db *sqlx.DB, logger *slog.Logger) *LedgerStore {
	return &LedgerStore{
		db:     db,
		logger: logger,
	}
}

// Append inserts a ledger entry. SenderID is stored as NULL when empty
// (system-funded payouts).
func (s *LedgerStore) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (
			entry_id, sender_id, receiver_id, task_id, submission_id,
			gross, platform_fee, tx_id, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)
	`

	sender := sql.NullString{String: entry.SenderID, Valid: entry.SenderID != ""}
	txID := sql.NullString{String: entry.TxID, Valid: entry.TxID != ""}

	_, err := s.db.ExecContext(
		ctx,
		query,
		entry.EntryID,
		sender,
		entry.ReceiverID,
		entry.TaskID,
		entry.SubmissionID,
		entry.Gross,
		entry.PlatformFee,
		txID,
		entry.Status,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	s.logger.Info("Ledger entry appended",
		slog.String("entry_id", entry.EntryID),
		slog.String("submission_id", entry.SubmissionID),
		slog.String("receiver_id", entry.ReceiverID),
		slog.String("gross", entry.Gross.String()),
		slog.String("platform_fee", entry.PlatformFee.String()),
	)

	return nil
}

// CountBySubmission returns how many ledger entries reference the
// submission. Used by tests and operator tooling to verify the
// one-payout-per-submission invariant.
func (s *LedgerStore) CountBySubmission(ctx context.Context, submissionID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM ledger_entries WHERE submission_id = $1`, submissionID)
	if err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// ListByReceiver returns a worker's payout history, newest first.
func (s *LedgerStore) ListByReceiver(ctx context.Context, receiverID string, limit int) ([]domain.LedgerEntry, error) {
	query := `
		SELECT
			entry_id, COALESCE(sender_id, '') AS sender_id, receiver_id,
			task_id, submission_id, gross, platform_fee,
			COALESCE(tx_id, '') AS tx_id, status, created_at
		FROM ledger_entries
		WHERE receiver_id = $1
		ORDER BY created_at DESC, entry_id DESC
		LIMIT $2
	`

	var entries []domain.LedgerEntry
	err := s.db.SelectContext(ctx, &entries, query, receiverID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return entries, nil
}

// RecoveryCursor is a keyset pagination cursor over (created_at, record_id).
type RecoveryCursor struct {
	CreatedAt time.Time
	RecordID  string
}
