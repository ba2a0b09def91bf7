package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/jmoiron/sqlx"
)

// EarningsStore maintains cumulative worker earnings and the
// completed-task counter. Only the settlement coordinator writes here.
type EarningsStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewEarningsStore creates a new EarningsStore instance.
func NewEarningsStore(db *sqlx.DB, logger *slog.Logger) *EarningsStore {
	return &EarningsStore{
		db:     db,
		logger: logger,
	}
}

// Increment adds a payout to the worker's cumulative earnings and bumps
// the completed-task counter. Upserts so a first-ever payout does not
// depend on a pre-provisioned earnings row.
func (s *EarningsStore) Increment(ctx context.Context, workerID string, payout domain.Amount) error {
	query := `
		INSERT INTO worker_earnings (worker_id, total_earned, tasks_completed, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET
			total_earned = worker_earnings.total_earned + EXCLUDED.total_earned,
			tasks_completed = worker_earnings.tasks_completed + 1,
			updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query, workerID, payout)
	if err != nil {
		return fmt.Errorf("failed to increment worker earnings: %w", err)
	}

	s.logger.Info("Worker earnings incremented",
		slog.String("worker_id", workerID),
		slog.String("payout", payout.String()),
	)

	return nil
}

// Totals returns the worker's cumulative earnings and completed count.
func (s *EarningsStore) Totals(ctx context.Context, workerID string) (domain.Amount, int, error) {
	query := `
		SELECT total_earned, tasks_completed
		FROM worker_earnings
		WHERE worker_id = $1
	`

	var row struct {
		TotalEarned    domain.Amount `db:"total_earned"`
		TasksCompleted int           `db:"tasks_completed"`
	}

	err := s.db.GetContext(ctx, &row, query, workerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A worker with no payouts simply has zero totals.
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("failed to get worker earnings: %w", err)
	}

	return row.TotalEarned, row.TasksCompleted, nil
}
