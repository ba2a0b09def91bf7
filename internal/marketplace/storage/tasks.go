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
)

// TaskStore handles all task table operations, including the slot
// accounting used by the allocator.
type TaskStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewTaskStore creates a new TaskStore instance.
func NewTaskStore(db *sqlx.DB, logger *slog.Logger) *TaskStore {
	return &TaskStore{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new task.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (
			task_id, employer_id, title, description, reward,
			slots_available, slots_remaining, status, deadline,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		task.TaskID,
		task.EmployerID,
		task.Title,
		task.Description,
		task.Reward,
		task.SlotsAvailable,
		task.SlotsRemaining,
		task.Status,
		task.Deadline,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by its ID.
func (s *TaskStore) GetByID(ctx context.Context, taskID string) (*domain.Task, error) {
	var task domain.Task
	query := `
		SELECT
			task_id, employer_id, title, description, reward,
			slots_available, slots_remaining, status, deadline,
			created_at, updated_at
		FROM tasks
		WHERE task_id = $1
	`

	err := s.db.GetContext(ctx, &task, query, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &task, nil
}

// DecrementSlot atomically takes one slot from the task. The whole
// read-modify-write is a single conditional UPDATE so two settlements
// racing for the last slot cannot both win. Returns the remaining slot
// count and whether this call actually decremented; slots_remaining
// already at zero is reported as taken=false, never as an error.
func (s *TaskStore) DecrementSlot(ctx context.Context, taskID string) (remaining int, taken bool, err error) {
	query := `
		UPDATE tasks
		SET slots_remaining = slots_remaining - 1,
		    status = CASE
		    	WHEN slots_remaining - 1 = 0 THEN $1
		    	ELSE status
		    END,
		    updated_at = NOW()
		WHERE task_id = $2
		  AND slots_remaining > 0
		RETURNING slots_remaining
	`

	err = s.db.QueryRowContext(ctx, query, domain.TaskStatusFull, taskID).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the task does not exist or it has no slots left.
			// Distinguish so callers can log accurately.
			var exists bool
			checkErr := s.db.GetContext(ctx, &exists,
				`SELECT EXISTS (SELECT 1 FROM tasks WHERE task_id = $1)`, taskID)
			if checkErr != nil {
				return 0, false, fmt.Errorf("failed to check task existence: %w", checkErr)
			}
			if !exists {
				return 0, false, domain.ErrTaskNotFound
			}
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to decrement slot: %w", err)
	}

	return remaining, true, nil
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	EmployerID string
	Status     string
	PageSize   int
	Cursor     *TaskCursor
}

// TaskCursor is a keyset pagination cursor over (created_at, task_id).
type TaskCursor struct {
	CreatedAt time.Time
	TaskID    string
}

// List returns tasks matching the filter, newest first. Fetches one row
// beyond the page size so the caller can tell whether more exist.
func (s *TaskStore) List(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	query := `
		SELECT
			task_id, employer_id, title, description, reward,
			slots_available, slots_remaining, status, deadline,
			created_at, updated_at
		FROM tasks
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.EmployerID != "" {
		query += fmt.Sprintf(" AND employer_id = $%d", argIdx)
		args = append(args, filter.EmployerID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, task_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.TaskID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, task_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var tasks []domain.Task
	err := s.db.SelectContext(ctx, &tasks, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}
