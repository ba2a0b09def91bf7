// Package allocator owns task capacity accounting: one slot is
// consumed per successfully paid submission, the count never goes
// negative, and the task flips to full at zero.
package allocator

import (
	"context"
	"log/slog"
)

// TaskSlots is the storage surface the allocator needs. The
// implementation must perform the decrement as a single atomic
// read-modify-write; the allocator relies on taken=false to detect a
// lost race or an exhausted task.
type TaskSlots interface {
	DecrementSlot(ctx context.Context, taskID string) (remaining int, taken bool, err error)
}

// Allocator decrements task slots exactly once per settled submission.
type Allocator struct {
	slots  TaskSlots
	logger *slog.Logger
}

// New creates a new Allocator instance.
func New(slots TaskSlots, logger *slog.Logger) *Allocator {
	return &Allocator{
		slots:  slots,
		logger: logger,
	}
}

// Decrement takes one slot from the task. A task already at zero is a
// logged no-op, not an error: compounding a double-decrement race into
// negative capacity would be strictly worse than skipping the count.
func (a *Allocator) Decrement(ctx context.Context, taskID string) error {
	remaining, taken, err := a.slots.DecrementSlot(ctx, taskID)
	if err != nil {
		return err
	}

	if !taken {
		a.logger.Warn("Slot decrement skipped - no slots remaining",
			slog.String("task_id", taskID),
		)
		return nil
	}

	if remaining == 0 {
		a.logger.Info("Task is now full",
			slog.String("task_id", taskID),
		)
	} else {
		a.logger.Info("Slot consumed",
			slog.String("task_id", taskID),
			slog.Int("slots_remaining", remaining),
		)
	}

	return nil
}
