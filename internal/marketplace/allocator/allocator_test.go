package allocator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSlots is an in-memory TaskSlots with the same compare-and-set
// semantics the SQL implementation provides.
type fakeSlots struct {
	mu        sync.Mutex
	remaining map[string]int
	status    map[string]domain.TaskStatus
	err       error
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{
		remaining: make(map[string]int),
		status:    make(map[string]domain.TaskStatus),
	}
}

func (f *fakeSlots) DecrementSlot(_ context.Context, taskID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return 0, false, f.err
	}

	rem, ok := f.remaining[taskID]
	if !ok {
		return 0, false, domain.ErrTaskNotFound
	}
	if rem == 0 {
		return 0, false, nil
	}

	rem--
	f.remaining[taskID] = rem
	if rem == 0 {
		f.status[taskID] = domain.TaskStatusFull
	}
	return rem, true, nil
}

func TestDecrement(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	t.Run("consumes one slot", func(t *testing.T) {
		slots := newFakeSlots()
		slots.remaining["task-1"] = 3

		a := New(slots, logger)
		require.NoError(t, a.Decrement(ctx, "task-1"))

		assert.Equal(t, 2, slots.remaining["task-1"])
		assert.NotEqual(t, domain.TaskStatusFull, slots.status["task-1"])
	})

	t.Run("flips task to full at zero", func(t *testing.T) {
		slots := newFakeSlots()
		slots.remaining["task-1"] = 1

		a := New(slots, logger)
		require.NoError(t, a.Decrement(ctx, "task-1"))

		assert.Equal(t, 0, slots.remaining["task-1"])
		assert.Equal(t, domain.TaskStatusFull, slots.status["task-1"])
	})

	t.Run("exhausted task is a no-op, not an error", func(t *testing.T) {
		slots := newFakeSlots()
		slots.remaining["task-1"] = 0

		a := New(slots, logger)
		require.NoError(t, a.Decrement(ctx, "task-1"))

		// Never negative.
		assert.Equal(t, 0, slots.remaining["task-1"])
	})

	t.Run("missing task is an error", func(t *testing.T) {
		a := New(newFakeSlots(), logger)

		err := a.Decrement(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("store errors propagate", func(t *testing.T) {
		slots := newFakeSlots()
		slots.err = errors.New("connection reset")

		a := New(slots, logger)
		assert.Error(t, a.Decrement(ctx, "task-1"))
	})
}

func TestDecrementLastSlotRace(t *testing.T) {
	// Many concurrent settlements racing for a single remaining slot
	// must consume exactly one.
	slots := newFakeSlots()
	slots.remaining["task-1"] = 1

	a := New(slots, slog.New(slog.DiscardHandler))

	const racers = 32
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = a.Decrement(context.Background(), "task-1")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, slots.remaining["task-1"])
	assert.Equal(t, domain.TaskStatusFull, slots.status["task-1"])
}
