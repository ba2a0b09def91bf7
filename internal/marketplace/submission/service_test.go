package submission

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/bountyloop/marketplace-be/internal/marketplace/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore mirrors the SQL store's semantics: every transition checks
// its precondition against the transition table atomically.
type memStore struct {
	mu   sync.Mutex
	subs map[string]*domain.Submission
}

func newMemStore() *memStore {
	return &memStore{subs: make(map[string]*domain.Submission)}
}

func (m *memStore) Create(_ context.Context, sub *domain.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.subs {
		if existing.TaskID == sub.TaskID && existing.WorkerID == sub.WorkerID {
			for _, open := range domain.OpenStatuses() {
				if existing.Status == open {
					return domain.ErrDuplicateSubmission
				}
			}
		}
	}
	copied := *sub
	m.subs[sub.SubmissionID] = &copied
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	copied := *sub
	return &copied, nil
}

func (m *memStore) HasOpen(_ context.Context, taskID, workerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs {
		if sub.TaskID != taskID || sub.WorkerID != workerID {
			continue
		}
		for _, open := range domain.OpenStatuses() {
			if sub.Status == open {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *memStore) transition(id string, to domain.SubmissionStatus, mutate func(*domain.Submission)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	if !domain.CanTransition(sub.Status, to) {
		return &domain.InvalidStateTransitionError{
			SubmissionID: id,
			Current:      sub.Status,
			Attempted:    to,
		}
	}
	sub.Status = to
	if mutate != nil {
		mutate(sub)
	}
	return nil
}

func (m *memStore) MarkRevisionRequested(_ context.Context, id, reason string, resubmitBy time.Time) error {
	return m.transition(id, domain.SubmissionStatusRevisionRequested, func(sub *domain.Submission) {
		sub.RejectionReason = reason
		sub.ResubmitBy = &resubmitBy
	})
}

func (m *memStore) MarkResubmitted(_ context.Context, id, proof string) error {
	return m.transition(id, domain.SubmissionStatusRevisionResubmitted, func(sub *domain.Submission) {
		sub.Proof = proof
		sub.RevisionCount++
		sub.ResubmitBy = nil
	})
}

func (m *memStore) MarkApproved(_ context.Context, id, paymentID, txID string) error {
	return m.transition(id, domain.SubmissionStatusApproved, func(sub *domain.Submission) {
		sub.PaymentID = paymentID
		sub.TxID = txID
	})
}

func (m *memStore) MarkRejected(_ context.Context, id, reason string) error {
	return m.transition(id, domain.SubmissionStatusRejected, func(sub *domain.Submission) {
		sub.RejectionReason = reason
	})
}

type memTasks struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
}

func (m *memTasks) GetByID(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

type memQueue struct {
	mu   sync.Mutex
	jobs []settlement.Job
}

func (m *memQueue) EnqueueSettlement(_ context.Context, job settlement.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

func newFixture() (*Service, *memStore, *memTasks, *memQueue) {
	store := newMemStore()
	tasks := &memTasks{tasks: map[string]*domain.Task{
		"task-1": {
			TaskID:         "task-1",
			EmployerID:     "employer-1",
			Reward:         10 * domain.MicroPerUnit,
			SlotsAvailable: 2,
			SlotsRemaining: 2,
			Status:         domain.TaskStatusAvailable,
			Deadline:       time.Now().Add(48 * time.Hour),
		},
	}}
	queue := &memQueue{}

	svc := NewService(&Config{
		Tasks:       tasks,
		Submissions: store,
		Queue:       queue,
		RevisionDue: 7 * 24 * time.Hour,
		Logger:      slog.New(slog.DiscardHandler),
	})
	return svc, store, tasks, queue
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("freezes the task reward", func(t *testing.T) {
		svc, _, tasks, _ := newFixture()

		sub, err := svc.Submit(ctx, "task-1", "worker-1", "proof of work")
		require.NoError(t, err)

		assert.Equal(t, domain.SubmissionStatusSubmitted, sub.Status)
		assert.Equal(t, domain.Amount(10*domain.MicroPerUnit), sub.AgreedReward)

		// Editing the task afterwards must not touch the frozen reward.
		tasks.tasks["task-1"].Reward = 99 * domain.MicroPerUnit
		again, err := svc.Get(ctx, sub.SubmissionID)
		require.NoError(t, err)
		assert.Equal(t, domain.Amount(10*domain.MicroPerUnit), again.AgreedReward)
	})

	t.Run("fails when no slots remain", func(t *testing.T) {
		svc, store, tasks, _ := newFixture()
		tasks.tasks["task-1"].SlotsRemaining = 0
		tasks.tasks["task-1"].Status = domain.TaskStatusFull

		_, err := svc.Submit(ctx, "task-1", "worker-1", "proof")
		assert.ErrorIs(t, err, domain.ErrNoSlotsAvailable)

		// Nothing was created.
		assert.Empty(t, store.subs)
		assert.Equal(t, 0, tasks.tasks["task-1"].SlotsRemaining)
	})

	t.Run("rejects a duplicate open submission", func(t *testing.T) {
		svc, _, _, _ := newFixture()

		_, err := svc.Submit(ctx, "task-1", "worker-1", "first attempt")
		require.NoError(t, err)

		_, err = svc.Submit(ctx, "task-1", "worker-1", "second attempt")
		assert.ErrorIs(t, err, domain.ErrDuplicateSubmission)
	})

	t.Run("allows a new attempt after rejection", func(t *testing.T) {
		svc, _, _, _ := newFixture()

		sub, err := svc.Submit(ctx, "task-1", "worker-1", "first attempt")
		require.NoError(t, err)
		require.NoError(t, svc.Reject(ctx, sub.SubmissionID, "not good enough"))

		_, err = svc.Submit(ctx, "task-1", "worker-1", "better attempt")
		assert.NoError(t, err)
	})

	t.Run("validates input", func(t *testing.T) {
		svc, _, tasks, _ := newFixture()

		_, err := svc.Submit(ctx, "task-1", "worker-1", "")
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = svc.Submit(ctx, "task-1", "", "proof")
		assert.ErrorIs(t, err, domain.ErrValidation)

		tasks.tasks["task-1"].Deadline = time.Now().Add(-time.Hour)
		_, err = svc.Submit(ctx, "task-1", "worker-1", "proof")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown task", func(t *testing.T) {
		svc, _, _, _ := newFixture()

		_, err := svc.Submit(ctx, "nope", "worker-1", "proof")
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})
}

func TestRevisionCycle(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newFixture()

	sub, err := svc.Submit(ctx, "task-1", "worker-1", "draft one")
	require.NoError(t, err)

	resubmitBy, err := svc.RequestRevision(ctx, sub.SubmissionID, "please add screenshots")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), resubmitBy, time.Minute)

	// While revision is pending, neither approval nor rejection is legal.
	err = svc.Approve(ctx, sub.SubmissionID, "pay-1", "tx-1")
	var transitionErr *domain.InvalidStateTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, domain.SubmissionStatusRevisionRequested, transitionErr.Current)

	err = svc.Reject(ctx, sub.SubmissionID, "changed my mind")
	assert.ErrorAs(t, err, &transitionErr)

	// And a resubmission cannot happen twice in a row.
	require.NoError(t, svc.Resubmit(ctx, sub.SubmissionID, "draft two"))
	err = svc.Resubmit(ctx, sub.SubmissionID, "draft three")
	assert.ErrorAs(t, err, &transitionErr)

	got := store.subs[sub.SubmissionID]
	assert.Equal(t, domain.SubmissionStatusRevisionResubmitted, got.Status)
	assert.Equal(t, 1, got.RevisionCount)
	assert.Equal(t, "draft two", got.Proof)
	assert.Nil(t, got.ResubmitBy)

	// The resubmitted attempt is reviewable again.
	assert.NoError(t, svc.Reject(ctx, sub.SubmissionID, "still missing screenshots"))
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("claims approval and enqueues settlement", func(t *testing.T) {
		svc, store, _, queue := newFixture()
		sub, err := svc.Submit(ctx, "task-1", "worker-1", "proof")
		require.NoError(t, err)

		require.NoError(t, svc.Approve(ctx, sub.SubmissionID, "pay-1", "tx-1"))

		assert.Equal(t, domain.SubmissionStatusApproved, store.subs[sub.SubmissionID].Status)
		assert.Equal(t, "pay-1", store.subs[sub.SubmissionID].PaymentID)
		require.Len(t, queue.jobs, 1)
		assert.Equal(t, settlement.Job{
			SubmissionID: sub.SubmissionID,
			PaymentID:    "pay-1",
			TxID:         "tx-1",
		}, queue.jobs[0])
	})

	t.Run("retried approval re-enqueues instead of failing", func(t *testing.T) {
		svc, _, _, queue := newFixture()
		sub, err := svc.Submit(ctx, "task-1", "worker-1", "proof")
		require.NoError(t, err)

		require.NoError(t, svc.Approve(ctx, sub.SubmissionID, "pay-1", "tx-1"))
		require.NoError(t, svc.Approve(ctx, sub.SubmissionID, "pay-1", "tx-1"))

		// Two jobs, but the coordinator's idempotency makes the second
		// one a no-op downstream.
		assert.Len(t, queue.jobs, 2)
	})

	t.Run("approval of a settled submission is a no-op", func(t *testing.T) {
		svc, store, _, queue := newFixture()
		sub, err := svc.Submit(ctx, "task-1", "worker-1", "proof")
		require.NoError(t, err)
		store.subs[sub.SubmissionID].Status = domain.SubmissionStatusCompleted

		require.NoError(t, svc.Approve(ctx, sub.SubmissionID, "pay-1", "tx-1"))
		assert.Empty(t, queue.jobs)
	})

	t.Run("requires a payment id", func(t *testing.T) {
		svc, _, _, _ := newFixture()
		sub, err := svc.Submit(ctx, "task-1", "worker-1", "proof")
		require.NoError(t, err)

		err = svc.Approve(ctx, sub.SubmissionID, "", "tx-1")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	svc, store, _, _ := newFixture()

	sub, err := svc.Submit(ctx, "task-1", "worker-1", "proof")
	require.NoError(t, err)

	err = svc.Reject(ctx, sub.SubmissionID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, svc.Reject(ctx, sub.SubmissionID, "off topic"))
	assert.Equal(t, domain.SubmissionStatusRejected, store.subs[sub.SubmissionID].Status)
	assert.Equal(t, "off topic", store.subs[sub.SubmissionID].RejectionReason)
}
