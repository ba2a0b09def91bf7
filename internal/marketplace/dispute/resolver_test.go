package dispute

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/bountyloop/marketplace-be/internal/marketplace/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmissions struct {
	subs map[string]*domain.Submission
}

func (f *fakeSubmissions) GetByID(_ context.Context, id string) (*domain.Submission, error) {
	sub, ok := f.subs[id]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeSubmissions) transition(id string, to domain.SubmissionStatus) error {
	sub, ok := f.subs[id]
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	if !domain.CanTransition(sub.Status, to) {
		if to == domain.SubmissionStatusDisputed && sub.Status == domain.SubmissionStatusDisputed {
			return domain.ErrDisputeAlreadyPending
		}
		return &domain.InvalidStateTransitionError{
			SubmissionID: id,
			Current:      sub.Status,
			Attempted:    to,
		}
	}
	sub.Status = to
	return nil
}

func (f *fakeSubmissions) MarkDisputed(_ context.Context, id string) error {
	return f.transition(id, domain.SubmissionStatusDisputed)
}

func (f *fakeSubmissions) RestoreRejected(_ context.Context, id string) error {
	return f.transition(id, domain.SubmissionStatusRejected)
}

func (f *fakeSubmissions) ApproveFromDispute(_ context.Context, id, paymentID, txID string) error {
	if err := f.transition(id, domain.SubmissionStatusApproved); err != nil {
		return err
	}
	f.subs[id].PaymentID = paymentID
	f.subs[id].TxID = txID
	return nil
}

func (f *fakeSubmissions) MarkCompleted(_ context.Context, id string) (bool, error) {
	sub, ok := f.subs[id]
	if !ok {
		return false, domain.ErrSubmissionNotFound
	}
	if sub.Status == domain.SubmissionStatusCompleted {
		return false, nil
	}
	if err := f.transition(id, domain.SubmissionStatusCompleted); err != nil {
		return false, err
	}
	return true, nil
}

type fakeTasks struct {
	tasks map[string]*domain.Task
	err   error
}

func (f *fakeTasks) GetByID(_ context.Context, id string) (*domain.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	task, ok := f.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func (f *fakeTasks) DecrementSlot(_ context.Context, id string) (int, bool, error) {
	task, ok := f.tasks[id]
	if !ok {
		return 0, false, domain.ErrTaskNotFound
	}
	if task.SlotsRemaining <= 0 {
		return 0, false, nil
	}
	task.SlotsRemaining--
	if task.SlotsRemaining == 0 {
		task.Status = domain.TaskStatusFull
	}
	return task.SlotsRemaining, true, nil
}

type fakeDisputes struct {
	disputes  map[string]*domain.Dispute
	createErr error
}

func (f *fakeDisputes) Create(_ context.Context, d *domain.Dispute) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *d
	f.disputes[d.DisputeID] = &copied
	return nil
}

func (f *fakeDisputes) GetByID(_ context.Context, id string) (*domain.Dispute, error) {
	d, ok := f.disputes[id]
	if !ok {
		return nil, domain.ErrDisputeNotFound
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDisputes) Resolve(_ context.Context, id string, ruling domain.DisputeRuling, notes string) error {
	d, ok := f.disputes[id]
	if !ok {
		return domain.ErrDisputeNotFound
	}
	if d.Status != domain.DisputeStatusPending {
		return domain.ErrDisputeAlreadyResolved
	}
	d.Status = domain.DisputeStatusResolved
	d.Ruling = ruling
	d.AdminNotes = notes
	return nil
}

type fakeSettler struct {
	requests []settlement.Request
	err      error
}

func (f *fakeSettler) Settle(_ context.Context, req settlement.Request) (*settlement.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	payout, fee := domain.SplitReward(req.AmountOverride, 1500)
	return &settlement.Result{
		SubmissionID: req.SubmissionID,
		PaymentID:    req.PaymentID,
		TxID:         req.TxID,
		WorkerPayout: payout,
		PlatformFee:  fee,
	}, nil
}

const goodReason = "the rejection ignored the delivered screenshots"

func newFixture() (*Resolver, *fakeSubmissions, *fakeDisputes, *fakeSettler) {
	subs := &fakeSubmissions{subs: map[string]*domain.Submission{
		"sub-1": {
			SubmissionID:    "sub-1",
			TaskID:          "task-1",
			WorkerID:        "worker-1",
			Status:          domain.SubmissionStatusRejected,
			RejectionReason: "work is off topic",
			AgreedReward:    10 * domain.MicroPerUnit,
		},
	}}
	tasks := &fakeTasks{tasks: map[string]*domain.Task{
		"task-1": {TaskID: "task-1", EmployerID: "employer-1"},
	}}
	disputes := &fakeDisputes{disputes: make(map[string]*domain.Dispute)}
	settler := &fakeSettler{}

	r := NewResolver(&Config{
		Submissions: subs,
		Tasks:       tasks,
		Disputes:    disputes,
		Settler:     settler,
		Logger:      slog.New(slog.DiscardHandler),
	})
	return r, subs, disputes, settler
}

func TestFileDispute(t *testing.T) {
	ctx := context.Background()

	t.Run("freezes amount and captures both sides", func(t *testing.T) {
		r, subs, disputes, _ := newFixture()

		d, err := r.FileDispute(ctx, "sub-1", goodReason)
		require.NoError(t, err)

		assert.Equal(t, domain.DisputeStatusPending, d.Status)
		assert.Equal(t, goodReason, d.Reason)
		assert.Equal(t, "work is off topic", d.OriginalRejectionReason)
		assert.Equal(t, domain.Amount(10*domain.MicroPerUnit), d.AmountInDispute)
		assert.Equal(t, "employer-1", d.EmployerID)
		assert.Equal(t, domain.SubmissionStatusDisputed, subs.subs["sub-1"].Status)
		assert.Len(t, disputes.disputes, 1)
	})

	t.Run("reason too short", func(t *testing.T) {
		r, subs, _, _ := newFixture()

		_, err := r.FileDispute(ctx, "sub-1", "unfair")
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, domain.SubmissionStatusRejected, subs.subs["sub-1"].Status)
	})

	t.Run("only one pending dispute per submission", func(t *testing.T) {
		r, _, _, _ := newFixture()

		_, err := r.FileDispute(ctx, "sub-1", goodReason)
		require.NoError(t, err)

		_, err = r.FileDispute(ctx, "sub-1", goodReason)
		assert.ErrorIs(t, err, domain.ErrDisputeAlreadyPending)
	})

	t.Run("only rejected submissions can be disputed", func(t *testing.T) {
		r, subs, _, _ := newFixture()
		subs.subs["sub-1"].Status = domain.SubmissionStatusSubmitted

		_, err := r.FileDispute(ctx, "sub-1", goodReason)
		var transitionErr *domain.InvalidStateTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, domain.SubmissionStatusSubmitted, transitionErr.Current)
	})

	t.Run("rolls back the claim when the record cannot be written", func(t *testing.T) {
		r, subs, disputes, _ := newFixture()
		disputes.createErr = errors.New("connection reset")

		_, err := r.FileDispute(ctx, "sub-1", goodReason)
		require.Error(t, err)
		assert.Equal(t, domain.SubmissionStatusRejected, subs.subs["sub-1"].Status)

		// And the worker can file again once the store recovers.
		disputes.createErr = nil
		_, err = r.FileDispute(ctx, "sub-1", goodReason)
		assert.NoError(t, err)
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	file := func(t *testing.T, r *Resolver) *domain.Dispute {
		t.Helper()
		d, err := r.FileDispute(ctx, "sub-1", goodReason)
		require.NoError(t, err)
		return d
	}

	t.Run("in favor of the worker pays out from platform funds", func(t *testing.T) {
		r, subs, _, settler := newFixture()
		d := file(t, r)

		res, err := r.Resolve(ctx, d.DisputeID, domain.RulingInFavorOfWorker, "evidence supports the worker", "pay-9", "tx-9")
		require.NoError(t, err)

		require.Len(t, settler.requests, 1)
		assert.Equal(t, settlement.Request{
			SubmissionID:   "sub-1",
			PaymentID:      "pay-9",
			TxID:           "tx-9",
			AmountOverride: 10 * domain.MicroPerUnit,
			SystemFunded:   true,
		}, settler.requests[0])

		assert.Equal(t, domain.DisputeStatusResolved, res.Dispute.Status)
		assert.Equal(t, domain.RulingInFavorOfWorker, res.Dispute.Ruling)
		require.NotNil(t, res.Settlement)
		assert.Equal(t, domain.Amount(8_500_000), res.Settlement.WorkerPayout)
		assert.Equal(t, domain.Amount(1_500_000), res.Settlement.PlatformFee)
		assert.Equal(t, "pay-9", subs.subs["sub-1"].PaymentID)
	})

	t.Run("in favor of the employer restores the rejection", func(t *testing.T) {
		r, subs, _, settler := newFixture()
		d := file(t, r)

		res, err := r.Resolve(ctx, d.DisputeID, domain.RulingInFavorOfEmployer, "rejection was justified", "", "")
		require.NoError(t, err)

		assert.Equal(t, domain.SubmissionStatusRejected, subs.subs["sub-1"].Status)
		assert.Nil(t, res.Settlement)
		assert.Empty(t, settler.requests)
	})

	t.Run("a ruling can only be applied once", func(t *testing.T) {
		r, _, _, _ := newFixture()
		d := file(t, r)

		_, err := r.Resolve(ctx, d.DisputeID, domain.RulingInFavorOfEmployer, "rejection was justified", "", "")
		require.NoError(t, err)

		_, err = r.Resolve(ctx, d.DisputeID, domain.RulingInFavorOfWorker, "changed my mind", "pay-9", "tx-9")
		assert.ErrorIs(t, err, domain.ErrDisputeAlreadyResolved)
	})

	t.Run("failed payout keeps the ruling and leaves the submission approved", func(t *testing.T) {
		r, subs, disputes, settler := newFixture()
		d := file(t, r)
		settler.err = domain.NewExternalPaymentError("complete", errors.New("gateway timeout"))

		res, err := r.Resolve(ctx, d.DisputeID, domain.RulingInFavorOfWorker, "evidence supports the worker", "pay-9", "tx-9")
		require.Error(t, err)

		var payErr *domain.ExternalPaymentError
		assert.ErrorAs(t, err, &payErr)

		// The ruling stands and the retry has everything it needs.
		assert.Equal(t, domain.DisputeStatusResolved, disputes.disputes[d.DisputeID].Status)
		assert.Equal(t, domain.SubmissionStatusApproved, subs.subs["sub-1"].Status)
		assert.Equal(t, "pay-9", subs.subs["sub-1"].PaymentID)
		require.NotNil(t, res)
		assert.Nil(t, res.Settlement)
	})

	t.Run("validates ruling and notes", func(t *testing.T) {
		r, _, _, _ := newFixture()
		d := file(t, r)

		_, err := r.Resolve(ctx, d.DisputeID, "SPLIT_THE_DIFFERENCE", "notes", "pay-9", "tx-9")
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = r.Resolve(ctx, d.DisputeID, domain.RulingInFavorOfWorker, "  ", "pay-9", "tx-9")
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = r.Resolve(ctx, d.DisputeID, domain.RulingInFavorOfWorker, "notes", "", "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown dispute", func(t *testing.T) {
		r, _, _, _ := newFixture()

		_, err := r.Resolve(ctx, "nope", domain.RulingInFavorOfWorker, "notes", "pay-9", "tx-9")
		assert.ErrorIs(t, err, domain.ErrDisputeNotFound)
	})
}

// Guards the time fields the fakes above don't care about.
func TestFileDisputeTimestamps(t *testing.T) {
	r, _, disputes, _ := newFixture()

	d, err := r.FileDispute(context.Background(), "sub-1", goodReason)
	require.NoError(t, err)

	stored := disputes.disputes[d.DisputeID]
	assert.WithinDuration(t, time.Now(), stored.CreatedAt, time.Minute)
	assert.Nil(t, stored.ResolvedAt)
}
