package dispute

import (
	"context"
	"log/slog"
	"testing"

	"github.com/bountyloop/marketplace-be/internal/marketplace/allocator"
	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/bountyloop/marketplace-be/internal/marketplace/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Gateway that confirms every payment at face value.
type confirmingGateway struct{}

func (confirmingGateway) Approve(context.Context, string) error { return nil }

func (confirmingGateway) Complete(context.Context, string, string) (domain.Amount, error) {
	return 0, nil
}

func (confirmingGateway) GetPayment(_ context.Context, paymentID string) (*settlement.Payment, error) {
	return &settlement.Payment{PaymentID: paymentID, Status: "completed"}, nil
}

type memLedger struct{ entries []domain.LedgerEntry }

func (m *memLedger) Append(_ context.Context, entry *domain.LedgerEntry) error {
	m.entries = append(m.entries, *entry)
	return nil
}

type memEarnings struct{ totals map[string]domain.Amount }

func (m *memEarnings) Increment(_ context.Context, workerID string, payout domain.Amount) error {
	m.totals[workerID] += payout
	return nil
}

type memRecovery struct{ records []domain.RecoveryRecord }

func (m *memRecovery) Append(_ context.Context, rec *domain.RecoveryRecord) error {
	m.records = append(m.records, *rec)
	return nil
}

// A worker-favor ruling driven through the real settlement coordinator
// and slot allocator, not a stand-in settler: one payout, one ledger
// entry with no sender, earnings credited, and the task's last slot
// consumed.
func TestResolveWorkerFavorSettlesEndToEnd(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.DiscardHandler)

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
		"task-1": {
			TaskID:         "task-1",
			EmployerID:     "employer-1",
			Reward:         10 * domain.MicroPerUnit,
			SlotsAvailable: 1,
			SlotsRemaining: 1,
			Status:         domain.TaskStatusAvailable,
		},
	}}
	disputes := &fakeDisputes{disputes: make(map[string]*domain.Dispute)}
	ledger := &memLedger{}
	earnings := &memEarnings{totals: make(map[string]domain.Amount)}
	recovery := &memRecovery{}

	coordinator := settlement.NewCoordinator(&settlement.Config{
		Gateway:     confirmingGateway{},
		Submissions: subs,
		Tasks:       tasks,
		Ledger:      ledger,
		Earnings:    earnings,
		Recovery:    recovery,
		Allocator:   allocator.New(tasks, log),
		FeeRateBps:  1500,
		Logger:      log,
	})

	r := NewResolver(&Config{
		Submissions: subs,
		Tasks:       tasks,
		Disputes:    disputes,
		Settler:     coordinator,
		Logger:      log,
	})

	d, err := r.FileDispute(ctx, "sub-1", goodReason)
	require.NoError(t, err)

	res, err := r.Resolve(ctx, d.DisputeID, domain.RulingInFavorOfWorker, "evidence supports the worker", "pay-9", "tx-9")
	require.NoError(t, err)

	require.NotNil(t, res.Settlement)
	assert.Equal(t, domain.Amount(8_500_000), res.Settlement.WorkerPayout)
	assert.Equal(t, domain.Amount(1_500_000), res.Settlement.PlatformFee)
	assert.False(t, res.Settlement.AlreadySettled)
	assert.Empty(t, res.Settlement.Warning)

	// The submission came out the far end of the pipeline.
	assert.Equal(t, domain.SubmissionStatusCompleted, subs.subs["sub-1"].Status)

	// Platform-funded ledger entry: no sender, full amount, split fee.
	require.Len(t, ledger.entries, 1)
	entry := ledger.entries[0]
	assert.Empty(t, entry.SenderID)
	assert.Equal(t, "worker-1", entry.ReceiverID)
	assert.Equal(t, domain.Amount(10*domain.MicroPerUnit), entry.Gross)
	assert.Equal(t, domain.Amount(1_500_000), entry.PlatformFee)
	assert.Equal(t, "tx-9", entry.TxID)

	assert.Equal(t, domain.Amount(8_500_000), earnings.totals["worker-1"])

	// Last slot consumed, task flips to full.
	assert.Equal(t, 0, tasks.tasks["task-1"].SlotsRemaining)
	assert.Equal(t, domain.TaskStatusFull, tasks.tasks["task-1"].Status)

	// Clean run: nothing diverted to recovery.
	assert.Empty(t, recovery.records)
}
