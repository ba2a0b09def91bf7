package domain

import "time"

// LedgerEntryStatus is the closed set of ledger entry states.
type LedgerEntryStatus string

const (
	LedgerStatusPending   LedgerEntryStatus = "PENDING"
	LedgerStatusCompleted LedgerEntryStatus = "COMPLETED"
	LedgerStatusFailed    LedgerEntryStatus = "FAILED"
)

// LedgerEntry records one payout. SenderID is empty for system-funded
// payouts (dispute rulings paid from the platform wallet). The ledger
// is append-only; the sum of completed receiver-side gross amounts is a
// worker's cumulative earnings.
type LedgerEntry struct {
	EntryID      string            `db:"entry_id"`
	SenderID     string            `db:"sender_id"`
	ReceiverID   string            `db:"receiver_id"`
	TaskID       string            `db:"task_id"`
	SubmissionID string            `db:"submission_id"`
	Gross        Amount            `db:"gross"`
	PlatformFee  Amount            `db:"platform_fee"`
	TxID         string            `db:"tx_id"`
	Status       LedgerEntryStatus `db:"status"`
	CreatedAt    time.Time         `db:"created_at"`
}

// RecoveryRecord is written when the external payment was confirmed but
// a local write failed. Its existence implies the money moved; it holds
// every input needed to replay the local updates by hand.
type RecoveryRecord struct {
	RecordID     string    `db:"record_id"`
	PaymentID    string    `db:"payment_id"`
	TxID         string    `db:"tx_id"`
	SubmissionID string    `db:"submission_id"`
	WorkerID     string    `db:"worker_id"`
	TaskID       string    `db:"task_id"`
	Amount       Amount    `db:"amount"`
	PlatformFee  Amount    `db:"platform_fee"`
	Failure      string    `db:"failure"`
	CreatedAt    time.Time `db:"created_at"`
}
