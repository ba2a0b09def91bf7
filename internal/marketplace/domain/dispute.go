package domain

import "time"

// DisputeStatus is the closed set of dispute states.
type DisputeStatus string

const (
	DisputeStatusPending  DisputeStatus = "PENDING"
	DisputeStatusResolved DisputeStatus = "RESOLVED"
)

// DisputeRuling is an admin's decision on a dispute.
type DisputeRuling string

const (
	RulingInFavorOfWorker   DisputeRuling = "IN_FAVOR_OF_WORKER"
	RulingInFavorOfEmployer DisputeRuling = "IN_FAVOR_OF_EMPLOYER"
)

// Valid reports whether the ruling is one of the known decisions.
func (r DisputeRuling) Valid() bool {
	return r == RulingInFavorOfWorker || r == RulingInFavorOfEmployer
}

// MinDisputeReasonLen filters low-effort appeals.
const MinDisputeReasonLen = 20

// Dispute is a worker's appeal against a rejected submission. It keeps
// a copy of the original rejection reason for audit, and freezes the
// amount a worker-favorable ruling will pay out.
type Dispute struct {
	DisputeID               string        `db:"dispute_id"`
	SubmissionID            string        `db:"submission_id"`
	TaskID                  string        `db:"task_id"`
	WorkerID                string        `db:"worker_id"`
	EmployerID              string        `db:"employer_id"`
	Reason                  string        `db:"reason"`
	OriginalRejectionReason string        `db:"original_rejection_reason"`
	AmountInDispute         Amount        `db:"amount_in_dispute"`
	Status                  DisputeStatus `db:"status"`
	Ruling                  DisputeRuling `db:"ruling"`
	AdminNotes              string        `db:"admin_notes"`
	CreatedAt               time.Time     `db:"created_at"`
	ResolvedAt              *time.Time    `db:"resolved_at"`
}
