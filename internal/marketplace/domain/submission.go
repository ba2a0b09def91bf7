package domain

import "time"

// SubmissionStatus is the closed set of submission lifecycle states.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted           SubmissionStatus = "SUBMITTED"
	SubmissionStatusRevisionRequested   SubmissionStatus = "REVISION_REQUESTED"
	SubmissionStatusRevisionResubmitted SubmissionStatus = "REVISION_RESUBMITTED"
	SubmissionStatusApproved            SubmissionStatus = "APPROVED"
	SubmissionStatusRejected            SubmissionStatus = "REJECTED"
	SubmissionStatusDisputed            SubmissionStatus = "DISPUTED"
	SubmissionStatusCompleted           SubmissionStatus = "COMPLETED"
)

// submissionTransitions is the authoritative transition table. Every
// status mutation in the system must be present here; anything else is
// rejected with InvalidStateTransitionError.
var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionStatusSubmitted: {
		SubmissionStatusRevisionRequested,
		SubmissionStatusApproved,
		SubmissionStatusRejected,
	},
	SubmissionStatusRevisionRequested: {
		SubmissionStatusRevisionResubmitted,
	},
	// A resubmitted attempt is logically back in review.
	SubmissionStatusRevisionResubmitted: {
		SubmissionStatusRevisionRequested,
		SubmissionStatusApproved,
		SubmissionStatusRejected,
	},
	SubmissionStatusApproved: {
		SubmissionStatusCompleted,
	},
	SubmissionStatusRejected: {
		SubmissionStatusDisputed,
	},
	SubmissionStatusDisputed: {
		// A ruling either restores the rejection or approves for payment.
		SubmissionStatusApproved,
		SubmissionStatusRejected,
	},
	SubmissionStatusCompleted: {},
}

// CanTransition reports whether the transition table allows moving a
// submission from one status to another.
func CanTransition(from, to SubmissionStatus) bool {
	for _, allowed := range submissionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ReviewableStatuses are the states in which an employer may approve,
// reject, or request a revision.
func ReviewableStatuses() []SubmissionStatus {
	return []SubmissionStatus{
		SubmissionStatusSubmitted,
		SubmissionStatusRevisionResubmitted,
	}
}

// OpenStatuses are the non-terminal states that count against the
// one-open-submission-per-worker-per-task rule.
func OpenStatuses() []SubmissionStatus {
	return []SubmissionStatus{
		SubmissionStatusSubmitted,
		SubmissionStatusRevisionRequested,
		SubmissionStatusRevisionResubmitted,
		SubmissionStatusApproved,
		SubmissionStatusDisputed,
	}
}

// Submission is one worker's attempt to complete a task. AgreedReward
// is frozen at submit time and never tracks later task edits.
type Submission struct {
	SubmissionID    string           `db:"submission_id"`
	TaskID          string           `db:"task_id"`
	WorkerID        string           `db:"worker_id"`
	Proof           string           `db:"proof"`
	Status          SubmissionStatus `db:"status"`
	RevisionCount   int              `db:"revision_count"`
	RejectionReason string           `db:"rejection_reason"`
	AgreedReward    Amount           `db:"agreed_reward"`
	PaymentID       string           `db:"payment_id"`
	TxID            string           `db:"tx_id"`
	ResubmitBy      *time.Time       `db:"resubmit_by"`
	SubmittedAt     time.Time        `db:"submitted_at"`
	ReviewedAt      *time.Time       `db:"reviewed_at"`
	UpdatedAt       time.Time        `db:"updated_at"`
}
