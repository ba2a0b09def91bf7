package dto

type CreateSubmissionRequest struct {
	TaskID   string `json:"task_id" binding:"required"`
	WorkerID string `json:"worker_id" binding:"required"`
	Proof    string `json:"proof" binding:"required"`
}

type RequestRevisionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ResubmitRequest struct {
	Proof string `json:"proof" binding:"required"`
}

type ApproveSubmissionRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	TxID      string `json:"tx_id"`
}

type RejectSubmissionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type SubmissionDTO struct {
	SubmissionID      string `json:"submission_id"`
	TaskID            string `json:"task_id"`
	WorkerID          string `json:"worker_id"`
	Proof             string `json:"proof"`
	Status            string `json:"status"`
	RevisionCount     int    `json:"revision_count"`
	RejectionReason   string `json:"rejection_reason,omitempty"`
	AgreedRewardMicro int64  `json:"agreed_reward_micro"`
	PaymentID         string `json:"payment_id,omitempty"`
	TxID              string `json:"tx_id,omitempty"`
	ResubmitBy        string `json:"resubmit_by,omitempty"`
	SubmittedAt       string `json:"submitted_at"`
	UpdatedAt         string `json:"updated_at"`
}
