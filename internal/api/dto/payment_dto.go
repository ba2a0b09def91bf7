package dto

// PaymentCompletedRequest is the gateway webhook body sent when a
// payment has been confirmed on chain.
type PaymentCompletedRequest struct {
	SubmissionID string `json:"submission_id" binding:"required"`
	PaymentID    string `json:"payment_id" binding:"required"`
	TxID         string `json:"tx_id" binding:"required"`
}

type ListRecoveryRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type RecoveryRecordDTO struct {
	RecordID         string `json:"record_id"`
	PaymentID        string `json:"payment_id"`
	TxID             string `json:"tx_id"`
	SubmissionID     string `json:"submission_id"`
	WorkerID         string `json:"worker_id"`
	TaskID           string `json:"task_id"`
	AmountMicro      int64  `json:"amount_micro"`
	PlatformFeeMicro int64  `json:"platform_fee_micro"`
	Failure          string `json:"failure"`
	CreatedAt        string `json:"created_at"`
}

type ListRecoveryResponse struct {
	Records    []RecoveryRecordDTO `json:"records"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

type EarningsResponse struct {
	WorkerID         string `json:"worker_id"`
	TotalEarnedMicro int64  `json:"total_earned_micro"`
	TotalEarned      string `json:"total_earned"`
	TasksCompleted   int    `json:"tasks_completed"`
}
