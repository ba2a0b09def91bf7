package dto

type FileDisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ResolveDisputeRequest struct {
	Ruling     string `json:"ruling" binding:"required"`
	AdminNotes string `json:"admin_notes" binding:"required"`
	PaymentID  string `json:"payment_id"`
	TxID       string `json:"tx_id"`
}

type DisputeDTO struct {
	DisputeID               string `json:"dispute_id"`
	SubmissionID            string `json:"submission_id"`
	TaskID                  string `json:"task_id"`
	WorkerID                string `json:"worker_id"`
	EmployerID              string `json:"employer_id"`
	Reason                  string `json:"reason"`
	OriginalRejectionReason string `json:"original_rejection_reason"`
	AmountInDisputeMicro    int64  `json:"amount_in_dispute_micro"`
	Status                  string `json:"status"`
	Ruling                  string `json:"ruling,omitempty"`
	AdminNotes              string `json:"admin_notes,omitempty"`
	CreatedAt               string `json:"created_at"`
	ResolvedAt              string `json:"resolved_at,omitempty"`
}

type ResolveDisputeResponse struct {
	Dispute           DisputeDTO `json:"dispute"`
	WorkerPayoutMicro int64      `json:"worker_payout_micro,omitempty"`
	PlatformFeeMicro  int64      `json:"platform_fee_micro,omitempty"`
	Warning           string     `json:"warning,omitempty"`
}
