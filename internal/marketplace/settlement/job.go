package settlement

// Job is the queue message that asks the settlement worker to run the
// coordinator for one approved submission. Published by the API service
// (approval and payment-confirmed webhook), consumed by the settlement
// service. Delivery is at-least-once; the coordinator's status check
// makes duplicates harmless.
type Job struct {
	SubmissionID string `json:"submission_id"`
	PaymentID    string `json:"payment_id"`
	TxID         string `json:"tx_id"`

	// DeliveryTag carries the broker delivery tag on the consumer side.
	DeliveryTag uint64 `json:"-"`
}
