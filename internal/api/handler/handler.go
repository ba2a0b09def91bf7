package handler

import (
	"log/slog"

	"github.com/bountyloop/marketplace-be/internal/marketplace/dispute"
	"github.com/bountyloop/marketplace-be/internal/marketplace/settlement"
	"github.com/bountyloop/marketplace-be/internal/marketplace/storage"
	"github.com/bountyloop/marketplace-be/internal/marketplace/submission"
)

// Dependencies holds everything the HTTP handlers need.
type Dependencies struct {
	Logger      *slog.Logger
	Tasks       *storage.TaskStore
	Submissions *submission.Service
	Disputes    *dispute.Resolver
	Gateway     settlement.PaymentGateway
	Queue       submission.SettlementQueue
	Recovery    *storage.RecoveryStore
	Earnings    *storage.EarningsStore
}

// TaskHandler serves task posting and discovery.
type TaskHandler struct {
	logger *slog.Logger
	tasks  *storage.TaskStore
}

func NewTaskHandler(deps *Dependencies) *TaskHandler {
	return &TaskHandler{logger: deps.Logger, tasks: deps.Tasks}
}

// SubmissionHandler serves the submission lifecycle: submit, the
// revision cycle, approval, rejection and dispute filing.
type SubmissionHandler struct {
	logger      *slog.Logger
	submissions *submission.Service
	disputes    *dispute.Resolver
}

func NewSubmissionHandler(deps *Dependencies) *SubmissionHandler {
	return &SubmissionHandler{
		logger:      deps.Logger,
		submissions: deps.Submissions,
		disputes:    deps.Disputes,
	}
}

// DisputeHandler serves the admin dispute endpoints.
type DisputeHandler struct {
	logger   *slog.Logger
	disputes *dispute.Resolver
}

func NewDisputeHandler(deps *Dependencies) *DisputeHandler {
	return &DisputeHandler{logger: deps.Logger, disputes: deps.Disputes}
}

// PaymentHandler serves the payment-gateway webhooks.
type PaymentHandler struct {
	logger  *slog.Logger
	gateway settlement.PaymentGateway
	queue   submission.SettlementQueue
}

func NewPaymentHandler(deps *Dependencies) *PaymentHandler {
	return &PaymentHandler{
		logger:  deps.Logger,
		gateway: deps.Gateway,
		queue:   deps.Queue,
	}
}

// OpsHandler serves operator endpoints: recovery-record reconciliation
// listing and worker earnings.
type OpsHandler struct {
	logger   *slog.Logger
	recovery *storage.RecoveryStore
	earnings *storage.EarningsStore
}

func NewOpsHandler(deps *Dependencies) *OpsHandler {
	return &OpsHandler{
		logger:   deps.Logger,
		recovery: deps.Recovery,
		earnings: deps.Earnings,
	}
}
