package handler

import (
	"net/http"
	"time"

	"github.com/bountyloop/marketplace-be/internal/api/dto"
	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetDispute handles GET /api/v1/disputes/:dispute_id
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	disputeID := c.Param("dispute_id")
	if _, err := uuid.Parse(disputeID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dispute_id must be a valid UUID"})
		return
	}

	d, err := h.disputes.Get(c.Request.Context(), disputeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, disputeToDTO(d))
}

// ResolveDispute handles POST /api/v1/disputes/:dispute_id/resolve
// Admin-only ruling. A worker-favor ruling settles the disputed amount
// from platform funds before returning; if the external payment fails
// the ruling stands and the payout is retried by the settlement path,
// which the 502 response signals.
func (h *DisputeHandler) ResolveDispute(c *gin.Context) {
	disputeID := c.Param("dispute_id")

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := h.disputes.Resolve(
		c.Request.Context(),
		disputeID,
		domain.DisputeRuling(req.Ruling),
		req.AdminNotes,
		req.PaymentID,
		req.TxID,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.ResolveDisputeResponse{Dispute: disputeToDTO(res.Dispute)}
	if res.Settlement != nil {
		resp.WorkerPayoutMicro = int64(res.Settlement.WorkerPayout)
		resp.PlatformFeeMicro = int64(res.Settlement.PlatformFee)
		resp.Warning = res.Settlement.Warning
	}

	c.JSON(http.StatusOK, resp)
}

func disputeToDTO(d *domain.Dispute) dto.DisputeDTO {
	out := dto.DisputeDTO{
		DisputeID:               d.DisputeID,
		SubmissionID:            d.SubmissionID,
		TaskID:                  d.TaskID,
		WorkerID:                d.WorkerID,
		EmployerID:              d.EmployerID,
		Reason:                  d.Reason,
		OriginalRejectionReason: d.OriginalRejectionReason,
		AmountInDisputeMicro:    int64(d.AmountInDispute),
		Status:                  string(d.Status),
		Ruling:                  string(d.Ruling),
		AdminNotes:              d.AdminNotes,
		CreatedAt:               d.CreatedAt.Format(time.RFC3339),
	}
	if d.ResolvedAt != nil {
		out.ResolvedAt = d.ResolvedAt.Format(time.RFC3339)
	}
	return out
}
