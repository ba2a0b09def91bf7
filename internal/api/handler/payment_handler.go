package handler

import (
	"log/slog"
	"net/http"

	"github.com/bountyloop/marketplace-be/internal/api/dto"
	"github.com/bountyloop/marketplace-be/internal/marketplace/settlement"
	"github.com/gin-gonic/gin"
)

// ApprovePayment handles POST /api/v1/payments/:payment_id/approve
// Pass-through acknowledgment to the payment gateway, issued once the
// employer has reviewed the payout.
func (h *PaymentHandler) ApprovePayment(c *gin.Context) {
	paymentID := c.Param("payment_id")
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_id is required"})
		return
	}

	if err := h.gateway.Approve(c.Request.Context(), paymentID); err != nil {
		h.logger.Error("Gateway payment approval failed",
			slog.String("payment_id", paymentID),
			slog.String("error", err.Error()),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_id": paymentID, "status": "approved"})
}

// PaymentCompleted handles POST /api/v1/payments/complete
// Gateway webhook fired when a payment is confirmed on chain. It only
// enqueues a settlement job; the settlement service owns the payout, so
// a duplicated webhook is harmless.
func (h *PaymentHandler) PaymentCompleted(c *gin.Context) {
	var req dto.PaymentCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	job := settlement.Job{
		SubmissionID: req.SubmissionID,
		PaymentID:    req.PaymentID,
		TxID:         req.TxID,
	}
	if err := h.queue.EnqueueSettlement(c.Request.Context(), job); err != nil {
		h.logger.Error("Failed to enqueue settlement from webhook",
			slog.String("submission_id", req.SubmissionID),
			slog.String("payment_id", req.PaymentID),
			slog.String("error", err.Error()),
		)
		respondError(c, err)
		return
	}

	h.logger.Info("Payment completion accepted",
		slog.String("submission_id", req.SubmissionID),
		slog.String("payment_id", req.PaymentID),
		slog.String("tx_id", req.TxID),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"submission_id": req.SubmissionID,
		"message":       "settlement enqueued",
	})
}
