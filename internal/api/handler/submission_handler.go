package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bountyloop/marketplace-be/internal/api/dto"
	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateSubmission handles POST /api/v1/submissions
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	var req dto.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sub, err := h.submissions.Submit(c.Request.Context(), req.TaskID, req.WorkerID, req.Proof)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, submissionToDTO(sub))
}

// GetSubmission handles GET /api/v1/submissions/:submission_id
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	submissionID := c.Param("submission_id")
	if _, err := uuid.Parse(submissionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "submission_id must be a valid UUID"})
		return
	}

	sub, err := h.submissions.Get(c.Request.Context(), submissionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, submissionToDTO(sub))
}

// RequestRevision handles POST /api/v1/submissions/:submission_id/request-revision
func (h *SubmissionHandler) RequestRevision(c *gin.Context) {
	submissionID := c.Param("submission_id")

	var req dto.RequestRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	resubmitBy, err := h.submissions.RequestRevision(c.Request.Context(), submissionID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submission_id": submissionID,
		"status":        string(domain.SubmissionStatusRevisionRequested),
		"resubmit_by":   resubmitBy.Format(time.RFC3339),
	})
}

// Resubmit handles POST /api/v1/submissions/:submission_id/resubmit
func (h *SubmissionHandler) Resubmit(c *gin.Context) {
	submissionID := c.Param("submission_id")

	var req dto.ResubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.submissions.Resubmit(c.Request.Context(), submissionID, req.Proof); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submission_id": submissionID,
		"status":        string(domain.SubmissionStatusRevisionResubmitted),
	})
}

// Approve handles POST /api/v1/submissions/:submission_id/approve
// Claims the approval and enqueues a settlement job; the settlement
// service does the actual payout.
func (h *SubmissionHandler) Approve(c *gin.Context) {
	submissionID := c.Param("submission_id")

	var req dto.ApproveSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.submissions.Approve(c.Request.Context(), submissionID, req.PaymentID, req.TxID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"submission_id": submissionID,
		"payment_id":    req.PaymentID,
		"message":       "approval recorded, settlement in progress",
	})
}

// Reject handles POST /api/v1/submissions/:submission_id/reject
func (h *SubmissionHandler) Reject(c *gin.Context) {
	submissionID := c.Param("submission_id")

	var req dto.RejectSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.submissions.Reject(c.Request.Context(), submissionID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submission_id": submissionID,
		"status":        string(domain.SubmissionStatusRejected),
	})
}

// FileDispute handles POST /api/v1/submissions/:submission_id/dispute
func (h *SubmissionHandler) FileDispute(c *gin.Context) {
	submissionID := c.Param("submission_id")

	var req dto.FileDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	d, err := h.disputes.FileDispute(c.Request.Context(), submissionID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, disputeToDTO(d))
}

func submissionToDTO(sub *domain.Submission) dto.SubmissionDTO {
	out := dto.SubmissionDTO{
		SubmissionID:      sub.SubmissionID,
		TaskID:            sub.TaskID,
		WorkerID:          sub.WorkerID,
		Proof:             sub.Proof,
		Status:            string(sub.Status),
		RevisionCount:     sub.RevisionCount,
		RejectionReason:   sub.RejectionReason,
		AgreedRewardMicro: int64(sub.AgreedReward),
		PaymentID:         sub.PaymentID,
		TxID:              sub.TxID,
		SubmittedAt:       sub.SubmittedAt.Format(time.RFC3339),
		UpdatedAt:         sub.UpdatedAt.Format(time.RFC3339),
	}
	if sub.ResubmitBy != nil {
		out.ResubmitBy = sub.ResubmitBy.Format(time.RFC3339)
	}
	return out
}
