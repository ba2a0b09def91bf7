package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bountyloop/marketplace-be/internal/api/dto"
	"github.com/bountyloop/marketplace-be/internal/marketplace/storage"
	"github.com/gin-gonic/gin"
)

// ListRecoveryRecords handles GET /api/v1/ops/recovery-records
// Operator listing for manual reconciliation of settlements whose
// external payment succeeded but whose local bookkeeping failed.
func (h *OpsHandler) ListRecoveryRecords(c *gin.Context) {
	var req dto.ListRecoveryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeRecoveryCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	records, err := h.recovery.List(c.Request.Context(), req.PageSize, cursor)
	if err != nil {
		h.logger.Error("Failed to list recovery records", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	hasMore := len(records) > req.PageSize
	if hasMore {
		records = records[:req.PageSize]
	}

	resp := dto.ListRecoveryResponse{Records: make([]dto.RecoveryRecordDTO, len(records))}
	for i, rec := range records {
		resp.Records[i] = dto.RecoveryRecordDTO{
			RecordID:         rec.RecordID,
			PaymentID:        rec.PaymentID,
			TxID:             rec.TxID,
			SubmissionID:     rec.SubmissionID,
			WorkerID:         rec.WorkerID,
			TaskID:           rec.TaskID,
			AmountMicro:      int64(rec.Amount),
			PlatformFeeMicro: int64(rec.PlatformFee),
			Failure:          rec.Failure,
			CreatedAt:        rec.CreatedAt.Format(time.RFC3339),
		}
	}

	if hasMore {
		last := records[len(records)-1]
		resp.NextCursor = EncodeRecoveryCursor(&storage.RecoveryCursor{
			CreatedAt: last.CreatedAt,
			RecordID:  last.RecordID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// GetEarnings handles GET /api/v1/workers/:worker_id/earnings
func (h *OpsHandler) GetEarnings(c *gin.Context) {
	workerID := c.Param("worker_id")
	if workerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "worker_id is required"})
		return
	}

	total, completed, err := h.earnings.Totals(c.Request.Context(), workerID)
	if err != nil {
		h.logger.Error("Failed to load earnings",
			slog.String("worker_id", workerID),
			slog.String("error", err.Error()),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EarningsResponse{
		WorkerID:         workerID,
		TotalEarnedMicro: int64(total),
		TotalEarned:      total.String(),
		TasksCompleted:   completed,
	})
}
