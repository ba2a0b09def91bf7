package router

import (
	"net/http"

	"github.com/bountyloop/marketplace-be/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "marketplace-api-service",
		})
	})

	taskHandler := handler.NewTaskHandler(deps)
	submissionHandler := handler.NewSubmissionHandler(deps)
	disputeHandler := handler.NewDisputeHandler(deps)
	paymentHandler := handler.NewPaymentHandler(deps)
	opsHandler := handler.NewOpsHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/:task_id", taskHandler.GetTask)
		}

		submissions := v1.Group("/submissions")
		{
			submissions.POST("", submissionHandler.CreateSubmission)
			submissions.GET("/:submission_id", submissionHandler.GetSubmission)
			submissions.POST("/:submission_id/request-revision", submissionHandler.RequestRevision)
			submissions.POST("/:submission_id/resubmit", submissionHandler.Resubmit)
			submissions.POST("/:submission_id/approve", submissionHandler.Approve)
			submissions.POST("/:submission_id/reject", submissionHandler.Reject)
			submissions.POST("/:submission_id/dispute", submissionHandler.FileDispute)
		}

		disputes := v1.Group("/disputes")
		{
			disputes.GET("/:dispute_id", disputeHandler.GetDispute)
			disputes.POST("/:dispute_id/resolve", disputeHandler.ResolveDispute)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/:payment_id/approve", paymentHandler.ApprovePayment)
			payments.POST("/complete", paymentHandler.PaymentCompleted)
		}

		workers := v1.Group("/workers")
		{
			workers.GET("/:worker_id/earnings", opsHandler.GetEarnings)
		}

		ops := v1.Group("/ops")
		{
			ops.GET("/recovery-records", opsHandler.ListRecoveryRecords)
		}
	}

	return r
}
