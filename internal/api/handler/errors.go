package handler

import (
	"errors"
	"net/http"

	"github.com/bountyloop/marketplace-be/internal/marketplace/domain"
	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto HTTP status codes.
//
// Validation failures are 400 with the message verbatim, state
// conflicts (illegal transition, duplicate, full task, dispute races)
// are 409, unknown ids are 404, and external payment failures are 502
// with a retry hint. Anything else is a 500 without internals.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound),
		errors.Is(err, domain.ErrDisputeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrDuplicateSubmission),
		errors.Is(err, domain.ErrNoSlotsAvailable),
		errors.Is(err, domain.ErrDisputeAlreadyPending),
		errors.Is(err, domain.ErrDisputeAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	default:
		var transitionErr *domain.InvalidStateTransitionError
		if errors.As(err, &transitionErr) {
			c.JSON(http.StatusConflict, gin.H{"error": transitionErr.Error()})
			return
		}

		var paymentErr *domain.ExternalPaymentError
		if errors.As(err, &paymentErr) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error": paymentErr.Error(),
				"retry": true,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
