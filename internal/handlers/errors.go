package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/models"
)

// respondError maps domain errors to HTTP responses:
// validation 400, conflict 409, not found 404, everything else 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	code := models.ErrorCode(err)

	switch {
	case models.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
			"code":    code,
		})
	case models.IsConflict(err):
		body := gin.H{
			"error":   "conflict",
			"message": err.Error(),
			"code":    code,
		}
		if seats := models.ConflictingSeats(err); len(seats) > 0 {
			body["seats"] = seats
		}
		c.JSON(http.StatusConflict, body)
	case models.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": err.Error(),
			"code":    code,
		})
	default:
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		if code == "" {
			code = models.CodePersistence
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Something went wrong. Please try again.",
			"code":    code,
		})
	}
}

func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{
		"error":   "invalid_request",
		"message": message,
		"code":    "INVALID_REQUEST",
	}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": "User context not found",
		"code":    "MISSING_USER_CONTEXT",
	})
}
