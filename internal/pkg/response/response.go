package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldwork/internal/pkg/apperror"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, statusCode int, code string, message string) {
	Error(c, statusCode, code, message)
	c.Abort()
}

// FromError maps a service error onto the envelope. Internal errors are
// attached to the gin context for the logging middleware and never leak
// their detail to the client.
func FromError(c *gin.Context, err error) {
	status, code := Status(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		Error(c, status, code, "internal server error")
		return
	}
	Error(c, status, code, apperror.Message(err))
}

// Status returns the HTTP status and error code for err.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, apperror.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, apperror.ErrInvalidQuantity):
		return http.StatusBadRequest, "INVALID_QUANTITY"
	case errors.Is(err, apperror.ErrInsufficientStock):
		return http.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, apperror.ErrBelowBorrowed):
		return http.StatusConflict, "BELOW_BORROWED"
	case errors.Is(err, apperror.ErrAlreadyValidated):
		return http.StatusConflict, "ALREADY_VALIDATED"
	case errors.Is(err, apperror.ErrAlreadyResolved):
		return http.StatusConflict, "ALREADY_RESOLVED"
	case errors.Is(err, apperror.ErrAlreadyFullyReturned):
		return http.StatusConflict, "ALREADY_FULLY_RETURNED"
	case errors.Is(err, apperror.ErrIllegalTransition):
		return http.StatusUnprocessableEntity, "ILLEGAL_TRANSITION"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
