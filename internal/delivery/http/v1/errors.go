package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskboard/internal/services"
)

var errInvalidRequestBody = errors.New("invalid request body")

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newConflictError(message string) apiError {
	return newAPIError(http.StatusConflict, message)
}

// abortBoardError maps board service failures onto API errors.
func abortBoardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		abort(c, newUnauthorizedError(err.Error()))
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrFieldNotFound):
		abort(c, newNotFoundError(err.Error()))
	case errors.Is(err, services.ErrEmptyTitle),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidFieldType),
		errors.Is(err, services.ErrInvalidFilterValue):
		abort(c, newBadRequestError(err.Error()))
	default:
		abort(c, newStatusTextError(http.StatusInternalServerError))
	}
}
