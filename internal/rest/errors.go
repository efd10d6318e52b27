package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
)

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

// getStatusCode maps a usecase error to its HTTP status
func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyLiked), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBadParamInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFeedUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	}

	logrus.Error(err)
	return http.StatusInternalServerError
}

// writeError responds with the status of err. Causes of unclassified errors
// are not shown to clients.
func writeError(c *gin.Context, err error) {
	code := getStatusCode(err)
	if code == http.StatusInternalServerError {
		c.JSON(code, ResponseError{Message: domain.ErrInternalServerError.Error()})
		return
	}
	c.JSON(code, ResponseError{Message: err.Error()})
}
