package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DataResponse is the success envelope used by every endpoint.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HTTPError is an error that already knows its status code. Validation
// middleware returns these.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError builds an HTTPError with a formatted message.
func NewHTTPError(status int, format string, args ...interface{}) *HTTPError {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

func RespondJSON(c *gin.Context, code int, data interface{}) {
	c.JSON(code, DataResponse{Data: data})
}

// RespondError writes err with code. When err is (or wraps) an HTTPError its
// own status wins.
func RespondError(c *gin.Context, code int, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Status
	}
	if code >= http.StatusInternalServerError {
		ErrorLogger.WithField("path", c.Request.URL.Path).Errorf("request failed: %v", err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// AbortWithError is RespondError followed by c.Abort, for middleware chains.
func AbortWithError(c *gin.Context, code int, err error) {
	RespondError(c, code, err)
	c.Abort()
}
