package server

import (
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	wferrors "wayfarer/internal/errors"
	"wayfarer/internal/library"
	"wayfarer/internal/logging"
	"wayfarer/internal/observability"
)

const requestIDHeader = "X-Request-ID"

type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func badRequest(err error) error { return &statusError{status: http.StatusBadRequest, err: err} }

func statusFor(err error) int {
	var se *statusError
	switch {
	case errors.As(err, &se):
		return se.status
	case errors.Is(err, wferrors.ErrContentNotFound):
		return http.StatusNotFound
	case errors.Is(err, wferrors.ErrInvalidLocation), errors.Is(err, library.ErrInvalidStory):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// jsonMiddleware rejects write requests whose body is not JSON.
func jsonMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if ct := c.GetHeader("Content-Type"); ct != "" {
				if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
					c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, APIResponse{Error: "Content-Type must be application/json"})
					return
				}
			}
		}
		c.Next()
	}
}

// errorMiddleware renders the last handler error as an APIResponse.
func errorMiddleware(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
		}
		c.JSON(status, APIResponse{Error: err.Error()})
	}
}

// requestID propagates the caller's X-Request-ID, minting one when absent, so
// engine spans and context-aware loggers carry it.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(observability.ContextWithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %s request_id=%s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start),
			observability.RequestIDFromContext(c.Request.Context()))
	}
}
