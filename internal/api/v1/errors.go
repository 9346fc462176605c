// internal/api/v1/errors.go
package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/logger"
	"github.com/tphakala/trapcam/internal/observability/metrics"
)

// ErrorResponse is the failure envelope. Retryable and NeedsReview are only
// set for model failures.
type ErrorResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	Message       string `json:"message,omitempty"`
	Retryable     *bool  `json:"retryable,omitempty"`
	NeedsReview   *bool  `json:"needs_review,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// errorStatus maps an error onto its HTTP status and metrics class
func errorStatus(err error) (int, string) {
	switch {
	case errors.IsInput(err):
		return http.StatusBadRequest, metrics.ClassInput
	case errors.IsNotFound(err):
		return http.StatusNotFound, metrics.ClassInput
	case errors.IsConfig(err):
		return http.StatusInternalServerError, metrics.ClassConfig
	case errors.IsRateLimited(err):
		return http.StatusTooManyRequests, metrics.ClassRateLimited
	case errors.IsUpstreamTransient(err):
		return http.StatusInternalServerError, metrics.ClassTransient
	case errors.IsUpstreamPermanent(err):
		return http.StatusBadGateway, metrics.ClassPermanent
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, metrics.ClassCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError, metrics.ClassTransient
	default:
		return http.StatusInternalServerError, metrics.ClassPermanent
	}
}

// NewErrorResponse creates a failure envelope for err
func NewErrorResponse(err error, message, correlationID string) *ErrorResponse {
	resp := &ErrorResponse{
		Error:         message,
		Message:       message,
		CorrelationID: correlationID,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	if resp.Message == resp.Error {
		resp.Message = ""
	}

	if errors.IsUpstreamTransient(err) || errors.IsUpstreamPermanent(err) || errors.Is(err, context.DeadlineExceeded) {
		retryable := !errors.IsUpstreamPermanent(err)
		review := true
		resp.Retryable = &retryable
		resp.NeedsReview = &review
	}
	return resp
}

// correlationID reuses the request id when the middleware assigned one
func correlationID(ctx echo.Context) string {
	if id := ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	if id := ctx.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleError logs err and writes the failure envelope with the mapped status
func (c *Controller) HandleError(ctx echo.Context, err error, message string) error {
	code, class := errorStatus(err)
	resp := NewErrorResponse(err, message, correlationID(ctx))

	log := GetLogger().WithContext(ctx.Request().Context())
	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("path", ctx.Path()),
		logger.String("method", ctx.Request().Method),
		logger.Int("status", code),
		logger.String("class", class),
		logger.Error(err),
	}
	if code >= http.StatusInternalServerError {
		log.Error(message, fields...)
	} else {
		log.Warn(message, fields...)
	}

	if c.metrics != nil {
		c.metrics.HTTP.RecordError(ctx.Path(), class)
	}
	return ctx.JSON(code, resp)
}
