package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/erp/lotledger/internal/infrastructure/logger"
	"github.com/erp/lotledger/internal/interfaces/http/dto"
	"github.com/erp/lotledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(logger.HeaderRequestID)
}

// actorOr returns the payload's actor, else the caller named by X-Actor
func actorOr(c *gin.Context, fromPayload string) string {
	if a := strings.TrimSpace(fromPayload); a != "" {
		return a
	}
	if a := logger.GetActor(c.Request.Context()); a != "" {
		return a
	}
	return c.GetHeader(logger.HeaderActor)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Recorded answers a ledger write: 201 when new events were appended,
// 200 when the operation was already on record.
func (h *BaseHandler) Recorded(c *gin.Context, duplicate bool, data any) {
	if duplicate {
		h.Success(c, data)
		return
	}
	h.Created(c, data)
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// BindError answers a failed request bind
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	c.Set(middleware.ErrorCodeKey, dto.ErrCodeValidation)
	middleware.HandleValidationError(c, err)
}

// HandleError converts domain errors to HTTP responses. Anything that is
// not a DomainError is logged and answered with a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		c.Set(middleware.ErrorCodeKey, domainErr.Code)
		resp := dto.NewErrorResponseWithRequestID(domainErr.Code, domainErr.Message, getRequestID(c))
		resp.Error.Details = domainErr.Details
		c.JSON(dto.GetHTTPStatus(domainErr.Code), resp)
		return
	}

	logger.L(c.Request.Context()).Error("request failed", zap.Error(err))
	_ = c.Error(err)
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}
