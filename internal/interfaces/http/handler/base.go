package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeffects/shipstation-endpoint/internal/interfaces/http/dto"
	"github.com/jeffects/shipstation-endpoint/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the status derived from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message))
}

// BindingError answers a rejected hub envelope
func (h *BaseHandler) BindingError(c *gin.Context, err error, requestID string) {
	status, body := middleware.BindingError(err, requestID)
	c.JSON(status, body)
}
