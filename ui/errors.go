package ui

import (
	"net/http"

	"excelinsights/internal/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps an error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeUnsupported:
		return http.StatusUnsupportedMediaType
	case errors.CodeExternalService:
		return http.StatusBadGateway
	case errors.CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error", "code"}. Internal errors are logged
// and replaced by a generic message.
func (s *Server) writeError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		s.logger.Error("request error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error", "code": errors.CodeInternalError})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": code})
}
