package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"cnpjserver/server/middleware"
)

// ErrorResponse corpo padrão de erro da API
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// SendJSONError responde um erro em JSON e registra no log
func SendJSONError(c *gin.Context, status int, message string, err error) {
	attrs := []any{
		"status", status,
		"path", c.Request.URL.Path,
		"request_id", middleware.GetRequestIDFromGin(c),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	slog.Warn(message, attrs...)

	c.AbortWithStatusJSON(status, ErrorResponse{Error: true, Message: message})
}
