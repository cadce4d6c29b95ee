package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const MessageNotFound = "not found"

type ErrorResponse struct {
	Error string `json:"error"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type BaseHandler struct{}

// InternalError answers 500 with the error text.
func (h *BaseHandler) InternalError(c *gin.Context, log *zap.Logger, err error) {
	log.Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func NoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: MessageNotFound})
}

// Preflight answers CORS preflight requests on any path.
func Preflight(c *gin.Context) {
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// Recovery turns a panic into the regular 500 error body.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("Panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))

		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: fmt.Sprint(recovered)})
	})
}
