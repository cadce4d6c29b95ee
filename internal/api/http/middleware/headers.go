package middleware

import (
	"github.com/gin-gonic/gin"
)

const (
	allowOrigin  = "*"
	allowMethods = "GET,POST,OPTIONS"
	allowHeaders = "content-type"
)

// Headers sets the JSON and CORS headers on every response, errors included.
func Headers() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Type", "application/json")
		h.Set("Access-Control-Allow-Origin", allowOrigin)
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Allow-Headers", allowHeaders)

		c.Next()
	}
}
