package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONSuccess wraps data in the {"success": true, "data": ...} envelope.
func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

func JSONError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "error": message})
}

// NotModified answers a conditional GET whose entity tag still matches.
func NotModified(c *gin.Context, etag string) {
	c.Header("ETag", etag)
	c.Status(http.StatusNotModified)
}
