// Package response builds the JSON envelope shared by every handler.
package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContentType is set on every JSON response.
const ContentType = "application/json; charset=utf-8"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// JSON writes body with the envelope headers.
func JSON(c *gin.Context, status int, body any) {
	c.Header("Content-Type", ContentType)
	c.Header("Access-Control-Allow-Origin", "*")
	c.JSON(status, body)
}

// Error writes an ErrorResponse and aborts the chain.
func Error(c *gin.Context, status int, code, message string) {
	c.Header("Content-Type", ContentType)
	c.Header("Access-Control-Allow-Origin", "*")
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}

// Internal reports a 500 with a generic message and the cause for diagnostics.
func Internal(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Header("Content-Type", ContentType)
	c.Header("Access-Control-Allow-Origin", "*")
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal server error",
		Code:    "INTERNAL_ERROR",
		Details: err.Error(),
	})
}

// Cacheable marks a GET response as publicly cacheable for maxAge seconds.
func Cacheable(c *gin.Context, maxAge int) {
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=30", maxAge))
}

// NoContent answers preflight requests.
func NoContent(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.AbortWithStatus(http.StatusNoContent)
}
