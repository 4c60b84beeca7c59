package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"siteapi/internal/response"
)

const headerRequestID = "X-Request-ID"

// CORSMiddleware allows any origin. The API is public and admin calls carry a
// bearer token rather than cookies.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Accept", "Authorization", "Content-Type", headerRequestID},
		ExposeHeaders:   []string{headerRequestID},
		MaxAge:          12 * time.Hour,
	})
}

// RequestIDMiddleware reuses the caller's request ID when it looks sane and
// generates one otherwise.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set(headerRequestID, requestID)

		c.Next()
	}
}

// LoggingMiddleware logs every request with structured attributes
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rw := newResponseWriter(c.Writer)
		c.Writer = rw

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", float64(time.Since(start).Microseconds()) / 1000,
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"response_size", rw.Size(),
		}

		if query := c.Request.URL.RawQuery; query != "" {
			attrs = append(attrs, "query", query)
		}
		if admin, exists := c.Get("is_admin"); exists {
			attrs = append(attrs, "admin", admin)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Error("Request failed - server error", attrs...)
		case status >= 400:
			logger.Warn("Request failed - client error", attrs...)
		default:
			logger.Info("Request completed", attrs...)
		}
	}
}

// preflight answers OPTIONS on any path the router does not know.
func preflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
	response.NoContent(c)
}

// notFound keeps unknown routes inside the JSON envelope.
func notFound(c *gin.Context) {
	if c.Request.Method == http.MethodOptions {
		preflight(c)
		return
	}
	response.Error(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}
