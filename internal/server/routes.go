package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"siteapi/internal/comments"
	"siteapi/internal/response"
)

// RegisterRoutes builds the gin engine. Comment routes are served both at
// /comments and under the /api prefix used by the serverless entrypoint.
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(s.logger))
	r.Use(CORSMiddleware())

	r.GET("/health", s.healthHandler)

	h := comments.NewHandler(s.comments, s.logger)
	comments.RegisterRoutes(r, "/comments", h, s.gate)
	comments.RegisterRoutes(r, "/api/comments", h, s.gate)

	r.NoRoute(notFound)
	r.NoMethod(notFound)
	r.HandleMethodNotAllowed = true

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx := c.Request.Context()
	body := gin.H{}
	status := http.StatusOK

	if s.db != nil {
		db := s.db.Health(ctx)
		body["database"] = db
		if db["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
	}
	if s.comments != nil {
		body["comments"] = s.comments.Health(ctx)
	}

	response.JSON(c, status, body)
}
