package comments

import (
	"github.com/gin-gonic/gin"

	"siteapi/internal/auth"
)

// RegisterRoutes mounts the comments resource under base on r.
func RegisterRoutes(r gin.IRouter, base string, h *Handler, gate *auth.Gate) {
	g := r.Group(base)

	g.GET("", h.List)
	g.POST("", gate.Identify(), h.Create)
	g.PATCH("/:id", gate.RequireAdmin(), h.SetPinned)
	g.DELETE("/:id", gate.RequireAdmin(), h.Delete)
}
