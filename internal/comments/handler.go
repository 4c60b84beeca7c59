package comments

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"siteapi/internal/auth"
	"siteapi/internal/response"
)

// maxBodyBytes bounds request bodies; the largest valid body is a few KB.
const maxBodyBytes = 64 << 10

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func NewHandler(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// GET /comments?postId=  or  GET /comments?latest=1&limit=&since=
func (h *Handler) List(c *gin.Context) {
	if isTruthy(c.Query("latest")) {
		h.latest(c)
		return
	}

	list, err := h.svc.ListByPost(c.Request.Context(), c.Query("postId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Cacheable(c, ListMaxAgeSeconds)
	response.JSON(c, http.StatusOK, list)
}

func (h *Handler) latest(c *gin.Context) {
	q := FeedQuery{
		Limit: ParseLimit(c.Query("limit")),
		Since: ParseSince(c.Query("since")),
	}

	items, err := h.svc.Latest(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Cacheable(c, FeedMaxAgeSeconds)
	response.JSON(c, http.StatusOK, items)
}

// POST /comments
func (h *Handler) Create(c *gin.Context) {
	req := decodeBody[CreateCommentRequest](c)

	role := RoleUser
	if auth.IsAdmin(c) {
		role = RoleAdmin
	}

	comment, err := h.svc.Create(c.Request.Context(), req, role)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, comment)
}

// PATCH /comments/:id?postId=
func (h *Handler) SetPinned(c *gin.Context) {
	req := decodeBody[PinRequest](c)
	if req.Pinned == nil {
		response.Error(c, http.StatusBadRequest, "INVALID_BODY", "pinned must be a boolean")
		return
	}

	comment, err := h.svc.SetPinned(c.Request.Context(), c.Param("id"), c.Query("postId"), *req.Pinned)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comment)
}

// DELETE /comments/:id?postId=
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id, c.Query("postId")); err != nil {
		h.fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"ok": true, "id": strings.TrimSpace(id)})
}

// fail maps service errors to the response envelope.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrMissingPostID):
		response.Error(c, http.StatusBadRequest, "MISSING_POST_ID", err.Error())
	case errors.Is(err, ErrMissingMessage):
		response.Error(c, http.StatusBadRequest, "MISSING_MESSAGE", err.Error())
	case errors.Is(err, ErrInvalidID):
		response.Error(c, http.StatusBadRequest, "INVALID_ID", err.Error())
	case errors.Is(err, ErrInvalidParent):
		response.Error(c, http.StatusBadRequest, "INVALID_PARENT", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "not found")
	default:
		h.logger.Error("comments request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString("request_id"),
			"error", err,
		)
		response.Internal(c, err)
	}
}

// decodeBody reads a JSON body into T. Empty or malformed bodies yield the
// zero value.
func decodeBody[T any](c *gin.Context) T {
	var v T
	if c.Request.Body == nil {
		return v
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil || len(body) == 0 {
		return v
	}
	if err := json.Unmarshal(body, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// ParseLimit reads the raw feed limit. Absent or non-numeric values return 0,
// which ClampLimit turns into the default.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

// ParseSince accepts RFC 3339 timestamps or unix milliseconds. Anything else
// is ignored.
func ParseSince(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
		t := time.UnixMilli(ms).UTC()
		return &t
	}
	return nil
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
