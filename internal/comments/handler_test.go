package comments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"siteapi/internal/auth"
)

// Mock service for handler tests
type mockService struct {
	listFunc   func(ctx context.Context, postID string) ([]Comment, error)
	latestFunc func(ctx context.Context, q FeedQuery) ([]FeedItem, error)
	createFunc func(ctx context.Context, req CreateCommentRequest, role Role) (*Comment, error)
	pinFunc    func(ctx context.Context, id, postID string, pinned bool) (*Comment, error)
	deleteFunc func(ctx context.Context, id, postID string) error
}

func (m *mockService) ListByPost(ctx context.Context, postID string) ([]Comment, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, postID)
	}
	return []Comment{}, nil
}

func (m *mockService) Latest(ctx context.Context, q FeedQuery) ([]FeedItem, error) {
	if m.latestFunc != nil {
		return m.latestFunc(ctx, q)
	}
	return []FeedItem{}, nil
}

func (m *mockService) Create(ctx context.Context, req CreateCommentRequest, role Role) (*Comment, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req, role)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) SetPinned(ctx context.Context, id, postID string, pinned bool) (*Comment, error) {
	if m.pinFunc != nil {
		return m.pinFunc(ctx, id, postID, pinned)
	}
	return nil, ErrNotFound
}

func (m *mockService) Delete(ctx context.Context, id, postID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id, postID)
	}
	return ErrNotFound
}

func (m *mockService) Health(context.Context) map[string]string {
	return map[string]string{"schema": "ready"}
}

const testAdminToken = "admin-secret"

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, "/comments", NewHandler(svc, quietLogger()), auth.NewGate(testAdminToken))
	return r
}

func serve(r http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreate_AnonymousComment(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var gotRole Role
	svc := &mockService{
		createFunc: func(ctx context.Context, req CreateCommentRequest, role Role) (*Comment, error) {
			gotRole = role
			require.Equal(t, testPostID, req.PostID)
			require.Equal(t, "hi", req.Message)
			return &Comment{
				ID:        testCommentA,
				PostID:    req.PostID,
				Alias:     DefaultAlias,
				Message:   req.Message,
				Role:      role,
				CreatedAt: created,
			}, nil
		},
	}

	w := serve(setupRouter(svc), http.MethodPost, "/comments",
		`{"postId":"`+testPostID+`","message":"hi"}`, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, RoleUser, gotRole)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, testCommentA, body["id"])
	require.Equal(t, testPostID, body["postId"])
	require.Equal(t, DefaultAlias, body["alias"])
	require.Equal(t, "hi", body["message"])
	require.Equal(t, "user", body["role"])
	require.Contains(t, body, "parentId")
	require.Nil(t, body["parentId"])
	require.Contains(t, body, "pinnedAt")
	require.Nil(t, body["pinnedAt"])
	require.Contains(t, body, "createdAt")
	require.NotContains(t, body, "email")
}

func TestCreate_AdminTokenElevatesRole(t *testing.T) {
	var gotRole Role
	svc := &mockService{
		createFunc: func(ctx context.Context, req CreateCommentRequest, role Role) (*Comment, error) {
			gotRole = role
			return &Comment{ID: testCommentA, PostID: testPostID, Role: role}, nil
		},
	}
	r := setupRouter(svc)
	body := `{"postId":"` + testPostID + `","message":"hi"}`

	w := serve(r, http.MethodPost, "/comments", body, map[string]string{"Authorization": "Bearer " + testAdminToken})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, RoleAdmin, gotRole)

	// a wrong token is not an error on create, it just stays a user comment
	w = serve(r, http.MethodPost, "/comments", body, map[string]string{"Authorization": "Bearer wrong"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, RoleUser, gotRole)
}

func TestCreate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"missing post", ErrMissingPostID, "MISSING_POST_ID"},
		{"missing message", ErrMissingMessage, "MISSING_MESSAGE"},
		{"invalid parent", ErrInvalidParent, "INVALID_PARENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{
				createFunc: func(context.Context, CreateCommentRequest, Role) (*Comment, error) {
					return nil, tt.err
				},
			}
			w := serve(setupRouter(svc), http.MethodPost, "/comments", `{}`, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			require.Equal(t, tt.code, body["code"])
			require.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestCreate_MalformedBodyIsEmptyRequest(t *testing.T) {
	var got CreateCommentRequest
	svc := &mockService{
		createFunc: func(_ context.Context, req CreateCommentRequest, _ Role) (*Comment, error) {
			got = req
			return nil, ErrMissingPostID
		},
	}

	w := serve(setupRouter(svc), http.MethodPost, "/comments", `{"postId": "`+testPostID+`", `, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, CreateCommentRequest{}, got)
}

func TestList_ByPost(t *testing.T) {
	svc := &mockService{
		listFunc: func(_ context.Context, postID string) ([]Comment, error) {
			require.Equal(t, testPostID, postID)
			return []Comment{{ID: testCommentA, PostID: postID, Role: RoleUser}}, nil
		},
	}

	w := serve(setupRouter(svc), http.MethodGet, "/comments?postId="+testPostID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "public, max-age=15, stale-while-revalidate=30", w.Header().Get("Cache-Control"))

	var list []Comment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
}

func TestList_MissingPostID(t *testing.T) {
	svc := &mockService{
		listFunc: func(context.Context, string) ([]Comment, error) { return nil, ErrMissingPostID },
	}

	w := serve(setupRouter(svc), http.MethodGet, "/comments", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "missing postId", decodeError(t, w)["error"])
	require.Empty(t, w.Header().Get("Cache-Control"))
}

func TestList_LatestFeed(t *testing.T) {
	var got FeedQuery
	svc := &mockService{
		latestFunc: func(_ context.Context, q FeedQuery) ([]FeedItem, error) {
			got = q
			title := "Hello"
			return []FeedItem{{Comment: Comment{ID: testCommentA}, PostTitle: &title}}, nil
		},
	}

	w := serve(setupRouter(svc), http.MethodGet, "/comments?latest=1&limit=7&since=2024-05-01T00:00:00Z", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "public, max-age=5, stale-while-revalidate=30", w.Header().Get("Cache-Control"))
	require.Equal(t, 7, got.Limit)
	require.NotNil(t, got.Since)
	require.True(t, got.Since.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	var items []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Equal(t, "Hello", items[0]["postTitle"])
	require.Contains(t, items[0], "postCategory")
}

func TestList_LatestInvalidParamsFallBack(t *testing.T) {
	var got FeedQuery
	svc := &mockService{
		latestFunc: func(_ context.Context, q FeedQuery) ([]FeedItem, error) {
			got = q
			return []FeedItem{}, nil
		},
	}

	w := serve(setupRouter(svc), http.MethodGet, "/comments?latest=true&limit=abc&since=yesterday", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, DefaultFeedLimit, ClampLimit(got.Limit))
	require.Nil(t, got.Since)
	require.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestSetPinned_RequiresAdmin(t *testing.T) {
	called := false
	svc := &mockService{
		pinFunc: func(context.Context, string, string, bool) (*Comment, error) {
			called = true
			return &Comment{}, nil
		},
	}

	w := serve(setupRouter(svc), http.MethodPatch, "/comments/"+testCommentA+"?postId="+testPostID, `{"pinned":true}`, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "UNAUTHORIZED", decodeError(t, w)["code"])
	require.False(t, called)
}

func TestSetPinned_Admin(t *testing.T) {
	now := time.Now().UTC()
	svc := &mockService{
		pinFunc: func(_ context.Context, id, postID string, pinned bool) (*Comment, error) {
			require.Equal(t, testCommentA, id)
			require.Equal(t, testPostID, postID)
			require.True(t, pinned)
			return &Comment{ID: id, PostID: postID, PinnedAt: &now}, nil
		},
	}

	w := serve(setupRouter(svc), http.MethodPatch, "/comments/"+testCommentA+"?postId="+testPostID, `{"pinned":true}`,
		map[string]string{"Authorization": "Bearer " + testAdminToken})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSetPinned_RequiresPinnedFlag(t *testing.T) {
	called := false
	svc := &mockService{
		pinFunc: func(context.Context, string, string, bool) (*Comment, error) {
			called = true
			return &Comment{}, nil
		},
	}
	r := setupRouter(svc)
	admin := map[string]string{"Authorization": "Bearer " + testAdminToken}

	for _, body := range []string{"", `{}`, `{"pinned":null}`, `{"pinned":"yes"}`, `{"pinned":1}`, `{"pinned":`} {
		w := serve(r, http.MethodPatch, "/comments/"+testCommentA, body, admin)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		require.Equal(t, "INVALID_BODY", decodeError(t, w)["code"], body)
	}
	require.False(t, called)
}

func TestSetPinned_Unpin(t *testing.T) {
	var got *bool
	svc := &mockService{
		pinFunc: func(_ context.Context, id, postID string, pinned bool) (*Comment, error) {
			got = &pinned
			return &Comment{ID: id}, nil
		},
	}

	w := serve(setupRouter(svc), http.MethodPatch, "/comments/"+testCommentA, `{"pinned":false}`,
		map[string]string{"Authorization": "Bearer " + testAdminToken})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	require.False(t, *got)
}

func TestSetPinned_NotFound(t *testing.T) {
	w := serve(setupRouter(&mockService{}), http.MethodPatch, "/comments/"+testCommentB, `{"pinned":true}`,
		map[string]string{"Authorization": "Bearer " + testAdminToken})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", decodeError(t, w)["code"])
}

func TestDelete(t *testing.T) {
	svc := &mockService{
		deleteFunc: func(_ context.Context, id, postID string) error {
			require.Equal(t, testCommentA, id)
			require.Empty(t, postID)
			return nil
		},
	}
	r := setupRouter(svc)

	w := serve(r, http.MethodDelete, "/comments/"+testCommentA, "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodDelete, "/comments/"+testCommentA, "",
		map[string]string{"Authorization": "Bearer " + testAdminToken})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, true, body["ok"])
	require.Equal(t, testCommentA, body["id"])
}

func TestDelete_InvalidID(t *testing.T) {
	svc := &mockService{
		deleteFunc: func(context.Context, string, string) error { return ErrInvalidID },
	}

	w := serve(setupRouter(svc), http.MethodDelete, "/comments/nope", "",
		map[string]string{"Authorization": "Bearer " + testAdminToken})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_ID", decodeError(t, w)["code"])
}

func TestInternalErrorEnvelope(t *testing.T) {
	svc := &mockService{
		listFunc: func(context.Context, string) ([]Comment, error) {
			return nil, errors.New("connection refused")
		},
	}

	w := serve(setupRouter(svc), http.MethodGet, "/comments?postId="+testPostID, "", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	require.Equal(t, "INTERNAL_ERROR", body["code"])
	require.Equal(t, "connection refused", body["details"])
}

func TestParseSince(t *testing.T) {
	require.Nil(t, ParseSince(""))
	require.Nil(t, ParseSince("garbage"))
	require.Nil(t, ParseSince("-5"))

	ts := ParseSince("1714521600000")
	require.NotNil(t, ts)
	require.True(t, ts.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	ts = ParseSince("2024-05-01T02:00:00.123+02:00")
	require.NotNil(t, ts)
	require.True(t, ts.Equal(time.Date(2024, 5, 1, 0, 0, 0, 123_000_000, time.UTC)))
}

func TestParseLimit(t *testing.T) {
	require.Equal(t, 0, ParseLimit(""))
	require.Equal(t, 0, ParseLimit("ten"))
	require.Equal(t, -3, ParseLimit("-3"))
	require.Equal(t, 50, ParseLimit(" 50 "))
	require.Equal(t, 1000, ParseLimit("1000"))
}

func TestParseLimit_ClampedOnce(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", DefaultFeedLimit},
		{"abc", DefaultFeedLimit},
		{"0", DefaultFeedLimit},
		{"-3", 1},
		{"7", 7},
		{"1000", MaxFeedLimit},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			require.Equal(t, tt.want, ClampLimit(ParseLimit(tt.raw)))
		})
	}
}
