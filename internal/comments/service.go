package comments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"siteapi/internal/cache"
)

const (
	cachePrefix       = "comments:"
	feedCachePrefix   = cachePrefix + "latest:"
	postCachePrefix   = cachePrefix + "post:"
	listCacheTTL      = 15 * time.Second
	feedCacheTTL      = 5 * time.Second
	ListMaxAgeSeconds = 15
	FeedMaxAgeSeconds = 5
)

// Service defines the comment operations exposed to handlers.
type Service interface {
	ListByPost(ctx context.Context, postID string) ([]Comment, error)
	Latest(ctx context.Context, q FeedQuery) ([]FeedItem, error)
	Create(ctx context.Context, req CreateCommentRequest, role Role) (*Comment, error)
	SetPinned(ctx context.Context, id, postID string, pinned bool) (*Comment, error)
	Delete(ctx context.Context, id, postID string) error
	Health(ctx context.Context) map[string]string
}

// EventPublisher receives comment lifecycle events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
}

// Event is published after every successful mutation.
type Event struct {
	Type       string    `json:"type"`
	CommentID  string    `json:"commentId"`
	PostID     string    `json:"postId"`
	ParentID   *string   `json:"parentId,omitempty"`
	Role       Role      `json:"role,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

const (
	EventCreated  = "comment.created"
	EventPinned   = "comment.pinned"
	EventUnpinned = "comment.unpinned"
	EventDeleted  = "comment.deleted"
)

// SchemaEnsurer is satisfied by *Migrator.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
	Ready() bool
}

type service struct {
	repo   *Repository
	schema SchemaEnsurer
	cache  cache.Cache
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes NewService.
type Option func(*service)

// WithCache enables response caching for listings and the feed.
func WithCache(c cache.Cache) Option {
	return func(s *service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithEvents publishes lifecycle events to p.
func WithEvents(p EventPublisher) Option {
	return func(s *service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new comments service. The schema is ensured lazily on
// the first call of each operation.
func NewService(repo *Repository, schema SchemaEnsurer, opts ...Option) Service {
	s := &service{
		repo:   repo,
		schema: schema,
		cache:  cache.Nop{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) ListByPost(ctx context.Context, postID string) ([]Comment, error) {
	postID = NormalizeIdentifier(postID)
	if postID == "" {
		return nil, ErrMissingPostID
	}

	key := postCachePrefix + strings.ToLower(postID)
	var cached []Comment
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	if err := s.schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	list, err := s.repo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, key, list, listCacheTTL)
	return list, nil
}

func (s *service) Latest(ctx context.Context, q FeedQuery) ([]FeedItem, error) {
	q.Limit = ClampLimit(q.Limit)

	key := feedCachePrefix + strconv.Itoa(q.Limit) + ":"
	if q.Since != nil {
		key += strconv.FormatInt(q.Since.UnixNano(), 10)
	}
	var cached []FeedItem
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	if err := s.schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	items, err := s.repo.Latest(ctx, q)
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, key, items, feedCacheTTL)
	return items, nil
}

func (s *service) Create(ctx context.Context, req CreateCommentRequest, role Role) (*Comment, error) {
	postID := NormalizeIdentifier(req.PostID)
	if postID == "" {
		return nil, ErrMissingPostID
	}

	message := SanitizeText(req.Message, MaxMessageLength, "")
	if message == "" {
		return nil, ErrMissingMessage
	}

	var parentID *string
	if raw := strings.TrimSpace(req.ParentID); raw != "" {
		id := NormalizeIdentifier(raw)
		if id == "" {
			return nil, ErrInvalidParent
		}
		parentID = &id
	}

	if role != RoleAdmin {
		role = RoleUser
	}

	n := newComment{
		PostID:   postID,
		Alias:    SanitizeText(req.Alias, MaxAliasLength, DefaultAlias),
		Message:  message,
		Role:     role,
		ParentID: parentID,
	}
	if email := SanitizeEmail(req.Email); email != "" {
		n.Email = &email
	}

	if err := s.schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	// The parent check and the insert are separate statements; a parent
	// deleted in between fails the insert on the foreign key.
	if parentID != nil {
		owner, err := s.repo.PostIDOf(ctx, *parentID)
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidParent
		}
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(owner, postID) {
			return nil, ErrInvalidParent
		}
	}

	c, err := s.repo.Insert(ctx, n)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, c.PostID)
	s.publish(ctx, EventCreated, c)
	return c, nil
}

func (s *service) SetPinned(ctx context.Context, id, postID string, pinned bool) (*Comment, error) {
	id, postID, err := normalizeTarget(id, postID)
	if err != nil {
		return nil, err
	}

	if err := s.schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	c, err := s.repo.SetPinned(ctx, id, postID, pinned)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, c.PostID)
	evt := EventUnpinned
	if pinned {
		evt = EventPinned
	}
	s.publish(ctx, evt, c)
	return c, nil
}

func (s *service) Delete(ctx context.Context, id, postID string) error {
	id, postID, err := normalizeTarget(id, postID)
	if err != nil {
		return err
	}

	if err := s.schema.EnsureSchema(ctx); err != nil {
		return err
	}

	owner, err := s.repo.Delete(ctx, id, postID)
	if err != nil {
		return err
	}

	s.invalidate(ctx, owner)
	s.publish(ctx, EventDeleted, &Comment{ID: id, PostID: owner})
	return nil
}

func (s *service) Health(ctx context.Context) map[string]string {
	out := map[string]string{
		"schema": "pending",
		"cache":  "up",
	}
	if s.schema.Ready() {
		out["schema"] = "ready"
	}
	if err := s.cache.Health(ctx); err != nil {
		out["cache"] = "down"
		out["cache_error"] = err.Error()
	}
	return out
}

// ClampLimit applies the feed default and bounds.
func ClampLimit(n int) int {
	switch {
	case n == 0:
		return DefaultFeedLimit
	case n < 1:
		return 1
	case n > MaxFeedLimit:
		return MaxFeedLimit
	default:
		return n
	}
}

// normalizeTarget validates the id of a mutation and its optional post filter.
func normalizeTarget(id, postID string) (string, string, error) {
	id = NormalizeIdentifier(id)
	if id == "" {
		return "", "", ErrInvalidID
	}
	raw := strings.TrimSpace(postID)
	if raw == "" {
		return id, "", nil
	}
	postID = NormalizeIdentifier(raw)
	if postID == "" {
		return "", "", ErrInvalidID
	}
	return id, postID, nil
}

func (s *service) readCache(ctx context.Context, key string, dst any) bool {
	b, ok := s.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		s.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		s.cache.Delete(ctx, key)
		return false
	}
	return true
}

func (s *service) writeCache(ctx context.Context, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	s.cache.Set(ctx, key, b, ttl)
}

func (s *service) invalidate(ctx context.Context, postID string) {
	if postID != "" {
		s.cache.Delete(ctx, postCachePrefix+strings.ToLower(postID))
	}
	s.cache.DeletePrefix(ctx, feedCachePrefix)
}

func (s *service) publish(ctx context.Context, kind string, c *Comment) {
	if s.events == nil {
		return
	}
	evt := Event{
		Type:       kind,
		CommentID:  c.ID,
		PostID:     c.PostID,
		ParentID:   c.ParentID,
		Role:       c.Role,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.PublishEvent(ctx, c.PostID, evt); err != nil {
		s.logger.Warn("publish comment event failed", "type", kind, "comment_id", c.ID, "error", err)
	}
}
