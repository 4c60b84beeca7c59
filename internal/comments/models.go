package comments

import "time"

// Role records whether a comment was written by the site admin.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	DefaultAlias     = "Anónimo"
	MaxAliasLength   = 60
	MaxMessageLength = 2000
	MaxEmailLength   = 254

	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

// Comment is the public shape of a comments row. Email is stored for
// moderation only and never leaves the repository.
type Comment struct {
	ID        string     `json:"id"`
	PostID    string     `json:"postId"`
	Alias     string     `json:"alias"`
	Message   string     `json:"message"`
	Role      Role       `json:"role"`
	ParentID  *string    `json:"parentId"`
	PinnedAt  *time.Time `json:"pinnedAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

// FeedItem is a comment joined with its post for the latest-activity feed.
type FeedItem struct {
	Comment
	PostTitle    *string `json:"postTitle"`
	PostCategory *string `json:"postCategory"`
}

// CreateCommentRequest is the POST body. Every field is optional at the
// decoding stage; the service decides what is required.
type CreateCommentRequest struct {
	PostID   string `json:"postId"`
	Message  string `json:"message"`
	Alias    string `json:"alias"`
	Email    string `json:"email"`
	ParentID string `json:"parentId"`
}

// PinRequest is the PATCH body. Pinned is required.
type PinRequest struct {
	Pinned *bool `json:"pinned"`
}

// FeedQuery selects a page of the latest-activity feed.
type FeedQuery struct {
	Limit int
	// Since, when set, keeps only comments created strictly after it.
	Since *time.Time
}

// newComment is a validated row ready for insertion.
type newComment struct {
	PostID   string
	Alias    string
	Email    *string
	Message  string
	Role     Role
	ParentID *string
}
