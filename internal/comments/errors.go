package comments

import "errors"

var (
	ErrMissingPostID  = errors.New("missing postId")
	ErrMissingMessage = errors.New("missing message")
	ErrInvalidID      = errors.New("invalid id")
	ErrInvalidParent  = errors.New("invalid parent")
	// ErrNotFound covers both a missing row and a row the operation may not
	// touch, such as pinning a reply.
	ErrNotFound = errors.New("comment not found")
)
