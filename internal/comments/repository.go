package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"siteapi/internal/database"
)

// commentColumns is the fixed column contract read by scanComment.
const commentColumns = `id, post_id, alias, message, role, parent_id, pinned_at, created_at`

// Repository handles all database operations for comments
type Repository struct {
	db database.Querier
}

// NewRepository creates a new comments repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// scanComment maps one row in commentColumns order. extra receives any
// trailing columns.
func scanComment(row pgx.Row, extra ...any) (*Comment, error) {
	c := &Comment{}
	dest := []any{
		&c.ID,
		&c.PostID,
		&c.Alias,
		&c.Message,
		&c.Role,
		&c.ParentID,
		&c.PinnedAt,
		&c.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return c, nil
}

// ListByPost returns every comment on postID, pinned ones first, the rest
// oldest first.
func (r *Repository) ListByPost(ctx context.Context, postID string) ([]Comment, error) {
	query := `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE post_id = $1::uuid
		ORDER BY pinned_at DESC NULLS LAST, created_at ASC
	`

	rows, err := r.db.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return out, nil
}

// Latest returns the newest comments across all posts with their post's
// title and category. Until the posts table exists the feed is served without
// the join and both fields are null.
func (r *Repository) Latest(ctx context.Context, q FeedQuery) ([]FeedItem, error) {
	items, err := r.latest(ctx, q, true)
	if isUndefinedTable(err) {
		return r.latest(ctx, q, false)
	}
	return items, err
}

func (r *Repository) latest(ctx context.Context, q FeedQuery, withPosts bool) ([]FeedItem, error) {
	args := make([]any, 0, 2)
	where := ""
	if q.Since != nil {
		args = append(args, *q.Since)
		where = fmt.Sprintf("WHERE c.created_at > $%d", len(args))
	}
	args = append(args, q.Limit)

	postCols, join := "NULL::text, NULL::text", ""
	if withPosts {
		postCols, join = "p.title, p.category", "LEFT JOIN posts p ON p.id = c.post_id"
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.post_id, c.alias, c.message, c.role, c.parent_id, c.pinned_at, c.created_at,
			%s
		FROM comments c
		%s
		%s
		ORDER BY c.created_at DESC
		LIMIT $%d
	`, postCols, join, where, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}
	defer rows.Close()

	out := []FeedItem{}
	for rows.Next() {
		var item FeedItem
		c, err := scanComment(rows, &item.PostTitle, &item.PostCategory)
		if err != nil {
			return nil, fmt.Errorf("scan feed item: %w", err)
		}
		item.Comment = *c
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed: %w", err)
	}

	return out, nil
}

// isUndefinedTable reports SQLSTATE 42P01.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

// PostIDOf returns the post a comment belongs to.
func (r *Repository) PostIDOf(ctx context.Context, id string) (string, error) {
	var postID string
	err := r.db.QueryRow(ctx, `SELECT post_id FROM comments WHERE id = $1::uuid`, id).Scan(&postID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup comment post: %w", err)
	}
	return postID, nil
}

// Insert stores n and returns the row with server-assigned id and timestamp.
func (r *Repository) Insert(ctx context.Context, n newComment) (*Comment, error) {
	query := `
		INSERT INTO comments (post_id, alias, email, message, role, parent_id)
		VALUES ($1::uuid, $2, $3, $4, $5, $6::uuid)
		RETURNING ` + commentColumns

	c, err := scanComment(r.db.QueryRow(ctx, query,
		n.PostID, n.Alias, n.Email, n.Message, string(n.Role), n.ParentID))
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

// SetPinned pins or unpins a top-level comment. postID, when non-empty,
// narrows the match. Replies never match.
func (r *Repository) SetPinned(ctx context.Context, id, postID string, pinned bool) (*Comment, error) {
	var b strings.Builder
	b.WriteString(`
		UPDATE comments
		SET pinned_at = CASE WHEN $2::boolean THEN NOW() ELSE NULL END
		WHERE id = $1::uuid AND parent_id IS NULL`)
	args := []any{id, pinned}
	if postID != "" {
		args = append(args, postID)
		fmt.Fprintf(&b, " AND post_id = $%d::uuid", len(args))
	}
	b.WriteString("\n\t\tRETURNING " + commentColumns)

	c, err := scanComment(r.db.QueryRow(ctx, b.String(), args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update pin: %w", err)
	}
	return c, nil
}

// Delete removes one comment; replies go with it through the parent foreign
// key. It returns the post the comment belonged to.
func (r *Repository) Delete(ctx context.Context, id, postID string) (string, error) {
	query := `DELETE FROM comments WHERE id = $1::uuid`
	args := []any{id}
	if postID != "" {
		args = append(args, postID)
		query += fmt.Sprintf(" AND post_id = $%d::uuid", len(args))
	}
	query += " RETURNING post_id"

	var owner string
	err := r.db.QueryRow(ctx, query, args...).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delete comment: %w", err)
	}
	return owner, nil
}
