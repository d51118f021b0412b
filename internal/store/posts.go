// ABOUTME: Post and comment store methods for the SQLite store
// ABOUTME: Posts list newest first, comments oldest first, both with live subscriptions

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/2389/pairchat/internal/feed"
)

// CreatePost inserts a new post.
func (s *SQLiteStore) CreatePost(ctx context.Context, p *Post) error {
	if s.isClosed() {
		return ErrClosed
	}

	p.ID = uuid.New().String()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt

	query := `
		INSERT INTO posts (id, author_id, text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.AuthorID,
		p.Text,
		p.CreatedAt.Format(timeFormat),
		p.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}

	s.logger.Debug("created post", "id", p.ID, "author_id", p.AuthorID)
	s.changes.Publish(postsTopic, feed.Change{Topic: postsTopic, ID: p.ID})
	return nil
}

// GetPost retrieves a post by ID.
func (s *SQLiteStore) GetPost(ctx context.Context, postID string) (*Post, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	query := `
		SELECT id, author_id, text, created_at, updated_at
		FROM posts
		WHERE id = ?
	`
	p, err := scanPost(s.db.QueryRowContext(ctx, query, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// UpdatePostText replaces the text of a post.
func (s *SQLiteStore) UpdatePostText(ctx context.Context, postID, text string) (*Post, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE posts SET text = ?, updated_at = ? WHERE id = ?`,
		text, s.now().Format(timeFormat), postID)
	if err != nil {
		return nil, fmt.Errorf("updating post: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("updated post", "id", postID)
	s.changes.Publish(postsTopic, feed.Change{Topic: postsTopic, ID: postID})
	return s.GetPost(ctx, postID)
}

// ListPosts returns every post, newest first.
func (s *SQLiteStore) ListPosts(ctx context.Context) ([]*Post, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	query := `
		SELECT id, author_id, text, created_at, updated_at
		FROM posts
		ORDER BY created_at DESC, rowid DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post rows: %w", err)
	}

	return posts, nil
}

// SubscribePosts opens a live subscription on the post list.
func (s *SQLiteStore) SubscribePosts(ctx context.Context) (*Subscription[*Post], error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	topics := []string{postsTopic, profilesTopic}
	return newSubscription(ctx, postsTopic, s.changes, topics, s.ListPosts, s.logger), nil
}

// CreateComment inserts a comment on an existing post.
func (s *SQLiteStore) CreateComment(ctx context.Context, c *Comment) (err error) {
	if s.isClosed() {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, c.PostID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return err
	}
	if err != nil {
		return fmt.Errorf("checking post: %w", err)
	}

	c.ID = uuid.New().String()
	c.CreatedAt = s.now()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, author_id, text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		c.ID,
		c.PostID,
		c.AuthorID,
		c.Text,
		c.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing comment: %w", err)
	}

	s.logger.Debug("created comment", "id", c.ID, "post_id", c.PostID)
	topic := commentsTopic(c.PostID)
	s.changes.Publish(topic, feed.Change{Topic: topic, ID: c.ID})
	return nil
}

// ListComments returns a post's comments, oldest first.
func (s *SQLiteStore) ListComments(ctx context.Context, postID string) ([]*Comment, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	query := `
		SELECT id, post_id, author_id, text, created_at
		FROM comments
		WHERE post_id = ?
		ORDER BY created_at ASC, rowid ASC
	`
	rows, err := s.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*Comment, 0)
	for rows.Next() {
		var c Comment
		var createdAtStr string
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAtStr); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comment rows: %w", err)
	}

	return comments, nil
}

// SubscribeComments opens a live subscription on a post's comments.
func (s *SQLiteStore) SubscribeComments(ctx context.Context, postID string) (*Subscription[*Comment], error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	topic := commentsTopic(postID)
	list := func(ctx context.Context) ([]*Comment, error) {
		return s.ListComments(ctx, postID)
	}
	return newSubscription(ctx, topic, s.changes, []string{topic, profilesTopic}, list, s.logger), nil
}

// scanPost scans one post row. sql.ErrNoRows is returned unwrapped.
func scanPost(row rowScanner) (*Post, error) {
	var p Post
	var createdAtStr, updatedAtStr string

	err := row.Scan(&p.ID, &p.AuthorID, &p.Text, &createdAtStr, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning post: %w", err)
	}

	if p.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, err
	}

	return &p, nil
}
