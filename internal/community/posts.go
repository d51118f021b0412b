// ABOUTME: Public posts and their comments
// ABOUTME: Saved items come back with the author's display name filled in

package community

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/2389/pairchat/internal/store"
)

// Post is a public post with its author's display details.
type Post struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"author_id"`
	AuthorName     string    `json:"author_name"`
	AuthorPhotoURL string    `json:"author_photo_url,omitempty"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Edited reports whether the post changed after it was created.
func (p Post) Edited() bool {
	return p.UpdatedAt.After(p.CreatedAt)
}

// Comment is a reply to a post with its author's display name.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	postRule    = fmt.Sprintf("required,max=%d", MaxPostLength)
	commentRule = fmt.Sprintf("required,max=%d", MaxCommentLength)
)

// normalize trims text and checks it against rule.
func normalize(text, rule string) (string, error) {
	text = strings.TrimSpace(text)
	if err := validate.VarWithKey("text", text, rule); err != nil {
		return "", invalidInput(err)
	}
	return text, nil
}

// SavePost publishes a new post by authorID.
func (s *Service) SavePost(ctx context.Context, authorID, text string) (Post, error) {
	if err := validateUserID(authorID); err != nil {
		return Post{}, err
	}
	text, err := normalize(text, postRule)
	if err != nil {
		return Post{}, err
	}

	p := &store.Post{AuthorID: authorID, Text: text}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return Post{}, fmt.Errorf("saving post: %w", err)
	}
	s.logger.Info("post saved", "post_id", p.ID, "author_id", authorID)

	return s.enrichPost(ctx, p)
}

// UpdatePost replaces the text of postID. Only the post's author may edit it.
func (s *Service) UpdatePost(ctx context.Context, editorID, postID, text string) (Post, error) {
	if err := validateUserID(editorID); err != nil {
		return Post{}, err
	}
	if err := validate.VarWithKey("post_id", postID, "required"); err != nil {
		return Post{}, invalidInput(err)
	}
	text, err := normalize(text, postRule)
	if err != nil {
		return Post{}, err
	}

	current, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return Post{}, fmt.Errorf("loading post: %w", err)
	}
	if current.AuthorID != editorID {
		s.logger.Warn("post edit refused",
			"post_id", postID,
			"author_id", current.AuthorID,
			"editor_id", editorID)
		return Post{}, ErrForbidden
	}

	updated, err := s.store.UpdatePostText(ctx, postID, text)
	if err != nil {
		return Post{}, fmt.Errorf("updating post: %w", err)
	}
	s.logger.Debug("post updated", "post_id", postID)

	return s.enrichPost(ctx, updated)
}

// SaveComment adds a comment by authorID to an existing post.
func (s *Service) SaveComment(ctx context.Context, authorID, postID, text string) (Comment, error) {
	if err := validateUserID(authorID); err != nil {
		return Comment{}, err
	}
	if err := validate.VarWithKey("post_id", postID, "required"); err != nil {
		return Comment{}, invalidInput(err)
	}
	text, err := normalize(text, commentRule)
	if err != nil {
		return Comment{}, err
	}

	c := &store.Comment{PostID: postID, AuthorID: authorID, Text: text}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return Comment{}, fmt.Errorf("saving comment: %w", err)
	}
	s.logger.Debug("comment saved", "comment_id", c.ID, "post_id", postID)

	comments, err := s.enrichComments(ctx, []*store.Comment{c})
	if err != nil {
		return Comment{}, err
	}
	return comments[0], nil
}

func (s *Service) enrichPost(ctx context.Context, p *store.Post) (Post, error) {
	posts, err := s.enrichPosts(ctx, []*store.Post{p})
	if err != nil {
		return Post{}, err
	}
	return posts[0], nil
}

// enrichPosts attaches author details, fetching each author once.
func (s *Service) enrichPosts(ctx context.Context, posts []*store.Post) ([]Post, error) {
	profiles, err := s.authors(ctx, lo.Map(posts, func(p *store.Post, _ int) string { return p.AuthorID }))
	if err != nil {
		return nil, fmt.Errorf("loading post authors: %w", err)
	}
	return lo.Map(posts, func(p *store.Post, _ int) Post {
		author := profiles[p.AuthorID]
		return Post{
			ID:             p.ID,
			AuthorID:       p.AuthorID,
			AuthorName:     authorName(author),
			AuthorPhotoURL: authorPhoto(author),
			Text:           p.Text,
			CreatedAt:      p.CreatedAt,
			UpdatedAt:      p.UpdatedAt,
		}
	}), nil
}

// enrichComments attaches author names, fetching each author once.
func (s *Service) enrichComments(ctx context.Context, comments []*store.Comment) ([]Comment, error) {
	profiles, err := s.authors(ctx, lo.Map(comments, func(c *store.Comment, _ int) string { return c.AuthorID }))
	if err != nil {
		return nil, fmt.Errorf("loading comment authors: %w", err)
	}
	return lo.Map(comments, func(c *store.Comment, _ int) Comment {
		return Comment{
			ID:         c.ID,
			PostID:     c.PostID,
			AuthorID:   c.AuthorID,
			AuthorName: authorName(profiles[c.AuthorID]),
			Text:       c.Text,
			CreatedAt:  c.CreatedAt,
		}
	}), nil
}

