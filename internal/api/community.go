// ABOUTME: HTTP handlers for profiles, posts and comments
// ABOUTME: Includes the live post and comment streams

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/2389/pairchat/internal/auth"
	"github.com/2389/pairchat/internal/community"
	"github.com/2389/pairchat/internal/store"
)

// TextRequest is the JSON body for creating or editing a post or comment.
type TextRequest struct {
	Text string `json:"text" validate:"required"`
}

// PostsEvent is the data of a "snapshot" event on the post stream.
type PostsEvent struct {
	Posts []community.Post `json:"posts"`
}

// CommentsEvent is the data of a "snapshot" event on a comment stream.
type CommentsEvent struct {
	PostID   string              `json:"post_id"`
	Comments []community.Comment `json:"comments"`
}

// handleGetProfile handles GET /api/profiles/{id}.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.community.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		s.sendCommunityError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, profile)
}

// handleCreateProfile handles POST /api/profiles. The profile is always the
// caller's own.
func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var edit community.ProfileEdit
	if err := decodeRequest(r, &edit); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := auth.MustFromContext(r.Context())
	profile, err := s.community.CreateProfile(r.Context(), caller.UserID, edit)
	if err != nil {
		s.sendCommunityError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, profile)
}

// handleEditProfile handles PATCH /api/profiles/{id}. Users edit only their
// own profile.
func (s *Server) handleEditProfile(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())
	if r.PathValue("id") != caller.UserID {
		s.sendCommunityError(w, r, community.ErrForbidden)
		return
	}

	var edit community.ProfileEdit
	if err := decodeRequest(r, &edit); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := s.community.EditProfile(r.Context(), caller.UserID, edit)
	if err != nil {
		s.sendCommunityError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, profile)
}

// handleCreatePost handles POST /api/posts.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := decodeRequest(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := auth.MustFromContext(r.Context())
	post, err := s.community.SavePost(r.Context(), caller.UserID, req.Text)
	if err != nil {
		s.sendCommunityError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, post)
}

// handleUpdatePost handles PATCH /api/posts/{id}.
func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := decodeRequest(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := auth.MustFromContext(r.Context())
	post, err := s.community.UpdatePost(r.Context(), caller.UserID, r.PathValue("id"), req.Text)
	if err != nil {
		s.sendCommunityError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, post)
}

// handleCreateComment handles POST /api/posts/{id}/comments.
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := decodeRequest(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller := auth.MustFromContext(r.Context())
	comment, err := s.community.SaveComment(r.Context(), caller.UserID, r.PathValue("id"), req.Text)
	if err != nil {
		s.sendCommunityError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, comment)
}

// handlePostStream handles GET /api/posts/stream.
func (s *Server) handlePostStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := s.streamingWriter(w)
	if !ok {
		return
	}

	updates := make(chan PostsEvent, 1)
	failures := make(chan error, 1)
	unsubscribe, err := s.community.SubscribeToPosts(r.Context(), community.Observer[community.Post]{
		OnUpdate: func(posts []community.Post) { offerLatest(updates, PostsEvent{Posts: posts}) },
		OnError:  func(err error) { failures <- err },
	})
	if err != nil {
		s.sendCommunityError(w, r, err)
		return
	}
	defer unsubscribe()

	serveSnapshots(s, w, r, flusher, updates, failures, "stream", "posts")
}

// handleCommentStream handles GET /api/posts/{id}/comments/stream.
func (s *Server) handleCommentStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := s.streamingWriter(w)
	if !ok {
		return
	}

	postID := r.PathValue("id")
	updates := make(chan CommentsEvent, 1)
	failures := make(chan error, 1)
	unsubscribe, err := s.community.SubscribeToComments(r.Context(), postID, community.Observer[community.Comment]{
		OnUpdate: func(comments []community.Comment) {
			offerLatest(updates, CommentsEvent{PostID: postID, Comments: comments})
		},
		OnError: func(err error) { failures <- err },
	})
	if err != nil {
		s.sendCommunityError(w, r, err)
		return
	}
	defer unsubscribe()

	serveSnapshots(s, w, r, flusher, updates, failures, "stream", "comments", "post_id", postID)
}

// sendCommunityError maps community errors to status codes. Store details
// are logged, not returned.
func (s *Server) sendCommunityError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, community.ErrInvalidInput):
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, community.ErrForbidden):
		s.sendJSONError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, store.ErrNotFound):
		s.sendJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDuplicateProfile):
		s.sendJSONError(w, http.StatusConflict, "profile already exists")
	case errors.Is(err, context.Canceled):
		s.logger.Debug("request canceled", "path", r.URL.Path)
	case errors.Is(err, store.ErrClosed):
		s.sendJSONError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}
