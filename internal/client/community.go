// ABOUTME: Client calls for profiles, posts, and comments
// ABOUTME: Profile edits send only the fields that are set

package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/2389/pairchat/internal/api"
	"github.com/2389/pairchat/internal/community"
)

// GetProfile fetches userID's profile. A missing profile is a *StatusError
// with code 404.
func (c *Client) GetProfile(ctx context.Context, userID string) (community.Profile, error) {
	var profile community.Profile
	err := c.doJSON(ctx, http.MethodGet, "/api/profiles/"+url.PathEscape(userID), nil, nil, http.StatusOK, &profile)
	return profile, err
}

// CreateProfile creates the caller's profile. It fails with 409 when one
// already exists.
func (c *Client) CreateProfile(ctx context.Context, edit community.ProfileEdit) (community.Profile, error) {
	var profile community.Profile
	err := c.doJSON(ctx, http.MethodPost, "/api/profiles", nil, edit, http.StatusCreated, &profile)
	return profile, err
}

// UpdateProfile applies edit to userID's profile, which must be the
// caller's.
func (c *Client) UpdateProfile(ctx context.Context, userID string, edit community.ProfileEdit) (community.Profile, error) {
	var profile community.Profile
	err := c.doJSON(ctx, http.MethodPatch, "/api/profiles/"+url.PathEscape(userID), nil, edit, http.StatusOK, &profile)
	return profile, err
}

// CreatePost publishes a post as the caller.
func (c *Client) CreatePost(ctx context.Context, text string) (community.Post, error) {
	var post community.Post
	err := c.doJSON(ctx, http.MethodPost, "/api/posts", nil, api.TextRequest{Text: text}, http.StatusCreated, &post)
	return post, err
}

// UpdatePost replaces the text of one of the caller's posts.
func (c *Client) UpdatePost(ctx context.Context, postID, text string) (community.Post, error) {
	var post community.Post
	err := c.doJSON(ctx, http.MethodPatch, "/api/posts/"+url.PathEscape(postID), nil, api.TextRequest{Text: text}, http.StatusOK, &post)
	return post, err
}

// CreateComment adds a comment to postID.
func (c *Client) CreateComment(ctx context.Context, postID, text string) (community.Comment, error) {
	var comment community.Comment
	path := "/api/posts/" + url.PathEscape(postID) + "/comments"
	err := c.doJSON(ctx, http.MethodPost, path, nil, api.TextRequest{Text: text}, http.StatusCreated, &comment)
	return comment, err
}
