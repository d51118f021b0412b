// Package community handles the public side of pairchat: user profiles,
// posts, and comments on posts.
//
// # Overview
//
// Service wraps a store with validation and author enrichment:
//
//	svc := community.New(store, logger)
//	post, err := svc.SavePost(ctx, "alice", "hello everyone")
//
// Key operations:
//
//   - GetProfile, CreateProfile, EditProfile: one profile per user ID
//   - SavePost, UpdatePost: only the author may edit a post
//   - SubscribeToPosts: live list, newest first
//   - SaveComment, SubscribeToComments: live list per post, oldest first
//
// # Authors
//
// Posts and comments store only the author's user ID. Every delivery looks
// the authors up and fills in AuthorName (and AuthorPhotoURL for posts). An
// author without a profile or without a display name shows as UnknownAuthor.
// Profile edits re-deliver open post and comment lists.
//
// # Errors
//
//   - ErrInvalidInput: missing or oversized fields, malformed email or URL
//   - ErrForbidden: editing someone else's post
//   - store.ErrNotFound, store.ErrDuplicateProfile: wrapped from the store
//
// Live subscription failures are terminal and reach Observer.OnError once.
package community
