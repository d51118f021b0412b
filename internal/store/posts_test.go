package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ProfileLifecycle(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.GetProfile(ctx, "alice")
			assert.ErrorIs(t, err, ErrNotFound)

			p := &Profile{ID: "alice", Email: "alice@example.com", DisplayName: "Alice"}
			require.NoError(t, s.CreateProfile(ctx, p))
			assert.False(t, p.CreatedAt.IsZero())
			assert.Equal(t, p.CreatedAt, p.UpdatedAt)

			err = s.CreateProfile(ctx, &Profile{ID: "alice", DisplayName: "Impostor"})
			assert.ErrorIs(t, err, ErrDuplicateProfile)

			got, err := s.GetProfile(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, "Alice", got.DisplayName)

			updated, err := s.UpdateProfile(ctx, "alice", ProfilePatch{
				Bio:    lo.ToPtr("Gopher"),
				Career: lo.ToPtr("Engineer"),
			})
			require.NoError(t, err)
			assert.Equal(t, "Alice", updated.DisplayName)
			assert.Equal(t, "alice@example.com", updated.Email)
			assert.Equal(t, "Gopher", updated.Bio)
			assert.Equal(t, "Engineer", updated.Career)

			got, err = s.GetProfile(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, "Gopher", got.Bio)

			_, err = s.UpdateProfile(ctx, "nobody", ProfilePatch{Bio: lo.ToPtr("x")})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_GetProfilesSkipsMissing(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.CreateProfile(ctx, &Profile{ID: "a", DisplayName: "A"}))
			require.NoError(t, s.CreateProfile(ctx, &Profile{ID: "b", DisplayName: "B"}))

			got, err := s.GetProfiles(ctx, []string{"a", "b", "ghost"})
			require.NoError(t, err)
			assert.Len(t, got, 2)
			assert.Equal(t, "A", got["a"].DisplayName)
			assert.NotContains(t, got, "ghost")

			empty, err := s.GetProfiles(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStore_PostsNewestFirstAndEditable(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := range 3 {
				require.NoError(t, s.CreatePost(ctx, &Post{AuthorID: "a", Text: fmt.Sprintf("post-%d", i)}))
			}

			posts, err := s.ListPosts(ctx)
			require.NoError(t, err)
			require.Len(t, posts, 3)
			assert.Equal(t, []string{"post-2", "post-1", "post-0"}, lo.Map(posts, func(p *Post, _ int) string { return p.Text }))

			edited, err := s.UpdatePostText(ctx, posts[2].ID, "edited")
			require.NoError(t, err)
			assert.Equal(t, "edited", edited.Text)
			assert.Equal(t, "a", edited.AuthorID)
			assert.False(t, edited.UpdatedAt.Before(edited.CreatedAt))

			got, err := s.GetPost(ctx, posts[2].ID)
			require.NoError(t, err)
			assert.Equal(t, "edited", got.Text)

			_, err = s.UpdatePostText(ctx, "missing", "x")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.GetPost(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_CommentsOldestFirstPerPost(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			p1 := &Post{AuthorID: "a", Text: "one"}
			p2 := &Post{AuthorID: "a", Text: "two"}
			require.NoError(t, s.CreatePost(ctx, p1))
			require.NoError(t, s.CreatePost(ctx, p2))

			for i := range 3 {
				require.NoError(t, s.CreateComment(ctx, &Comment{PostID: p1.ID, AuthorID: "b", Text: fmt.Sprintf("c-%d", i)}))
			}
			require.NoError(t, s.CreateComment(ctx, &Comment{PostID: p2.ID, AuthorID: "c", Text: "other"}))

			comments, err := s.ListComments(ctx, p1.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"c-0", "c-1", "c-2"}, lo.Map(comments, func(c *Comment, _ int) string { return c.Text }))
			for _, c := range comments {
				assert.Equal(t, p1.ID, c.PostID)
				assert.NotEmpty(t, c.ID)
			}

			err = s.CreateComment(ctx, &Comment{PostID: "missing", AuthorID: "b", Text: "x"})
			assert.ErrorIs(t, err, ErrNotFound)

			none, err := s.ListComments(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStore_PostSubscriptionFollowsPostsAndProfiles(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			sub, err := s.SubscribePosts(ctx)
			require.NoError(t, err)
			defer sub.Close()

			first := receiveSnapshot(t, sub)
			require.NoError(t, first.Err)
			assert.Empty(t, first.Items)

			require.NoError(t, s.CreatePost(ctx, &Post{AuthorID: "a", Text: "hello"}))
			next := receiveSnapshot(t, sub)
			require.NoError(t, next.Err)
			require.Len(t, next.Items, 1)
			assert.Equal(t, "hello", next.Items[0].Text)

			// A profile change re-delivers the list so display names can refresh.
			require.NoError(t, s.CreateProfile(ctx, &Profile{ID: "a", DisplayName: "A"}))
			again := receiveSnapshot(t, sub)
			require.NoError(t, again.Err)
			assert.Len(t, again.Items, 1)
		})
	}
}

func TestStore_CommentSubscriptionIgnoresOtherPosts(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			p1 := &Post{AuthorID: "a", Text: "one"}
			p2 := &Post{AuthorID: "a", Text: "two"}
			require.NoError(t, s.CreatePost(ctx, p1))
			require.NoError(t, s.CreatePost(ctx, p2))

			sub, err := s.SubscribeComments(ctx, p1.ID)
			require.NoError(t, err)
			defer sub.Close()
			assert.Empty(t, receiveSnapshot(t, sub).Items)

			require.NoError(t, s.CreateComment(ctx, &Comment{PostID: p2.ID, AuthorID: "b", Text: "elsewhere"}))
			select {
			case snap := <-sub.Snapshots():
				t.Fatalf("unexpected snapshot for another post: %+v", snap)
			case <-time.After(50 * time.Millisecond):
			}

			require.NoError(t, s.CreateComment(ctx, &Comment{PostID: p1.ID, AuthorID: "b", Text: "here"}))
			snap := receiveSnapshot(t, sub)
			require.NoError(t, snap.Err)
			require.Len(t, snap.Items, 1)
			assert.Equal(t, "here", snap.Items[0].Text)
		})
	}
}

func TestMockStore_FailOnPostOperations(t *testing.T) {
	m := NewMockStore()
	defer m.Close()
	ctx := context.Background()

	m.FailOn(OpCreatePost, assert.AnError)
	assert.ErrorIs(t, m.CreatePost(ctx, &Post{AuthorID: "a", Text: "x"}), assert.AnError)
	assert.Equal(t, 1, m.Calls(OpCreatePost))

	m.FailOn(OpCreatePost, nil)
	require.NoError(t, m.CreatePost(ctx, &Post{AuthorID: "a", Text: "x"}))

	m.FailOn(OpGetProfiles, assert.AnError)
	_, err := m.GetProfiles(ctx, []string{"a"})
	assert.ErrorIs(t, err, assert.AnError)
}
