// ABOUTME: MockStore profile, post and comment operations
// ABOUTME: Mirrors the SQLite ordering and notification rules in memory

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/samber/lo/mutable"

	"github.com/2389/pairchat/internal/feed"
)

// now returns the mock clock in UTC.
func (m *MockStore) now() time.Time {
	return m.clock().UTC()
}

// GetProfile returns a copy of the stored profile.
func (m *MockStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpGetProfile); err != nil {
		return nil, err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	result := *p
	return &result, nil
}

// GetProfiles returns copies of the profiles that exist among userIDs.
func (m *MockStore) GetProfiles(ctx context.Context, userIDs []string) (map[string]*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpGetProfiles); err != nil {
		return nil, err
	}
	result := make(map[string]*Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			cp := *p
			result[id] = &cp
		}
	}
	return result, nil
}

// CreateProfile stores a new profile unless the user already has one.
func (m *MockStore) CreateProfile(ctx context.Context, p *Profile) error {
	m.mu.Lock()
	if err := m.begin(OpCreateProfile); err != nil {
		m.mu.Unlock()
		return err
	}
	if _, exists := m.profiles[p.ID]; exists {
		m.mu.Unlock()
		return ErrDuplicateProfile
	}

	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	m.profiles[p.ID] = &stored
	m.mu.Unlock()

	m.changes.Publish(profilesTopic, feed.Change{Topic: profilesTopic, ID: p.ID})
	return nil
}

// UpdateProfile applies patch to the stored profile.
func (m *MockStore) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*Profile, error) {
	m.mu.Lock()
	if err := m.begin(OpUpdateProfile); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	current, ok := m.profiles[userID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	updated := patch.Apply(*current)
	updated.UpdatedAt = m.now()
	stored := updated
	m.profiles[userID] = &stored
	m.mu.Unlock()

	m.changes.Publish(profilesTopic, feed.Change{Topic: profilesTopic, ID: userID})
	return &updated, nil
}

// CreatePost stores a new post.
func (m *MockStore) CreatePost(ctx context.Context, p *Post) error {
	m.mu.Lock()
	if err := m.begin(OpCreatePost); err != nil {
		m.mu.Unlock()
		return err
	}

	p.ID = uuid.New().String()
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	m.posts = append(m.posts, &stored)
	m.mu.Unlock()

	m.changes.Publish(postsTopic, feed.Change{Topic: postsTopic, ID: p.ID})
	return nil
}

// GetPost returns a copy of the stored post.
func (m *MockStore) GetPost(ctx context.Context, postID string) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpGetPost); err != nil {
		return nil, err
	}
	p, ok := m.findPost(postID)
	if !ok {
		return nil, ErrNotFound
	}
	result := *p
	return &result, nil
}

// UpdatePostText replaces the text of a stored post.
func (m *MockStore) UpdatePostText(ctx context.Context, postID, text string) (*Post, error) {
	m.mu.Lock()
	if err := m.begin(OpUpdatePost); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	p, ok := m.findPost(postID)
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	p.Text = text
	p.UpdatedAt = m.now()
	result := *p
	m.mu.Unlock()

	m.changes.Publish(postsTopic, feed.Change{Topic: postsTopic, ID: postID})
	return &result, nil
}

// findPost returns the stored post. Caller must hold m.mu.
func (m *MockStore) findPost(postID string) (*Post, bool) {
	return lo.Find(m.posts, func(p *Post) bool { return p.ID == postID })
}

// ListPosts returns copies of every post, newest first.
func (m *MockStore) ListPosts(ctx context.Context) ([]*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpListPosts); err != nil {
		return nil, err
	}

	// Insertion order already follows the clock, so reversing gives newest first.
	result := lo.Map(m.posts, func(p *Post, _ int) *Post {
		cp := *p
		return &cp
	})
	mutable.Reverse(result)
	return result, nil
}

// SubscribePosts opens a live subscription on the post list.
func (m *MockStore) SubscribePosts(ctx context.Context) (*Subscription[*Post], error) {
	if err := m.record(OpSubscribePosts); err != nil {
		return nil, err
	}
	topics := []string{postsTopic, profilesTopic}
	return newSubscription(ctx, postsTopic, m.changes, topics, m.ListPosts, m.logger), nil
}

// CreateComment stores a comment on an existing post.
func (m *MockStore) CreateComment(ctx context.Context, c *Comment) error {
	m.mu.Lock()
	if err := m.begin(OpCreateComment); err != nil {
		m.mu.Unlock()
		return err
	}
	if _, ok := m.findPost(c.PostID); !ok {
		m.mu.Unlock()
		return ErrNotFound
	}

	c.ID = uuid.New().String()
	c.CreatedAt = m.now()
	stored := *c
	m.comments[c.PostID] = append(m.comments[c.PostID], &stored)
	m.mu.Unlock()

	topic := commentsTopic(c.PostID)
	m.changes.Publish(topic, feed.Change{Topic: topic, ID: c.ID})
	return nil
}

// ListComments returns copies of a post's comments, oldest first.
func (m *MockStore) ListComments(ctx context.Context, postID string) ([]*Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(OpListComments); err != nil {
		return nil, err
	}
	result := lo.Map(m.comments[postID], func(c *Comment, _ int) *Comment {
		cp := *c
		return &cp
	})
	return result, nil
}

// SubscribeComments opens a live subscription on a post's comments.
func (m *MockStore) SubscribeComments(ctx context.Context, postID string) (*Subscription[*Comment], error) {
	if err := m.record(OpSubscribeComments); err != nil {
		return nil, err
	}
	topic := commentsTopic(postID)
	list := func(ctx context.Context) ([]*Comment, error) {
		return m.ListComments(ctx, postID)
	}
	return newSubscription(ctx, topic, m.changes, []string{topic, profilesTopic}, list, m.logger), nil
}
